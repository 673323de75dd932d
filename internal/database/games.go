package database

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// GetGame fetches a game by primary key.
func (d *Database) GetGame(id uint) (*Game, error) {
	var g Game
	if err := d.db.First(&g, id).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

// FindGameByExt fetches a game by its natural key.
func (d *Database) FindGameByExt(extID string, start time.Time) (*Game, error) {
	var g Game
	err := d.db.Where("ext_id = ? AND start_time = ?", extID, start).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// SaveGame persists all fields of an existing game.
func (d *Database) SaveGame(g *Game) error {
	return d.db.Save(g).Error
}

// UpsertGame creates the candidate row or, when the (ext_id, start_time) row
// already exists (including losing a concurrent-insert race), folds the
// candidate's refreshed fields into it. Lifecycle fields are protected: a
// live/ended status is never overwritten, will_bet never flips back to false,
// and the notification ledger is preserved.
func (d *Database) UpsertGame(candidate *Game) (*Game, error) {
	existing, err := d.FindGameByExt(candidate.ExtID, candidate.StartTime)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		mergeGame(existing, candidate)
		if err := d.db.Save(existing).Error; err != nil {
			return nil, err
		}
		return existing, nil
	}

	err = d.db.Create(candidate).Error
	if err == nil {
		return candidate, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, err
	}

	// Lost the race: another task created the row between the lookup and the
	// insert. Fall back to the update path.
	existing, ferr := d.FindGameByExt(candidate.ExtID, candidate.StartTime)
	if ferr != nil {
		return nil, ferr
	}
	if existing == nil {
		return nil, err
	}
	mergeGame(existing, candidate)
	if err := d.db.Save(existing).Error; err != nil {
		return nil, err
	}
	return existing, nil
}

func mergeGame(dst, src *Game) {
	dst.SourceLink = src.SourceLink
	if src.GameURL != "" {
		dst.GameURL = src.GameURL
	}
	if src.Competition != "" {
		dst.Competition = src.Competition
	}
	if src.TeamHome != "" {
		dst.TeamHome = src.TeamHome
	}
	if src.TeamAway != "" {
		dst.TeamAway = src.TeamAway
	}
	dst.OddsHome = src.OddsHome
	dst.OddsDraw = src.OddsDraw
	dst.OddsAway = src.OddsAway
	dst.Pick = src.Pick
	dst.PickProb = src.PickProb
	dst.PickEV = src.PickEV
	dst.PickReason = src.PickReason
	if src.WillBet {
		dst.WillBet = true
	}
	if dst.Status != StatusLive && dst.Status != StatusEnded {
		dst.Status = src.Status
	}
}

// GamesToActivate returns scheduled will_bet games whose kickoff just passed.
// The short window avoids reprocessing old rows the recovery pass owns.
func (d *Database) GamesToActivate(now time.Time, window time.Duration) ([]Game, error) {
	var games []Game
	err := d.db.
		Where("status = ? AND will_bet = ?", StatusScheduled, true).
		Where("start_time <= ? AND start_time >= ?", now, now.Add(-window)).
		Find(&games).Error
	return games, err
}

// LiveGames returns will_bet games currently inside the live window
// (kicked off, but less than maxAge ago).
func (d *Database) LiveGames(now time.Time, maxAge time.Duration) ([]Game, error) {
	var games []Game
	err := d.db.
		Where("status = ? AND will_bet = ?", StatusLive, true).
		Where("start_time <= ? AND start_time >= ?", now, now.Add(-maxAge)).
		Find(&games).Error
	return games, err
}

// CountWillBet counts selected games (any status).
func (d *Database) CountWillBet() (int64, error) {
	var n int64
	err := d.db.Model(&Game{}).Where("will_bet = ?", true).Count(&n).Error
	return n, err
}

// GamesForDay returns games starting inside [dayStart, dayEnd), optionally
// restricted to selected ones, ordered by kickoff.
func (d *Database) GamesForDay(dayStart, dayEnd time.Time, willBetOnly bool) ([]Game, error) {
	q := d.db.Where("start_time >= ? AND start_time < ?", dayStart, dayEnd)
	if willBetOnly {
		q = q.Where("will_bet = ?", true)
	}
	var games []Game
	err := q.Order("start_time ASC").Find(&games).Error
	return games, err
}

// ScheduledForRescan returns today's games that have not kicked off yet,
// selected or not: a rescan can still promote an unselected game.
func (d *Database) ScheduledForRescan(dayStart, dayEnd, now time.Time) ([]Game, error) {
	var games []Game
	err := d.db.
		Where("status = ?", StatusScheduled).
		Where("start_time >= ? AND start_time < ? AND start_time > ?", dayStart, dayEnd, now).
		Find(&games).Error
	return games, err
}

// HighConfPending returns the day's high-confidence selected games that have
// a pick and have not ended yet (combined slip legs).
func (d *Database) HighConfPending(dayStart, dayEnd time.Time, minProb float64) ([]Game, error) {
	var games []Game
	err := d.db.
		Where("will_bet = ? AND pick_prob >= ? AND pick <> ''", true, minProb).
		Where("start_time >= ? AND start_time < ?", dayStart, dayEnd).
		Where("status IN ?", []string{StatusScheduled, StatusLive}).
		Order("start_time ASC").
		Find(&games).Error
	return games, err
}

// LivePendingRecovery returns live games without an outcome that kicked off
// within maxAge, candidates for resuming monitoring after a restart.
func (d *Database) LivePendingRecovery(now time.Time, maxAge time.Duration) ([]Game, error) {
	var games []Game
	err := d.db.
		Where("status = ? AND will_bet = ? AND outcome IS NULL", StatusLive, true).
		Where("start_time >= ?", now.Add(-maxAge)).
		Find(&games).Error
	return games, err
}

// ScheduledPendingRecovery returns selected scheduled games around now that
// need their jobs re-armed after a restart.
func (d *Database) ScheduledPendingRecovery(now time.Time, back, ahead time.Duration) ([]Game, error) {
	var games []Game
	err := d.db.
		Where("status = ? AND will_bet = ?", StatusScheduled, true).
		Where("start_time >= ? AND start_time <= ?", now.Add(-back), now.Add(ahead)).
		Find(&games).Error
	return games, err
}

// MissingResults returns selected games without a settled outcome whose
// kickoff is old enough that a result should exist, within the lookback.
// Scheduled rows qualify too: a game can sit at "scheduled" when the process
// was down across its whole playing window.
func (d *Database) MissingResults(now time.Time, lookback, minAge time.Duration) ([]Game, error) {
	var games []Game
	err := d.db.
		Where("will_bet = ? AND outcome IS NULL", true).
		Where("status IN ?", []string{StatusScheduled, StatusLive, StatusEnded}).
		Where("start_time >= ? AND start_time <= ?", now.Add(-lookback), now.Add(-minAge)).
		Find(&games).Error
	return games, err
}

// GamesByIDs fetches a set of games by primary key.
func (d *Database) GamesByIDs(ids []uint) ([]Game, error) {
	var games []Game
	err := d.db.Where("id IN ?", ids).Find(&games).Error
	return games, err
}
