package database

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// GetOrCreateTracker returns the tracker for a game, creating it on the first
// live tick. The second return value reports whether a new row was created,
// which is the restart-safe signal for the one-time "analysis started" message.
// A concurrent create racing on the unique game_id index falls back to the
// existing row and reports created=false.
func (d *Database) GetOrCreateTracker(gameID uint, extID string, now time.Time) (*LiveTracker, bool, error) {
	var t LiveTracker
	err := d.db.Where("game_id = ?", gameID).First(&t).Error
	if err == nil {
		return &t, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	t = LiveTracker{
		GameID:         gameID,
		ExtID:          extID,
		LastAnalysisAt: now.Add(-5 * time.Minute),
	}
	err = d.db.Create(&t).Error
	if err == nil {
		return &t, true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false, err
	}
	if err := d.db.Where("game_id = ?", gameID).First(&t).Error; err != nil {
		return nil, false, err
	}
	return &t, false, nil
}

// SaveTracker persists tracker state after a tick.
func (d *Database) SaveTracker(t *LiveTracker) error {
	return d.db.Save(t).Error
}

// AddOddsSample appends a snapshot of the game's current market odds.
func (d *Database) AddOddsSample(g *Game, now time.Time) error {
	sample := OddsHistorySample{
		GameID:    g.ID,
		ExtID:     g.ExtID,
		OddsHome:  g.OddsHome,
		OddsDraw:  g.OddsDraw,
		OddsAway:  g.OddsAway,
		Timestamp: now,
	}
	return d.db.Create(&sample).Error
}

// PriorOddsSample returns the most recent sample taken at or before the
// cutoff, or nil when none exists.
func (d *Database) PriorOddsSample(gameID uint, cutoff time.Time) (*OddsHistorySample, error) {
	var s OddsHistorySample
	err := d.db.
		Where("game_id = ? AND timestamp <= ?", gameID, cutoff).
		Order("timestamp DESC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FirstOddsSample returns the earliest recorded sample, or nil.
func (d *Database) FirstOddsSample(gameID uint) (*OddsHistorySample, error) {
	var s OddsHistorySample
	err := d.db.
		Where("game_id = ?", gameID).
		Order("timestamp ASC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// RecentOddsSamples returns up to limit samples, newest first.
func (d *Database) RecentOddsSamples(gameID uint, limit int) ([]OddsHistorySample, error) {
	var samples []OddsHistorySample
	err := d.db.
		Where("game_id = ?", gameID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&samples).Error
	return samples, err
}
