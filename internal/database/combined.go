package database

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// PendingSlipForDay returns the pending combined slip whose bet date falls
// inside [dayStart, dayEnd), or nil when none exists.
func (d *Database) PendingSlipForDay(dayStart, dayEnd time.Time) (*CombinedBet, error) {
	var slip CombinedBet
	err := d.db.
		Where("status = ? AND bet_date >= ? AND bet_date < ?", SlipPending, dayStart, dayEnd).
		First(&slip).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &slip, nil
}

// CreateSlip stores a new combined slip.
func (d *Database) CreateSlip(slip *CombinedBet) error {
	return d.db.Create(slip).Error
}

// SaveSlip persists updated legs or settlement state.
func (d *Database) SaveSlip(slip *CombinedBet) error {
	return d.db.Save(slip).Error
}

// PendingSlips returns all unsettled slips, oldest first.
func (d *Database) PendingSlips() ([]CombinedBet, error) {
	var slips []CombinedBet
	err := d.db.Where("status = ?", SlipPending).Order("bet_date ASC").Find(&slips).Error
	return slips, err
}

// SettledSlipsSince returns won/lost slips with a bet date at or after the
// cutoff, used for the rolling accuracy report.
func (d *Database) SettledSlipsSince(cutoff time.Time) ([]CombinedBet, error) {
	var slips []CombinedBet
	err := d.db.
		Where("status IN ? AND bet_date >= ?", []string{SlipWon, SlipLost}, cutoff).
		Order("bet_date ASC").
		Find(&slips).Error
	return slips, err
}

// SlipGameIDs decodes the slip's leg game IDs.
func (s *CombinedBet) SlipGameIDs() ([]uint, error) {
	var ids []uint
	if s.GameIDs == "" {
		return nil, nil
	}
	err := json.Unmarshal([]byte(s.GameIDs), &ids)
	return ids, err
}

// SlipPicks decodes the slip's leg picks (team names or the draw label).
func (s *CombinedBet) SlipPicks() ([]string, error) {
	var picks []string
	if s.Picks == "" {
		return nil, nil
	}
	err := json.Unmarshal([]byte(s.Picks), &picks)
	return picks, err
}

// SlipOdds decodes the slip's leg odds.
func (s *CombinedBet) SlipOdds() ([]float64, error) {
	var odds []float64
	if s.Odds == "" {
		return nil, nil
	}
	err := json.Unmarshal([]byte(s.Odds), &odds)
	return odds, err
}

// SetLegs encodes the parallel leg arrays onto the slip.
func (s *CombinedBet) SetLegs(ids []uint, picks []string, odds []float64) error {
	rawIDs, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	rawPicks, err := json.Marshal(picks)
	if err != nil {
		return err
	}
	rawOdds, err := json.Marshal(odds)
	if err != nil {
		return err
	}
	s.GameIDs = string(rawIDs)
	s.Picks = string(rawPicks)
	s.Odds = string(rawOdds)
	s.TotalGames = len(ids)
	return nil
}
