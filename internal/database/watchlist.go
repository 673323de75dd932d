package database

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// AddWatchlistEntry stores a near-miss match for periodic re-evaluation.
// Returns true when a new entry was created; an existing entry for the same
// (ext_id, start_time) is left untouched and reported as false.
func (d *Database) AddWatchlistEntry(e *WatchlistEntry) (bool, error) {
	err := d.db.Create(e).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	return false, err
}

// SaveWatchlistEntry persists updated probability/EV readings.
func (d *Database) SaveWatchlistEntry(e *WatchlistEntry) error {
	return d.db.Save(e).Error
}

// RemoveWatchlistEntry deletes an entry after promotion or expiry. Removing
// an already-removed entry is a no-op.
func (d *Database) RemoveWatchlistEntry(id uint) error {
	return d.db.Delete(&WatchlistEntry{}, id).Error
}

// Watchlist returns all entries ordered by kickoff.
func (d *Database) Watchlist() ([]WatchlistEntry, error) {
	var entries []WatchlistEntry
	err := d.db.Order("start_time ASC").Find(&entries).Error
	return entries, err
}

// WatchlistSize counts current entries.
func (d *Database) WatchlistSize() (int64, error) {
	var n int64
	err := d.db.Model(&WatchlistEntry{}).Count(&n).Error
	return n, err
}

// PurgeWatchlistBefore removes entries whose kickoff is older than the cutoff,
// regardless of promotion state. Used as a safety sweep so abandoned entries
// do not accumulate.
func (d *Database) PurgeWatchlistBefore(cutoff time.Time) (int64, error) {
	res := d.db.Where("start_time < ?", cutoff).Delete(&WatchlistEntry{})
	return res.RowsAffected, res.Error
}
