package database

import (
	"encoding/json"
	"errors"

	"gorm.io/gorm"
)

// StatGet reads a JSON value from the key-value ledger into v. Returns false
// when the key does not exist.
func (d *Database) StatGet(key string, v interface{}) (bool, error) {
	var s Stat
	err := d.db.Where("key = ?", key).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s.Value), v); err != nil {
		return false, err
	}
	return true, nil
}

// StatSet writes a JSON value to the key-value ledger, creating or replacing
// the key.
func (d *Database) StatSet(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}

	var s Stat
	err = d.db.Where("key = ?", key).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s = Stat{Key: key, Value: string(raw)}
		err = d.db.Create(&s).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return d.db.Model(&Stat{}).Where("key = ?", key).Update("value", string(raw)).Error
		}
		return err
	}
	if err != nil {
		return err
	}
	s.Value = string(raw)
	return d.db.Save(&s).Error
}

// StatHas reports whether a key exists without decoding its value.
func (d *Database) StatHas(key string) (bool, error) {
	var n int64
	err := d.db.Model(&Stat{}).Where("key = ?", key).Count(&n).Error
	return n > 0, err
}
