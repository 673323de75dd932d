// Package database is the persistence layer: GORM over SQLite by default,
// PostgreSQL when the path looks like a connection string.
package database

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	db *gorm.DB
}

// New opens the database and runs migrations.
func New(dbPath string) (*Database, error) {
	var db *gorm.DB
	var err error

	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}

	if strings.HasPrefix(dbPath, "postgres://") || strings.HasPrefix(dbPath, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dbPath), gormCfg)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("Database connected (PostgreSQL)")
	} else {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		db, err = gorm.Open(sqlite.Open(dbPath), gormCfg)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", dbPath).Msg("Database initialized (SQLite)")
	}

	if err := db.AutoMigrate(
		&Game{}, &LiveTracker{}, &OddsHistorySample{},
		&WatchlistEntry{}, &CombinedBet{}, &Stat{},
	); err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

// NewWithGorm wraps an existing GORM handle (tests).
func NewWithGorm(db *gorm.DB) (*Database, error) {
	if err := db.AutoMigrate(
		&Game{}, &LiveTracker{}, &OddsHistorySample{},
		&WatchlistEntry{}, &CombinedBet{}, &Stat{},
	); err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}
