package sqlite

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/sifan077/LinkGate/config"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewGorm opens the SQLite database used for local development and tests.
// An empty path or ":memory:" gives a private in-memory database.
func NewGorm(cfg config.DatabaseConfig, log gormlogger.Interface) (*gorm.DB, error) {
	path := cfg.SQLitePath
	if path == "" {
		path = ":memory:"
	}
	if log == nil {
		log = gormlogger.Default.LogMode(gormlogger.Warn)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         log,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: open gorm connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite: retrieve sql db: %w", err)
	}
	// SQLite serialises writers; one connection also keeps an in-memory database alive and shared.
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}
