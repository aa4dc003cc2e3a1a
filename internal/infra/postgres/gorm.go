package postgres

import (
	"fmt"
	"time"

	"github.com/sifan077/LinkGate/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const defaultConnMaxLifetime = 5 * time.Minute

// NewGorm opens the GORM handle for the record store. A nil log keeps GORM's default
// logger at warn level.
func NewGorm(cfg config.PostgresConfig, log gormlogger.Interface) (*gorm.DB, error) {
	if log == nil {
		log = gormlogger.Default.LogMode(gormlogger.Warn)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{DSN: ConnString(cfg)}), &gorm.Config{
		Logger:                                   log,
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: open gorm connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres: retrieve sql db: %w", err)
	}

	lifetime := cfg.MaxConnLifetime
	if lifetime <= 0 {
		lifetime = defaultConnMaxLifetime
	}
	sqlDB.SetConnMaxLifetime(lifetime)
	if cfg.MaxConnIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
	}
	if cfg.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(int(cfg.MaxConns))
	}
	if cfg.MinConns > 0 {
		sqlDB.SetMaxIdleConns(int(cfg.MinConns))
	}
	return db, nil
}
