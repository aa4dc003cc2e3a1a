// Package database opens the configured record store.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sifan077/LinkGate/config"
	"github.com/sifan077/LinkGate/internal/app/model"
	infraPostgres "github.com/sifan077/LinkGate/internal/infra/postgres"
	infraSQLite "github.com/sifan077/LinkGate/internal/infra/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// Store bundles the GORM handle with the pgx pool when the driver is Postgres.
type Store struct {
	DB   *gorm.DB
	Pool *pgxpool.Pool
}

// Open connects to the store selected by cfg.Database.Driver and migrates when asked to.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Store, error) {
	var (
		store Store
		err   error
	)
	if log == nil {
		log = zap.NewNop()
	}
	gormLog := GormLogger(log)

	switch cfg.Database.Driver {
	case "sqlite":
		store.DB, err = infraSQLite.NewGorm(cfg.Database, gormLog)
		if err != nil {
			return nil, err
		}
		log.Info("Opened SQLite store", zap.String("path", cfg.Database.SQLitePath))
	case "postgres":
		store.DB, err = infraPostgres.NewGorm(cfg.Postgres, gormLog)
		if err != nil {
			return nil, err
		}
		store.Pool, err = infraPostgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			store.closeDB()
			return nil, err
		}
		log.Info("Connected to Postgres successfully",
			zap.String("postgres_host", cfg.Postgres.Host),
			zap.Int("postgres_port", cfg.Postgres.Port),
			zap.String("postgres_db", cfg.Postgres.Database),
		)
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", cfg.Database.Driver)
	}

	if cfg.Database.AutoMigrate {
		if err := AutoMigrate(ctx, store.DB, model.All()...); err != nil {
			store.Close()
			return nil, err
		}
	}
	return &store, nil
}

// AutoMigrate runs GORM schema migrations for models on any dialect.
func AutoMigrate(ctx context.Context, db *gorm.DB, models ...any) error {
	if db == nil || len(models) == 0 {
		return nil
	}
	if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// GormLogger routes GORM warnings, errors and slow queries through zap.
func GormLogger(log *zap.Logger) gormlogger.Interface {
	if log == nil {
		return nil
	}
	return gormlogger.New(zap.NewStdLog(log.Named("gorm")), gormlogger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// Close releases the pool and the underlying SQL connections.
func (s *Store) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
	s.closeDB()
}

func (s *Store) closeDB() {
	if s.DB == nil {
		return
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
