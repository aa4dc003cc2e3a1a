package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sifan077/LinkGate/internal/app/apperr"
	"github.com/sifan077/LinkGate/internal/app/model"
	"gorm.io/gorm"
)

// CounterRepository increments one allow-listed counter column atomically in the store.
// Implementations never read the value before writing it.
type CounterRepository interface {
	Increment(ctx context.Context, target model.CounterTarget, key string) (int64, error)
}

// notFoundFor maps a counter table onto the entity sentinel.
func notFoundFor(table string) error {
	switch table {
	case "short_links":
		return ErrLinkNotFound
	case "url_unlockers":
		return ErrUnlockerNotFound
	case "sequence_unlockers":
		return ErrSequenceNotFound
	case "bio_cards":
		return ErrCardNotFound
	case "bio_links":
		return ErrBioLinkNotFound
	default:
		return apperr.ErrNotFound
	}
}

// checkAllowed resolves target against the allow-list and rejects keys the key column
// cannot hold, so malformed ids never reach the store.
func checkAllowed(target model.CounterTarget, key string) (model.CounterTarget, error) {
	allowed, ok := model.LookupCounter(target.Table, target.Column)
	if !ok {
		return model.CounterTarget{}, ErrCounterNotAllowed
	}
	if !allowed.ValidKey(key) {
		return model.CounterTarget{}, apperr.Invalid("id", "must be a valid %s", allowed.Key)
	}
	return allowed, nil
}

type pgxCounterRepository struct {
	pool *pgxpool.Pool
}

// NewPgxCounterRepository returns a counter repository issuing UPDATE ... RETURNING on the pool.
func NewPgxCounterRepository(pool *pgxpool.Pool) CounterRepository {
	return &pgxCounterRepository{pool: pool}
}

func (r *pgxCounterRepository) Increment(ctx context.Context, target model.CounterTarget, key string) (int64, error) {
	t, err := checkAllowed(target, key)
	if err != nil {
		return 0, err
	}

	sql := fmt.Sprintf("UPDATE %s SET %s = %s + 1 WHERE %s = $1 RETURNING %s",
		pgx.Identifier{t.Table}.Sanitize(),
		pgx.Identifier{t.Column}.Sanitize(),
		pgx.Identifier{t.Column}.Sanitize(),
		pgx.Identifier{t.Key}.Sanitize(),
		pgx.Identifier{t.Column}.Sanitize(),
	)

	var value int64
	if err := r.pool.QueryRow(ctx, sql, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, notFoundFor(t.Table)
		}
		return 0, apperr.Remote("increment "+t.Table+"."+t.Column, err)
	}
	return value, nil
}

type gormCounterRepository struct {
	db *gorm.DB
}

// NewGormCounterRepository returns a counter repository for stores without a pgx pool (SQLite).
func NewGormCounterRepository(db *gorm.DB) CounterRepository {
	return &gormCounterRepository{db: db}
}

func (r *gormCounterRepository) Increment(ctx context.Context, target model.CounterTarget, key string) (int64, error) {
	t, err := checkAllowed(target, key)
	if err != nil {
		return 0, err
	}

	var value int64
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Table(t.Table).
			Where(clauseEq(t.Key), key).
			UpdateColumn(t.Column, gorm.Expr(clauseIncr(t.Column)))
		if result.Error != nil {
			return apperr.Remote("increment "+t.Table+"."+t.Column, result.Error)
		}
		if result.RowsAffected == 0 {
			return notFoundFor(t.Table)
		}
		// Read back inside the same transaction so the value belongs to this increment.
		return apperr.Remote("read "+t.Table+"."+t.Column,
			tx.Table(t.Table).Where(clauseEq(t.Key), key).Select(t.Column).Scan(&value).Error)
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

// Column names come from the allow-list only, never from callers.
func clauseEq(col string) string   { return col + " = ?" }
func clauseIncr(col string) string { return col + " + 1" }
