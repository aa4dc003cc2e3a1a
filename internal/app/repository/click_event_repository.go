package repository

import (
	"context"
	"time"

	"github.com/sifan077/LinkGate/internal/app/apperr"
	"github.com/sifan077/LinkGate/internal/app/model"
	"gorm.io/gorm"
)

// ClickEventRepository defines the data access contract for click events.
type ClickEventRepository interface {
	Create(ctx context.Context, event *model.ClickEvent) error
	CountByTarget(ctx context.Context, targetType, targetID, kind string) (int64, error)
	DailyCounts(ctx context.Context, targetType, targetID string, since time.Time) ([]model.DailyCount, error)
}

type clickEventRepository struct {
	db *gorm.DB
}

// NewClickEventRepository returns a GORM-backed ClickEventRepository.
func NewClickEventRepository(db *gorm.DB) ClickEventRepository {
	return &clickEventRepository{db: db}
}

func (r *clickEventRepository) Create(ctx context.Context, event *model.ClickEvent) error {
	return apperr.Remote("store click event", r.db.WithContext(ctx).Create(event).Error)
}

func (r *clickEventRepository) CountByTarget(ctx context.Context, targetType, targetID, kind string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&model.ClickEvent{}).
		Where("target_type = ? AND target_id = ?", targetType, targetID)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, apperr.Remote("count click events", err)
	}
	return n, nil
}

// DailyCounts groups events per calendar day (UTC), oldest first. Timestamps are
// bucketed in Go so the query stays portable across Postgres and SQLite.
func (r *clickEventRepository) DailyCounts(ctx context.Context, targetType, targetID string, since time.Time) ([]model.DailyCount, error) {
	var stamps []time.Time
	if err := r.db.WithContext(ctx).
		Model(&model.ClickEvent{}).
		Where("target_type = ? AND target_id = ? AND timestamp >= ?", targetType, targetID, since).
		Order("timestamp ASC").
		Pluck("timestamp", &stamps).Error; err != nil {
		return nil, apperr.Remote("daily click counts", err)
	}

	var out []model.DailyCount
	for _, ts := range stamps {
		day := ts.UTC().Format(time.DateOnly)
		if n := len(out); n > 0 && out[n-1].Day == day {
			out[n-1].Count++
			continue
		}
		out = append(out, model.DailyCount{Day: day, Count: 1})
	}
	return out, nil
}
