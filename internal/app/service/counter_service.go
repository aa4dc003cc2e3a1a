package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sifan077/LinkGate/internal/app/apperr"
	"github.com/sifan077/LinkGate/internal/app/model"
	"github.com/sifan077/LinkGate/internal/app/repository"
	"github.com/sifan077/LinkGate/internal/metrics"
	"go.uber.org/zap"
)

// CounterService exposes the atomic increment primitive, synchronously for the public
// increment endpoint and fire-and-forget for visit/unlock/click bookkeeping.
// Increment only accepts the public counters; IncrementAsync takes any allow-listed target.
type CounterService interface {
	Increment(ctx context.Context, table, column, key string) (int64, error)
	IncrementAsync(target model.CounterTarget, key string)
	Wait()
}

type counterService struct {
	repo   repository.CounterRepository
	bg     *background
	logger *zap.Logger
}

// NewCounterService returns a CounterService; timeout bounds every async increment.
func NewCounterService(repo repository.CounterRepository, timeout time.Duration, logger *zap.Logger) CounterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &counterService{repo: repo, bg: newBackground(timeout, logger), logger: logger}
}

func (s *counterService) Increment(ctx context.Context, table, column, key string) (int64, error) {
	table, column, key = strings.TrimSpace(table), strings.TrimSpace(column), strings.TrimSpace(key)
	if key == "" {
		return 0, apperr.Invalid("id", "is required")
	}
	target, ok := model.LookupPublicCounter(table, column)
	if !ok {
		return 0, repository.ErrCounterNotAllowed
	}
	if !target.ValidKey(key) {
		return 0, apperr.Invalid("id", "must be a valid %s", target.Key)
	}

	v, err := s.repo.Increment(ctx, target, key)
	metrics.CounterIncrementsTotal.WithLabelValues(label(target), metrics.Status(err)).Inc()
	if err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}
	return v, nil
}

func (s *counterService) IncrementAsync(target model.CounterTarget, key string) {
	s.bg.Go(func(ctx context.Context) {
		_, err := s.repo.Increment(ctx, target, key)
		metrics.CounterIncrementsTotal.WithLabelValues(label(target), metrics.Status(err)).Inc()
		if err != nil {
			s.logger.Warn("counter increment failed",
				zap.String("table", target.Table),
				zap.String("column", target.Column),
				zap.String("key", key),
				zap.Error(err),
			)
		}
	})
}

func (s *counterService) Wait() { s.bg.Wait() }

func label(t model.CounterTarget) string {
	return t.Table + "." + t.Column
}
