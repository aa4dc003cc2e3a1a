package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sifan077/LinkGate/internal/app/apperr"
	"github.com/sifan077/LinkGate/internal/app/model"
	"github.com/sifan077/LinkGate/internal/app/repository"
	"github.com/sifan077/LinkGate/internal/metrics"
	"go.uber.org/zap"
)

// ResolverDeps groups the collaborators of a Resolver.
type ResolverDeps struct {
	Links    repository.LinkRepository
	Counters CounterService
	Events   *EventRecorder
	// Filter is optional; when set, codes it has never seen are rejected without a lookup.
	Filter *CodeFilter
	Logger *zap.Logger
}

// Resolver maps short codes to their destination and records the visit.
type Resolver struct {
	links    repository.LinkRepository
	counters CounterService
	events   *EventRecorder
	filter   *CodeFilter
	logger   *zap.Logger
}

func NewResolver(deps ResolverDeps) *Resolver {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		links:    deps.Links,
		counters: deps.Counters,
		events:   deps.Events,
		filter:   deps.Filter,
		logger:   logger,
	}
}

// Resolve returns the link for code with the visit counter as it was before this visit.
// The increment runs in the background and its failure never reaches the caller.
func (r *Resolver) Resolve(ctx context.Context, code string, meta RequestMeta) (*model.ShortLink, error) {
	if !ValidCode(code) {
		metrics.ResolutionsTotal.WithLabelValues("not_found").Inc()
		return nil, repository.ErrLinkNotFound
	}
	if r.filter != nil && !r.filter.MayContain(code) {
		metrics.ResolutionsTotal.WithLabelValues("filtered").Inc()
		return nil, repository.ErrLinkNotFound
	}

	link, err := r.links.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			metrics.ResolutionsTotal.WithLabelValues("not_found").Inc()
			return nil, err
		}
		metrics.ResolutionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("resolve %s: %w", code, err)
	}

	metrics.ResolutionsTotal.WithLabelValues("found").Inc()
	r.counters.IncrementAsync(model.CounterLinkVisits, link.Code)
	r.events.Record(model.TargetLink, link.Code, model.KindVisit, meta)

	r.logger.Debug("resolved short link", zap.String("code", code), zap.String("target", link.OriginalURL))
	return link, nil
}
