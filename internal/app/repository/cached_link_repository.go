package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sifan077/LinkGate/internal/app/model"
	"go.uber.org/zap"
)

const linkCachePrefix = "link:"

// cachedLinkRepository is a read-through Redis cache in front of a LinkRepository.
// Cache failures fall through to the store; only GetByCode and Delete touch Redis.
type cachedLinkRepository struct {
	LinkRepository
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedLinkRepository wraps inner with a Redis cache. Cached records carry the visit
// counter as of the cache fill, so it may lag the store by up to ttl.
func NewCachedLinkRepository(inner LinkRepository, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) LinkRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &cachedLinkRepository{LinkRepository: inner, rdb: rdb, ttl: ttl, logger: logger}
}

func (r *cachedLinkRepository) GetByCode(ctx context.Context, code string) (*model.ShortLink, error) {
	key := linkCachePrefix + code

	raw, err := r.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var link model.ShortLink
		if jsonErr := json.Unmarshal(raw, &link); jsonErr == nil {
			return &link, nil
		}
		r.logger.Warn("discarding malformed cached link", zap.String("code", code))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("link cache read failed", zap.String("code", code), zap.Error(err))
	}

	link, err := r.LinkRepository.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(link); err == nil {
		if err := r.rdb.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.logger.Warn("link cache write failed", zap.String("code", code), zap.Error(err))
		}
	}
	return link, nil
}

func (r *cachedLinkRepository) Delete(ctx context.Context, code string) error {
	if err := r.LinkRepository.Delete(ctx, code); err != nil {
		return err
	}
	if err := r.rdb.Del(ctx, linkCachePrefix+code).Err(); err != nil {
		r.logger.Warn("link cache invalidation failed", zap.String("code", code), zap.Error(err))
	}
	return nil
}
