package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sifan077/LinkGate/config"
	"go.uber.org/zap"
)

const (
	defaultPingTimeout = 5 * time.Second
	ioTimeout          = 500 * time.Millisecond
)

// Options maps application config onto go-redis options. Short I/O timeouts keep a slow
// cache from stalling redirects; callers fall back to the store on error.
func Options(cfg config.RedisConfig) *redis.Options {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 6379
	}

	return &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  defaultPingTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	}
}

// NewClient builds a redis client using app config and verifies connectivity via PING.
func NewClient(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (*redis.Client, error) {
	opts := Options(cfg)
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}

	if log != nil {
		log.Info("Connected to Redis successfully", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	}
	return rdb, nil
}
