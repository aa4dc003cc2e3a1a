package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/LinkGate/config"
	"go.uber.org/zap"
)

const rateLimitPrefix = "ratelimit"

// RateLimit is a fixed-window limiter keyed by client IP and stored in Redis.
// When Redis is unavailable the request is let through.
func RateLimit(rdb *redis.Client, cfg config.RateLimitConfig, logger *zap.Logger) fiber.Handler {
	limit := cfg.MaxRequests
	if limit <= 0 {
		limit = 100
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}
		key := rateLimitPrefix + ":" + c.IP()

		var incr *redis.IntCmd
		var ttl *redis.DurationCmd
		_, err := rdb.TxPipelined(c.UserContext(), func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(c.UserContext(), key)
			pipe.ExpireNX(c.UserContext(), key, window)
			ttl = pipe.PTTL(c.UserContext(), key)
			return nil
		})
		if err != nil {
			logger.Warn("rate limit unavailable, allowing request", zap.String("ip", c.IP()), zap.Error(err))
			return c.Next()
		}

		count := incr.Val()
		reset := ttl.Val()
		if reset < 0 {
			reset = window
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(limit)-count), 10))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(reset).Unix(), 10))

		if count > int64(limit) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(reset.Round(time.Second)/time.Second)))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
