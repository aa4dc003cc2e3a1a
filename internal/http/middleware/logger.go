package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Logger logs one line per request. Health checks are logged at debug level.
func Logger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
			zap.String("user_agent", c.Get(fiber.HeaderUserAgent)),
		}
		if rid := RequestIDFrom(c); rid != "" {
			fields = append(fields, zap.String("request_id", rid))
		}
		if sess := SessionFrom(c); sess.Authenticated() {
			fields = append(fields, zap.Stringer("user_id", sess.UserID))
		}

		switch {
		case err != nil:
			logger.Error("request error", append(fields, zap.Error(err))...)
		case c.Path() == "/health":
			logger.Debug("request", fields...)
		default:
			logger.Info("request", fields...)
		}
		return err
	}
}
