package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestID reuses the caller's X-Request-ID or generates one, and echoes it back.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := c.Get(RequestIDHeader)
		if rid == "" || len(rid) > 64 {
			rid = uuid.NewString()
		}
		c.Set(RequestIDHeader, rid)
		c.Locals(requestIDKey, rid)
		return c.Next()
	}
}

// RequestIDFrom returns the id assigned by RequestID, or "" outside that middleware.
func RequestIDFrom(c *fiber.Ctx) string {
	rid, _ := c.Locals(requestIDKey).(string)
	return rid
}
