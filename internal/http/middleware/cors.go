package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// CORS allows browser clients of the management API from any origin. Credentials are
// carried in the Authorization header, never in cookies.
func CORS() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		c.Set(fiber.HeaderAccessControlAllowMethods, "GET, POST, PATCH, DELETE, OPTIONS")
		c.Set(fiber.HeaderAccessControlAllowHeaders, "Origin, Content-Type, Accept, Authorization, X-Request-ID")
		c.Set(fiber.HeaderAccessControlExposeHeaders, "Content-Length, Content-Type, X-Request-ID, X-RateLimit-Remaining")
		c.Set(fiber.HeaderAccessControlMaxAge, "86400")

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}
