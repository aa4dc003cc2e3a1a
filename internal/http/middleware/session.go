package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/LinkGate/internal/auth"
	"go.uber.org/zap"
)

const sessionKey = "session"

// Session verifies a Bearer token when one is sent and stores the resulting
// auth.Session in locals. Requests without a token continue anonymously; a token that
// fails verification is rejected with 401.
func Session(verifier *auth.Verifier, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			c.Locals(sessionKey, auth.Anonymous)
			return c.Next()
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authorization header must be a Bearer token",
			})
		}

		sess, err := verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			logger.Debug("rejected session token", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired session token",
			})
		}
		c.Locals(sessionKey, sess)
		return c.Next()
	}
}

// SessionFrom returns the session stored by Session, or auth.Anonymous.
func SessionFrom(c *fiber.Ctx) auth.Session {
	sess, _ := c.Locals(sessionKey).(auth.Session)
	return sess
}
