package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"github.com/sifan077/LinkGate/internal/app/apperr"
	"github.com/sifan077/LinkGate/internal/app/service"
	"github.com/sifan077/LinkGate/internal/http/middleware"
	"github.com/sifan077/LinkGate/internal/http/view"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func requestContext(c *fiber.Ctx) context.Context {
	if ctx := c.UserContext(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// requestMeta copies the visitor headers. Values from c.Get alias fasthttp buffers that are
// reused after the handler returns, and events are recorded in the background.
func requestMeta(c *fiber.Ctx) service.RequestMeta {
	return service.RequestMeta{
		IP:        utils.CopyString(c.IP()),
		UserAgent: utils.CopyString(c.Get(fiber.HeaderUserAgent)),
		Referer:   utils.CopyString(c.Get(fiber.HeaderReferer)),
	}
}

// writeError answers an API request with {"error": ...}. Only 5xx are logged.
func writeError(c *fiber.Ctx, logger *zap.Logger, op string, err error) error {
	status := apperr.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		logger.Error(op,
			zap.Error(err),
			zap.String("path", c.Path()),
			zap.String("request_id", middleware.RequestIDFrom(c)),
		)
	}
	return c.Status(status).JSON(fiber.Map{"error": apperr.PublicMessage(err)})
}

// renderError answers a page request with the state page matching err.
func renderError(c *fiber.Ctx, logger *zap.Logger, op string, err error) error {
	status := apperr.HTTPStatus(err)
	state := view.StateError
	switch status {
	case fiber.StatusNotFound:
		state = view.StateNotFound
	case fiber.StatusGone:
		state = view.StateExpired
	default:
		logger.Error(op,
			zap.Error(err),
			zap.String("path", c.Path()),
			zap.String("request_id", middleware.RequestIDFrom(c)),
		)
	}
	html, rerr := view.RenderState(state)
	if rerr != nil {
		logger.Error("failed to render state page", zap.Error(rerr))
		return c.Status(status).SendString(apperr.PublicMessage(err))
	}
	return sendHTML(c, status, html)
}

func sendHTML(c *fiber.Ctx, status int, html string) error {
	return c.Status(status).Type("html", "utf-8").SendString(html)
}

// bindJSON parses the request body, reporting malformed input as a validation error.
func bindJSON(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Invalid("body", "must be a valid JSON object")
	}
	return nil
}

// pathID parses a uuid path parameter. Malformed ids cannot exist, so they are not found.
func pathID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s %w", strings.TrimSuffix(name, "ID"), apperr.ErrNotFound)
	}
	return id, nil
}

func pagination(c *fiber.Ctx) (limit, offset int) {
	limit = c.QueryInt("limit", defaultPageSize)
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset = max(c.QueryInt("offset", 0), 0)
	return limit, offset
}
