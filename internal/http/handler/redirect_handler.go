package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/LinkGate/internal/app/service"
	"github.com/sifan077/LinkGate/internal/http/view"
	"go.uber.org/zap"
)

// RedirectDeps groups dependencies required by the public redirect handlers.
type RedirectDeps struct {
	Logger   *zap.Logger
	Resolver *service.Resolver
	Cards    service.BioCardService
}

// RedirectHandler serves short link redirects and public bio pages.
type RedirectHandler struct {
	logger   *zap.Logger
	resolver *service.Resolver
	cards    service.BioCardService
}

// NewRedirectHandler creates a redirect handler with the provided dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedirectHandler{
		logger:   logger,
		resolver: deps.Resolver,
		cards:    deps.Cards,
	}
}

// Register wires redirect routes onto the provided router.
func (h *RedirectHandler) Register(router fiber.Router) {
	router.Get("/", h.Health)
	router.Get("/health", h.Health)
	router.Get("/s/:code", h.Resolve)
	router.Get("/p/:slug", h.BioPage)
	router.Get("/p/:slug/l/:linkID", h.BioLink)
}

// Health is a simple root endpoint so we know the service is running.
func (h *RedirectHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "LinkGate",
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Resolve handles GET /s/:code.
func (h *RedirectHandler) Resolve(c *fiber.Ctx) error {
	code := c.Params("code")
	link, err := h.resolver.Resolve(requestContext(c), code, requestMeta(c))
	if err != nil {
		return renderError(c, h.logger, "failed to resolve short link", err)
	}
	return c.Redirect(link.OriginalURL, fiber.StatusFound)
}

// BioPage handles GET /p/:slug.
func (h *RedirectHandler) BioPage(c *fiber.Ctx) error {
	card, err := h.cards.View(requestContext(c), c.Params("slug"), requestMeta(c))
	if err != nil {
		return renderError(c, h.logger, "failed to load bio card", err)
	}
	html, err := view.RenderBioPage(card)
	if err != nil {
		return renderError(c, h.logger, "failed to render bio card", err)
	}
	return sendHTML(c, fiber.StatusOK, html)
}

// BioLink handles GET /p/:slug/l/:linkID.
func (h *RedirectHandler) BioLink(c *fiber.Ctx) error {
	linkID, err := pathID(c, "linkID")
	if err != nil {
		return renderError(c, h.logger, "invalid card link id", err)
	}
	dest, err := h.cards.Follow(requestContext(c), c.Params("slug"), linkID, requestMeta(c))
	if err != nil {
		return renderError(c, h.logger, "failed to follow card link", err)
	}
	return c.Redirect(dest, fiber.StatusFound)
}
