package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/LinkGate/internal/app/model"
	"github.com/sifan077/LinkGate/internal/app/service"
	"github.com/sifan077/LinkGate/internal/http/middleware"
	"go.uber.org/zap"
)

// APIDeps groups dependencies required by the link and counter API.
type APIDeps struct {
	Logger   *zap.Logger
	Links    service.LinkService
	Counters service.CounterService
	BaseURL  string
}

// APIHandler implements the short link management API and the counter endpoint.
type APIHandler struct {
	logger   *zap.Logger
	links    service.LinkService
	counters service.CounterService
	baseURL  string
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:   logger,
		links:    deps.Links,
		counters: deps.Counters,
		baseURL:  strings.TrimRight(deps.BaseURL, "/"),
	}
}

// Register wires API routes onto the /api group.
func (h *APIHandler) Register(api fiber.Router) {
	links := api.Group("/links")
	links.Post("/", h.CreateLink)
	links.Get("/", h.ListLinks)
	links.Get("/:code", h.GetLink)
	links.Get("/:code/stats", h.LinkStats)
	links.Delete("/:code", h.DeleteLink)

	api.Post("/increment", h.Increment)
}

// CreateLinkRequest represents the request body for creating a link.
type CreateLinkRequest struct {
	URL   string `json:"url"`
	Code  string `json:"code,omitempty"`
	Title string `json:"title,omitempty"`
}

// LinkResponse is the API view of a short link.
type LinkResponse struct {
	Code        string    `json:"code"`
	ShortURL    string    `json:"short_url"`
	OriginalURL string    `json:"original_url"`
	Title       string    `json:"title,omitempty"`
	Visits      int64     `json:"visits"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *APIHandler) toResponse(link *model.ShortLink) LinkResponse {
	return LinkResponse{
		Code:        link.Code,
		ShortURL:    h.baseURL + "/s/" + link.Code,
		OriginalURL: link.OriginalURL,
		Title:       link.Title,
		Visits:      link.Visits,
		CreatedAt:   link.CreatedAt,
	}
}

// CreateLink handles POST /api/links. Anonymous callers are allowed.
func (h *APIHandler) CreateLink(c *fiber.Ctx) error {
	var req CreateLinkRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.logger, "invalid link body", err)
	}

	link, err := h.links.Shorten(requestContext(c), middleware.SessionFrom(c), service.ShortenInput{
		URL:   req.URL,
		Code:  req.Code,
		Title: req.Title,
	})
	if err != nil {
		return writeError(c, h.logger, "failed to create link", err)
	}
	return c.Status(fiber.StatusCreated).JSON(h.toResponse(link))
}

// ListLinks handles GET /api/links.
func (h *APIHandler) ListLinks(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	links, err := h.links.ListMine(requestContext(c), middleware.SessionFrom(c), limit, offset)
	if err != nil {
		return writeError(c, h.logger, "failed to list links", err)
	}

	response := make([]LinkResponse, len(links))
	for i := range links {
		response[i] = h.toResponse(&links[i])
	}
	return c.JSON(fiber.Map{
		"links":  response,
		"limit":  limit,
		"offset": offset,
		"count":  len(response),
	})
}

// GetLink handles GET /api/links/:code.
func (h *APIHandler) GetLink(c *fiber.Ctx) error {
	link, err := h.links.Get(requestContext(c), c.Params("code"))
	if err != nil {
		return writeError(c, h.logger, "failed to get link", err)
	}
	return c.JSON(h.toResponse(link))
}

// LinkStats handles GET /api/links/:code/stats?days=N.
func (h *APIHandler) LinkStats(c *fiber.Ctx) error {
	stats, err := h.links.Stats(requestContext(c), middleware.SessionFrom(c), c.Params("code"), c.QueryInt("days", 30))
	if err != nil {
		return writeError(c, h.logger, "failed to load link stats", err)
	}
	return c.JSON(fiber.Map{
		"link":   h.toResponse(stats.Link),
		"visits": stats.Visits,
		"daily":  stats.Daily,
	})
}

// DeleteLink handles DELETE /api/links/:code.
func (h *APIHandler) DeleteLink(c *fiber.Ctx) error {
	if err := h.links.Delete(requestContext(c), middleware.SessionFrom(c), c.Params("code")); err != nil {
		return writeError(c, h.logger, "failed to delete link", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// IncrementRequest names one allow-listed counter.
type IncrementRequest struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	ID     string `json:"id"`
}

// Increment handles POST /api/increment.
func (h *APIHandler) Increment(c *fiber.Ctx) error {
	var req IncrementRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.logger, "invalid increment body", err)
	}
	value, err := h.counters.Increment(requestContext(c), req.Table, req.Column, req.ID)
	if err != nil {
		return writeError(c, h.logger, "failed to increment counter", err)
	}
	return c.JSON(fiber.Map{"value": value})
}
