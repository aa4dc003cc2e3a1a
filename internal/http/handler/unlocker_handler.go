package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/LinkGate/internal/app/service"
	"github.com/sifan077/LinkGate/internal/http/middleware"
	"go.uber.org/zap"
)

// UnlockerDeps groups dependencies required by the unlocker management API.
type UnlockerDeps struct {
	Logger    *zap.Logger
	Unlockers service.UnlockerService
	Sequences service.SequenceService
	BaseURL   string
}

// UnlockerHandler manages click/countdown unlockers and sequence unlockers.
type UnlockerHandler struct {
	logger    *zap.Logger
	unlockers service.UnlockerService
	sequences service.SequenceService
	baseURL   string
}

func NewUnlockerHandler(deps UnlockerDeps) *UnlockerHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnlockerHandler{
		logger:    logger,
		unlockers: deps.Unlockers,
		sequences: deps.Sequences,
		baseURL:   strings.TrimRight(deps.BaseURL, "/"),
	}
}

// Register wires unlocker routes onto the /api group.
func (h *UnlockerHandler) Register(api fiber.Router) {
	u := api.Group("/unlockers")
	u.Post("/", h.CreateUnlocker)
	u.Get("/", h.ListUnlockers)
	u.Get("/:id", h.GetUnlocker)
	u.Delete("/:id", h.DeleteUnlocker)
	u.Post("/:id/extend", h.ExtendUnlocker)

	s := api.Group("/sequences")
	s.Post("/", h.CreateSequence)
	s.Get("/", h.ListSequences)
	s.Get("/:id", h.GetSequence)
	s.Delete("/:id", h.DeleteSequence)
	s.Post("/:id/extend", h.ExtendSequence)
}

// CreateUnlockerRequest represents the request body for a click/countdown unlocker.
type CreateUnlockerRequest struct {
	Title            string     `json:"title"`
	DestinationURL   string     `json:"destination_url"`
	UnlockerURL      string     `json:"unlocker_url"`
	ButtonTexts      []string   `json:"button_texts"`
	ClickCount       int        `json:"click_count"`
	CountdownSeconds int        `json:"countdown_seconds"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
}

// CreateSequenceRequest represents the request body for a sequence unlocker.
type CreateSequenceRequest struct {
	Title          string     `json:"title"`
	Sequence       []string   `json:"sequence"`
	DestinationURL string     `json:"destination_url"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// ExtendRequest adds days to an expiration.
type ExtendRequest struct {
	Days int `json:"days"`
}

// CreateUnlocker handles POST /api/unlockers.
func (h *UnlockerHandler) CreateUnlocker(c *fiber.Ctx) error {
	var req CreateUnlockerRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.logger, "invalid unlocker body", err)
	}
	u, err := h.unlockers.Create(requestContext(c), middleware.SessionFrom(c), service.UnlockerInput{
		Title:            req.Title,
		DestinationURL:   req.DestinationURL,
		UnlockerURL:      req.UnlockerURL,
		ButtonTexts:      req.ButtonTexts,
		ClickCount:       req.ClickCount,
		CountdownSeconds: req.CountdownSeconds,
		ExpiresAt:        req.ExpiresAt,
	})
	if err != nil {
		return writeError(c, h.logger, "failed to create unlocker", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"unlocker":   u,
		"public_url": h.baseURL + countdownPrefix + "/" + u.ID.String(),
	})
}

// ListUnlockers handles GET /api/unlockers.
func (h *UnlockerHandler) ListUnlockers(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	list, err := h.unlockers.ListMine(requestContext(c), middleware.SessionFrom(c), limit, offset)
	if err != nil {
		return writeError(c, h.logger, "failed to list unlockers", err)
	}
	return c.JSON(fiber.Map{"unlockers": list, "limit": limit, "offset": offset, "count": len(list)})
}

// GetUnlocker handles GET /api/unlockers/:id.
func (h *UnlockerHandler) GetUnlocker(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.logger, "invalid unlocker id", err)
	}
	u, err := h.unlockers.Get(requestContext(c), middleware.SessionFrom(c), id)
	if err != nil {
		return writeError(c, h.logger, "failed to get unlocker", err)
	}
	return c.JSON(u)
}

// DeleteUnlocker handles DELETE /api/unlockers/:id.
func (h *UnlockerHandler) DeleteUnlocker(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.logger, "invalid unlocker id", err)
	}
	if err := h.unlockers.Delete(requestContext(c), middleware.SessionFrom(c), id); err != nil {
		return writeError(c, h.logger, "failed to delete unlocker", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ExtendUnlocker handles POST /api/unlockers/:id/extend.
func (h *UnlockerHandler) ExtendUnlocker(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.logger, "invalid unlocker id", err)
	}
	var req ExtendRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.logger, "invalid extend body", err)
	}
	u, err := h.unlockers.Extend(requestContext(c), middleware.SessionFrom(c), id, req.Days)
	if err != nil {
		return writeError(c, h.logger, "failed to extend unlocker", err)
	}
	return c.JSON(u)
}

// CreateSequence handles POST /api/sequences.
func (h *UnlockerHandler) CreateSequence(c *fiber.Ctx) error {
	var req CreateSequenceRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.logger, "invalid sequence body", err)
	}
	seq, err := h.sequences.Create(requestContext(c), middleware.SessionFrom(c), service.SequenceInput{
		Title:          req.Title,
		Sequence:       req.Sequence,
		DestinationURL: req.DestinationURL,
		ExpiresAt:      req.ExpiresAt,
	})
	if err != nil {
		return writeError(c, h.logger, "failed to create sequence unlocker", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"sequence":   seq,
		"public_url": h.baseURL + sequencePrefix + "/" + seq.ID.String(),
	})
}

// ListSequences handles GET /api/sequences.
func (h *UnlockerHandler) ListSequences(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	list, err := h.sequences.ListMine(requestContext(c), middleware.SessionFrom(c), limit, offset)
	if err != nil {
		return writeError(c, h.logger, "failed to list sequence unlockers", err)
	}
	return c.JSON(fiber.Map{"sequences": list, "limit": limit, "offset": offset, "count": len(list)})
}

// GetSequence handles GET /api/sequences/:id.
func (h *UnlockerHandler) GetSequence(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.logger, "invalid sequence id", err)
	}
	seq, err := h.sequences.Get(requestContext(c), middleware.SessionFrom(c), id)
	if err != nil {
		return writeError(c, h.logger, "failed to get sequence unlocker", err)
	}
	return c.JSON(seq)
}

// DeleteSequence handles DELETE /api/sequences/:id.
func (h *UnlockerHandler) DeleteSequence(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.logger, "invalid sequence id", err)
	}
	if err := h.sequences.Delete(requestContext(c), middleware.SessionFrom(c), id); err != nil {
		return writeError(c, h.logger, "failed to delete sequence unlocker", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ExtendSequence handles POST /api/sequences/:id/extend.
func (h *UnlockerHandler) ExtendSequence(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.logger, "invalid sequence id", err)
	}
	var req ExtendRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.logger, "invalid extend body", err)
	}
	seq, err := h.sequences.Extend(requestContext(c), middleware.SessionFrom(c), id, req.Days)
	if err != nil {
		return writeError(c, h.logger, "failed to extend sequence unlocker", err)
	}
	return c.JSON(seq)
}
