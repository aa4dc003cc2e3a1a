package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/LinkGate/internal/app/service"
	"github.com/sifan077/LinkGate/internal/http/middleware"
	"go.uber.org/zap"
)

// CardDeps groups dependencies required by the bio card API.
type CardDeps struct {
	Logger  *zap.Logger
	Cards   service.BioCardService
	BaseURL string
}

// CardHandler manages bio cards, their links and social links.
type CardHandler struct {
	logger  *zap.Logger
	cards   service.BioCardService
	baseURL string
}

func NewCardHandler(deps CardDeps) *CardHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CardHandler{logger: logger, cards: deps.Cards, baseURL: strings.TrimRight(deps.BaseURL, "/")}
}

// Register wires card routes onto the /api group.
func (h *CardHandler) Register(api fiber.Router) {
	cards := api.Group("/cards")
	cards.Post("/", h.CreateCard)
	cards.Get("/", h.ListCards)
	cards.Get("/:id", h.GetCard)
	cards.Patch("/:id", h.UpdateCard)
	cards.Delete("/:id", h.DeleteCard)
	cards.Post("/:id/publish", h.Publish)
	cards.Post("/:id/unpublish", h.Unpublish)
	cards.Post("/:id/links", h.AddLink)
	cards.Delete("/:id/links/:linkID", h.RemoveLink)
	cards.Post("/:id/socials", h.AddSocial)
	cards.Delete("/:id/socials/:socialID", h.RemoveSocial)
}

// CreateCardRequest represents the request body for a new card.
type CreateCardRequest struct {
	Slug          string `json:"slug"`
	Title         string `json:"title"`
	Bio           string `json:"bio"`
	AvatarURL     string `json:"avatar_url"`
	BackgroundURL string `json:"background_url"`
	Theme         string `json:"theme"`
}

// UpdateCardRequest carries only the fields to change.
type UpdateCardRequest struct {
	Slug          *string `json:"slug,omitempty"`
	Title         *string `json:"title,omitempty"`
	Bio           *string `json:"bio,omitempty"`
	AvatarURL     *string `json:"avatar_url,omitempty"`
	BackgroundURL *string `json:"background_url,omitempty"`
	Theme         *string `json:"theme,omitempty"`
}

type AddCardLinkRequest struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Position int    `json:"position"`
}

type AddSocialRequest struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
	Position int    `json:"position"`
}

// CreateCard handles POST /api/cards.
func (h *CardHandler) CreateCard(c *fiber.Ctx) error {
	var req CreateCardRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.logger, "invalid card body", err)
	}
	card, err := h.cards.Create(requestContext(c), middleware.SessionFrom(c), service.CardInput{
		Slug:          req.Slug,
		Title:         req.Title,
		Bio:           req.Bio,
		AvatarURL:     req.AvatarURL,
		BackgroundURL: req.BackgroundURL,
		Theme:         req.Theme,
	})
	if err != nil {
		return writeError(c, h.logger, "failed to create card", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"card":       card,
		"public_url": h.baseURL + "/p/" + card.Slug,
	})
}

// ListCards handles GET /api/cards.
func (h *CardHandler) ListCards(c *fiber.Ctx) error {
	cards, err := h.cards.ListMine(requestContext(c), middleware.SessionFrom(c))
	if err != nil {
		return writeError(c, h.logger, "failed to list cards", err)
	}
	return c.JSON(fiber.Map{"cards": cards, "count": len(cards)})
}

// GetCard handles GET /api/cards/:id.
func (h *CardHandler) GetCard(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.logger, "invalid card id", err)
	}
	card, err := h.cards.Get(requestContext(c), middleware.SessionFrom(c), id)
	if err != nil {
		return writeError(c, h.logger, "failed to get card", err)
	}
	return c.JSON(card)
}

// UpdateCard handles PATCH /api/cards/:id.
func (h *CardHandler) UpdateCard(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.logger, "invalid card id", err)
	}
	var req UpdateCardRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.logger, "invalid card body", err)
	}
	card, err := h.cards.Update(requestContext(c), middleware.SessionFrom(c), id, service.CardUpdate{
		Slug:          req.Slug,
		Title:         req.Title,
		Bio:           req.Bio,
		AvatarURL:     req.AvatarURL,
		BackgroundURL: req.BackgroundURL,
		Theme:         req.Theme,
	})
	if err != nil {
		return writeError(c, h.logger, "failed to update card", err)
	}
	return c.JSON(card)
}

// DeleteCard handles DELETE /api/cards/:id.
func (h *CardHandler) DeleteCard(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.logger, "invalid card id", err)
	}
	if err := h.cards.Delete(requestContext(c), middleware.SessionFrom(c), id); err != nil {
		return writeError(c, h.logger, "failed to delete card", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Publish handles POST /api/cards/:id/publish.
func (h *CardHandler) Publish(c *fiber.Ctx) error {
	return h.setPublished(c, true)
}

// Unpublish handles POST /api/cards/:id/unpublish.
func (h *CardHandler) Unpublish(c *fiber.Ctx) error {
	return h.setPublished(c, false)
}

func (h *CardHandler) setPublished(c *fiber.Ctx, published bool) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.logger, "invalid card id", err)
	}
	card, err := h.cards.SetPublished(requestContext(c), middleware.SessionFrom(c), id, published)
	if err != nil {
		return writeError(c, h.logger, "failed to change publish state", err)
	}
	return c.JSON(card)
}

// AddLink handles POST /api/cards/:id/links.
func (h *CardHandler) AddLink(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.logger, "invalid card id", err)
	}
	var req AddCardLinkRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.logger, "invalid card link body", err)
	}
	link, err := h.cards.AddLink(requestContext(c), middleware.SessionFrom(c), id, service.BioLinkInput{
		Title:    req.Title,
		URL:      req.URL,
		Position: req.Position,
	})
	if err != nil {
		return writeError(c, h.logger, "failed to add card link", err)
	}
	return c.Status(fiber.StatusCreated).JSON(link)
}

// RemoveLink handles DELETE /api/cards/:id/links/:linkID.
func (h *CardHandler) RemoveLink(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.logger, "invalid card id", err)
	}
	linkID, err := pathID(c, "linkID")
	if err != nil {
		return writeError(c, h.logger, "invalid card link id", err)
	}
	if err := h.cards.RemoveLink(requestContext(c), middleware.SessionFrom(c), id, linkID); err != nil {
		return writeError(c, h.logger, "failed to remove card link", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddSocial handles POST /api/cards/:id/socials.
func (h *CardHandler) AddSocial(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.logger, "invalid card id", err)
	}
	var req AddSocialRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.logger, "invalid social link body", err)
	}
	social, err := h.cards.AddSocial(requestContext(c), middleware.SessionFrom(c), id, service.SocialInput{
		Platform: req.Platform,
		URL:      req.URL,
		Position: req.Position,
	})
	if err != nil {
		return writeError(c, h.logger, "failed to add social link", err)
	}
	return c.Status(fiber.StatusCreated).JSON(social)
}

// RemoveSocial handles DELETE /api/cards/:id/socials/:socialID.
func (h *CardHandler) RemoveSocial(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, h.logger, "invalid card id", err)
	}
	socialID, err := pathID(c, "socialID")
	if err != nil {
		return writeError(c, h.logger, "invalid social link id", err)
	}
	if err := h.cards.RemoveSocial(requestContext(c), middleware.SessionFrom(c), id, socialID); err != nil {
		return writeError(c, h.logger, "failed to remove social link", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
