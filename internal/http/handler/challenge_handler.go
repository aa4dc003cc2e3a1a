package handler

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sifan077/LinkGate/internal/app/apperr"
	"github.com/sifan077/LinkGate/internal/app/service"
	httpUtil "github.com/sifan077/LinkGate/internal/http/util"
	"github.com/sifan077/LinkGate/internal/http/view"
	"github.com/sifan077/LinkGate/internal/unlock"
	"go.uber.org/zap"
)

const (
	countdownPrefix = "/u"
	sequencePrefix  = "/unlock"
)

// ChallengeDeps groups dependencies required by the unlocker pages.
type ChallengeDeps struct {
	Logger     *zap.Logger
	Challenges *service.ChallengeService
	Unlockers  service.UnlockerService
	Sequences  service.SequenceService
	Secret     []byte
	TokenTTL   time.Duration
}

// ChallengeHandler serves the countdown and sequence unlocker pages and their session API.
type ChallengeHandler struct {
	logger     *zap.Logger
	challenges *service.ChallengeService
	unlockers  service.UnlockerService
	sequences  service.SequenceService
	tokens     *httpUtil.TokenSigner
}

func NewChallengeHandler(deps ChallengeDeps) *ChallengeHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChallengeHandler{
		logger:     logger,
		challenges: deps.Challenges,
		unlockers:  deps.Unlockers,
		sequences:  deps.Sequences,
		tokens:     httpUtil.NewTokenSigner(deps.Secret, deps.TokenTTL),
	}
}

// Register wires unlocker routes onto the provided router.
func (h *ChallengeHandler) Register(router fiber.Router) {
	u := router.Group(countdownPrefix)
	u.Get("/:id", h.CountdownPage)
	u.Get("/:id/sessions/:sid", h.CountdownSnapshot)
	u.Post("/:id/sessions/:sid/click", h.CountdownClick)
	u.Get("/:id/_go/:token", h.CountdownGo)

	s := router.Group(sequencePrefix)
	s.Get("/:id", h.SequencePage)
	s.Get("/:id/sessions/:sid", h.SequenceSnapshot)
	s.Post("/:id/sessions/:sid/press", h.SequencePress)
	s.Get("/:id/_go/:token", h.SequenceGo)
}

// ChallengeResponse is returned by the session endpoints.
type ChallengeResponse struct {
	Snapshot    unlock.Snapshot `json:"snapshot"`
	Accepted    bool            `json:"accepted"`
	Reset       bool            `json:"reset,omitempty"`
	OpenURL     string          `json:"open_url,omitempty"`
	ContinueURL string          `json:"continue_url,omitempty"`
}

// PressRequest is the body of a sequence press.
type PressRequest struct {
	Color string `json:"color"`
}

func sessionBase(prefix string, id, sid uuid.UUID) string {
	return fmt.Sprintf("%s/%s/sessions/%s", prefix, id, sid)
}

func tokenSubject(prefix string, id uuid.UUID) string {
	return prefix + ":" + id.String()
}

// CountdownPage handles GET /u/:id and opens a new session.
func (h *ChallengeHandler) CountdownPage(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return renderError(c, h.logger, "invalid unlocker id", err)
	}
	start, err := h.challenges.StartCountdown(requestContext(c), id, requestMeta(c))
	if err != nil {
		return renderError(c, h.logger, "failed to start countdown challenge", err)
	}

	base := sessionBase(countdownPrefix, id, start.SessionID)
	html, err := view.RenderCountdownPage(view.CountdownPageData{
		Title:            start.Unlocker.Title,
		SessionURL:       base,
		ClickURL:         base + "/click",
		ButtonTexts:      start.Unlocker.ButtonTexts,
		RequiredClicks:   start.Unlocker.ClickCount,
		CountdownSeconds: start.Unlocker.CountdownSeconds,
	})
	if err != nil {
		return renderError(c, h.logger, "failed to render countdown page", err)
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return sendHTML(c, fiber.StatusOK, html)
}

// CountdownSnapshot handles GET /u/:id/sessions/:sid.
func (h *ChallengeHandler) CountdownSnapshot(c *fiber.Ctx) error {
	return h.snapshot(c, service.ChallengeCountdown, countdownPrefix)
}

// CountdownClick handles POST /u/:id/sessions/:sid/click.
func (h *ChallengeHandler) CountdownClick(c *fiber.Ctx) error {
	return h.apply(c, service.ChallengeCountdown, countdownPrefix, unlock.Click())
}

// CountdownGo handles GET /u/:id/_go/:token.
func (h *ChallengeHandler) CountdownGo(c *fiber.Ctx) error {
	id, err := h.verifyGo(c, countdownPrefix)
	if err != nil {
		return h.goFailed(c, err)
	}
	u, err := h.unlockers.Load(requestContext(c), id)
	if err != nil {
		return renderError(c, h.logger, "failed to load unlocker", err)
	}
	return c.Redirect(u.DestinationURL, fiber.StatusFound)
}

// SequencePage handles GET /unlock/:id and opens a new session.
func (h *ChallengeHandler) SequencePage(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return renderError(c, h.logger, "invalid sequence id", err)
	}
	start, err := h.challenges.StartSequence(requestContext(c), id, requestMeta(c))
	if err != nil {
		return renderError(c, h.logger, "failed to start sequence challenge", err)
	}

	base := sessionBase(sequencePrefix, id, start.SessionID)
	html, err := view.RenderSequencePage(view.SequencePageData{
		Title:      start.Unlocker.Title,
		SessionURL: base,
		PressURL:   base + "/press",
		Length:     start.Snapshot.Length,
	})
	if err != nil {
		return renderError(c, h.logger, "failed to render sequence page", err)
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return sendHTML(c, fiber.StatusOK, html)
}

// SequenceSnapshot handles GET /unlock/:id/sessions/:sid.
func (h *ChallengeHandler) SequenceSnapshot(c *fiber.Ctx) error {
	return h.snapshot(c, service.ChallengeSequence, sequencePrefix)
}

// SequencePress handles POST /unlock/:id/sessions/:sid/press.
func (h *ChallengeHandler) SequencePress(c *fiber.Ctx) error {
	var req PressRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.logger, "invalid press body", err)
	}
	color, err := unlock.ParseColor(req.Color)
	if err != nil {
		return writeError(c, h.logger, "invalid color", apperr.Invalid("color", "must be one of the palette colours"))
	}
	return h.apply(c, service.ChallengeSequence, sequencePrefix, unlock.Press(color))
}

// SequenceGo handles GET /unlock/:id/_go/:token.
func (h *ChallengeHandler) SequenceGo(c *fiber.Ctx) error {
	id, err := h.verifyGo(c, sequencePrefix)
	if err != nil {
		return h.goFailed(c, err)
	}
	seq, err := h.sequences.Load(requestContext(c), id)
	if err != nil {
		return renderError(c, h.logger, "failed to load sequence unlocker", err)
	}
	return c.Redirect(seq.DestinationURL, fiber.StatusFound)
}

func (h *ChallengeHandler) sessionIDs(c *fiber.Ctx) (id, sid uuid.UUID, err error) {
	if id, err = pathID(c, "id"); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if sid, err = uuid.Parse(c.Params("sid")); err != nil {
		return uuid.Nil, uuid.Nil, service.ErrSessionNotFound
	}
	return id, sid, nil
}

func (h *ChallengeHandler) snapshot(c *fiber.Ctx, kind service.ChallengeKind, prefix string) error {
	id, sid, err := h.sessionIDs(c)
	if err != nil {
		return writeError(c, h.logger, "invalid session", err)
	}
	snap, err := h.challenges.Snapshot(sid, kind, id)
	if err != nil {
		return writeError(c, h.logger, "failed to load session", err)
	}
	resp := ChallengeResponse{Snapshot: snap}
	if err := h.attachContinue(&resp, prefix, id); err != nil {
		return writeError(c, h.logger, "failed to issue redirect token", err)
	}
	return c.JSON(resp)
}

func (h *ChallengeHandler) apply(c *fiber.Ctx, kind service.ChallengeKind, prefix string, ev unlock.Event) error {
	id, sid, err := h.sessionIDs(c)
	if err != nil {
		return writeError(c, h.logger, "invalid session", err)
	}
	res, err := h.challenges.Apply(sid, kind, id, ev)
	if err != nil {
		return writeError(c, h.logger, "failed to apply challenge event", err)
	}
	resp := ChallengeResponse{
		Snapshot: res.Snapshot,
		Accepted: res.Accepted,
		Reset:    res.Reset,
		OpenURL:  res.OpenURL,
	}
	if err := h.attachContinue(&resp, prefix, id); err != nil {
		return writeError(c, h.logger, "failed to issue redirect token", err)
	}
	return c.JSON(resp)
}

// attachContinue issues the redirect token once the session is unlocked.
func (h *ChallengeHandler) attachContinue(resp *ChallengeResponse, prefix string, id uuid.UUID) error {
	if !resp.Snapshot.Unlocked() {
		return nil
	}
	token, err := h.tokens.Issue(tokenSubject(prefix, id))
	if err != nil {
		return err
	}
	resp.ContinueURL = fmt.Sprintf("%s/%s/_go/%s", prefix, id, token)
	return nil
}

// verifyGo checks the redirect token of a _go route.
func (h *ChallengeHandler) verifyGo(c *fiber.Ctx, prefix string) (uuid.UUID, error) {
	id, err := pathID(c, "id")
	if err != nil {
		return uuid.Nil, err
	}
	if err := h.tokens.Validate(tokenSubject(prefix, id), c.Params("token")); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (h *ChallengeHandler) goFailed(c *fiber.Ctx, err error) error {
	if errors.Is(err, httpUtil.ErrInvalidToken) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return renderError(c, h.logger, "failed to verify redirect", err)
}
