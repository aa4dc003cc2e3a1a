package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sifan077/LinkGate/internal/app/apperr"
	"github.com/sifan077/LinkGate/internal/app/model"
	"github.com/sifan077/LinkGate/internal/app/repository"
	"github.com/sifan077/LinkGate/internal/auth"
	"github.com/sifan077/LinkGate/internal/metrics"
	"go.uber.org/zap"
)

const maxCodeAttempts = 5

// ErrCodeExhausted is returned when no free generated code was found.
var ErrCodeExhausted = errors.New("could not generate a unique short code")

// LinkService defines behaviour-level operations on short links.
type LinkService interface {
	Shorten(ctx context.Context, sess auth.Session, input ShortenInput) (*model.ShortLink, error)
	Get(ctx context.Context, code string) (*model.ShortLink, error)
	ListMine(ctx context.Context, sess auth.Session, limit, offset int) ([]model.ShortLink, error)
	Delete(ctx context.Context, sess auth.Session, code string) error
	Stats(ctx context.Context, sess auth.Session, code string, days int) (*LinkStats, error)
}

// ShortenInput captures data required to create a link.
type ShortenInput struct {
	URL   string
	Code  string
	Title string
}

// LinkStats is the owner analytics view of a link.
type LinkStats struct {
	Link   *model.ShortLink   `json:"link"`
	Visits int64              `json:"visits"`
	Daily  []model.DailyCount `json:"daily"`
}

// LinkServiceDeps groups the collaborators of the link service.
type LinkServiceDeps struct {
	Links    repository.LinkRepository
	Events   repository.ClickEventRepository
	Filter   *CodeFilter
	MaxLinks int
	Logger   *zap.Logger
}

type linkService struct {
	links    repository.LinkRepository
	events   repository.ClickEventRepository
	filter   *CodeFilter
	maxLinks int
	logger   *zap.Logger
	newCode  func() (string, error)
	now      func() time.Time
}

// NewLinkService returns a service implementation backed by the given repositories.
func NewLinkService(deps LinkServiceDeps) LinkService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &linkService{
		links:    deps.Links,
		events:   deps.Events,
		filter:   deps.Filter,
		maxLinks: deps.MaxLinks,
		logger:   logger,
		newCode:  generateCode,
		now:      time.Now,
	}
}

func (s *linkService) Shorten(ctx context.Context, sess auth.Session, input ShortenInput) (*model.ShortLink, error) {
	link, err := s.shorten(ctx, sess, input)
	metrics.LinksCreatedTotal.WithLabelValues(metrics.Status(err)).Inc()
	return link, err
}

func (s *linkService) shorten(ctx context.Context, sess auth.Session, input ShortenInput) (*model.ShortLink, error) {
	dest, err := NormalizeURL("url", input.URL)
	if err != nil {
		return nil, err
	}
	title, err := checkTitle(input.Title)
	if err != nil {
		return nil, err
	}
	custom := strings.TrimSpace(input.Code)
	if custom != "" && !ValidCode(custom) {
		return nil, apperr.Invalid("code", "must be 3-32 characters of letters, digits, '-' or '_'")
	}

	if sess.Authenticated() && s.maxLinks > 0 {
		n, err := s.links.CountByOwner(ctx, sess.UserID)
		if err != nil {
			return nil, fmt.Errorf("count links: %w", err)
		}
		if n >= int64(s.maxLinks) {
			return nil, apperr.Quota("links", s.maxLinks)
		}
	}

	link := &model.ShortLink{
		OriginalURL: dest,
		Title:       title,
		OwnerID:     sess.Owner(),
	}

	if custom != "" {
		if taken, err := s.codeTaken(ctx, custom); err != nil {
			return nil, err
		} else if taken {
			return nil, repository.ErrCodeTaken
		}
		link.Code = custom
		if err := s.links.Create(ctx, link); err != nil {
			return nil, fmt.Errorf("create link: %w", err)
		}
		s.remember(link.Code)
		return link, nil
	}

	for range maxCodeAttempts {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		taken, err := s.codeTaken(ctx, code)
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}

		link.Code = code
		err = s.links.Create(ctx, link)
		if errors.Is(err, repository.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create link: %w", err)
		}
		s.remember(link.Code)
		return link, nil
	}
	return nil, ErrCodeExhausted
}

func (s *linkService) codeTaken(ctx context.Context, code string) (bool, error) {
	if s.filter != nil && !s.filter.MayContain(code) {
		return false, nil
	}
	_, err := s.links.GetByCode(ctx, code)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperr.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("check code: %w", err)
	}
}

func (s *linkService) remember(code string) {
	if s.filter != nil {
		s.filter.Add(code)
	}
}

func (s *linkService) Get(ctx context.Context, code string) (*model.ShortLink, error) {
	if !ValidCode(code) {
		return nil, repository.ErrLinkNotFound
	}
	link, err := s.links.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	return link, nil
}

func (s *linkService) ListMine(ctx context.Context, sess auth.Session, limit, offset int) ([]model.ShortLink, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	links, err := s.links.ListByOwner(ctx, sess.UserID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

func (s *linkService) owned(ctx context.Context, sess auth.Session, code string) (*model.ShortLink, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	link, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	// Links of other owners are reported as missing.
	if !link.OwnedBy(sess.UserID) {
		return nil, repository.ErrLinkNotFound
	}
	return link, nil
}

func (s *linkService) Delete(ctx context.Context, sess auth.Session, code string) error {
	if _, err := s.owned(ctx, sess, code); err != nil {
		return err
	}
	if err := s.links.Delete(ctx, code); err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	return nil
}

func (s *linkService) Stats(ctx context.Context, sess auth.Session, code string, days int) (*LinkStats, error) {
	link, err := s.owned(ctx, sess, code)
	if err != nil {
		return nil, err
	}
	if days <= 0 || days > 365 {
		days = 30
	}
	since := s.now().UTC().AddDate(0, 0, -days)
	daily, err := s.events.DailyCounts(ctx, model.TargetLink, link.Code, since)
	if err != nil {
		return nil, fmt.Errorf("link stats: %w", err)
	}
	return &LinkStats{Link: link, Visits: link.Visits, Daily: daily}, nil
}
