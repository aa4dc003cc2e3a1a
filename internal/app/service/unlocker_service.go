package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/LinkGate/internal/app/apperr"
	"github.com/sifan077/LinkGate/internal/app/model"
	"github.com/sifan077/LinkGate/internal/app/repository"
	"github.com/sifan077/LinkGate/internal/auth"
	"github.com/sifan077/LinkGate/internal/unlock"
)

const (
	maxButtonTexts = 10
	maxButtonText  = 80
	minExtendDays  = 1
	maxExtendDays  = 365
)

// UnlockerService manages click/countdown unlockers.
type UnlockerService interface {
	Create(ctx context.Context, sess auth.Session, input UnlockerInput) (*model.UrlUnlocker, error)
	Get(ctx context.Context, sess auth.Session, id uuid.UUID) (*model.UrlUnlocker, error)
	ListMine(ctx context.Context, sess auth.Session, limit, offset int) ([]model.UrlUnlocker, error)
	Delete(ctx context.Context, sess auth.Session, id uuid.UUID) error
	Extend(ctx context.Context, sess auth.Session, id uuid.UUID, days int) (*model.UrlUnlocker, error)
	// Load returns a public unlocker, or ErrExpired once it is past its expiration.
	Load(ctx context.Context, id uuid.UUID) (*model.UrlUnlocker, error)
}

// UnlockerInput captures data required to create a click/countdown unlocker.
type UnlockerInput struct {
	Title            string
	DestinationURL   string
	UnlockerURL      string
	ButtonTexts      []string
	ClickCount       int
	CountdownSeconds int
	ExpiresAt        *time.Time
}

type unlockerService struct {
	repo  repository.UnlockerRepository
	quota int
	now   func() time.Time
}

// NewUnlockerService returns an UnlockerService; maxPerOwner <= 0 disables the quota.
func NewUnlockerService(repo repository.UnlockerRepository, maxPerOwner int) UnlockerService {
	return &unlockerService{repo: repo, quota: maxPerOwner, now: time.Now}
}

func (s *unlockerService) Create(ctx context.Context, sess auth.Session, input UnlockerInput) (*model.UrlUnlocker, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	u, err := s.validate(input)
	if err != nil {
		return nil, err
	}
	if s.quota > 0 {
		n, err := s.repo.CountByOwner(ctx, sess.UserID)
		if err != nil {
			return nil, fmt.Errorf("count unlockers: %w", err)
		}
		if n >= int64(s.quota) {
			return nil, apperr.Quota("unlockers", s.quota)
		}
	}

	u.OwnerID = sess.UserID
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create unlocker: %w", err)
	}
	return u, nil
}

func (s *unlockerService) validate(input UnlockerInput) (*model.UrlUnlocker, error) {
	title, err := checkTitle(input.Title)
	if err != nil {
		return nil, err
	}
	dest, err := NormalizeURL("destination_url", input.DestinationURL)
	if err != nil {
		return nil, err
	}
	intermediate, err := optionalURL("unlocker_url", input.UnlockerURL)
	if err != nil {
		return nil, err
	}
	cfg := unlock.CountdownConfig{RequiredClicks: input.ClickCount, Seconds: input.CountdownSeconds}
	if cfg.RequiredClicks < unlock.MinRequiredClicks || cfg.RequiredClicks > unlock.MaxRequiredClicks {
		return nil, apperr.Invalid("click_count", "must be between %d and %d", unlock.MinRequiredClicks, unlock.MaxRequiredClicks)
	}
	if cfg.Seconds < 0 || cfg.Seconds > unlock.MaxCountdownSeconds {
		return nil, apperr.Invalid("countdown_seconds", "must be between 0 and %d", unlock.MaxCountdownSeconds)
	}
	if len(input.ButtonTexts) > maxButtonTexts {
		return nil, apperr.Invalid("button_texts", "at most %d entries allowed", maxButtonTexts)
	}
	texts := make([]string, 0, len(input.ButtonTexts))
	for _, t := range input.ButtonTexts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if len([]rune(t)) > maxButtonText {
			return nil, apperr.Invalid("button_texts", "entries must be at most %d characters", maxButtonText)
		}
		texts = append(texts, t)
	}
	if input.ExpiresAt != nil && !input.ExpiresAt.After(s.now()) {
		return nil, apperr.Invalid("expires_at", "must be in the future")
	}

	return &model.UrlUnlocker{
		Title:            title,
		DestinationURL:   dest,
		UnlockerURL:      intermediate,
		ButtonTexts:      texts,
		ClickCount:       cfg.RequiredClicks,
		CountdownSeconds: cfg.Seconds,
		ExpiresAt:        input.ExpiresAt,
	}, nil
}

func (s *unlockerService) Get(ctx context.Context, sess auth.Session, id uuid.UUID) (*model.UrlUnlocker, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get unlocker: %w", err)
	}
	if u.OwnerID != sess.UserID {
		return nil, repository.ErrUnlockerNotFound
	}
	return u, nil
}

func (s *unlockerService) ListMine(ctx context.Context, sess auth.Session, limit, offset int) ([]model.UrlUnlocker, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	list, err := s.repo.ListByOwner(ctx, sess.UserID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list unlockers: %w", err)
	}
	return list, nil
}

func (s *unlockerService) Delete(ctx context.Context, sess auth.Session, id uuid.UUID) error {
	if _, err := s.Get(ctx, sess, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete unlocker: %w", err)
	}
	return nil
}

func (s *unlockerService) Extend(ctx context.Context, sess auth.Session, id uuid.UUID, days int) (*model.UrlUnlocker, error) {
	if err := checkExtendDays(days); err != nil {
		return nil, err
	}
	u, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	next := model.ExtendExpiration(u.ExpiresAt, days, s.now().UTC())
	if err := s.repo.SetExpiration(ctx, id, next); err != nil {
		return nil, fmt.Errorf("extend unlocker: %w", err)
	}
	u.ExpiresAt = &next
	return u, nil
}

func (s *unlockerService) Load(ctx context.Context, id uuid.UUID) (*model.UrlUnlocker, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load unlocker: %w", err)
	}
	if u.Expired(s.now()) {
		return nil, fmt.Errorf("unlocker %s: %w", id, apperr.ErrExpired)
	}
	return u, nil
}

func checkExtendDays(days int) error {
	if days < minExtendDays || days > maxExtendDays {
		return apperr.Invalid("days", "must be between %d and %d", minExtendDays, maxExtendDays)
	}
	return nil
}
