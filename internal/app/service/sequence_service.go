package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/LinkGate/internal/app/apperr"
	"github.com/sifan077/LinkGate/internal/app/model"
	"github.com/sifan077/LinkGate/internal/app/repository"
	"github.com/sifan077/LinkGate/internal/auth"
	"github.com/sifan077/LinkGate/internal/unlock"
)

// SequenceService manages colour sequence unlockers.
type SequenceService interface {
	Create(ctx context.Context, sess auth.Session, input SequenceInput) (*model.SequenceUnlocker, error)
	Get(ctx context.Context, sess auth.Session, id uuid.UUID) (*model.SequenceUnlocker, error)
	ListMine(ctx context.Context, sess auth.Session, limit, offset int) ([]model.SequenceUnlocker, error)
	Delete(ctx context.Context, sess auth.Session, id uuid.UUID) error
	Extend(ctx context.Context, sess auth.Session, id uuid.UUID, days int) (*model.SequenceUnlocker, error)
	Load(ctx context.Context, id uuid.UUID) (*model.SequenceUnlocker, error)
}

// SequenceInput captures data required to create a sequence unlocker.
type SequenceInput struct {
	Title          string
	Sequence       []string
	DestinationURL string
	ExpiresAt      *time.Time
}

type sequenceService struct {
	repo  repository.SequenceRepository
	quota int
	now   func() time.Time
}

func NewSequenceService(repo repository.SequenceRepository, maxPerOwner int) SequenceService {
	return &sequenceService{repo: repo, quota: maxPerOwner, now: time.Now}
}

func (s *sequenceService) Create(ctx context.Context, sess auth.Session, input SequenceInput) (*model.SequenceUnlocker, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	title, err := checkTitle(input.Title)
	if err != nil {
		return nil, err
	}
	dest, err := NormalizeURL("destination_url", input.DestinationURL)
	if err != nil {
		return nil, err
	}
	colors, err := unlock.ParseSequence(input.Sequence)
	if err != nil {
		return nil, apperr.Invalid("sequence", "%s", err.Error())
	}
	if input.ExpiresAt != nil && !input.ExpiresAt.After(s.now()) {
		return nil, apperr.Invalid("expires_at", "must be in the future")
	}

	if s.quota > 0 {
		n, err := s.repo.CountByOwner(ctx, sess.UserID)
		if err != nil {
			return nil, fmt.Errorf("count sequences: %w", err)
		}
		if n >= int64(s.quota) {
			return nil, apperr.Quota("sequence unlockers", s.quota)
		}
	}

	tokens := make([]string, len(colors))
	for i, c := range colors {
		tokens[i] = string(c)
	}
	seq := &model.SequenceUnlocker{
		OwnerID:        sess.UserID,
		Title:          title,
		Sequence:       tokens,
		DestinationURL: dest,
		ExpiresAt:      input.ExpiresAt,
	}
	if err := s.repo.Create(ctx, seq); err != nil {
		return nil, fmt.Errorf("create sequence: %w", err)
	}
	return seq, nil
}

func (s *sequenceService) Get(ctx context.Context, sess auth.Session, id uuid.UUID) (*model.SequenceUnlocker, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	seq, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get sequence: %w", err)
	}
	if seq.OwnerID != sess.UserID {
		return nil, repository.ErrSequenceNotFound
	}
	return seq, nil
}

func (s *sequenceService) ListMine(ctx context.Context, sess auth.Session, limit, offset int) ([]model.SequenceUnlocker, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	list, err := s.repo.ListByOwner(ctx, sess.UserID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}
	return list, nil
}

func (s *sequenceService) Delete(ctx context.Context, sess auth.Session, id uuid.UUID) error {
	if _, err := s.Get(ctx, sess, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete sequence: %w", err)
	}
	return nil
}

func (s *sequenceService) Extend(ctx context.Context, sess auth.Session, id uuid.UUID, days int) (*model.SequenceUnlocker, error) {
	if err := checkExtendDays(days); err != nil {
		return nil, err
	}
	seq, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	next := model.ExtendExpiration(seq.ExpiresAt, days, s.now().UTC())
	if err := s.repo.SetExpiration(ctx, id, next); err != nil {
		return nil, fmt.Errorf("extend sequence: %w", err)
	}
	seq.ExpiresAt = &next
	return seq, nil
}

func (s *sequenceService) Load(ctx context.Context, id uuid.UUID) (*model.SequenceUnlocker, error) {
	seq, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load sequence: %w", err)
	}
	if seq.Expired(s.now()) {
		return nil, fmt.Errorf("sequence %s: %w", id, apperr.ErrExpired)
	}
	return seq, nil
}
