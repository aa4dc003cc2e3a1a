package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/sifan077/LinkGate/internal/app/apperr"
	"github.com/sifan077/LinkGate/internal/app/model"
	"github.com/sifan077/LinkGate/internal/app/repository"
	"github.com/sifan077/LinkGate/internal/auth"
	"go.uber.org/zap"
)

const maxBioLen = 500

// Themes lists the accepted card themes.
var Themes = []string{"default", "dark", "light", "sunset", "ocean"}

// BioCardService manages bio cards and serves their public pages.
type BioCardService interface {
	Create(ctx context.Context, sess auth.Session, input CardInput) (*model.BioCard, error)
	Update(ctx context.Context, sess auth.Session, id uuid.UUID, input CardUpdate) (*model.BioCard, error)
	SetPublished(ctx context.Context, sess auth.Session, id uuid.UUID, published bool) (*model.BioCard, error)
	Delete(ctx context.Context, sess auth.Session, id uuid.UUID) error
	Get(ctx context.Context, sess auth.Session, id uuid.UUID) (*model.BioCard, error)
	ListMine(ctx context.Context, sess auth.Session) ([]model.BioCard, error)

	AddLink(ctx context.Context, sess auth.Session, cardID uuid.UUID, input BioLinkInput) (*model.BioLink, error)
	RemoveLink(ctx context.Context, sess auth.Session, cardID, linkID uuid.UUID) error
	AddSocial(ctx context.Context, sess auth.Session, cardID uuid.UUID, input SocialInput) (*model.SocialLink, error)
	RemoveSocial(ctx context.Context, sess auth.Session, cardID, socialID uuid.UUID) error

	// View returns a published card by slug and counts the view. Drafts are not found.
	View(ctx context.Context, slug string, meta RequestMeta) (*model.BioCard, error)
	// Follow returns the destination of a card link and counts the click.
	Follow(ctx context.Context, slug string, linkID uuid.UUID, meta RequestMeta) (string, error)
}

// CardInput captures data required to create a card.
type CardInput struct {
	Slug          string
	Title         string
	Bio           string
	AvatarURL     string
	BackgroundURL string
	Theme         string
}

// CardUpdate captures fields that can be changed on an existing card.
type CardUpdate struct {
	Slug          *string
	Title         *string
	Bio           *string
	AvatarURL     *string
	BackgroundURL *string
	Theme         *string
}

type BioLinkInput struct {
	Title    string
	URL      string
	Position int
}

type SocialInput struct {
	Platform string
	URL      string
	Position int
}

// BioCardDeps groups the collaborators of the bio card service.
type BioCardDeps struct {
	Cards          repository.BioCardRepository
	Counters       CounterService
	Events         *EventRecorder
	MaxCards       int
	MaxLinks       int
	MaxSocialLinks int
	Logger         *zap.Logger
}

type bioCardService struct {
	cards    repository.BioCardRepository
	counters CounterService
	events   *EventRecorder
	maxCards int
	maxLinks int
	maxSoc   int
	logger   *zap.Logger
}

func NewBioCardService(deps BioCardDeps) BioCardService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &bioCardService{
		cards:    deps.Cards,
		counters: deps.Counters,
		events:   deps.Events,
		maxCards: deps.MaxCards,
		maxLinks: deps.MaxLinks,
		maxSoc:   deps.MaxSocialLinks,
		logger:   logger,
	}
}

func normalizeSlug(raw string) (string, error) {
	slug := strings.ToLower(strings.TrimSpace(raw))
	if !slugPattern.MatchString(slug) {
		return "", apperr.Invalid("slug", "must be 3-32 characters of lowercase letters, digits or '-'")
	}
	return slug, nil
}

func checkTheme(theme string) (string, error) {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return "default", nil
	}
	if !slices.Contains(Themes, theme) {
		return "", apperr.Invalid("theme", "must be one of %s", strings.Join(Themes, ", "))
	}
	return theme, nil
}

func checkBio(bio string) (string, error) {
	bio = strings.TrimSpace(bio)
	if len([]rune(bio)) > maxBioLen {
		return "", apperr.Invalid("bio", "must be at most %d characters", maxBioLen)
	}
	return bio, nil
}

func (s *bioCardService) Create(ctx context.Context, sess auth.Session, input CardInput) (*model.BioCard, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	card := &model.BioCard{OwnerID: sess.UserID}
	var err error
	if card.Slug, err = normalizeSlug(input.Slug); err != nil {
		return nil, err
	}
	if card.Title, err = checkTitle(input.Title); err != nil {
		return nil, err
	}
	if card.Bio, err = checkBio(input.Bio); err != nil {
		return nil, err
	}
	if card.AvatarURL, err = optionalURL("avatar_url", input.AvatarURL); err != nil {
		return nil, err
	}
	if card.BackgroundURL, err = optionalURL("background_url", input.BackgroundURL); err != nil {
		return nil, err
	}
	if card.Theme, err = checkTheme(input.Theme); err != nil {
		return nil, err
	}

	if s.maxCards > 0 {
		n, err := s.cards.CountByOwner(ctx, sess.UserID)
		if err != nil {
			return nil, fmt.Errorf("count cards: %w", err)
		}
		if n >= int64(s.maxCards) {
			return nil, apperr.Quota("bio cards", s.maxCards)
		}
	}

	if _, err := s.cards.GetBySlug(ctx, card.Slug); err == nil {
		return nil, repository.ErrSlugTaken
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("check slug: %w", err)
	}

	if err := s.cards.Create(ctx, card); err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}
	return card, nil
}

func (s *bioCardService) Get(ctx context.Context, sess auth.Session, id uuid.UUID) (*model.BioCard, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	card, err := s.cards.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get card: %w", err)
	}
	if card.OwnerID != sess.UserID {
		return nil, repository.ErrCardNotFound
	}
	return card, nil
}

func (s *bioCardService) ListMine(ctx context.Context, sess auth.Session) ([]model.BioCard, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	cards, err := s.cards.ListByOwner(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}

func (s *bioCardService) Update(ctx context.Context, sess auth.Session, id uuid.UUID, input CardUpdate) (*model.BioCard, error) {
	card, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if input.Slug != nil {
		slug, err := normalizeSlug(*input.Slug)
		if err != nil {
			return nil, err
		}
		if slug != card.Slug {
			if _, err := s.cards.GetBySlug(ctx, slug); err == nil {
				return nil, repository.ErrSlugTaken
			} else if !errors.Is(err, apperr.ErrNotFound) {
				return nil, fmt.Errorf("check slug: %w", err)
			}
			fields["slug"] = slug
		}
	}
	if input.Title != nil {
		title, err := checkTitle(*input.Title)
		if err != nil {
			return nil, err
		}
		fields["title"] = title
	}
	if input.Bio != nil {
		bio, err := checkBio(*input.Bio)
		if err != nil {
			return nil, err
		}
		fields["bio"] = bio
	}
	if input.AvatarURL != nil {
		u, err := optionalURL("avatar_url", *input.AvatarURL)
		if err != nil {
			return nil, err
		}
		fields["avatar_url"] = u
	}
	if input.BackgroundURL != nil {
		u, err := optionalURL("background_url", *input.BackgroundURL)
		if err != nil {
			return nil, err
		}
		fields["background_url"] = u
	}
	if input.Theme != nil {
		theme, err := checkTheme(*input.Theme)
		if err != nil {
			return nil, err
		}
		fields["theme"] = theme
	}

	if err := s.cards.Update(ctx, id, fields); err != nil {
		return nil, fmt.Errorf("update card: %w", err)
	}
	return s.Get(ctx, sess, id)
}

func (s *bioCardService) SetPublished(ctx context.Context, sess auth.Session, id uuid.UUID, published bool) (*model.BioCard, error) {
	card, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if card.Published == published {
		return card, nil
	}
	if err := s.cards.Update(ctx, id, map[string]any{"published": published}); err != nil {
		return nil, fmt.Errorf("publish card: %w", err)
	}
	card.Published = published
	return card, nil
}

// Delete removes links, then socials, then the card. The steps are not atomic: a failed
// child delete is logged and the card is still removed.
func (s *bioCardService) Delete(ctx context.Context, sess auth.Session, id uuid.UUID) error {
	if _, err := s.Get(ctx, sess, id); err != nil {
		return err
	}
	if err := s.cards.DeleteLinks(ctx, id); err != nil {
		s.logger.Warn("failed to delete card links", zap.Stringer("card_id", id), zap.Error(err))
	}
	if err := s.cards.DeleteSocials(ctx, id); err != nil {
		s.logger.Warn("failed to delete card social links", zap.Stringer("card_id", id), zap.Error(err))
	}
	if err := s.cards.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return nil
}

func (s *bioCardService) AddLink(ctx context.Context, sess auth.Session, cardID uuid.UUID, input BioLinkInput) (*model.BioLink, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperr.Invalid("title", "is required")
	}
	title, err := checkTitle(title)
	if err != nil {
		return nil, err
	}
	dest, err := NormalizeURL("url", input.URL)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, sess, cardID); err != nil {
		return nil, err
	}

	if s.maxLinks > 0 {
		n, err := s.cards.CountLinks(ctx, cardID)
		if err != nil {
			return nil, fmt.Errorf("count card links: %w", err)
		}
		if n >= int64(s.maxLinks) {
			return nil, apperr.Quota("links per card", s.maxLinks)
		}
	}

	link := &model.BioLink{CardID: cardID, Title: title, URL: dest, Position: input.Position}
	if err := s.cards.AddLink(ctx, link); err != nil {
		return nil, fmt.Errorf("add card link: %w", err)
	}
	return link, nil
}

func (s *bioCardService) RemoveLink(ctx context.Context, sess auth.Session, cardID, linkID uuid.UUID) error {
	if _, err := s.Get(ctx, sess, cardID); err != nil {
		return err
	}
	if err := s.cards.DeleteLink(ctx, cardID, linkID); err != nil {
		return fmt.Errorf("remove card link: %w", err)
	}
	return nil
}

func (s *bioCardService) AddSocial(ctx context.Context, sess auth.Session, cardID uuid.UUID, input SocialInput) (*model.SocialLink, error) {
	platform := strings.ToLower(strings.TrimSpace(input.Platform))
	if !model.ValidPlatform(platform) {
		return nil, apperr.Invalid("platform", "must be one of %s", strings.Join(model.SocialPlatforms, ", "))
	}
	dest, err := NormalizeURL("url", input.URL)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, sess, cardID); err != nil {
		return nil, err
	}

	if s.maxSoc > 0 {
		n, err := s.cards.CountSocials(ctx, cardID)
		if err != nil {
			return nil, fmt.Errorf("count social links: %w", err)
		}
		if n >= int64(s.maxSoc) {
			return nil, apperr.Quota("social links per card", s.maxSoc)
		}
	}

	social := &model.SocialLink{CardID: cardID, Platform: platform, URL: dest, Position: input.Position}
	if err := s.cards.AddSocial(ctx, social); err != nil {
		return nil, fmt.Errorf("add social link: %w", err)
	}
	return social, nil
}

func (s *bioCardService) RemoveSocial(ctx context.Context, sess auth.Session, cardID, socialID uuid.UUID) error {
	if _, err := s.Get(ctx, sess, cardID); err != nil {
		return err
	}
	if err := s.cards.DeleteSocial(ctx, cardID, socialID); err != nil {
		return fmt.Errorf("remove social link: %w", err)
	}
	return nil
}

func (s *bioCardService) published(ctx context.Context, slug string) (*model.BioCard, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !slugPattern.MatchString(slug) {
		return nil, repository.ErrCardNotFound
	}
	card, err := s.cards.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("load card: %w", err)
	}
	if !card.Published {
		return nil, repository.ErrCardNotFound
	}
	return card, nil
}

func (s *bioCardService) View(ctx context.Context, slug string, meta RequestMeta) (*model.BioCard, error) {
	card, err := s.published(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.counters.IncrementAsync(model.CounterCardViews, card.ID.String())
	s.events.Record(model.TargetCard, card.ID.String(), model.KindVisit, meta)
	return card, nil
}

func (s *bioCardService) Follow(ctx context.Context, slug string, linkID uuid.UUID, meta RequestMeta) (string, error) {
	card, err := s.published(ctx, slug)
	if err != nil {
		return "", err
	}
	link, err := s.cards.GetLink(ctx, card.ID, linkID)
	if err != nil {
		return "", fmt.Errorf("load card link: %w", err)
	}
	s.counters.IncrementAsync(model.CounterBioLinkClicks, link.ID.String())
	s.events.Record(model.TargetCardLink, link.ID.String(), model.KindClick, meta)
	return link.URL, nil
}
