package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sifan077/LinkGate/internal/app/apperr"
	"github.com/sifan077/LinkGate/internal/app/model"
	"gorm.io/gorm"
)

// BioCardRepository defines the data access contract for bio cards and their links.
// Multi-table deletes are issued as separate statements; callers sequence them.
type BioCardRepository interface {
	Create(ctx context.Context, card *model.BioCard) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.BioCard, error)
	GetBySlug(ctx context.Context, slug string) (*model.BioCard, error)
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]model.BioCard, error)
	CountByOwner(ctx context.Context, owner uuid.UUID) (int64, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error

	AddLink(ctx context.Context, link *model.BioLink) error
	GetLink(ctx context.Context, cardID, linkID uuid.UUID) (*model.BioLink, error)
	CountLinks(ctx context.Context, cardID uuid.UUID) (int64, error)
	DeleteLink(ctx context.Context, cardID, linkID uuid.UUID) error
	DeleteLinks(ctx context.Context, cardID uuid.UUID) error

	AddSocial(ctx context.Context, social *model.SocialLink) error
	CountSocials(ctx context.Context, cardID uuid.UUID) (int64, error)
	DeleteSocial(ctx context.Context, cardID, socialID uuid.UUID) error
	DeleteSocials(ctx context.Context, cardID uuid.UUID) error
}

type bioCardRepository struct {
	db *gorm.DB
}

// NewBioCardRepository returns a GORM-backed BioCardRepository.
func NewBioCardRepository(db *gorm.DB) BioCardRepository {
	return &bioCardRepository{db: db}
}

func (r *bioCardRepository) Create(ctx context.Context, card *model.BioCard) error {
	// Links and socials are added through their own calls so the per-card caps apply.
	err := r.db.WithContext(ctx).Omit("Links", "Socials").Create(card).Error
	if err != nil {
		if isDuplicate(err) {
			return ErrSlugTaken
		}
		return apperr.Remote("create card", err)
	}
	return nil
}

func (r *bioCardRepository) withChildren(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Links", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, created_at ASC") }).
		Preload("Socials", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") })
}

func (r *bioCardRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.BioCard, error) {
	var card model.BioCard
	if err := r.withChildren(ctx).Where("id = ?", id).First(&card).Error; err != nil {
		return nil, translate("get card", err, ErrCardNotFound)
	}
	return &card, nil
}

func (r *bioCardRepository) GetBySlug(ctx context.Context, slug string) (*model.BioCard, error) {
	var card model.BioCard
	if err := r.withChildren(ctx).Where("slug = ?", slug).First(&card).Error; err != nil {
		return nil, translate("get card by slug", err, ErrCardNotFound)
	}
	return &card, nil
}

func (r *bioCardRepository) ListByOwner(ctx context.Context, owner uuid.UUID) ([]model.BioCard, error) {
	var cards []model.BioCard
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", owner).
		Order("created_at DESC").
		Find(&cards).Error; err != nil {
		return nil, apperr.Remote("list cards", err)
	}
	return cards, nil
}

func (r *bioCardRepository) CountByOwner(ctx context.Context, owner uuid.UUID) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.BioCard{}).Where("owner_id = ?", owner).Count(&n).Error; err != nil {
		return 0, apperr.Remote("count cards", err)
	}
	return n, nil
}

func (r *bioCardRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&model.BioCard{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		if isDuplicate(result.Error) {
			return ErrSlugTaken
		}
		return apperr.Remote("update card", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCardNotFound
	}
	return nil
}

func (r *bioCardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.BioCard{})
	if result.Error != nil {
		return apperr.Remote("delete card", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCardNotFound
	}
	return nil
}

func (r *bioCardRepository) AddLink(ctx context.Context, link *model.BioLink) error {
	return apperr.Remote("add card link", r.db.WithContext(ctx).Create(link).Error)
}

func (r *bioCardRepository) GetLink(ctx context.Context, cardID, linkID uuid.UUID) (*model.BioLink, error) {
	var link model.BioLink
	err := r.db.WithContext(ctx).Where("id = ? AND card_id = ?", linkID, cardID).First(&link).Error
	if err != nil {
		return nil, translate("get card link", err, ErrBioLinkNotFound)
	}
	return &link, nil
}

func (r *bioCardRepository) CountLinks(ctx context.Context, cardID uuid.UUID) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.BioLink{}).Where("card_id = ?", cardID).Count(&n).Error; err != nil {
		return 0, apperr.Remote("count card links", err)
	}
	return n, nil
}

func (r *bioCardRepository) DeleteLink(ctx context.Context, cardID, linkID uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ? AND card_id = ?", linkID, cardID).Delete(&model.BioLink{})
	if result.Error != nil {
		return apperr.Remote("delete card link", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBioLinkNotFound
	}
	return nil
}

func (r *bioCardRepository) DeleteLinks(ctx context.Context, cardID uuid.UUID) error {
	err := r.db.WithContext(ctx).Where("card_id = ?", cardID).Delete(&model.BioLink{}).Error
	return apperr.Remote("delete card links", err)
}

func (r *bioCardRepository) AddSocial(ctx context.Context, social *model.SocialLink) error {
	return apperr.Remote("add social link", r.db.WithContext(ctx).Create(social).Error)
}

func (r *bioCardRepository) CountSocials(ctx context.Context, cardID uuid.UUID) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.SocialLink{}).Where("card_id = ?", cardID).Count(&n).Error; err != nil {
		return 0, apperr.Remote("count social links", err)
	}
	return n, nil
}

func (r *bioCardRepository) DeleteSocial(ctx context.Context, cardID, socialID uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ? AND card_id = ?", socialID, cardID).Delete(&model.SocialLink{})
	if result.Error != nil {
		return apperr.Remote("delete social link", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSocialLinkNotFound
	}
	return nil
}

func (r *bioCardRepository) DeleteSocials(ctx context.Context, cardID uuid.UUID) error {
	err := r.db.WithContext(ctx).Where("card_id = ?", cardID).Delete(&model.SocialLink{}).Error
	return apperr.Remote("delete social links", err)
}
