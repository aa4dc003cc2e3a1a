package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sifan077/LinkGate/internal/app/apperr"
	"github.com/sifan077/LinkGate/internal/app/model"
	"gorm.io/gorm"
)

// LinkRepository defines the data access contract for short links.
type LinkRepository interface {
	Create(ctx context.Context, link *model.ShortLink) error
	GetByCode(ctx context.Context, code string) (*model.ShortLink, error)
	ListByOwner(ctx context.Context, owner uuid.UUID, limit, offset int) ([]model.ShortLink, error)
	CountByOwner(ctx context.Context, owner uuid.UUID) (int64, error)
	Delete(ctx context.Context, code string) error
	EachCode(ctx context.Context, fn func(code string)) error
}

type linkRepository struct {
	db *gorm.DB
}

// NewLinkRepository returns a GORM-backed LinkRepository.
func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) Create(ctx context.Context, link *model.ShortLink) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		if isDuplicate(err) {
			return ErrCodeTaken
		}
		return apperr.Remote("create link", err)
	}
	return nil
}

func (r *linkRepository) GetByCode(ctx context.Context, code string) (*model.ShortLink, error) {
	var link model.ShortLink
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&link).Error
	if err != nil {
		return nil, translate("get link", err, ErrLinkNotFound)
	}
	return &link, nil
}

func (r *linkRepository) ListByOwner(ctx context.Context, owner uuid.UUID, limit, offset int) ([]model.ShortLink, error) {
	limit, offset = pageBounds(limit, offset)

	var result []model.ShortLink
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", owner).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&result).Error; err != nil {
		return nil, apperr.Remote("list links", err)
	}
	return result, nil
}

func (r *linkRepository) CountByOwner(ctx context.Context, owner uuid.UUID) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.ShortLink{}).Where("owner_id = ?", owner).Count(&n).Error; err != nil {
		return 0, apperr.Remote("count links", err)
	}
	return n, nil
}

func (r *linkRepository) Delete(ctx context.Context, code string) error {
	result := r.db.WithContext(ctx).Where("code = ?", code).Delete(&model.ShortLink{})
	if result.Error != nil {
		return apperr.Remote("delete link", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// EachCode streams every stored code in batches; used to warm the code filter.
func (r *linkRepository) EachCode(ctx context.Context, fn func(code string)) error {
	var batch []model.ShortLink
	err := r.db.WithContext(ctx).
		Model(&model.ShortLink{}).
		Select("id", "code").
		FindInBatches(&batch, 1000, func(*gorm.DB, int) error {
			for _, l := range batch {
				fn(l.Code)
			}
			return nil
		}).Error
	return apperr.Remote("scan link codes", err)
}
