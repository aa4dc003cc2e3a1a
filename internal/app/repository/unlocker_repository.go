package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/LinkGate/internal/app/apperr"
	"github.com/sifan077/LinkGate/internal/app/model"
	"gorm.io/gorm"
)

// UnlockerRepository defines the data access contract for click/countdown unlockers.
type UnlockerRepository interface {
	Create(ctx context.Context, u *model.UrlUnlocker) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.UrlUnlocker, error)
	ListByOwner(ctx context.Context, owner uuid.UUID, limit, offset int) ([]model.UrlUnlocker, error)
	CountByOwner(ctx context.Context, owner uuid.UUID) (int64, error)
	SetExpiration(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type unlockerRepository struct {
	db *gorm.DB
}

// NewUnlockerRepository returns a GORM-backed UnlockerRepository.
func NewUnlockerRepository(db *gorm.DB) UnlockerRepository {
	return &unlockerRepository{db: db}
}

func (r *unlockerRepository) Create(ctx context.Context, u *model.UrlUnlocker) error {
	return apperr.Remote("create unlocker", r.db.WithContext(ctx).Create(u).Error)
}

func (r *unlockerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.UrlUnlocker, error) {
	var u model.UrlUnlocker
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate("get unlocker", err, ErrUnlockerNotFound)
	}
	return &u, nil
}

func (r *unlockerRepository) ListByOwner(ctx context.Context, owner uuid.UUID, limit, offset int) ([]model.UrlUnlocker, error) {
	limit, offset = pageBounds(limit, offset)
	var result []model.UrlUnlocker
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", owner).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&result).Error; err != nil {
		return nil, apperr.Remote("list unlockers", err)
	}
	return result, nil
}

func (r *unlockerRepository) CountByOwner(ctx context.Context, owner uuid.UUID) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.UrlUnlocker{}).Where("owner_id = ?", owner).Count(&n).Error; err != nil {
		return 0, apperr.Remote("count unlockers", err)
	}
	return n, nil
}

func (r *unlockerRepository) SetExpiration(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.UrlUnlocker{}).
		Where("id = ?", id).
		Update("expires_at", expiresAt)
	if result.Error != nil {
		return apperr.Remote("extend unlocker", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUnlockerNotFound
	}
	return nil
}

func (r *unlockerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.UrlUnlocker{})
	if result.Error != nil {
		return apperr.Remote("delete unlocker", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUnlockerNotFound
	}
	return nil
}
