package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/LinkGate/internal/app/apperr"
	"github.com/sifan077/LinkGate/internal/app/model"
	"gorm.io/gorm"
)

// SequenceRepository defines the data access contract for colour sequence unlockers.
type SequenceRepository interface {
	Create(ctx context.Context, s *model.SequenceUnlocker) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.SequenceUnlocker, error)
	ListByOwner(ctx context.Context, owner uuid.UUID, limit, offset int) ([]model.SequenceUnlocker, error)
	CountByOwner(ctx context.Context, owner uuid.UUID) (int64, error)
	SetExpiration(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type sequenceRepository struct {
	db *gorm.DB
}

// NewSequenceRepository returns a GORM-backed SequenceRepository.
func NewSequenceRepository(db *gorm.DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

func (r *sequenceRepository) Create(ctx context.Context, s *model.SequenceUnlocker) error {
	return apperr.Remote("create sequence", r.db.WithContext(ctx).Create(s).Error)
}

func (r *sequenceRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.SequenceUnlocker, error) {
	var s model.SequenceUnlocker
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, translate("get sequence", err, ErrSequenceNotFound)
	}
	return &s, nil
}

func (r *sequenceRepository) ListByOwner(ctx context.Context, owner uuid.UUID, limit, offset int) ([]model.SequenceUnlocker, error) {
	limit, offset = pageBounds(limit, offset)
	var result []model.SequenceUnlocker
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", owner).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&result).Error; err != nil {
		return nil, apperr.Remote("list sequences", err)
	}
	return result, nil
}

func (r *sequenceRepository) CountByOwner(ctx context.Context, owner uuid.UUID) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.SequenceUnlocker{}).Where("owner_id = ?", owner).Count(&n).Error; err != nil {
		return 0, apperr.Remote("count sequences", err)
	}
	return n, nil
}

func (r *sequenceRepository) SetExpiration(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.SequenceUnlocker{}).
		Where("id = ?", id).
		Update("expires_at", expiresAt)
	if result.Error != nil {
		return apperr.Remote("extend sequence", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSequenceNotFound
	}
	return nil
}

func (r *sequenceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.SequenceUnlocker{})
	if result.Error != nil {
		return apperr.Remote("delete sequence", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSequenceNotFound
	}
	return nil
}
