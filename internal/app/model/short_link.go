package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShortLink describes the short-link entity resolved under /s/:code.
type ShortLink struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Code        string     `json:"code" gorm:"size:32;uniqueIndex;not null"`
	OriginalURL string     `json:"original_url" gorm:"type:text;not null"`
	Title       string     `json:"title,omitempty" gorm:"size:200"`
	Visits      int64      `json:"visits" gorm:"not null;default:0"`
	OwnerID     *uuid.UUID `json:"owner_id,omitempty" gorm:"type:uuid;index"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

func (ShortLink) TableName() string { return "short_links" }

// BeforeCreate assigns an id when the caller did not.
func (l *ShortLink) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// OwnedBy reports whether the link belongs to owner. Anonymous links belong to nobody.
func (l *ShortLink) OwnedBy(owner uuid.UUID) bool {
	return l.OwnerID != nil && *l.OwnerID == owner
}
