package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UrlUnlocker gates a destination behind a click threshold followed by a countdown.
type UrlUnlocker struct {
	ID               uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID          uuid.UUID  `json:"owner_id" gorm:"type:uuid;index;not null"`
	Title            string     `json:"title" gorm:"size:200"`
	DestinationURL   string     `json:"destination_url" gorm:"type:text;not null"`
	UnlockerURL      string     `json:"unlocker_url" gorm:"type:text"`
	ButtonTexts      []string   `json:"button_texts" gorm:"type:text;serializer:json"`
	ClickCount       int        `json:"click_count" gorm:"not null;default:1"`
	CountdownSeconds int        `json:"countdown_seconds" gorm:"not null;default:0"`
	Visits           int64      `json:"visits" gorm:"not null;default:0"`
	Unlocks          int64      `json:"unlocks" gorm:"not null;default:0"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty" gorm:"index"`
	CreatedAt        time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (UrlUnlocker) TableName() string { return "url_unlockers" }

func (u *UrlUnlocker) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Expired reports whether the unlocker is past its expiration at now.
func (u *UrlUnlocker) Expired(now time.Time) bool {
	return expired(u.ExpiresAt, now)
}

// SequenceUnlocker gates a destination behind a colour sequence.
type SequenceUnlocker struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID        uuid.UUID  `json:"owner_id" gorm:"type:uuid;index;not null"`
	Title          string     `json:"title" gorm:"size:200"`
	Sequence       []string   `json:"sequence" gorm:"type:text;serializer:json;not null"`
	DestinationURL string     `json:"destination_url" gorm:"type:text;not null"`
	Visits         int64      `json:"visits" gorm:"not null;default:0"`
	Unlocks        int64      `json:"unlocks" gorm:"not null;default:0"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty" gorm:"index"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

func (SequenceUnlocker) TableName() string { return "sequence_unlockers" }

func (s *SequenceUnlocker) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *SequenceUnlocker) Expired(now time.Time) bool {
	return expired(s.ExpiresAt, now)
}

func expired(at *time.Time, now time.Time) bool {
	return at != nil && !now.Before(*at)
}

// ExtendExpiration adds days to the current expiration, or to now when none is set.
func ExtendExpiration(current *time.Time, days int, now time.Time) time.Time {
	base := now
	if current != nil {
		base = *current
	}
	return base.AddDate(0, 0, days)
}
