package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BioCard is a user-owned landing page aggregating outbound links.
type BioCard struct {
	ID            uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID       uuid.UUID    `json:"owner_id" gorm:"type:uuid;index;not null"`
	Slug          string       `json:"slug" gorm:"size:32;uniqueIndex;not null"`
	Title         string       `json:"title" gorm:"size:200"`
	Bio           string       `json:"bio" gorm:"type:text"`
	AvatarURL     string       `json:"avatar_url,omitempty" gorm:"type:text"`
	BackgroundURL string       `json:"background_url,omitempty" gorm:"type:text"`
	Theme         string       `json:"theme" gorm:"size:32;not null;default:default"`
	Published     bool         `json:"published" gorm:"not null;default:false"`
	Views         int64        `json:"views" gorm:"not null;default:0"`
	Links         []BioLink    `json:"links" gorm:"foreignKey:CardID"`
	Socials       []SocialLink `json:"socials" gorm:"foreignKey:CardID"`
	CreatedAt     time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
}

func (BioCard) TableName() string { return "bio_cards" }

func (c *BioCard) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// BioLink is one outbound link on a card.
type BioLink struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CardID    uuid.UUID `json:"card_id" gorm:"type:uuid;index;not null"`
	Title     string    `json:"title" gorm:"size:200;not null"`
	URL       string    `json:"url" gorm:"type:text;not null"`
	Position  int       `json:"position" gorm:"not null;default:0"`
	Clicks    int64     `json:"clicks" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (BioLink) TableName() string { return "bio_links" }

func (l *BioLink) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// SocialLink is a platform profile shown as an icon on a card.
type SocialLink struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CardID   uuid.UUID `json:"card_id" gorm:"type:uuid;index;not null"`
	Platform string    `json:"platform" gorm:"size:32;not null"`
	URL      string    `json:"url" gorm:"type:text;not null"`
	Position int       `json:"position" gorm:"not null;default:0"`
}

func (SocialLink) TableName() string { return "social_links" }

func (s *SocialLink) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SocialPlatforms lists the accepted social link platforms.
var SocialPlatforms = []string{
	"instagram", "x", "tiktok", "youtube", "facebook", "linkedin",
	"github", "twitch", "discord", "telegram", "website",
}

// ValidPlatform reports whether p is an accepted platform.
func ValidPlatform(p string) bool {
	return slices.Contains(SocialPlatforms, p)
}
