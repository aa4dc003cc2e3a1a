package model

import "time"

// Target types recorded on click events.
const (
	TargetLink     = "link"
	TargetUnlocker = "unlocker"
	TargetSequence = "sequence"
	TargetCard     = "card"
	TargetCardLink = "card_link"
)

// Event kinds.
const (
	KindVisit  = "visit"
	KindUnlock = "unlock"
	KindClick  = "click"
)

// ClickEvent is one analytics record for a resolved link, unlocker or card.
type ClickEvent struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	TargetType string    `json:"target_type" gorm:"size:16;not null;index:idx_click_target"`
	TargetID   string    `json:"target_id" gorm:"size:64;not null;index:idx_click_target"`
	Kind       string    `json:"kind" gorm:"size:16;not null"`
	IP         string    `json:"ip" gorm:"size:64"`
	UserAgent  string    `json:"user_agent" gorm:"type:text"`
	Referer    string    `json:"referer,omitempty" gorm:"type:text"`
	Timestamp  time.Time `json:"timestamp" gorm:"index"`
}

func (ClickEvent) TableName() string { return "click_events" }

// DailyCount is the number of events recorded on one day (YYYY-MM-DD).
type DailyCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

const (
	ClickStreamName     = "CLICKS"
	ClickStreamSubject  = "clicks.events"
	ClickConsumerName   = "click-logger"
	ClickStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
