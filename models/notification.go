package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationStatus follows the publish window: draft → scheduled →
// published → expired. The scheduler advances scheduled/published rows as
// their window opens and closes.
type NotificationStatus string

const (
	NotificationStatusDraft     NotificationStatus = "draft"
	NotificationStatusScheduled NotificationStatus = "scheduled"
	NotificationStatusPublished NotificationStatus = "published"
	NotificationStatusExpired   NotificationStatus = "expired"
)

// Notification is an operator announcement shown in the app.
type Notification struct {
	ID               string             `gorm:"primaryKey;type:uuid" json:"id"`
	Title            string             `gorm:"size:200;not null" json:"title"`
	Content          string             `gorm:"not null" json:"content"` // max 500 chars, validated at the handler
	NotificationType string             `gorm:"size:20;not null" json:"notification_type"` // system|event|promotion
	StartAt          time.Time          `gorm:"not null" json:"start_at"`
	EndAt            time.Time          `gorm:"not null" json:"end_at"`
	Status           NotificationStatus `gorm:"size:20;not null;default:'draft'" json:"status"`

	ShowPopupOnAppStart bool `gorm:"not null;default:false" json:"show_popup_on_app_start"`
	ViewCount           int  `gorm:"not null;default:0" json:"view_count"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
