package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NFCTag is a physical (or pre-registered virtual) tag identified by UDID.
type NFCTag struct {
	ID   string `gorm:"primaryKey;type:uuid" json:"id"`
	UDID string `gorm:"column:udid;uniqueIndex;not null" json:"udid"`

	TagName       string  `gorm:"not null" json:"tag_name"`
	Address       *string `json:"address,omitempty"`
	FloorLocation *string `json:"floor_location,omitempty"`

	MediaURL *string `json:"media_url,omitempty"`
	LinkURL  *string `json:"link_url,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	TapMessage  *string `json:"tap_message,omitempty"`
	PointReward int     `gorm:"not null;default:0" json:"point_reward"`
	CooldownSec int     `gorm:"not null;default:0" json:"cooldown_sec"`
	UseLimit    *int    `json:"use_limit,omitempty"` // nil = unlimited

	IsActive bool    `gorm:"not null;default:true" json:"is_active"`
	Category *string `json:"category,omitempty"` // none|stage|hint|checkpoint|base|safezone|treasure

	QRImageURL *string `json:"qr_image_url,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *NFCTag) HasUseLimit() bool {
	return t.UseLimit != nil && *t.UseLimit > 0
}

// NFCScanLog is an append-only audit row per scan attempt, allowed or denied.
// Cooldown-remaining and usage counts are derived by filtering these rows;
// they are never mutated.
type NFCScanLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *string   `gorm:"type:uuid;index:idx_scan_user_tag" json:"user_id,omitempty"`
	NFCID     *string   `gorm:"type:uuid;index:idx_scan_user_tag" json:"nfc_id,omitempty"`
	HintID    *string   `gorm:"type:uuid" json:"hint_id,omitempty"`
	Allowed   bool      `gorm:"not null" json:"allowed"`
	Reason    *string   `json:"reason,omitempty"`
	ScannedAt time.Time `gorm:"autoCreateTime;index" json:"scanned_at"`
}

func (t *NFCTag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
