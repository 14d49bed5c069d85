package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContentType distinguishes the two campaign formats.
type ContentType string

const (
	ContentTypeStory      ContentType = "story"
	ContentTypeDomination ContentType = "domination"
)

// Content is a campaign grouping stages. It is either always-on or windowed
// by StartAt/EndAt, and may chain to a successor content.
//
// Invariant: HasNextContent is true iff NextContentID is non-nil, and a
// content never points at itself.
type Content struct {
	ID           string      `gorm:"primaryKey;type:uuid" json:"id"`
	Title        string      `gorm:"not null" json:"title"`
	Description  *string     `json:"description,omitempty"`
	ContentType  ContentType `gorm:"not null" json:"content_type"`
	ExposureType string      `gorm:"not null;default:'main'" json:"exposure_type"` // main|event_tab

	StartAt    *time.Time `json:"start_at,omitempty"`
	EndAt      *time.Time `json:"end_at,omitempty"`
	IsAlwaysOn bool       `gorm:"not null;default:false" json:"is_always_on"`

	StageCount   *int `json:"stage_count,omitempty"` // display only, 1..10
	IsSequential bool `gorm:"not null;default:true" json:"is_sequential"`

	RewardCoin int `gorm:"not null;default:0" json:"reward_coin"`

	CenterLat *float64 `json:"center_lat,omitempty"`
	CenterLon *float64 `json:"center_lon,omitempty"`

	HasNextContent bool    `gorm:"not null;default:false" json:"has_next_content"`
	NextContentID  *string `gorm:"type:uuid" json:"next_content_id,omitempty"`

	IsOpen    bool      `gorm:"not null;default:true" json:"is_open"`
	CreatedBy *string   `gorm:"type:uuid" json:"created_by,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// AvailableAt reports whether the content can be entered at t.
func (c *Content) AvailableAt(t time.Time) bool {
	if !c.IsOpen {
		return false
	}
	if c.IsAlwaysOn {
		return true
	}
	if c.StartAt != nil && c.StartAt.After(t) {
		return false
	}
	if c.EndAt != nil && c.EndAt.Before(t) {
		return false
	}
	return true
}

// ContentPrerequisite requires another content to be cleared before entry.
type ContentPrerequisite struct {
	ContentID         string `gorm:"primaryKey;type:uuid" json:"content_id"`
	RequiredContentID string `gorm:"primaryKey;type:uuid" json:"required_content_id"`
	Requirement       string `gorm:"not null;default:'cleared'" json:"requirement"`
}

func (c *Content) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
