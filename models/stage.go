package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Stage is a mission unit inside a content. A hidden stage must name the
// stage that unlocks it (UnlockStageID); visible stages must not.
type Stage struct {
	ID            string  `gorm:"primaryKey;type:uuid" json:"id"`
	ContentID     string  `gorm:"type:uuid;not null;index;uniqueIndex:idx_stage_content_no" json:"content_id"`
	ParentStageID *string `gorm:"type:uuid;index" json:"parent_stage_id,omitempty"`
	StageNo       string  `gorm:"not null;uniqueIndex:idx_stage_content_no" json:"stage_no"`

	Title           string  `gorm:"not null" json:"title"`
	Description     *string `json:"description,omitempty"`
	StartButtonText *string `json:"start_button_text,omitempty"`

	IsHidden bool `gorm:"not null;default:false" json:"is_hidden"`
	IsOpen   bool `gorm:"not null;default:true" json:"is_open"`

	TimeLimitMin       *int `json:"time_limit_min,omitempty"`
	ClearNeedNFCCount  *int `json:"clear_need_nfc_count,omitempty"`
	ClearTimeAttackSec *int `json:"clear_time_attack_sec,omitempty"`

	Latitude            *float64 `json:"latitude,omitempty"`
	Longitude           *float64 `json:"longitude,omitempty"`
	RadiusM             *int     `json:"radius_m,omitempty"`
	UnlockOnEnterRadius bool     `gorm:"not null;default:false" json:"unlock_on_enter_radius"`

	UnlockStageID *string `gorm:"type:uuid" json:"unlock_stage_id,omitempty"`

	BackgroundImageURL *string `json:"background_image_url,omitempty"`
	ThumbnailURL       *string `json:"thumbnail_url,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (s *Stage) IsMainStage() bool {
	return s.ParentStageID == nil
}

// StageHint is an ordered hint within a stage. It may bind one NFC tag
// (unique per stage) and/or carry a geofence target for location
// verification, each with its own coin reward.
type StageHint struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	StageID string `gorm:"type:uuid;not null;index;uniqueIndex:idx_hint_stage_nfc" json:"stage_id"`
	Preset  string `gorm:"not null" json:"preset"`
	OrderNo int    `gorm:"not null" json:"order_no"`

	TextBlock1 *string `json:"text_block_1,omitempty"`
	TextBlock2 *string `json:"text_block_2,omitempty"`
	TextBlock3 *string `json:"text_block_3,omitempty"`

	CooldownSec     int `gorm:"not null;default:0" json:"cooldown_sec"`
	FailCooldownSec int `gorm:"not null;default:0" json:"fail_cooldown_sec"`
	RewardCoin      int `gorm:"not null;default:0" json:"reward_coin"`

	NFCID *string `gorm:"type:uuid;uniqueIndex:idx_hint_stage_nfc" json:"nfc_id,omitempty"`

	// Geofence target for location verification.
	TargetLat *float64 `json:"target_lat,omitempty"`
	TargetLon *float64 `json:"target_lon,omitempty"`
	RadiusM   *int     `json:"radius_m,omitempty"`
}

// HasGeofence reports whether the hint can be completed by GPS proximity.
func (h *StageHint) HasGeofence() bool {
	return h.TargetLat != nil && h.TargetLon != nil && h.RadiusM != nil
}

// HintImage is an ordered image attached to a hint.
type HintImage struct {
	ID      string  `gorm:"primaryKey;type:uuid" json:"id"`
	HintID  string  `gorm:"type:uuid;not null;index" json:"hint_id"`
	OrderNo int     `gorm:"not null" json:"order_no"`
	URL     string  `gorm:"not null" json:"url"`
	AltText *string `json:"alt_text,omitempty"`
}

// StagePuzzle configures an in-stage puzzle screen.
type StagePuzzle struct {
	ID          string  `gorm:"primaryKey;type:uuid" json:"id"`
	StageID     string  `gorm:"type:uuid;not null;index" json:"stage_id"`
	PuzzleStyle string  `gorm:"not null" json:"puzzle_style"`
	ShowWhen    string  `gorm:"not null" json:"show_when"` // always|after_clear
	Config      *string `gorm:"type:text" json:"config,omitempty"`
}

// StageUnlockPreset configures the clear/unlock presentation shown by the app.
type StageUnlockPreset struct {
	ID           string  `gorm:"primaryKey;type:uuid" json:"id"`
	StageID      string  `gorm:"type:uuid;not null;index" json:"stage_id"`
	UnlockPreset string  `gorm:"not null" json:"unlock_preset"` // fullscreen|popup
	NextAction   string  `gorm:"not null" json:"next_action"`   // next_step|next_stage
	ImageURL     *string `json:"image_url,omitempty"`
	BottomText   *string `json:"bottom_text,omitempty"`
}

func (s *Stage) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (h *StageHint) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}

func (i *HintImage) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

func (p *StagePuzzle) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (p *StageUnlockPreset) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
