package models

import (
	"time"
)

// Content progression states.
const (
	ContentStatusJoined     = "joined"
	ContentStatusInProgress = "in_progress"
	ContentStatusCleared    = "cleared"
	ContentStatusLeft       = "left"
)

// Stage progression states.
const (
	StageStatusLocked     = "locked"
	StageStatusUnlocked   = "unlocked"
	StageStatusInProgress = "in_progress"
	StageStatusCleared    = "cleared"
)

// UserContentProgress tracks one user's run through one content. Rows are
// created lazily on the first join, never pre-seeded.
type UserContentProgress struct {
	UserID    string `gorm:"primaryKey;type:uuid" json:"user_id"`
	ContentID string `gorm:"primaryKey;type:uuid" json:"content_id"`

	Status string `gorm:"not null" json:"status"` // joined|in_progress|cleared|left

	JoinedAt         *time.Time `json:"joined_at,omitempty"`
	ClearedAt        *time.Time `json:"cleared_at,omitempty"`
	TotalPlayMinutes *int       `json:"total_play_minutes,omitempty"`
	LastStageNo      *string    `json:"last_stage_no,omitempty"`
}

// UserStageProgress tracks one user's state on one stage.
// BestTimeSec is monotonically improved: only overwritten by a strictly
// smaller value.
type UserStageProgress struct {
	UserID  string `gorm:"primaryKey;type:uuid" json:"user_id"`
	StageID string `gorm:"primaryKey;type:uuid" json:"stage_id"`

	Status string `gorm:"not null" json:"status"` // locked|unlocked|in_progress|cleared

	UnlockAt  *time.Time `json:"unlock_at,omitempty"`
	ClearedAt *time.Time `json:"cleared_at,omitempty"`

	NFCCount    int  `gorm:"not null;default:0" json:"nfc_count"`
	BestTimeSec *int `json:"best_time_sec,omitempty"`
}

// RewardLedger is the append-only transaction log of coin deltas. A user's
// true balance is SUM(coin_delta) over their rows; User.Points caches that
// sum. Entries are never updated or deleted; corrections are new signed
// entries with a note.
type RewardLedger struct {
	ID     int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`

	ContentID     *string `gorm:"type:uuid" json:"content_id,omitempty"`
	StageID       *string `gorm:"type:uuid;index" json:"stage_id,omitempty"`
	StoreID       *string `gorm:"type:uuid" json:"store_id,omitempty"`
	StoreRewardID *string `gorm:"type:uuid;index" json:"store_reward_id,omitempty"`

	CoinDelta int     `gorm:"not null" json:"coin_delta"`
	Note      *string `json:"note,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (RewardLedger) TableName() string { return "rewards_ledger" }
