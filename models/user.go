package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserStatus is the account lifecycle state.
type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusBlocked UserStatus = "blocked"
	UserStatusDeleted UserStatus = "deleted"
)

// User is a player account. Points is a denormalized cache of the
// rewards_ledger sum for this user; every ledger append rewrites it in the
// same transaction (see services.LedgerService).
type User struct {
	ID            string     `gorm:"primaryKey;type:uuid" json:"id"`
	LoginID       string     `gorm:"uniqueIndex;not null" json:"login_id"`
	Email         *string    `gorm:"index" json:"email,omitempty"`
	Nickname      *string    `json:"nickname,omitempty"`
	EmailVerified bool       `gorm:"not null;default:false" json:"email_verified"`
	Status        UserStatus `gorm:"not null;default:'active'" json:"status"`

	// Cached coin balance. Source of truth is SUM(rewards_ledger.coin_delta).
	Points int `gorm:"not null;default:0" json:"points"`

	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
	DeletedAt    *time.Time `gorm:"index" json:"deleted_at,omitempty"` // soft delete, purged after 30 days
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// AuthIdentity links a user to an authentication provider. Local identities
// carry the bcrypt password hash; social identities do not.
type AuthIdentity struct {
	ID             string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID         string     `gorm:"type:uuid;not null;index" json:"user_id"`
	Provider       string     `gorm:"not null" json:"provider"` // local|google|apple|kakao|naver
	ProviderUserID string     `gorm:"not null" json:"provider_user_id"`
	PasswordHash   *string    `json:"-"`
	PasswordAlgo   *string    `json:"-"` // bcrypt
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (a *AuthIdentity) IsLocal() bool {
	return a.Provider == "local"
}

// Admin grants operator access to a user. Absence of a row means the
// authenticated user is not an operator (403, not 401).
type Admin struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"type:uuid;uniqueIndex" json:"user_id"`
	Role      string    `gorm:"not null;default:'admin'" json:"role"` // admin|super_admin
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (a *AuthIdentity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (a *Admin) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
