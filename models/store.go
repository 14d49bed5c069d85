package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store is a physical redemption point.
type Store struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Address     *string   `json:"address,omitempty"`
	Description *string   `json:"description,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// StoreReward is a catalog item redeemable for coins at a store.
// StockQty nil means unlimited; InitialQuantity is preserved for reporting.
// StockQty is only ever decremented under a row lock (see
// services.RedemptionService).
type StoreReward struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	StoreID string `gorm:"type:uuid;not null;index" json:"store_id"`

	ProductName string  `gorm:"not null" json:"product_name"`
	Description *string `json:"description,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`

	PriceCoin       int  `gorm:"not null;default:0" json:"price_coin"`
	StockQty        *int `json:"stock_qty,omitempty"`
	InitialQuantity *int `json:"initial_quantity,omitempty"`

	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *Store) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (r *StoreReward) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
