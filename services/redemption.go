package services

import (
	"errors"
	"fmt"

	"treasure-hunt-api/models"

	"gorm.io/gorm"
)

var (
	ErrRewardInactive = errors.New("store reward is not active")
	ErrOutOfStock     = errors.New("out of stock")
)

// InsufficientFundsError reports how many coins the user is short.
type InsufficientFundsError struct {
	Balance   int
	PriceCoin int
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient balance: have %d, need %d", e.Balance, e.PriceCoin)
}

// RedeemResult is returned on a successful redemption.
type RedeemResult struct {
	LedgerID       int64  `json:"ledger_id"`
	StoreRewardID  string `json:"store_reward_id"`
	PriceCoin      int    `json:"price_coin"`
	NewBalance     int    `json:"new_balance"`
	RemainingStock *int   `json:"remaining_stock,omitempty"`
}

// RedemptionService spends coins on store rewards.
type RedemptionService struct {
	DB     *gorm.DB
	Ledger *LedgerService
}

func NewRedemptionService(db *gorm.DB, ledger *LedgerService) *RedemptionService {
	return &RedemptionService{DB: db, Ledger: ledger}
}

// Redeem exchanges coins for one unit of a store reward in a single
// transaction. Lock ordering is fixed: reward row first, then user row;
// every caller taking both must follow it.
func (s *RedemptionService) Redeem(userID, storeRewardID string) (*RedeemResult, error) {
	var result *RedeemResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var reward models.StoreReward
		if err := forUpdate(tx).Where("id = ?", storeRewardID).First(&reward).Error; err != nil {
			return err
		}
		if !reward.IsActive {
			return ErrRewardInactive
		}
		if reward.StockQty != nil && *reward.StockQty <= 0 {
			return ErrOutOfStock
		}

		var user models.User
		if err := forUpdate(tx).Where("id = ?", userID).First(&user).Error; err != nil {
			return err
		}
		if user.Points < reward.PriceCoin {
			return &InsufficientFundsError{Balance: user.Points, PriceCoin: reward.PriceCoin}
		}

		var remaining *int
		if reward.StockQty != nil {
			newStock := *reward.StockQty - 1
			if err := tx.Model(&models.StoreReward{}).
				Where("id = ?", reward.ID).
				Update("stock_qty", newStock).Error; err != nil {
				return err
			}
			remaining = &newStock
		}

		note := "Reward redemption: " + reward.ProductName
		id, bal, err := s.Ledger.Append(tx, userID, -reward.PriceCoin, note, LedgerTags{
			StoreID:       &reward.StoreID,
			StoreRewardID: &reward.ID,
		})
		if err != nil {
			return err
		}

		result = &RedeemResult{
			LedgerID:       id,
			StoreRewardID:  reward.ID,
			PriceCoin:      reward.PriceCoin,
			NewBalance:     bal,
			RemainingStock: remaining,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
