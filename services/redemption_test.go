package services

import (
	"testing"

	"treasure-hunt-api/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newRedemptionFixture(t *testing.T, balance, price int, stock *int) (*RedemptionService, *LedgerService, *models.User, *models.StoreReward) {
	t.Helper()
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewRedemptionService(db, ledger)

	user := createTestUser(t, db)
	if balance > 0 {
		err := db.Transaction(func(tx *gorm.DB) error {
			_, _, err := ledger.Append(tx, user.ID, balance, "seed", LedgerTags{})
			return err
		})
		require.NoError(t, err)
	}

	store := models.Store{ID: uuid.NewString(), Name: "Cafe Mule", IsActive: true}
	require.NoError(t, db.Create(&store).Error)

	reward := models.StoreReward{
		ID:              uuid.NewString(),
		StoreID:         store.ID,
		ProductName:     "Americano",
		PriceCoin:       price,
		StockQty:        stock,
		InitialQuantity: stock,
		IsActive:        true,
	}
	require.NoError(t, db.Create(&reward).Error)
	return svc, ledger, user, &reward
}

func TestRedeemHappyPath(t *testing.T) {
	svc, ledger, user, reward := newRedemptionFixture(t, 100, 50, intPtr(3))

	result, err := svc.Redeem(user.ID, reward.ID)
	require.NoError(t, err)
	require.Equal(t, 50, result.NewBalance)
	require.Equal(t, 2, *result.RemainingStock)

	bal, err := ledger.Balance(user.ID)
	require.NoError(t, err)
	require.Equal(t, 50, bal)

	var entry models.RewardLedger
	require.NoError(t, svc.DB.Where("user_id = ? AND store_reward_id = ?", user.ID, reward.ID).First(&entry).Error)
	require.Equal(t, -50, entry.CoinDelta)

	var updated models.StoreReward
	require.NoError(t, svc.DB.Where("id = ?", reward.ID).First(&updated).Error)
	require.Equal(t, 2, *updated.StockQty)
	require.Equal(t, 3, *updated.InitialQuantity)
}

func TestRedeemInsufficientFundsLeavesStateUntouched(t *testing.T) {
	svc, ledger, user, reward := newRedemptionFixture(t, 30, 50, intPtr(3))

	_, err := svc.Redeem(user.ID, reward.ID)
	var insufficient *InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, 30, insufficient.Balance)
	require.Equal(t, 50, insufficient.PriceCoin)

	bal, err := ledger.Balance(user.ID)
	require.NoError(t, err)
	require.Equal(t, 30, bal)

	var updated models.StoreReward
	require.NoError(t, svc.DB.Where("id = ?", reward.ID).First(&updated).Error)
	require.Equal(t, 3, *updated.StockQty)

	var count int64
	require.NoError(t, svc.DB.Model(&models.RewardLedger{}).
		Where("user_id = ? AND store_reward_id = ?", user.ID, reward.ID).
		Count(&count).Error)
	require.Zero(t, count)
}

func TestRedeemOutOfStock(t *testing.T) {
	svc, _, user, reward := newRedemptionFixture(t, 100, 50, intPtr(0))

	_, err := svc.Redeem(user.ID, reward.ID)
	require.ErrorIs(t, err, ErrOutOfStock)
}

func TestRedeemInactiveReward(t *testing.T) {
	svc, _, user, reward := newRedemptionFixture(t, 100, 50, nil)
	require.NoError(t, svc.DB.Model(&models.StoreReward{}).Where("id = ?", reward.ID).Update("is_active", false).Error)

	_, err := svc.Redeem(user.ID, reward.ID)
	require.ErrorIs(t, err, ErrRewardInactive)
}

func TestRedeemUnlimitedStock(t *testing.T) {
	svc, _, user, reward := newRedemptionFixture(t, 100, 10, nil)

	for i := 0; i < 3; i++ {
		result, err := svc.Redeem(user.ID, reward.ID)
		require.NoError(t, err)
		require.Nil(t, result.RemainingStock)
	}

	var updated models.StoreReward
	require.NoError(t, svc.DB.Where("id = ?", reward.ID).First(&updated).Error)
	require.Nil(t, updated.StockQty)
}

func TestRedeemLastUnitSingleWinner(t *testing.T) {
	svc, _, _, reward := newRedemptionFixture(t, 0, 10, intPtr(1))

	// Two funded users compete for one unit. Exactly one wins and stock
	// never goes negative.
	ledger := NewLedgerService(svc.DB)
	users := make([]*models.User, 2)
	for i := range users {
		users[i] = createTestUser(t, svc.DB)
		err := svc.DB.Transaction(func(tx *gorm.DB) error {
			_, _, err := ledger.Append(tx, users[i].ID, 100, "seed", LedgerTags{})
			return err
		})
		require.NoError(t, err)
	}

	wins := 0
	for _, u := range users {
		if _, err := svc.Redeem(u.ID, reward.ID); err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, ErrOutOfStock)
		}
	}
	require.Equal(t, 1, wins)

	var updated models.StoreReward
	require.NoError(t, svc.DB.Where("id = ?", reward.ID).First(&updated).Error)
	require.Equal(t, 0, *updated.StockQty)
}
