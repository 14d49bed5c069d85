package services

import (
	"testing"
	"time"

	"treasure-hunt-api/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLedgerAppendUpdatesCachedBalance(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, bal, err := ledger.Append(tx, user.ID, 100, "scan reward", LedgerTags{})
		require.NoError(t, err)
		require.Equal(t, 100, bal)
		return nil
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, bal, err := ledger.Append(tx, user.ID, -30, "redemption", LedgerTags{})
		require.NoError(t, err)
		require.Equal(t, 70, bal)
		return nil
	})
	require.NoError(t, err)

	// The cache must equal the ledger sum.
	cached, err := ledger.Balance(user.ID)
	require.NoError(t, err)
	sum, err := ledger.LedgerSum(user.ID)
	require.NoError(t, err)
	require.Equal(t, sum, cached)
	require.Equal(t, 70, cached)
}

func TestLedgerBalanceEmptyIsZero(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db)

	bal, err := ledger.Balance(user.ID)
	require.NoError(t, err)
	require.Zero(t, bal)

	sum, err := ledger.LedgerSum(user.ID)
	require.NoError(t, err)
	require.Zero(t, sum)
}

func TestLedgerHistoryNewestFirst(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db)

	for i := 1; i <= 5; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			_, _, err := ledger.Append(tx, user.ID, i*10, "entry", LedgerTags{})
			return err
		})
		require.NoError(t, err)
	}

	entries, total, err := ledger.History(user.ID, 1, 3)
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.Len(t, entries, 3)
	// autoincrement ids break created_at ties
	require.Greater(t, entries[0].ID, entries[1].ID)
}

func TestLedgerHistoryBreaksTimestampTiesByID(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db)

	for i := 1; i <= 4; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			_, _, err := ledger.Append(tx, user.ID, i*10, "entry", LedgerTags{})
			return err
		})
		require.NoError(t, err)
	}
	// Collapse all entries onto one timestamp; ordering must stay stable.
	require.NoError(t, db.Model(&models.RewardLedger{}).
		Where("user_id = ?", user.ID).
		Update("created_at", time.Now()).Error)

	entries, _, err := ledger.History(user.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	for i := 1; i < len(entries); i++ {
		require.Greater(t, entries[i-1].ID, entries[i].ID)
	}
}

func TestAdjustPointsAppendsSignedEntry(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db)

	_, bal, err := ledger.AdjustPoints(user.ID, 500, "event compensation")
	require.NoError(t, err)
	require.Equal(t, 500, bal)

	_, bal, err = ledger.AdjustPoints(user.ID, -200, "abuse rollback")
	require.NoError(t, err)
	require.Equal(t, 300, bal)

	var count int64
	require.NoError(t, db.Model(&models.RewardLedger{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.EqualValues(t, 2, count)
}
