// workers/purge_worker.go
package workers

import (
	"context"
	"log"
	"time"

	"treasure-hunt-api/models"

	"gorm.io/gorm"
)

// UserPurgeWorker hard-deletes accounts that were soft-deleted more than the
// retention window ago, along with their dependent rows. Until then a
// deleted account can still be restored by support.
type UserPurgeWorker struct {
	db        *gorm.DB
	interval  time.Duration
	retention time.Duration
}

func NewUserPurgeWorker(db *gorm.DB) *UserPurgeWorker {
	return &UserPurgeWorker{
		db:        db,
		interval:  24 * time.Hour,
		retention: 30 * 24 * time.Hour,
	}
}

func (w *UserPurgeWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting User Purge Worker (deleted accounts → hard delete)…")
	go w.run(ctx)
}

func (w *UserPurgeWorker) run(ctx context.Context) {
	if err := w.purgeBatch(); err != nil {
		log.Printf("⚠️ Initial purge failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 User Purge Worker stopped")
			return
		case <-ticker.C:
			if err := w.purgeBatch(); err != nil {
				log.Printf("⚠️ Purge failed: %v", err)
			}
		}
	}
}

func (w *UserPurgeWorker) purgeBatch() error {
	cutoff := time.Now().Add(-w.retention)

	var users []models.User
	err := w.db.Where("status = ? AND deleted_at IS NOT NULL AND deleted_at < ?", models.UserStatusDeleted, cutoff).
		Find(&users).Error
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return nil
	}

	for _, u := range users {
		err := w.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("user_id = ?", u.ID).Delete(&models.AuthIdentity{}).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", u.ID).Delete(&models.UserContentProgress{}).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", u.ID).Delete(&models.UserStageProgress{}).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", u.ID).Delete(&models.NFCScanLog{}).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", u.ID).Delete(&models.RewardLedger{}).Error; err != nil {
				return err
			}
			return tx.Where("id = ?", u.ID).Delete(&models.User{}).Error
		})
		if err != nil {
			log.Printf("⚠️ Failed to purge user %s: %v", u.ID, err)
			continue
		}
		log.Printf("🧹 Purged user %s (deleted %s)", u.ID, u.DeletedAt.Format(time.RFC3339))
	}
	return nil
}
