package services

import (
	"log"
	"time"

	"treasure-hunt-api/models"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// NotificationService manages operator announcements and the status
// scheduler that walks them through their publish window.
type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// StartStatusScheduler advances notification rows as their window opens and
// closes: scheduled becomes published at start_at, published becomes expired
// at end_at.
func (s *NotificationService) StartStatusScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			now := time.Now()

			var toPublish []models.Notification
			err := s.DB.Where("status = ? AND start_at <= ?", models.NotificationStatusScheduled, now).
				Find(&toPublish).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}
			for _, n := range toPublish {
				n.Status = models.NotificationStatusPublished
				if err := s.DB.Save(&n).Error; err != nil {
					log.Printf("[Scheduler] Failed to publish notification %s: %v", n.ID, err)
				} else {
					log.Printf("✅ Published notification: %s", n.Title)
				}
			}

			var toExpire []models.Notification
			err = s.DB.Where("status = ? AND end_at <= ?", models.NotificationStatusPublished, now).
				Find(&toExpire).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}
			for _, n := range toExpire {
				n.Status = models.NotificationStatusExpired
				if err := s.DB.Save(&n).Error; err != nil {
					log.Printf("[Scheduler] Failed to expire notification %s: %v", n.ID, err)
				}
			}
		}),
	)
}

// PublishedList returns notifications currently inside their window.
func (s *NotificationService) PublishedList() ([]models.Notification, error) {
	var rows []models.Notification
	err := s.DB.Where("status = ?", models.NotificationStatusPublished).
		Order("start_at DESC").
		Find(&rows).Error
	return rows, err
}

// GetAndCountView returns one notification and bumps its view counter.
func (s *NotificationService) GetAndCountView(id string) (*models.Notification, error) {
	var n models.Notification
	if err := s.DB.Where("id = ?", id).First(&n).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.Notification{}).
		Where("id = ?", id).
		Update("view_count", gorm.Expr("view_count + 1")).Error; err != nil {
		return nil, err
	}
	n.ViewCount++
	return &n, nil
}
