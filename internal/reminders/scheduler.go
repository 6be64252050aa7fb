package reminders

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bookedbarber/bookedbarber-api/internal/logger"
	"github.com/bookedbarber/bookedbarber-api/internal/models"
	"github.com/bookedbarber/bookedbarber-api/internal/notify"
)

const batchSize = 100

type Publisher interface {
	PublishJob(job notify.DeliveryJob) error
}

// Scheduler sweeps the reminder table and hands due rows to the worker via
// the queue. A row is marked queued before publish so two scheduler
// instances don't double-send; a crashed publish is retried on the next
// sweep after the stale-queued reset.
type Scheduler struct {
	db        *gorm.DB
	publisher Publisher
	interval  time.Duration
}

func NewScheduler(db *gorm.DB, publisher Publisher, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{db: db, publisher: publisher, interval: interval}
}

func (s *Scheduler) Run(ctx context.Context) {
	logger.L().Info("reminder scheduler started", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.L().Info("reminder scheduler stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	now := time.Now()

	// re-offer rows stuck in queued: the worker never picked them up
	// (lost message, worker down) within 15 minutes
	_ = s.db.WithContext(ctx).
		Model(&models.ReminderSchedule{}).
		Where("status = 'queued' AND updated_at < ?", now.Add(-15*time.Minute)).
		Update("status", "pending").Error

	var due []models.ReminderSchedule
	err := s.db.WithContext(ctx).
		Where("status = 'pending' AND send_at <= ?", now).
		Order("send_at ASC").
		Limit(batchSize).
		Find(&due).Error
	if err != nil {
		logger.L().Error("reminder sweep failed", zap.Error(err))
		return
	}

	for _, rem := range due {
		res := s.db.WithContext(ctx).
			Model(&models.ReminderSchedule{}).
			Where("id = ? AND status = 'pending'", rem.ID).
			Update("status", "queued")
		if res.Error != nil || res.RowsAffected == 0 {
			continue // another instance claimed it
		}

		job := notify.DeliveryJob{
			Kind:          "reminder",
			ReminderID:    rem.ID,
			AppointmentID: rem.AppointmentID,
			Channel:       rem.Channel,
		}
		if err := s.publisher.PublishJob(job); err != nil {
			logger.L().Error("failed to publish reminder",
				zap.Uint("reminder_id", rem.ID),
				zap.Error(err))
			_ = s.db.WithContext(ctx).
				Model(&models.ReminderSchedule{}).
				Where("id = ?", rem.ID).
				Update("status", "pending").Error
		}
	}

	if len(due) > 0 {
		logger.L().Info("reminders queued", zap.Int("count", len(due)))
	}
}
