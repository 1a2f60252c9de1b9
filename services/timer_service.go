package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services/events"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"gorm.io/gorm"
)

// TimerService closes sales countdowns once they run out
type TimerService struct {
	db       *gorm.DB
	notifier events.Notifier
	log      *logger.Logger
}

func NewTimerService(db *gorm.DB, notifier events.Notifier, log *logger.Logger) *TimerService {
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &TimerService{db: db, notifier: notifier, log: log.With("service", "TimerService")}
}

// Sweep deactivates every active timer whose end has passed and returns how many it closed
func (s *TimerService) Sweep(ctx context.Context, now time.Time) (int, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&model.Timer{}).
		Where("active = ? AND ends_at <= ?", true, now).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find expired timers: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := s.db.WithContext(ctx).Model(&model.Timer{}).
		Where("id IN ?", ids).
		Update("active", false).Error; err != nil {
		return 0, fmt.Errorf("failed to close timers: %w", err)
	}

	for _, id := range ids {
		if err := s.notifier.Notify(ctx, events.NewChange(events.Timers, events.OpUpdate, id)); err != nil {
			s.log.Warn("failed to publish timer change", "timer_id", id, "error", err)
		}
	}
	s.log.Info("timers closed", "count", len(ids))
	return len(ids), nil
}
