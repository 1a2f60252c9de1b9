package cron

import (
	"context"
	"fmt"
	"time"
)

const (
	JobPromoExpirySweep      = "promo_expiry_sweep"
	JobTimerExpirySweep      = "timer_expiry_sweep"
	JobModuleUnlockNotifier  = "module_unlock_notifier"
	JobTokenBlacklistCleanup = "token_blacklist_cleanup"
	JobNotificationCleanup   = "notification_cleanup"
)

// NotificationRetention is how long read notifications are kept
const NotificationRetention = 90 * 24 * time.Hour

func (m *CronManager) define(jobs Jobs, s Schedules) {
	add := func(name, schedule string, run func(ctx context.Context) (string, error)) {
		if schedule == "" {
			return
		}
		m.jobs[name] = job{name: name, schedule: schedule, run: run}
	}

	if jobs.Promos != nil {
		add(JobPromoExpirySweep, s.PromoSweep, func(ctx context.Context) (string, error) {
			n, err := jobs.Promos.Sweep(ctx, m.now())
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("expired %d promo codes", n), nil
		})
	}

	if jobs.Timers != nil {
		add(JobTimerExpirySweep, s.TimerSweep, func(ctx context.Context) (string, error) {
			n, err := jobs.Timers.Sweep(ctx, m.now())
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("closed %d timers", n), nil
		})
	}

	if jobs.Unlocks != nil {
		add(JobModuleUnlockNotifier, s.UnlockNotify, func(ctx context.Context) (string, error) {
			n, err := jobs.Unlocks.NotifyUnlockedModules(ctx, m.now())
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("sent %d unlock notifications", n), nil
		})
	}

	if jobs.Tokens != nil {
		add(JobTokenBlacklistCleanup, s.TokenCleanup, func(ctx context.Context) (string, error) {
			n, err := jobs.Tokens.CleanupExpired(ctx, m.now())
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("removed %d expired revoked tokens", n), nil
		})
	}

	if jobs.Notifications != nil {
		add(JobNotificationCleanup, s.NotificationCleanup, func(ctx context.Context) (string, error) {
			n, err := jobs.Notifications.CleanupOldNotifications(ctx, NotificationRetention)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("removed %d old notifications", n), nil
		})
	}
}
