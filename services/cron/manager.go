package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"gorm.io/gorm"
)

// Schedules holds six-field cron expressions (seconds first) for every job
type Schedules struct {
	PromoSweep          string
	TimerSweep          string
	UnlockNotify        string
	TokenCleanup        string
	NotificationCleanup string
}

// DefaultSchedules runs the sweeps every minute and the cleanups nightly
var DefaultSchedules = Schedules{
	PromoSweep:          "0 * * * * *",
	TimerSweep:          "30 * * * * *",
	UnlockNotify:        "15 * * * * *",
	TokenCleanup:        "0 0 3 * * *",
	NotificationCleanup: "0 30 3 * * *",
}

// Sweeper closes records whose expiry has passed
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// UnlockNotifier announces modules whose unlock date has passed
type UnlockNotifier interface {
	NotifyUnlockedModules(ctx context.Context, now time.Time) (int, error)
}

// TokenCleaner drops revoked tokens that have expired anyway
type TokenCleaner interface {
	CleanupExpired(ctx context.Context, now time.Time) (int64, error)
}

// NotificationCleaner drops old read notifications
type NotificationCleaner interface {
	CleanupOldNotifications(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Jobs are the services the scheduled jobs drive. Nil entries are not scheduled.
type Jobs struct {
	Promos        Sweeper
	Timers        Sweeper
	Unlocks       UnlockNotifier
	Tokens        TokenCleaner
	Notifications NotificationCleaner
}

type job struct {
	name     string
	schedule string
	run      func(ctx context.Context) (string, error)
}

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron *cron.Cron
	db   *gorm.DB
	log  *logger.Logger
	now  func() time.Time
	jobs map[string]job
}

// NewCronManager creates a new cron manager
func NewCronManager(db *gorm.DB, log *logger.Logger, jobs Jobs, schedules Schedules) *CronManager {
	m := &CronManager{
		// seconds precision
		cron: cron.New(cron.WithSeconds()),
		db:   db,
		log:  log.With("component", "cron"),
		now:  time.Now,
		jobs: map[string]job{},
	}
	m.define(jobs, schedules)
	return m
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	m.log.Info("starting cron jobs")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	m.log.Info("cron jobs started", "jobs", len(m.jobs))
	return nil
}

// Stop stops all cron jobs and waits for running ones to finish
func (m *CronManager) Stop() {
	m.log.Info("stopping cron jobs")
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info("cron jobs stopped")
}

// Names returns the registered job names
func (m *CronManager) Names() []string {
	names := make([]string, 0, len(m.jobs))
	for name := range m.jobs {
		names = append(names, name)
	}
	return names
}

// Run executes one job immediately and records it like a scheduled run
func (m *CronManager) Run(name string) error {
	j, ok := m.jobs[name]
	if !ok {
		return fmt.Errorf("unknown cron job %q", name)
	}
	return m.execute(j)
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	for _, j := range m.jobs {
		j := j
		if _, err := m.cron.AddFunc(j.schedule, func() { _ = m.execute(j) }); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", j.name, err)
		}
		m.log.Debug("cron job registered", "job", j.name, "schedule", j.schedule)
	}
	return nil
}

func (m *CronManager) execute(j job) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	entry := m.logJobStart(j.name)
	message, err := j.run(ctx)
	if err != nil {
		m.logJobError(entry, err)
		return err
	}
	m.logJobComplete(entry, message)
	return nil
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(jobName string) *model.CronJobLog {
	m.log.Debug("cron job started", "job", jobName)

	cronLog := &model.CronJobLog{
		JobName:   jobName,
		Status:    model.CronJobRunning,
		StartedAt: m.now(),
		Metadata:  []byte("{}"),
	}
	if err := m.db.Create(cronLog).Error; err != nil {
		m.log.Warn("failed to record cron job start", "job", jobName, "error", err)
	}
	return cronLog
}

// logJobComplete logs successful completion of a cron job
func (m *CronManager) logJobComplete(entry *model.CronJobLog, message string) {
	m.log.Info("cron job completed", "job", entry.JobName, "message", message)
	m.finish(entry, map[string]interface{}{
		"status":  model.CronJobCompleted,
		"message": message,
	})
}

// logJobError logs a cron job error
func (m *CronManager) logJobError(entry *model.CronJobLog, err error) {
	m.log.Error("cron job failed", "job", entry.JobName, "error", err)
	m.finish(entry, map[string]interface{}{
		"status":    model.CronJobFailed,
		"error_msg": err.Error(),
	})
}

func (m *CronManager) finish(entry *model.CronJobLog, updates map[string]interface{}) {
	if entry.ID == 0 {
		return
	}
	done := m.now()
	updates["completed_at"] = done
	updates["duration_ms"] = done.Sub(entry.StartedAt).Milliseconds()
	if err := m.db.Model(&model.CronJobLog{}).Where("id = ?", entry.ID).Updates(updates).Error; err != nil {
		m.log.Warn("failed to record cron job result", "job", entry.JobName, "error", err)
	}
}
