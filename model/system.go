package model

import (
	"time"

	"gorm.io/datatypes"
)

// CronJobStatus is the lifecycle of a scheduled job run
type CronJobStatus string

const (
	CronJobRunning   CronJobStatus = "running"
	CronJobCompleted CronJobStatus = "completed"
	CronJobFailed    CronJobStatus = "failed"
)

// CronJobLog represents one execution of a background job
type CronJobLog struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	JobName     string         `gorm:"type:varchar(100);not null;index" json:"job_name"`
	Status      CronJobStatus  `gorm:"type:varchar(20);not null" json:"status"`
	StartedAt   time.Time      `gorm:"not null" json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	DurationMs  int64          `json:"duration_ms"`
	Message     string         `gorm:"type:text" json:"message"`
	ErrorMsg    string         `gorm:"type:text" json:"error_msg"`
	Metadata    datatypes.JSON `json:"metadata"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TableName specifies the table name for CronJobLog
func (CronJobLog) TableName() string {
	return "cron_job_logs"
}

// RevokedToken stores the jti of a logged-out access token until it expires
type RevokedToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	JTI       string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"jti"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Reason    string    `gorm:"type:varchar(100)" json:"reason"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for RevokedToken
func (RevokedToken) TableName() string {
	return "revoked_tokens"
}
