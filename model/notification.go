package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationType represents the type/severity of notification
type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeWarning NotificationType = "warning"
)

// NotificationCategory represents the category of notification
type NotificationCategory string

const (
	NotificationCategoryCourse NotificationCategory = "course"
	NotificationCategoryPromo  NotificationCategory = "promo"
	NotificationCategorySystem NotificationCategory = "system"
)

// UserNotification represents a notification for a user
type UserNotification struct {
	ID        uint                 `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
	DeletedAt gorm.DeletedAt       `gorm:"index" json:"-"`
	UserID    uint                 `gorm:"index;not null" json:"user_id"`
	Type      NotificationType     `gorm:"type:varchar(20);not null" json:"type"`
	Category  NotificationCategory `gorm:"type:varchar(30);not null" json:"category"`
	Title     string               `gorm:"type:varchar(255);not null" json:"title"`
	Message   string               `gorm:"type:text" json:"message"`
	Read      bool                 `gorm:"not null;default:false" json:"read"`
	Metadata  datatypes.JSON       `json:"metadata,omitempty"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for UserNotification
func (UserNotification) TableName() string {
	return "notifications"
}

// NotificationMetadata holds the optional context attached to a notification
type NotificationMetadata struct {
	CourseID  uint   `json:"course_id,omitempty"`
	ModuleKey string `json:"module_key,omitempty"`
	PromoCode string `json:"promo_code,omitempty"`
}
