package model

import (
	"time"

	"gorm.io/gorm"
)

// Role is the coarse permission tier of a user
type Role string

const (
	RoleGuest     Role = "guest"
	RoleStudent   Role = "student"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleStudent, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// User represents a registered user in the system
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"` // registration timestamp
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Name         string         `gorm:"not null" json:"name"`
	Role         Role           `gorm:"type:varchar(20);not null" json:"role"`
	TokenVersion int            `gorm:"default:0" json:"-"` // Increment to invalidate all user tokens

	// Relationships
	Purchases []PurchasedCourse `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"purchased_courses,omitempty"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}
