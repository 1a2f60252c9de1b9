package model

import (
	"time"

	"gorm.io/gorm"
)

// Course is a video course made of modules
type Course struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Title       string         `gorm:"not null" json:"title"`
	Category    string         `gorm:"type:varchar(100);index" json:"category"`
	AccessLevel string         `gorm:"type:varchar(50)" json:"access_level"` // required tier, informational
	Description string         `gorm:"type:text" json:"description"`

	// Relationships
	Modules []CourseModule `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"modules,omitempty"`
}

// CourseModule groups lessons. Key is the free-form id authors give it (e.g. "module_3").
type CourseModule struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CourseID         uint       `gorm:"not null;uniqueIndex:idx_course_module_key" json:"course_id"`
	Key              string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_course_module_key" json:"key"`
	Title            string     `gorm:"not null" json:"title"`
	Order            *int       `gorm:"column:sort_order" json:"order,omitempty"` // overrides the number in Key
	UnlockDate       *time.Time `gorm:"index" json:"unlock_date"`
	UnlockNotifiedAt *time.Time `json:"-"`
	Position         int        `gorm:"not null;default:0" json:"position"` // insertion order

	// Relationships
	Lessons []Lesson `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"lessons,omitempty"`
}

// Lesson is a single video inside a module
type Lesson struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	ModuleID        uint      `gorm:"not null;index" json:"module_id"`
	Position        int       `gorm:"not null;default:0" json:"position"`
	Title           string    `gorm:"not null" json:"title"`
	VideoRef        string    `gorm:"type:text" json:"video_ref"`
	DurationMinutes *int      `json:"duration_minutes"`
	HandoutURL      string    `gorm:"type:text" json:"handout_url,omitempty"`
}

// TableName specifies the table name for CourseModule
func (CourseModule) TableName() string {
	return "course_modules"
}

// TableName specifies the table name for Lesson
func (Lesson) TableName() string {
	return "lessons"
}
