package model

import (
	"time"

	"gorm.io/datatypes"
)

// AccessLevelDenied marks a purchase record whose access was revoked
const AccessLevelDenied = "denied"

// CompletedLessons maps a module key to the indices of completed lessons
type CompletedLessons map[string][]int

// PurchasedCourse is the per-user, per-course entitlement and progress record
type PurchasedCourse struct {
	UserID           uint                                 `gorm:"primaryKey" json:"user_id"`
	CourseID         uint                                 `gorm:"primaryKey" json:"course_id"`
	AccessLevel      string                               `gorm:"type:varchar(50)" json:"access_level"`
	CompletedLessons datatypes.JSONType[CompletedLessons] `json:"completed_lessons"`
	Progress         int                                  `gorm:"not null;default:0" json:"progress"` // 0-100, always recomputed
	CreatedAt        time.Time                            `json:"created_at"`
	UpdatedAt        time.Time                            `json:"updated_at"`

	// Relationships
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for PurchasedCourse
func (PurchasedCourse) TableName() string {
	return "purchased_courses"
}

// Completed returns a copy of the completed lesson map (never nil)
func (p *PurchasedCourse) Completed() CompletedLessons {
	out := CompletedLessons{}
	for k, v := range p.CompletedLessons.Data() {
		out[k] = append([]int(nil), v...)
	}
	return out
}

// SetCompleted replaces the completed lesson map
func (p *PurchasedCourse) SetCompleted(c CompletedLessons) {
	if c == nil {
		c = CompletedLessons{}
	}
	p.CompletedLessons = datatypes.NewJSONType(c)
}
