package model

import (
	"time"

	"gorm.io/gorm"
)

// Product is a purchasable offer granting an access level on a course
type Product struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	Name            string         `gorm:"not null" json:"name"`
	CourseID        *uint          `gorm:"index" json:"course_id"`
	AccessLevelID   uint           `gorm:"not null;index" json:"access_level_id"`
	Price           float64        `gorm:"not null" json:"price"`
	DiscountedPrice *float64       `json:"discounted_price"` // set only by the active preset
	DiscountPercent *int           `json:"discount_percent"`
	Available       bool           `gorm:"not null" json:"available"`

	// Relationships
	AccessLevel *AccessLevel `gorm:"foreignKey:AccessLevelID" json:"access_level,omitempty"`
}

// EffectivePrice is the discounted price when a preset applies, the list price otherwise
func (p *Product) EffectivePrice() float64 {
	if p.DiscountedPrice != nil {
		return *p.DiscountedPrice
	}
	return p.Price
}

// AccessLevel is a named tier (e.g. "vanilla", "standard")
type AccessLevel struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"name" validate:"required,min=2,max=50"`
	Description string    `gorm:"type:text" json:"description" validate:"omitempty,max=500"`
}

// TableName specifies the table name for AccessLevel
func (AccessLevel) TableName() string {
	return "access_levels"
}

// Currency converts base prices for display
type Currency struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Code      string    `gorm:"type:varchar(3);uniqueIndex;not null" json:"code" validate:"required,len=3,uppercase"`
	Symbol    string    `gorm:"type:varchar(8)" json:"symbol" validate:"omitempty,max=8"`
	Rate      float64   `gorm:"not null" json:"rate" validate:"required,gt=0"` // units per one base unit
}

// TableName specifies the table name for Currency
func (Currency) TableName() string {
	return "currencies"
}

// Timer is a sales countdown, optionally tied to a product
type Timer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Title     string    `gorm:"not null" json:"title" validate:"required,max=255"`
	EndsAt    time.Time `gorm:"index;not null" json:"ends_at" validate:"required"`
	ProductID *uint     `gorm:"index" json:"product_id"`
	Active    bool      `gorm:"index" json:"active"`
}

// TableName specifies the table name for Timer
func (Timer) TableName() string {
	return "timers"
}
