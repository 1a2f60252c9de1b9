package model

import (
	"time"
)

// OrderStatus tracks an order through checkout
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
)

// Order records a product purchase
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Number      string      `gorm:"type:varchar(36);uniqueIndex;not null" json:"number"`
	UserID      uint        `gorm:"not null;index" json:"user_id"`
	ProductID   uint        `gorm:"not null;index" json:"product_id"`
	PromoCodeID *uint       `gorm:"index" json:"promo_code_id,omitempty"`
	BasePrice   float64     `gorm:"not null" json:"base_price"`
	Amount      float64     `gorm:"not null" json:"amount"`
	Currency    string      `gorm:"type:varchar(3);not null" json:"currency"`
	AccessLevel string      `gorm:"type:varchar(50)" json:"access_level"`
	Status      OrderStatus `gorm:"type:varchar(20);not null" json:"status"`

	// Relationships
	User    User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName specifies the table name for Order
func (Order) TableName() string {
	return "orders"
}

// Certificate is issued once a course reaches 100% progress
type Certificate struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_certificate_user_course" json:"user_id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_certificate_user_course" json:"course_id"`
	URL       string    `gorm:"type:text" json:"url"`
	IssuedAt  time.Time `gorm:"not null" json:"issued_at"`
}

// TableName specifies the table name for Certificate
func (Certificate) TableName() string {
	return "certificates"
}
