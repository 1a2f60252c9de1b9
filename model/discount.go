package model

import (
	"time"

	"gorm.io/gorm"
)

// DiscountPreset is an admin-defined bundle of product discounts. At most one is active.
type DiscountPreset struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	IsActive  bool      `gorm:"not null;index" json:"is_active"`

	// Relationships
	Items []PresetItem `gorm:"foreignKey:PresetID;constraint:OnDelete:CASCADE" json:"items"`
}

// PresetItem is one product discount inside a preset
type PresetItem struct {
	ID              uint `gorm:"primaryKey" json:"-"`
	PresetID        uint `gorm:"not null;index" json:"-"`
	ProductID       uint `gorm:"not null;index" json:"product_id"`
	DiscountPercent int  `gorm:"not null" json:"discount_percent"`
}

// PromoCode is a named percentage discount with an optional expiry
type PromoCode struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	Name            string         `gorm:"type:varchar(100);not null;index" json:"name"`
	DiscountPercent int            `gorm:"not null" json:"discount_percent"`
	ExpiryDate      *time.Time     `gorm:"index" json:"expiry_date"`
	Available       bool           `gorm:"not null;index" json:"available"`

	// Relationships
	Targets []PromoTarget `gorm:"foreignKey:PromoCodeID;constraint:OnDelete:CASCADE" json:"targets"`
}

// PromoTarget ties a promo code to a product and the access level it grants
type PromoTarget struct {
	ID            uint `gorm:"primaryKey" json:"-"`
	PromoCodeID   uint `gorm:"not null;index" json:"-"`
	ProductID     uint `gorm:"not null;index" json:"product_id"`
	AccessLevelID uint `gorm:"not null" json:"access_level_id"`
}

// TableName specifies the table name for DiscountPreset
func (DiscountPreset) TableName() string {
	return "discount_presets"
}

// TableName specifies the table name for PresetItem
func (PresetItem) TableName() string {
	return "discount_preset_items"
}

// TableName specifies the table name for PromoCode
func (PromoCode) TableName() string {
	return "promo_codes"
}

// TableName specifies the table name for PromoTarget
func (PromoTarget) TableName() string {
	return "promo_code_targets"
}
