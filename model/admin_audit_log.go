package model

import (
	"time"

	"gorm.io/datatypes"
)

// AdminAuditLog records a privileged mutation performed by staff
type AdminAuditLog struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	ActorID     uint           `gorm:"not null;index" json:"actor_id"`
	ActorRole   Role           `gorm:"type:varchar(20)" json:"actor_role"`
	Action      string         `gorm:"type:varchar(100);not null;index" json:"action"` // e.g. "user_delete", "preset_activate"
	Resource    string         `gorm:"type:varchar(100)" json:"resource"`              // e.g. "users", "discountPresets"
	ResourceID  string         `gorm:"type:varchar(64)" json:"resource_id"`
	Payload     datatypes.JSON `json:"payload,omitempty"`
	Status      int            `json:"status"`
	IPAddress   string         `gorm:"type:varchar(45)" json:"ip_address"`
	Description string         `gorm:"type:text" json:"description"`
}

// TableName specifies the table name for AdminAuditLog
func (AdminAuditLog) TableName() string {
	return "admin_audit_logs"
}
