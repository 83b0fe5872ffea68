package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionAssignRolePermissions = "ASSIGN_ROLE_PERMISSIONS"
	ActionReloadGrants          = "RELOAD_GRANTS"
	ActionCreateSalesFunnel     = "CREATE_SALES_FUNNEL"
	ActionUpdateRFQProgress     = "UPDATE_RFQ_PROGRESS"
	ActionDeleteUser            = "DELETE_USER"
	ActionVerifyOTP             = "VERIFY_OTP"
)

// AuditLog tracks who did what to which entity.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nil for system actions
	User       *User      `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
