package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is a named bundle of permissions. Built-in roles are seeded at startup.
type Role struct {
	ID          uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string       `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	IsSystem    bool         `gorm:"default:false" json:"is_system"`
	Permissions []Permission `gorm:"many2many:role_permissions;constraint:OnDelete:CASCADE" json:"permissions,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Permission is an (action, resource) pair, unique across the catalogue.
type Permission struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Action      string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_permission_action_resource" json:"action"`
	Resource    string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_permission_action_resource;index" json:"resource"`
	Description string    `gorm:"type:varchar(255)" json:"description"`
}

// RolePermission is the grant row. Deleting either side removes the grant.
type RolePermission struct {
	RoleID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	PermissionID uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// GrantRow is the flattened (role, action, resource) triple read by the authorization engine.
type GrantRow struct {
	Role     string `json:"role"`
	Action   string `json:"action"`
	Resource string `json:"resource"`
}
