package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents an identity that can sign in and act on RFQs, funnels and invoices.
// OTPCode/OTPExpires hold the pending one-time code, Token the last credential issued.
type User struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string     `gorm:"type:varchar(100);not null" json:"name"`
	Email         string     `gorm:"type:varchar(150);uniqueIndex;not null" json:"email"`
	ShortForm     string     `gorm:"type:varchar(20);not null" json:"short_form"`
	Password      string     `gorm:"type:varchar(255);not null" json:"-"`
	Roles         []Role     `gorm:"many2many:user_roles;constraint:OnDelete:CASCADE" json:"roles"`
	OTPCode       *string    `gorm:"type:varchar(10)" json:"-"`
	OTPExpires    *time.Time `json:"-"`
	Token         *string    `gorm:"type:text" json:"-"`
	IsActive      bool       `gorm:"not null;default:true" json:"is_active"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// RoleNames returns the user's role names in stored order.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// UserRole is the join row between users and roles.
type UserRole struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoleID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
