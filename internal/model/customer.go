package model

import (
	"time"

	"github.com/google/uuid"
)

// Customer is the buyer an RFQ and its invoices are raised against.
type Customer struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"name"`
	Email     string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"email"`
	Code      string    `gorm:"type:varchar(50);index" json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
