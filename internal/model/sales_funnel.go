package model

import (
	"time"

	"github.com/google/uuid"
)

// SalesFunnel tracks a quote sent for an RFQ until it is won or lost.
type SalesFunnel struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RFQID       uuid.UUID  `gorm:"column:rfq_id;type:uuid;not null;index" json:"rfq_id"`
	RFQ         *RFQ       `gorm:"foreignKey:RFQID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"rfq,omitempty"`
	QuoteDate   time.Time  `gorm:"type:date;not null" json:"quote_date"`
	SentByID    uuid.UUID  `gorm:"column:sent_by;type:uuid;not null" json:"sent_by"`
	SentBy      *User      `gorm:"foreignKey:SentByID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"sender,omitempty"`
	Description string     `gorm:"type:text" json:"description"`
	ExpWinDate  time.Time  `gorm:"type:date;not null" json:"exp_win_date"`
	LastUpdated *time.Time `json:"last_updated"`
	Status      string     `gorm:"type:varchar(50);index" json:"status"`
	Remarks     string     `gorm:"type:text" json:"remarks"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (SalesFunnel) TableName() string { return "sales_funnel" }
