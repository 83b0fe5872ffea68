package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Currency codes accepted on invoices.
const (
	CurrencyAUD = "AUD"
	CurrencyUSD = "USD"
)

// Invoice is the billing record closing the RFQ workflow.
type Invoice struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceDate time.Time       `gorm:"type:date;not null;index" json:"invoice_date"`
	CustomerID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer    *Customer       `gorm:"foreignKey:CustomerID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"customer,omitempty"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,3);not null" json:"amount"`
	Currency    string          `gorm:"type:varchar(3);not null;index" json:"currency"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
