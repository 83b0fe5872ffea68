package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RFQProgress is the workflow state of a request for quotation.
type RFQProgress string

const (
	ProgressWaitingForDrawing         RFQProgress = "Waiting for Drawing"
	ProgressWaitingForCustomerBOM     RFQProgress = "Waiting for Customer's BOM"
	ProgressWaitingForVendorQuotation RFQProgress = "Waiting for vendor quotation"
	ProgressWaitingForSalesperson     RFQProgress = "Waiting for Salesperson"
	ProgressWaitingForDrawingRevision RFQProgress = "Waiting for Drawing Revision"
	ProgressSalespersonWillCoverRest  RFQProgress = "Salesperson will cover rest"
	ProgressPartiallySubmitted        RFQProgress = "Partially Submitted"
	ProgressSentToSalesperson         RFQProgress = "Sent to Salesperson (100%)"
	ProgressSentToCustomer            RFQProgress = "Sent to Customer (Done)"
)

// RFQProgressStates lists every state in workflow order.
var RFQProgressStates = []RFQProgress{
	ProgressWaitingForDrawing,
	ProgressWaitingForCustomerBOM,
	ProgressWaitingForVendorQuotation,
	ProgressWaitingForSalesperson,
	ProgressWaitingForDrawingRevision,
	ProgressSalespersonWillCoverRest,
	ProgressPartiallySubmitted,
	ProgressSentToSalesperson,
	ProgressSentToCustomer,
}

// ParseRFQProgress accepts a progress label, tolerating a typographic apostrophe.
func ParseRFQProgress(s string) (RFQProgress, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "’", "'")
	for _, p := range RFQProgressStates {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// RFQ is a customer's request for quotation.
type RFQ struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ReceiveDate   time.Time       `gorm:"type:date;not null" json:"receive_date"`
	StartDate     time.Time       `gorm:"type:date;not null" json:"start_date"`
	EndDate       time.Time       `gorm:"type:date;not null" json:"end_date"`
	CustomerID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer      *Customer       `gorm:"foreignKey:CustomerID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"customer,omitempty"`
	SalespersonID uuid.UUID       `gorm:"type:uuid;not null;index" json:"salesperson_id"`
	Salesperson   *User           `gorm:"foreignKey:SalespersonID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"salesperson,omitempty"`
	Quantity      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"quantity"`
	Price         string          `gorm:"type:varchar(100);not null" json:"price"`
	Progress      RFQProgress     `gorm:"type:varchar(50);not null;default:'Waiting for Drawing';index" json:"progress"`
	Location      string          `gorm:"column:rfq_location;type:varchar(255)" json:"rfq_location"`
	Remarks       string          `gorm:"type:text" json:"remarks"`
	PreparedBy    []User          `gorm:"many2many:rfq_prepared_people;constraint:OnDelete:CASCADE" json:"prepared_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (RFQ) TableName() string { return "rfq" }

// RFQPreparedPerson links an RFQ to a user who prepared it.
type RFQPreparedPerson struct {
	RFQID     uuid.UUID `gorm:"column:rfq_id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (RFQPreparedPerson) TableName() string { return "rfq_prepared_people" }
