package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"rfqportal/internal/apperr"
	"rfqportal/internal/model"
	"rfqportal/internal/repository"
)

type InvoiceRequest struct {
	InvoiceDate string          `json:"invoice_date" binding:"required"`
	CustomerID  string          `json:"customer_id" binding:"required,uuid"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"string" example:"1250.500"`
	Currency    string          `json:"currency" binding:"required,oneof=AUD USD"`
}

type InvoiceListQuery struct {
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	Currency   string `form:"currency" binding:"omitempty,oneof=AUD USD"`
	DateFrom   string `form:"date_from"`
	DateTo     string `form:"date_to"`
}

type InvoiceResponse struct {
	ID           string          `json:"id"`
	InvoiceDate  string          `json:"invoice_date"`
	CustomerID   string          `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Amount       decimal.Decimal `json:"amount" swaggertype:"string"`
	Currency     string          `json:"currency"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
}

type InvoiceService interface {
	CreateInvoice(ctx context.Context, req InvoiceRequest) (*InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (*InvoiceResponse, error)
	ListInvoices(ctx context.Context, query InvoiceListQuery, page, limit int) ([]InvoiceResponse, int64, error)
	UpdateInvoice(ctx context.Context, id string, req InvoiceRequest) (*InvoiceResponse, error)
	DeleteInvoice(ctx context.Context, id string) error
}

type invoiceService struct {
	repo repository.InvoiceRepository
}

func NewInvoiceService(repo repository.InvoiceRepository) InvoiceService {
	return &invoiceService{repo: repo}
}

func toInvoiceResponse(inv *model.Invoice) *InvoiceResponse {
	resp := &InvoiceResponse{
		ID:          inv.ID.String(),
		InvoiceDate: formatDate(inv.InvoiceDate),
		CustomerID:  inv.CustomerID.String(),
		Amount:      inv.Amount,
		Currency:    inv.Currency,
		CreatedAt:   inv.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:   inv.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
	if inv.Customer != nil {
		resp.CustomerName = inv.Customer.Name
	}
	return resp
}

// applyInvoice validates req and copies it onto inv.
func applyInvoice(inv *model.Invoice, req InvoiceRequest) error {
	date, err := parseDate(req.InvoiceDate, "invoice_date")
	if err != nil {
		return err
	}
	customerID, err := parseID(req.CustomerID, "customer")
	if err != nil {
		return err
	}
	if req.Amount.IsNegative() {
		return apperr.New(apperr.KindInvalid, "amount must not be negative")
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency != model.CurrencyAUD && currency != model.CurrencyUSD {
		return apperr.New(apperr.KindInvalid, "currency must be AUD or USD")
	}

	inv.InvoiceDate = date
	inv.CustomerID = customerID
	inv.Amount = req.Amount.Round(3)
	inv.Currency = currency
	return nil
}

func (s *invoiceService) CreateInvoice(ctx context.Context, req InvoiceRequest) (*InvoiceResponse, error) {
	var inv model.Invoice
	if err := applyInvoice(&inv, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &inv); err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, inv.ID.String())
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*InvoiceResponse, error) {
	iid, err := parseID(id, "invoice")
	if err != nil {
		return nil, err
	}
	inv, err := s.repo.FindByID(ctx, iid)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, query InvoiceListQuery, page, limit int) ([]InvoiceResponse, int64, error) {
	filter := repository.InvoiceFilter{Currency: strings.ToUpper(query.Currency)}
	if query.CustomerID != "" {
		cid, err := uuid.Parse(query.CustomerID)
		if err != nil {
			return nil, 0, apperr.New(apperr.KindInvalid, "invalid customer_id")
		}
		filter.CustomerID = &cid
	}
	var err error
	if filter.DateFrom, err = parseOptionalDate(query.DateFrom, "date_from"); err != nil {
		return nil, 0, err
	}
	if filter.DateTo, err = parseOptionalDate(query.DateTo, "date_to"); err != nil {
		return nil, 0, err
	}

	invoices, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, err
	}
	res := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		res = append(res, *toInvoiceResponse(&invoices[i]))
	}
	return res, total, nil
}

func (s *invoiceService) UpdateInvoice(ctx context.Context, id string, req InvoiceRequest) (*InvoiceResponse, error) {
	iid, err := parseID(id, "invoice")
	if err != nil {
		return nil, err
	}
	inv, err := s.repo.FindByID(ctx, iid)
	if err != nil {
		return nil, err
	}
	if err := applyInvoice(inv, req); err != nil {
		return nil, err
	}
	inv.Customer = nil
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, id)
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, id string) error {
	iid, err := parseID(id, "invoice")
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, iid)
}
