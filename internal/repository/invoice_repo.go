package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"rfqportal/internal/model"
)

// InvoiceFilter narrows invoice listings. Zero values are ignored.
type InvoiceFilter struct {
	CustomerID *uuid.UUID
	Currency   string
	DateFrom   *time.Time
	DateTo     *time.Time
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	Update(ctx context.Context, invoice *model.Invoice) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	List(ctx context.Context, filter InvoiceFilter, page, limit int) ([]model.Invoice, int64, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	return translate(GetDB(ctx, r.db).Omit("Customer").Create(invoice).Error, "invoice")
}

func (r *invoiceRepository) Update(ctx context.Context, invoice *model.Invoice) error {
	return translate(GetDB(ctx, r.db).Omit("Customer").Save(invoice).Error, "invoice")
}

func (r *invoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleted(GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Invoice{}), "invoice")
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).Preload("Customer").First(&invoice, "id = ?", id).Error; err != nil {
		return nil, translate(err, "invoice")
	}
	return &invoice, nil
}

func (r *invoiceRepository) List(ctx context.Context, filter InvoiceFilter, page, limit int) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Invoice{})
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Currency != "" {
		query = query.Where("currency = ?", filter.Currency)
	}
	if filter.DateFrom != nil {
		query = query.Where("invoice_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("invoice_date <= ?", *filter.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Preload("Customer").Order("invoice_date DESC, created_at DESC").
		Offset(offset).Limit(limit).Find(&invoices).Error; err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}
