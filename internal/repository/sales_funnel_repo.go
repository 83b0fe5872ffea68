package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"rfqportal/internal/model"
)

type SalesFunnelRepository interface {
	Create(ctx context.Context, funnel *model.SalesFunnel) error
	Update(ctx context.Context, funnel *model.SalesFunnel) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.SalesFunnel, error)
	List(ctx context.Context, rfqID *uuid.UUID, page, limit int) ([]model.SalesFunnel, int64, error)
}

type salesFunnelRepository struct {
	db *gorm.DB
}

func NewSalesFunnelRepository(db *gorm.DB) SalesFunnelRepository {
	return &salesFunnelRepository{db: db}
}

func (r *salesFunnelRepository) Create(ctx context.Context, funnel *model.SalesFunnel) error {
	return translate(GetDB(ctx, r.db).Omit("RFQ", "SentBy").Create(funnel).Error, "sales funnel")
}

func (r *salesFunnelRepository) Update(ctx context.Context, funnel *model.SalesFunnel) error {
	return translate(GetDB(ctx, r.db).Omit("RFQ", "SentBy").Save(funnel).Error, "sales funnel")
}

func (r *salesFunnelRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleted(GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.SalesFunnel{}), "sales funnel")
}

func (r *salesFunnelRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.SalesFunnel, error) {
	var funnel model.SalesFunnel
	if err := GetDB(ctx, r.db).Preload("RFQ").Preload("SentBy").First(&funnel, "id = ?", id).Error; err != nil {
		return nil, translate(err, "sales funnel")
	}
	return &funnel, nil
}

func (r *salesFunnelRepository) List(ctx context.Context, rfqID *uuid.UUID, page, limit int) ([]model.SalesFunnel, int64, error) {
	var funnels []model.SalesFunnel
	var total int64

	query := GetDB(ctx, r.db).Model(&model.SalesFunnel{})
	if rfqID != nil {
		query = query.Where("rfq_id = ?", *rfqID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Preload("RFQ").Preload("SentBy").Order("quote_date DESC, created_at DESC").
		Offset(offset).Limit(limit).Find(&funnels).Error; err != nil {
		return nil, 0, err
	}
	return funnels, total, nil
}
