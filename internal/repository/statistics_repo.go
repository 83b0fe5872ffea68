package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"rfqportal/internal/model"
)

type StatisticsRepository interface {
	CountRFQsByProgress(ctx context.Context) (map[model.RFQProgress]int64, error)
	CountSalesFunnels(ctx context.Context) (int64, error)
	InvoiceTotals(ctx context.Context) ([]model.CurrencyTotal, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) CountRFQsByProgress(ctx context.Context) (map[model.RFQProgress]int64, error) {
	var rows []model.ProgressCount
	if err := GetDB(ctx, r.db).Model(&model.RFQ{}).
		Select("progress, COUNT(*) AS count").
		Group("progress").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count rfqs by progress: %w", err)
	}
	counts := make(map[model.RFQProgress]int64, len(rows))
	for _, row := range rows {
		counts[row.Progress] = row.Count
	}
	return counts, nil
}

func (r *statisticsRepository) CountSalesFunnels(ctx context.Context) (int64, error) {
	var n int64
	if err := GetDB(ctx, r.db).Model(&model.SalesFunnel{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count sales funnels: %w", err)
	}
	return n, nil
}

func (r *statisticsRepository) InvoiceTotals(ctx context.Context) ([]model.CurrencyTotal, error) {
	var totals []model.CurrencyTotal
	if err := GetDB(ctx, r.db).Model(&model.Invoice{}).
		Select("currency, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Group("currency").
		Order("currency").
		Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to total invoices: %w", err)
	}
	return totals, nil
}
