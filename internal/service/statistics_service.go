package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"rfqportal/internal/model"
	"rfqportal/internal/repository"
)

type StatisticsService interface {
	GetPipelineSummary(ctx context.Context) (*model.PipelineSummary, error)
}

type statisticsService struct {
	repo repository.StatisticsRepository
}

func NewStatisticsService(repo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{repo: repo}
}

// GetPipelineSummary runs the three aggregate queries concurrently. Every
// progress state is reported, in workflow order, even when its count is zero.
func (s *statisticsService) GetPipelineSummary(ctx context.Context) (*model.PipelineSummary, error) {
	var (
		byProgress map[model.RFQProgress]int64
		funnels    int64
		totals     []model.CurrencyTotal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byProgress, err = s.repo.CountRFQsByProgress(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		funnels, err = s.repo.CountSalesFunnels(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = s.repo.InvoiceTotals(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &model.PipelineSummary{
		RFQsByProgress: make([]model.ProgressCount, 0, len(model.RFQProgressStates)),
		SalesFunnels:   funnels,
		InvoiceTotals:  totals,
	}
	if summary.InvoiceTotals == nil {
		summary.InvoiceTotals = []model.CurrencyTotal{}
	}
	for _, p := range model.RFQProgressStates {
		n := byProgress[p]
		summary.RFQsByProgress = append(summary.RFQsByProgress, model.ProgressCount{Progress: p, Count: n})
		summary.TotalRFQs += n
	}
	return summary, nil
}
