package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfqportal/internal/model"
)

type stubStatsRepo struct {
	counts  map[model.RFQProgress]int64
	funnels int64
	totals  []model.CurrencyTotal
	err     error
}

func (s *stubStatsRepo) CountRFQsByProgress(context.Context) (map[model.RFQProgress]int64, error) {
	return s.counts, s.err
}

func (s *stubStatsRepo) CountSalesFunnels(context.Context) (int64, error) {
	return s.funnels, nil
}

func (s *stubStatsRepo) InvoiceTotals(context.Context) ([]model.CurrencyTotal, error) {
	return s.totals, nil
}

func TestPipelineSummary_ZeroFillsInWorkflowOrder(t *testing.T) {
	repo := &stubStatsRepo{
		counts: map[model.RFQProgress]int64{
			model.ProgressSentToCustomer:    3,
			model.ProgressWaitingForDrawing: 2,
		},
		funnels: 4,
		totals:  []model.CurrencyTotal{{Currency: "AUD", Total: decimal.RequireFromString("10.500"), Count: 2}},
	}

	summary, err := NewStatisticsService(repo).GetPipelineSummary(context.Background())

	require.NoError(t, err)
	require.Len(t, summary.RFQsByProgress, len(model.RFQProgressStates))
	for i, p := range model.RFQProgressStates {
		assert.Equal(t, p, summary.RFQsByProgress[i].Progress)
	}
	assert.Equal(t, int64(2), summary.RFQsByProgress[0].Count)
	assert.Equal(t, int64(0), summary.RFQsByProgress[1].Count)
	assert.Equal(t, int64(3), summary.RFQsByProgress[8].Count)
	assert.Equal(t, int64(5), summary.TotalRFQs)
	assert.Equal(t, int64(4), summary.SalesFunnels)
	assert.Len(t, summary.InvoiceTotals, 1)
}

func TestPipelineSummary_PropagatesErrors(t *testing.T) {
	repo := &stubStatsRepo{err: errors.New("boom")}
	_, err := NewStatisticsService(repo).GetPipelineSummary(context.Background())
	assert.EqualError(t, err, "boom")
}
