package model

import "github.com/shopspring/decimal"

// ProgressCount is the number of RFQs sitting in one progress state.
type ProgressCount struct {
	Progress RFQProgress `json:"progress"`
	Count    int64       `json:"count"`
}

// CurrencyTotal sums invoice amounts for one currency.
type CurrencyTotal struct {
	Currency string          `json:"currency"`
	Total    decimal.Decimal `json:"total"`
	Count    int64           `json:"count"`
}

// PipelineSummary is the dashboard view of the RFQ to invoice pipeline.
type PipelineSummary struct {
	RFQsByProgress []ProgressCount `json:"rfqs_by_progress"`
	TotalRFQs      int64           `json:"total_rfqs"`
	SalesFunnels   int64           `json:"sales_funnels"`
	InvoiceTotals  []CurrencyTotal `json:"invoice_totals"`
}
