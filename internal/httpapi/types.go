// Package httpapi provides the dashboard REST API: statistics snapshots,
// positions, order history and submission, performance history, and latest
// prices, all in JSON.
package httpapi

import (
	"botboard/internal/perf"
)

// SubmitOrderRequest is the POST body for order submission.
type SubmitOrderRequest struct {
	Symbol    string            `json:"symbol"`
	Side      string            `json:"side"`
	Qty       float64           `json:"qty"`
	FillPrice float64           `json:"fillPrice"`
	Type      string            `json:"type,omitempty"`
	Timestamp int64             `json:"ts,omitempty"` // fill time, Unix ms; 0 means now
	Extra     map[string]string `json:"extra,omitempty"`
}

// PriceResponse is the latest known close for a symbol.
type PriceResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// PerformanceResponse is the equity history for one bot.
type PerformanceResponse struct {
	AccountID string       `json:"accountId"`
	Points    []perf.Point `json:"points"`
}
