// Package domain defines the core types shared across the botboard
// accounting engine: accounts, FIFO lots, positions, orders, and the
// derived statistics served by the dashboard.
package domain

import (
	"math"
	"time"
)

// Epsilon is the tolerance below which quantities and P&L values are
// treated as zero throughout the FIFO accounting engine.
const Epsilon = 1e-9

// DefaultInitialCash is the cash balance assumed for an account that has
// never been written to.
const DefaultInitialCash float64 = 1_000_000

// Round6 rounds v to 6 decimal places. Applied after every arithmetic step
// in the accounting engine to avoid floating-point drift across repeated
// partial lot consumption.
func Round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// IsFinitePositive reports whether v is a finite number strictly greater
// than zero.
func IsFinitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// ---------------------------------------------------------------------------
// Order
// ---------------------------------------------------------------------------

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType is the execution style of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderStatus is the lifecycle state of an order record.
type OrderStatus string

// OrderStatusFilled is the only status the submission engine writes: orders
// enter the log already executed.
const OrderStatusFilled OrderStatus = "filled"

// Order is one immutable entry in an account's append-only order log. The
// log is the canonical event stream from which all statistics are
// replayable.
type Order struct {
	ID        string            `json:"id"`
	AccountID string            `json:"accountId"`
	Symbol    string            `json:"symbol"`
	Side      OrderSide         `json:"side"`
	Qty       float64           `json:"qty"`
	Type      OrderType         `json:"type"`
	Status    OrderStatus       `json:"status"`
	FillPrice float64           `json:"fillPrice"`
	Timestamp int64             `json:"ts"`        // fill time, Unix ms
	CreatedAt time.Time         `json:"createdAt"` // server-assigned
	Extra     map[string]string `json:"extra,omitempty"`
}

// ---------------------------------------------------------------------------
// Account / Position
// ---------------------------------------------------------------------------

// Account holds the mutable cash balance and the immutable initial credit
// baseline for one bot account.
type Account struct {
	ID             string  `json:"id"`
	Cash           float64 `json:"cash"`
	InitialCredits float64 `json:"initialCredits"`
}

// Lot is an unconsumed (or partially consumed) chunk of a buy fill, tagged
// with its own price and time. Sells consume lots oldest-first.
type Lot struct {
	Qty       float64 `json:"qty"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"ts"` // Unix ms
}

// Position is the per-account per-symbol aggregate over its lot book.
// Invariant: Qty equals the sum of Lots quantities within Epsilon, and
// AvgPrice is the cost-weighted mean of Lots (0 when Qty ~ 0).
type Position struct {
	AccountID string  `json:"accountId"`
	Symbol    string  `json:"symbol"`
	Qty       float64 `json:"qty"`
	AvgPrice  float64 `json:"avgPrice"`
	Lots      []Lot   `json:"lots"`
	UpdatedAt int64   `json:"updatedAt"` // Unix ms of the last fill applied
}

// ---------------------------------------------------------------------------
// Derived statistics
// ---------------------------------------------------------------------------

// BotStatus classifies a bot by trading recency.
type BotStatus string

const (
	BotStatusActive  BotStatus = "active"  // traded within the recency window
	BotStatusPaused  BotStatus = "paused"  // has history, but stale
	BotStatusStopped BotStatus = "stopped" // never traded
)

// OpenPosition is the dashboard view of one open holding, valued at the
// latest known market price when one is available.
type OpenPosition struct {
	Symbol       string   `json:"symbol"`
	Qty          float64  `json:"qty"`
	AvgPrice     float64  `json:"avgPrice"`
	CurrentPrice *float64 `json:"currentPrice,omitempty"` // nil when unavailable
	MarketValue  float64  `json:"marketValue"`            // 0 when price unavailable
	UnrealizedPL float64  `json:"unrealizedPnl"`          // 0 when price unavailable
	UpdatedAt    int64    `json:"updatedAt"`
}

// Stats is the full recomputed performance snapshot for one account. It is
// ephemeral: derived from the order log, current prices, and the account
// baseline, never stored.
type Stats struct {
	AccountID       string         `json:"accountId"`
	ROI             float64        `json:"roi"`        // fraction, 0 when baseline ~ 0
	ROIPercent      float64        `json:"roiPercent"` // ROI * 100, for display
	TotalPnL        float64        `json:"totalPnL"`
	RealizedPnL     float64        `json:"realizedPnL"`
	TradesCount     int            `json:"tradesCount"` // all valid orders, opens and closes
	ClosedTrades    int            `json:"closedTrades"`
	Wins            int            `json:"wins"`
	Losses          int            `json:"losses"`
	WinRate         float64        `json:"winRate"` // wins / closed trades, 0 when none
	Status          BotStatus      `json:"status"`
	Cash            float64        `json:"cash"`
	InitialCredits  float64        `json:"initialCredits"`
	MarketValue     float64        `json:"marketValue"`
	OpenPositions   []OpenPosition `json:"openPositions"`
	LastTradeAt     int64          `json:"lastTradeAt,omitempty"`     // Unix ms, 0 when never
	MalformedOrders int            `json:"malformedOrders,omitempty"` // discarded during replay
	Divergences     int            `json:"divergences,omitempty"`     // sells unmatchable on replay
	PriceGaps       []string       `json:"priceGaps,omitempty"`       // symbols with no usable price
	ComputedAt      time.Time      `json:"computedAt"`
}
