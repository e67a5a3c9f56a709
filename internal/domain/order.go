package domain

import (
	"github.com/shopspring/decimal"
)

// Order request to execute a paper trade.
type Order struct {
	Symbol   string
	Side     Side
	Quantity int64
	// Price explicit fill price; nil means resolve from the quote provider.
	Price *decimal.Decimal
	Note  string
}

// OrderAck broker acknowledgment for a submitted order.
type OrderAck struct {
	ID          string `json:"id"`
	Symbol      string `json:"symbol"`
	Side        Side   `json:"side"`
	Quantity    int64  `json:"qty"`
	Type        string `json:"type"`
	TimeInForce string `json:"time_in_force"`
	Status      string `json:"status"`
}

// ExecutionResult successful execution.
type ExecutionResult struct {
	Quantity int64           `json:"qty"`
	Price    decimal.Decimal `json:"price"`
	Order    OrderAck        `json:"order"`
	Trade    TradeRecord     `json:"trade"`
}

// Signal inbound indicator alert for a symbol.
type Signal struct {
	Symbol   string
	Snapshot IndicatorSnapshot
	// Price explicit price override.
	Price *decimal.Decimal
	// MaxTradeAmount per-signal notional cap.
	MaxTradeAmount *decimal.Decimal
	Timeframe      string
	Note           string
}

// SignalResult outcome of a signal. Execution is nil for hold decisions.
type SignalResult struct {
	Decision  Decision         `json:"decision"`
	Execution *ExecutionResult `json:"execution,omitempty"`
}

// ClosedPosition position sold by liquidation.
type ClosedPosition struct {
	Symbol  string          `json:"symbol"`
	SoldQty int64           `json:"sold_qty"`
	Price   decimal.Decimal `json:"price"`
}

// LiquidationFailure symbol that could not be closed.
type LiquidationFailure struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// LiquidationResult aggregated outcome of liquidate-all.
type LiquidationResult struct {
	Closed []ClosedPosition     `json:"closed"`
	Failed []LiquidationFailure `json:"failed,omitempty"`
}
