package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DecisionEvent signal decision recorded for auditing and streaming.
type DecisionEvent struct {
	Timestamp  time.Time        `json:"ts"`
	Symbol     string           `json:"symbol"`
	Action     Action           `json:"action"`
	Confidence float64          `json:"confidence"`
	Reason     string           `json:"reason"`
	Timeframe  string           `json:"timeframe,omitempty"`
	Price      *decimal.Decimal `json:"price,omitempty"`
	// Outcome "executed", "hold" or the rejection message.
	Outcome string `json:"outcome"`
}

// NewDecisionEvent creates a decision event for a signal.
func NewDecisionEvent(ts time.Time, signal Signal, decision Decision) DecisionEvent {
	return DecisionEvent{
		Timestamp:  ts.UTC(),
		Symbol:     NormalizeSymbol(signal.Symbol),
		Action:     decision.Action,
		Confidence: decision.Confidence,
		Reason:     decision.Reason,
		Timeframe:  signal.Timeframe,
		Price:      signal.Price,
	}
}

// DecisionEventRecord bundles a decision event with its log index.
type DecisionEventRecord struct {
	Index uint64
	Event DecisionEvent
}
