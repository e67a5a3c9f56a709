package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Side direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide parses a side case-insensitively.
func ParseSide(raw string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(raw))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", errors.Wrapf(ErrInvalidSide, "side must be 'buy' or 'sell', got %q", raw)
	}
}

// String returns the string representation.
func (s Side) String() string {
	return string(s)
}

// Sign returns +1 for buys and -1 for sells.
func (s Side) Sign() int64 {
	if s == SideSell {
		return -1
	}
	return 1
}

// NormalizeSymbol trims and uppercases an instrument identifier.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// MaxQuantity largest share count a single trade may carry.
const MaxQuantity int64 = 1_000_000_000

// TradeRecord executed paper trade. Immutable once appended to the ledger.
type TradeRecord struct {
	// Seq monotonic sequence assigned by the ledger.
	Seq uint64 `json:"seq"`
	// Time execution time.
	Time time.Time `json:"ts"`
	// Symbol uppercased instrument identifier.
	Symbol string `json:"symbol"`
	// Side buy or sell.
	Side Side `json:"side"`
	// Quantity number of shares, always positive.
	Quantity int64 `json:"qty"`
	// Price fill price, always positive.
	Price decimal.Decimal `json:"price"`
	// Note free text.
	Note string `json:"note"`
}

// NewTradeRecord builds a validated trade record. Seq is left for the ledger to assign.
func NewTradeRecord(ts time.Time, symbol string, side Side, qty int64, price decimal.Decimal, note string) (TradeRecord, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return TradeRecord{}, errors.Wrap(ErrInvalidSymbol, "symbol is required")
	}
	if side != SideBuy && side != SideSell {
		return TradeRecord{}, errors.Wrapf(ErrInvalidSide, "unknown side %q", side)
	}
	if qty <= 0 || qty > MaxQuantity {
		return TradeRecord{}, errors.Wrapf(ErrInvalidQuantity, "quantity must be in [1, %d], got %d", MaxQuantity, qty)
	}
	if !price.IsPositive() {
		return TradeRecord{}, errors.Wrapf(ErrInvalidPrice, "price must be > 0, got %s", price.String())
	}

	return TradeRecord{
		Time:     ts.UTC(),
		Symbol:   symbol,
		Side:     side,
		Quantity: qty,
		Price:    price,
		Note:     note,
	}, nil
}

// Notional quantity × price.
func (t TradeRecord) Notional() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

// SignedQuantity +qty for buys, -qty for sells.
func (t TradeRecord) SignedQuantity() int64 {
	return t.Side.Sign() * t.Quantity
}

// String returns a human-readable string representation.
func (t TradeRecord) String() string {
	return fmt.Sprintf("#%d %s %s %d@%s", t.Seq, t.Side, t.Symbol, t.Quantity, t.Price.String())
}
