package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Position open holding derived from the ledger. It exists only while NetQuantity > 0.
type Position struct {
	Symbol string `json:"symbol"`
	// NetQuantity sum of buy quantities minus sell quantities.
	NetQuantity int64 `json:"net_qty"`
	// AverageCost quantity-weighted mean price of buy fills only.
	AverageCost decimal.Decimal `json:"avg_cost"`
}

// IsOpen returns true if the position has a positive net quantity.
func (p Position) IsOpen() bool {
	return p.NetQuantity > 0
}

// MarketValue net quantity valued at the given price.
func (p Position) MarketValue(last decimal.Decimal) decimal.Decimal {
	return last.Mul(decimal.NewFromInt(p.NetQuantity))
}

// PnL unrealised profit and loss against the average cost.
func (p Position) PnL(last decimal.Decimal) decimal.Decimal {
	return last.Sub(p.AverageCost).Mul(decimal.NewFromInt(p.NetQuantity))
}

// PnLPercent unrealised return in percent, zero when cost basis is unknown.
func (p Position) PnLPercent(last decimal.Decimal) decimal.Decimal {
	if !p.AverageCost.IsPositive() {
		return decimal.Zero
	}
	return last.Div(p.AverageCost).Sub(decimal.NewFromInt(1)).Mul(hundred)
}

// PositionView position enriched with the latest quote.
type PositionView struct {
	Symbol      string          `json:"symbol"`
	Quantity    int64           `json:"qty"`
	AverageCost decimal.Decimal `json:"avg_cost"`
	Last        decimal.Decimal `json:"last"`
	PnL         decimal.Decimal `json:"pnl"`
	PnLPercent  decimal.Decimal `json:"pnl_pct"`
}

// NewPositionView values a position at the given last price.
func NewPositionView(p Position, last decimal.Decimal) PositionView {
	return PositionView{
		Symbol:      p.Symbol,
		Quantity:    p.NetQuantity,
		AverageCost: p.AverageCost.Round(4),
		Last:        last.Round(4),
		PnL:         p.PnL(last).Round(2),
		PnLPercent:  p.PnLPercent(last).Round(2),
	}
}
