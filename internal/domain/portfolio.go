package domain

import "github.com/shopspring/decimal"

// Portfolio account summary of the paper book.
type Portfolio struct {
	BaseCapital decimal.Decimal `json:"base_capital"`
	Cash        decimal.Decimal `json:"cash"`
	MarketValue decimal.Decimal `json:"market_value"`
	Equity      decimal.Decimal `json:"equity"`
	PnL         decimal.Decimal `json:"pnl"`
	PnLPercent  decimal.Decimal `json:"pnl_pct"`
}

// NewPortfolio computes the summary. Cash is base capital minus buy notional plus sell notional.
func NewPortfolio(baseCapital, buys, sells, marketValue decimal.Decimal) Portfolio {
	cash := baseCapital.Sub(buys).Add(sells)
	equity := cash.Add(marketValue)
	pnl := equity.Sub(baseCapital)

	pnlPct := decimal.Zero
	if baseCapital.IsPositive() {
		pnlPct = pnl.Div(baseCapital).Mul(hundred)
	}

	return Portfolio{
		BaseCapital: baseCapital.Round(2),
		Cash:        cash.Round(2),
		MarketValue: marketValue.Round(2),
		Equity:      equity.Round(2),
		PnL:         pnl.Round(2),
		PnLPercent:  pnlPct.Round(2),
	}
}
