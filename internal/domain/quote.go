package domain

import "github.com/shopspring/decimal"

// QuoteDetail quote with daily change for the watchlist view.
type QuoteDetail struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Last          decimal.Decimal `json:"last"`
	ChangePercent decimal.Decimal `json:"change_pct"`
}
