// Package pricer resolves last prices for symbols from market data providers.
package pricer

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/sigtrader/internal/domain"
)

// Pricer returns the last traded price of a symbol. A missing or non-positive
// price is reported as domain.ErrNoPrice, distinct from transport errors.
type Pricer interface {
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// QuoteDetailer returns a quote with name and daily change.
type QuoteDetailer interface {
	QuoteDetail(ctx context.Context, symbol string) (domain.QuoteDetail, error)
}

// HistoryProvider returns daily closes, oldest first.
type HistoryProvider interface {
	History(ctx context.Context, symbol string, days int) ([]decimal.Decimal, error)
}

// Detail returns a quote detail from p, falling back to the last price when
// p cannot describe the instrument.
func Detail(ctx context.Context, p Pricer, symbol string) (domain.QuoteDetail, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if d, ok := p.(QuoteDetailer); ok {
		return d.QuoteDetail(ctx, symbol)
	}

	last, err := p.LastPrice(ctx, symbol)
	if err != nil {
		return domain.QuoteDetail{}, err
	}
	return domain.QuoteDetail{Symbol: symbol, Name: symbol, Last: last, ChangePercent: decimal.Zero}, nil
}

// Prices resolves last prices for the symbols. Symbols that fail are omitted.
func Prices(ctx context.Context, p Pricer, symbols []string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(symbols))
	for _, s := range symbols {
		last, err := p.LastPrice(ctx, s)
		if err != nil {
			continue
		}
		out[domain.NormalizeSymbol(s)] = last
	}
	return out
}

func positive(symbol string, price decimal.Decimal) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, noPrice(symbol)
	}
	return price, nil
}
