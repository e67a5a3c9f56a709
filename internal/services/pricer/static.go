package pricer

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/sigtrader/internal/domain"
)

// StaticPricer serves prices from a fixed table. Used for offline paper runs.
type StaticPricer struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewStaticPricer creates a static pricer. Keys are normalized.
func NewStaticPricer(prices map[string]decimal.Decimal) *StaticPricer {
	p := &StaticPricer{prices: make(map[string]decimal.Decimal, len(prices))}
	for s, v := range prices {
		p.prices[domain.NormalizeSymbol(s)] = v
	}
	return p
}

// Set updates the price of a symbol.
func (p *StaticPricer) Set(symbol string, price decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[domain.NormalizeSymbol(symbol)] = price
}

func (p *StaticPricer) LastPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	symbol = domain.NormalizeSymbol(symbol)

	p.mu.RLock()
	price, ok := p.prices[symbol]
	p.mu.RUnlock()

	if !ok {
		return decimal.Zero, noPrice(symbol)
	}
	return positive(symbol, price)
}
