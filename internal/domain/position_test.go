package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPosition_PnL(t *testing.T) {
	tests := []struct {
		name       string
		position   Position
		last       decimal.Decimal
		wantPnL    decimal.Decimal
		wantPnLPct decimal.Decimal
	}{
		{
			name:       "price up",
			position:   Position{Symbol: "AAPL", NetQuantity: 10, AverageCost: decimal.NewFromInt(100)},
			last:       decimal.NewFromInt(110),
			wantPnL:    decimal.NewFromInt(100),
			wantPnLPct: decimal.NewFromInt(10),
		},
		{
			name:       "price down",
			position:   Position{Symbol: "AAPL", NetQuantity: 5, AverageCost: decimal.NewFromInt(200)},
			last:       decimal.NewFromInt(150),
			wantPnL:    decimal.NewFromInt(-250),
			wantPnLPct: decimal.NewFromInt(-25),
		},
		{
			name:       "unknown cost basis",
			position:   Position{Symbol: "AAPL", NetQuantity: 5},
			last:       decimal.NewFromInt(150),
			wantPnL:    decimal.NewFromInt(750),
			wantPnLPct: decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.wantPnL.Equal(tt.position.PnL(tt.last)), "pnl: %s", tt.position.PnL(tt.last))
			assert.True(t, tt.wantPnLPct.Equal(tt.position.PnLPercent(tt.last)), "pnl pct: %s", tt.position.PnLPercent(tt.last))
		})
	}
}

func TestNewPortfolio(t *testing.T) {
	// 10000 base, bought 3000, sold 1000, holdings worth 2500
	p := NewPortfolio(decimal.NewFromInt(10000), decimal.NewFromInt(3000), decimal.NewFromInt(1000), decimal.NewFromInt(2500))

	assert.True(t, decimal.NewFromInt(8000).Equal(p.Cash))
	assert.True(t, decimal.NewFromInt(10500).Equal(p.Equity))
	assert.True(t, decimal.NewFromInt(500).Equal(p.PnL))
	assert.True(t, decimal.NewFromInt(5).Equal(p.PnLPercent))

	zero := NewPortfolio(decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero)
	assert.True(t, zero.PnLPercent.IsZero())
}

func TestWatchlist(t *testing.T) {
	w := NewWatchlist([]string{"aapl", "TSLA", " ", "AAPL"})
	assert.Equal(t, Watchlist{"AAPL", "TSLA"}, w)

	w = w.Add("msft").Add("tsla")
	assert.Equal(t, Watchlist{"AAPL", "TSLA", "MSFT"}, w)

	w = w.Remove(" aapl")
	assert.Equal(t, Watchlist{"TSLA", "MSFT"}, w)
}
