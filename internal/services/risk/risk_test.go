package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestWithinExposure(t *testing.T) {
	tests := []struct {
		name     string
		current  decimal.Decimal
		proposed decimal.Decimal
		capital  decimal.Decimal
		pct      float64
		want     bool
	}{
		{name: "exactly at ceiling", current: d("290"), proposed: d("10"), capital: d("1000"), pct: 0.3, want: true},
		{name: "just over ceiling", current: d("290"), proposed: d("10.01"), capital: d("1000"), pct: 0.3, want: false},
		{name: "within tolerance", current: d("290"), proposed: d("10.0000005"), capital: d("1000"), pct: 0.3, want: true},
		{name: "empty book", current: d("0"), proposed: d("3000"), capital: d("10000"), pct: 0.3, want: true},
		{name: "zero capital blocks", current: d("0"), proposed: d("1"), capital: d("0"), pct: 0.3, want: false},
		{name: "full exposure allowed", current: d("9000"), proposed: d("1000"), capital: d("10000"), pct: 1, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithinExposure(tt.current, tt.proposed, tt.capital, tt.pct))
		})
	}
}

func TestLimits(t *testing.T) {
	l := Limits{BaseCapital: d("10000"), MaxExposurePct: 0.3}

	assert.True(t, d("3000").Equal(l.Ceiling()))
	assert.True(t, l.Allows(d("2500"), d("500")))
	assert.False(t, l.Allows(d("2500"), d("501")))
}
