// Package risk holds the portfolio exposure gate.
package risk

import "github.com/shopspring/decimal"

// epsilon absorbs rounding in the ceiling comparison.
var epsilon = decimal.New(1, -6)

// Limits capital settings the exposure gate is evaluated against.
type Limits struct {
	BaseCapital    decimal.Decimal
	MaxExposurePct float64
}

// Ceiling maximum cumulative buy notional.
func (l Limits) Ceiling() decimal.Decimal {
	return l.BaseCapital.Mul(decimal.NewFromFloat(l.MaxExposurePct))
}

// Allows reports whether a buy of the proposed notional keeps exposure under the ceiling.
func (l Limits) Allows(currentExposure, proposedNotional decimal.Decimal) bool {
	return WithinExposure(currentExposure, proposedNotional, l.BaseCapital, l.MaxExposurePct)
}

// WithinExposure returns true iff current + proposed <= baseCapital*maxExposurePct (+1e-6).
// It only applies to buys; sells are never gated by exposure.
func WithinExposure(currentExposure, proposedNotional, baseCapital decimal.Decimal, maxExposurePct float64) bool {
	ceiling := baseCapital.Mul(decimal.NewFromFloat(maxExposurePct))
	return currentExposure.Add(proposedNotional).LessThanOrEqual(ceiling.Add(epsilon))
}
