// Package indicators provides technical analysis indicators (EMA, MACD, RSI)
// and builds indicator snapshots from close price history.
package indicators

import (
	"fmt"
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/sigtrader/internal/domain"
)

const (
	RSIPeriod     = 14
	EMAFastPeriod = 12
	EMASlowPeriod = 26
	signalPeriod  = 9

	// MinCloses smallest history that yields every snapshot field.
	MinCloses = EMASlowPeriod + signalPeriod
)

var ErrNotEnoughData = errors.New("not enough data points")

// CalculateEMA calculates the Exponential Moving Average for the given period.
func CalculateEMA(closes []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if len(closes) < period {
		return nil, errors.Wrapf(ErrNotEnoughData, "EMA%d: need %d, got %d", period, period, len(closes))
	}

	ema := trend.NewEmaWithPeriod[float64](period)
	inputChan := helper.SliceToChan(decimalsToFloat64(closes))
	emaFloat := helper.ChanToSlice(ema.Compute(inputChan))

	return float64ToDecimals(emaFloat), nil
}

// CalculateMACD calculates MACD line and signal line values (12, 26, 9).
func CalculateMACD(closes []decimal.Decimal) (macdLine, signalLine []decimal.Decimal, err error) {
	if len(closes) < MinCloses {
		return nil, nil, errors.Wrapf(ErrNotEnoughData, "MACD: need at least %d, got %d", MinCloses, len(closes))
	}

	macd := trend.NewMacd[float64]()
	inputChan := helper.SliceToChan(decimalsToFloat64(closes))
	macdChan, signalChan := macd.Compute(inputChan)

	// both outputs must be consumed concurrently
	signalDone := make(chan []float64, 1)
	go func() {
		signalDone <- helper.ChanToSlice(signalChan)
	}()
	macdFloat := helper.ChanToSlice(macdChan)
	signalFloat := <-signalDone

	return float64ToDecimals(macdFloat), float64ToDecimals(signalFloat), nil
}

// CalculateRSI calculates the Relative Strength Index for the given period.
func CalculateRSI(closes []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if len(closes) < period+1 {
		return nil, errors.Wrapf(ErrNotEnoughData, "RSI%d: need %d, got %d", period, period+1, len(closes))
	}

	rsi := momentum.NewRsiWithPeriod[float64](period)
	inputChan := helper.SliceToChan(decimalsToFloat64(closes))
	rsiFloat := helper.ChanToSlice(rsi.Compute(inputChan))

	return float64ToDecimals(rsiFloat), nil
}

// SnapshotFromCloses computes RSI14, EMA12/EMA26, MACD/signal and trend strength
// from the latest values of the close series (oldest first).
func SnapshotFromCloses(closes []decimal.Decimal) (domain.IndicatorSnapshot, error) {
	if len(closes) < MinCloses {
		return domain.IndicatorSnapshot{}, errors.Wrapf(ErrNotEnoughData, "snapshot: need at least %d closes, got %d", MinCloses, len(closes))
	}

	rsi, err := CalculateRSI(closes, RSIPeriod)
	if err != nil {
		return domain.IndicatorSnapshot{}, fmt.Errorf("failed to calculate RSI%d: %w", RSIPeriod, err)
	}
	emaFast, err := CalculateEMA(closes, EMAFastPeriod)
	if err != nil {
		return domain.IndicatorSnapshot{}, fmt.Errorf("failed to calculate EMA%d: %w", EMAFastPeriod, err)
	}
	emaSlow, err := CalculateEMA(closes, EMASlowPeriod)
	if err != nil {
		return domain.IndicatorSnapshot{}, fmt.Errorf("failed to calculate EMA%d: %w", EMASlowPeriod, err)
	}
	macd, signal, err := CalculateMACD(closes)
	if err != nil {
		return domain.IndicatorSnapshot{}, fmt.Errorf("failed to calculate MACD: %w", err)
	}

	snap := domain.IndicatorSnapshot{
		RSI:        last(rsi),
		EMAFast:    last(emaFast),
		EMASlow:    last(emaSlow),
		MACD:       last(macd),
		MACDSignal: last(signal),
	}
	if snap.EMAFast != nil && snap.EMASlow != nil {
		snap.TrendStrength = domain.Float(TrendStrength(*snap.EMAFast, *snap.EMASlow))
	}
	return snap, nil
}

// TrendStrength magnitude of the percentage gap between the fast and slow EMA,
// clamped to [0, 1]. Direction is carried by the EMA vote, not by this value.
func TrendStrength(emaFast, emaSlow float64) float64 {
	if emaSlow == 0 {
		return 0
	}
	gap := math.Abs(emaFast-emaSlow) / math.Abs(emaSlow) * 100
	return math.Min(1, gap)
}

func last(values []decimal.Decimal) *float64 {
	if len(values) == 0 {
		return nil
	}
	f, _ := values[len(values)-1].Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return domain.Float(f)
}

// decimalsToFloat64 converts a slice of decimal.Decimal to []float64.
func decimalsToFloat64(decimals []decimal.Decimal) []float64 {
	result := make([]float64, len(decimals))
	for i, d := range decimals {
		result[i], _ = d.Float64()
	}
	return result
}

// float64ToDecimals converts a slice of float64 to []decimal.Decimal.
func float64ToDecimals(floats []float64) []decimal.Decimal {
	result := make([]decimal.Decimal, 0, len(floats))
	for _, f := range floats {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		result = append(result, decimal.NewFromFloat(f))
	}
	return result
}
