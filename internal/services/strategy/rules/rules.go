// Package rules implements the rule-based indicator voting strategy.
//
// Three independent rules (RSI, EMA cross, MACD cross) each vote at most once
// for buy or sell. A direction wins only when it has at least two votes and
// strictly more votes than the opposite side.
package rules

import (
	"fmt"
	"math"
	"strings"

	"github.com/vadiminshakov/sigtrader/internal/domain"
)

const (
	rsiOversold   = 30.0
	rsiOverbought = 70.0

	minVotes       = 2
	baseConfidence = 0.3
	voteWeight     = 0.3
	trendWeight    = 0.1

	holdConfidence = 0.2
	holdReason     = "No strong signal"
	reasonSep      = " & "
)

// Decide maps an indicator snapshot to a trading decision. It never fails;
// absent indicators are skipped.
func Decide(s domain.IndicatorSnapshot) domain.Decision {
	var (
		buyVotes, sellVotes int
		reasons             []string
	)

	if s.RSI != nil {
		rsi := *s.RSI
		if rsi <= rsiOversold {
			buyVotes++
			reasons = append(reasons, fmt.Sprintf("RSI<=30(%.1f)", rsi))
		}
		if rsi >= rsiOverbought {
			sellVotes++
			reasons = append(reasons, fmt.Sprintf("RSI>=70(%.1f)", rsi))
		}
	}

	if s.EMAFast != nil && s.EMASlow != nil {
		switch {
		case *s.EMAFast > *s.EMASlow:
			buyVotes++
			reasons = append(reasons, "EMA fast>slow")
		case *s.EMAFast < *s.EMASlow:
			sellVotes++
			reasons = append(reasons, "EMA fast<slow")
		}
	}

	if s.MACD != nil && s.MACDSignal != nil {
		switch {
		case *s.MACD > *s.MACDSignal:
			buyVotes++
			reasons = append(reasons, "MACD>Signal")
		case *s.MACD < *s.MACDSignal:
			sellVotes++
			reasons = append(reasons, "MACD<Signal")
		}
	}

	trend := 0.0
	if s.TrendStrength != nil {
		trend = *s.TrendStrength
	}

	switch {
	case buyVotes > sellVotes && buyVotes >= minVotes:
		return domain.Decision{
			Action:     domain.ActionBuy,
			Confidence: confidence(buyVotes, trend),
			Reason:     strings.Join(reasons, reasonSep),
		}
	case sellVotes > buyVotes && sellVotes >= minVotes:
		return domain.Decision{
			Action:     domain.ActionSell,
			Confidence: confidence(sellVotes, trend),
			Reason:     strings.Join(reasons, reasonSep),
		}
	default:
		return domain.Decision{
			Action:     domain.ActionHold,
			Confidence: holdConfidence,
			Reason:     holdReason,
		}
	}
}

// confidence saturates at 1 whenever two signals agree. A strongly negative
// trend strength can pull it down, but never below 0.
func confidence(votes int, trend float64) float64 {
	return math.Max(0, math.Min(1.0, baseConfidence+voteWeight*float64(votes)+trendWeight*trend))
}
