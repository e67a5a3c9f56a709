package execution

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/sigtrader/internal/domain"
	"github.com/vadiminshakov/sigtrader/internal/services/notifier"
)

// notify is best-effort; failures never reach the caller.
func (e *Executor) notify(ctx context.Context, text string) {
	err := e.notifier.Send(ctx, text)
	if err == nil || errors.Is(err, notifier.ErrDisabled) {
		return
	}
	e.metrics.NotificationFailed()
	e.logger.Warn("notification failed", zap.Error(err))
}

func executionMessage(res domain.ExecutionResult, note string) string {
	if note == "" {
		note = "-"
	}
	return fmt.Sprintf("Paper execution\nSymbol: %s\nSide: %s\nQty: %d\nPrice: %s\nNote: %s",
		res.Trade.Symbol,
		strings.ToUpper(res.Trade.Side.String()),
		res.Quantity,
		res.Price.StringFixed(2),
		note)
}

func holdMessage(symbol, reason string) string {
	return fmt.Sprintf("HOLD %s: %s", symbol, reason)
}

func killSwitchMessage(on bool) string {
	if on {
		return "Kill Switch: ON"
	}
	return "Kill Switch: OFF"
}

func liquidationMessage(res domain.LiquidationResult) string {
	msg := fmt.Sprintf("Liquidate All: %d symbols closed", len(res.Closed))
	if len(res.Failed) > 0 {
		symbols := make([]string, 0, len(res.Failed))
		for _, f := range res.Failed {
			symbols = append(symbols, f.Symbol)
		}
		msg += fmt.Sprintf(", %d failed (%s)", len(res.Failed), strings.Join(symbols, ", "))
	}
	return msg
}
