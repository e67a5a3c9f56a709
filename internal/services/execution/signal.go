package execution

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/sigtrader/internal/domain"
	"github.com/vadiminshakov/sigtrader/internal/services/strategy/rules"
)

const outcomeExecuted = "executed"

// ExecuteSignal decides on the signal's indicators. A hold only notifies;
// buy and sell decisions are sized from the notional cap and executed.
func (e *Executor) ExecuteSignal(ctx context.Context, sig domain.Signal) (domain.SignalResult, error) {
	sig.Symbol = domain.NormalizeSymbol(sig.Symbol)
	if sig.Symbol == "" {
		return domain.SignalResult{}, domain.NewExecutionError(domain.KindValidation, domain.GateValidation, domain.ErrInvalidSymbol)
	}

	decision := rules.Decide(sig.Snapshot)
	e.metrics.ObserveDecision(decision.Action.String())
	event := domain.NewDecisionEvent(e.now(), sig, decision)

	e.logger.Info("signal decision",
		zap.String("symbol", sig.Symbol),
		zap.String("action", decision.Action.String()),
		zap.Float64("confidence", decision.Confidence),
		zap.String("reason", decision.Reason))

	result := domain.SignalResult{Decision: decision}

	side, ok := decision.Action.Side()
	if !ok {
		event.Outcome = domain.ActionHold.String()
		e.recordDecision(event)
		e.notify(ctx, holdMessage(sig.Symbol, decision.Reason))
		return result, nil
	}

	note := sig.Note
	if note == "" {
		note = decision.Reason
	}

	order := domain.Order{Symbol: sig.Symbol, Side: side, Price: sig.Price, Note: note}
	maxNotional := e.maxTradeAmount(sig.MaxTradeAmount)

	res, err := e.executeSerialized(ctx, request{order: order, maxNotional: &maxNotional})
	if err != nil {
		event.Outcome = err.Error()
		e.recordDecision(event)
		return result, err
	}

	event.Outcome = outcomeExecuted
	e.recordDecision(event)
	e.notify(ctx, executionMessage(res, note))

	result.Execution = &res
	return result, nil
}

func (e *Executor) maxTradeAmount(perSignal *decimal.Decimal) decimal.Decimal {
	if perSignal != nil && perSignal.IsPositive() {
		return *perSignal
	}
	if e.cfg.MaxTradeAmount.IsPositive() {
		return e.cfg.MaxTradeAmount
	}
	return DefaultMaxTradeAmount
}

func (e *Executor) recordDecision(event domain.DecisionEvent) {
	if e.decisions == nil {
		return
	}
	if err := e.decisions.Save(event); err != nil {
		e.logger.Warn("failed to record decision", zap.String("symbol", event.Symbol), zap.Error(err))
	}
}
