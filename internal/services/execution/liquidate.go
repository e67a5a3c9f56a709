package execution

import (
	"context"

	"go.uber.org/zap"

	"github.com/vadiminshakov/sigtrader/internal/domain"
)

// LiquidateNote note of trades written by LiquidateAll.
const LiquidateNote = "liquidate-all"

// LiquidateAll sells every open position at the current quote. A symbol that
// fails is reported in Failed and leaves no ledger record; the rest proceed.
func (e *Executor) LiquidateAll(ctx context.Context) (domain.LiquidationResult, error) {
	result, err := e.liquidate(ctx)
	if err != nil {
		return result, err
	}

	e.logger.Info("liquidate all finished",
		zap.Int("closed", len(result.Closed)),
		zap.Int("failed", len(result.Failed)))
	e.notify(ctx, liquidationMessage(result))

	return result, nil
}

func (e *Executor) liquidate(ctx context.Context) (domain.LiquidationResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := domain.LiquidationResult{Closed: []domain.ClosedPosition{}}

	open, err := e.positions.OpenPositions(ctx)
	if err != nil {
		return result, domain.NewExecutionError(domain.KindStorage, domain.GateLedger, err)
	}

	for _, p := range open {
		if p.NetQuantity <= 0 {
			continue
		}
		res, err := e.execute(ctx, request{order: domain.Order{
			Symbol:   p.Symbol,
			Side:     domain.SideSell,
			Quantity: p.NetQuantity,
			Note:     LiquidateNote,
		}})
		if err != nil {
			result.Failed = append(result.Failed, domain.LiquidationFailure{Symbol: p.Symbol, Error: err.Error()})
			continue
		}
		result.Closed = append(result.Closed, domain.ClosedPosition{
			Symbol:  p.Symbol,
			SoldQty: res.Quantity,
			Price:   res.Price,
		})
	}

	return result, nil
}
