package execution

import (
	"context"

	"go.uber.org/zap"

	"github.com/vadiminshakov/sigtrader/internal/domain"
	"github.com/vadiminshakov/sigtrader/internal/services/state"
)

// KillSwitchOn reports whether buys are halted.
func (e *Executor) KillSwitchOn(ctx context.Context) (bool, error) {
	on, err := state.KillSwitchOn(ctx, e.ledger)
	if err != nil {
		return false, domain.NewExecutionError(domain.KindStorage, domain.GateKillSwitch, err)
	}
	return on, nil
}

// ToggleKillSwitch flips the kill switch and returns the new state.
func (e *Executor) ToggleKillSwitch(ctx context.Context) (bool, error) {
	e.mu.Lock()
	on, err := state.KillSwitchOn(ctx, e.ledger)
	if err == nil {
		on = !on
		err = state.SetKillSwitch(ctx, e.ledger, on)
	}
	e.mu.Unlock()

	if err != nil {
		return false, domain.NewExecutionError(domain.KindStorage, domain.GateKillSwitch, err)
	}

	e.logger.Info("kill switch toggled", zap.Bool("on", on))
	e.notify(ctx, killSwitchMessage(on))
	return on, nil
}

// SetKillSwitch forces the kill switch state.
func (e *Executor) SetKillSwitch(ctx context.Context, on bool) error {
	e.mu.Lock()
	err := state.SetKillSwitch(ctx, e.ledger, on)
	e.mu.Unlock()

	if err != nil {
		return domain.NewExecutionError(domain.KindStorage, domain.GateKillSwitch, err)
	}

	e.logger.Info("kill switch set", zap.Bool("on", on))
	e.notify(ctx, killSwitchMessage(on))
	return nil
}
