package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidSide      = errors.New("invalid side")
	ErrInvalidSymbol    = errors.New("invalid symbol")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrInvalidPrice     = errors.New("invalid price")
	ErrNoPrice          = errors.New("no valid price")
	ErrKillSwitchOn     = errors.New("trading halted: kill switch is on")
	ErrExposureLimit    = errors.New("exposure limit reached")
	ErrQuantityOverflow = errors.New("net quantity overflow")
)

// ErrorKind classifies execution failures.
type ErrorKind string

const (
	// KindValidation caller-fixable input problem.
	KindValidation ErrorKind = "validation"
	// KindPolicy refused by kill switch or risk limits.
	KindPolicy ErrorKind = "policy"
	// KindUpstream quote or broker collaborator failure.
	KindUpstream ErrorKind = "upstream"
	// KindStorage ledger failure; the trade is not complete.
	KindStorage ErrorKind = "storage"
)

// Gate names the pipeline step that rejected an execution.
type Gate string

const (
	GateKillSwitch Gate = "kill_switch"
	GateValidation Gate = "validation"
	GatePrice      Gate = "price"
	GateRisk       Gate = "risk"
	GateBroker     Gate = "broker"
	GateLedger     Gate = "ledger"
)

// ExecutionError terminal failure of one execution attempt.
type ExecutionError struct {
	Kind ErrorKind
	Gate Gate
	Err  error
}

// NewExecutionError wraps err with its kind and gate.
func NewExecutionError(kind ErrorKind, gate Gate, err error) *ExecutionError {
	return &ExecutionError{Kind: kind, Gate: gate, Err: err}
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s error at %s gate: %v", e.Kind, e.Gate, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of an execution error, or empty string.
func KindOf(err error) ErrorKind {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Kind
	}
	return ""
}
