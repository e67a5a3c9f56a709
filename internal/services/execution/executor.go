// Package execution runs paper orders through the kill switch, validation,
// risk, broker and ledger gates.
package execution

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/sigtrader/internal/domain"
	"github.com/vadiminshakov/sigtrader/internal/metrics"
	"github.com/vadiminshakov/sigtrader/internal/services/notifier"
	"github.com/vadiminshakov/sigtrader/internal/services/positions"
	"github.com/vadiminshakov/sigtrader/internal/services/pricer"
	"github.com/vadiminshakov/sigtrader/internal/services/risk"
	"github.com/vadiminshakov/sigtrader/internal/services/state"
)

// DefaultMaxTradeAmount notional cap per signal when neither the signal nor config sets one.
var DefaultMaxTradeAmount = decimal.NewFromInt(500)

// Ledger durable trade journal with keyed flags.
type Ledger interface {
	Append(ctx context.Context, trade domain.TradeRecord) (uint64, error)
	Trades(ctx context.Context) ([]domain.TradeRecord, error)
	Flag(ctx context.Context, key string) (string, bool, error)
	SetFlag(ctx context.Context, key, value string) error
}

// Broker places orders.
type Broker interface {
	SubmitOrder(ctx context.Context, symbol string, side domain.Side, qty int64) (domain.OrderAck, error)
}

// DecisionRecorder keeps an audit trail of signal decisions.
type DecisionRecorder interface {
	Save(event domain.DecisionEvent) error
}

// SnapshotRecorder keeps portfolio snapshots taken after each trade.
type SnapshotRecorder interface {
	Save(snapshot domain.PortfolioSnapshot) error
}

// Config execution limits.
type Config struct {
	Limits risk.Limits
	// MaxTradeAmount notional cap for signal-sized orders; zero means DefaultMaxTradeAmount.
	MaxTradeAmount decimal.Decimal
}

// Executor serializes executions so that exposure reads and ledger appends
// never interleave between two requests.
type Executor struct {
	mu sync.Mutex

	cfg       Config
	ledger    Ledger
	positions *positions.Aggregator
	broker    Broker
	quotes    pricer.Pricer
	notifier  notifier.Notifier
	decisions DecisionRecorder
	snapshots SnapshotRecorder
	metrics   *metrics.Registry
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures optional collaborators.
type Option func(*Executor)

func WithNotifier(n notifier.Notifier) Option {
	return func(e *Executor) {
		if n != nil {
			e.notifier = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithMetrics(m *metrics.Registry) Option {
	return func(e *Executor) { e.metrics = m }
}

func WithDecisionRecorder(r DecisionRecorder) Option {
	return func(e *Executor) { e.decisions = r }
}

func WithSnapshotRecorder(r SnapshotRecorder) Option {
	return func(e *Executor) { e.snapshots = r }
}

// WithClock overrides the trade timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// NewExecutor creates an executor.
func NewExecutor(cfg Config, ledger Ledger, broker Broker, quotes pricer.Pricer, opts ...Option) *Executor {
	e := &Executor{
		cfg:       cfg,
		ledger:    ledger,
		positions: positions.NewAggregator(ledger),
		broker:    broker,
		quotes:    quotes,
		notifier:  notifier.Nop{},
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Positions returns the aggregator over the executor's ledger.
func (e *Executor) Positions() *positions.Aggregator {
	return e.positions
}

// Limits returns the configured exposure limits.
func (e *Executor) Limits() risk.Limits {
	return e.cfg.Limits
}

type request struct {
	order domain.Order
	// maxNotional when set, quantity is derived from the resolved price.
	maxNotional *decimal.Decimal
}

// Execute runs an order through every gate. The first failing gate aborts
// the execution and nothing is written to the ledger.
func (e *Executor) Execute(ctx context.Context, order domain.Order) (domain.ExecutionResult, error) {
	res, err := e.executeSerialized(ctx, request{order: order})
	if err != nil {
		return domain.ExecutionResult{}, err
	}
	e.notify(ctx, executionMessage(res, order.Note))
	return res, nil
}

func (e *Executor) executeSerialized(ctx context.Context, req request) (domain.ExecutionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.execute(ctx, req)
}

// execute must be called with e.mu held.
func (e *Executor) execute(ctx context.Context, req request) (res domain.ExecutionResult, err error) {
	order := req.order
	order.Symbol = domain.NormalizeSymbol(order.Symbol)

	started := time.Now()
	defer func() {
		e.metrics.ObserveExecution(order.Side.String(), resultLabel(err), time.Since(started))
		if err != nil {
			e.logger.Warn("execution rejected",
				zap.String("symbol", order.Symbol),
				zap.String("side", order.Side.String()),
				zap.Int64("qty", order.Quantity),
				zap.Error(err))
		}
	}()

	if order.Side == domain.SideBuy {
		on, err := state.KillSwitchOn(ctx, e.ledger)
		if err != nil {
			return res, domain.NewExecutionError(domain.KindStorage, domain.GateKillSwitch, err)
		}
		if on {
			return res, domain.NewExecutionError(domain.KindPolicy, domain.GateKillSwitch, domain.ErrKillSwitchOn)
		}
	}

	if err := validateOrder(order, req.maxNotional == nil); err != nil {
		return res, domain.NewExecutionError(domain.KindValidation, domain.GateValidation, err)
	}

	price, err := e.resolvePrice(ctx, order)
	if err != nil {
		return res, err
	}

	if req.maxNotional != nil {
		order.Quantity = SizeQuantity(*req.maxNotional, price)
	}
	notional := price.Mul(decimal.NewFromInt(order.Quantity))

	if order.Side == domain.SideBuy {
		exposure, err := e.positions.ExposureValue(ctx)
		if err != nil {
			return res, domain.NewExecutionError(domain.KindStorage, domain.GateRisk, err)
		}
		if !e.cfg.Limits.Allows(exposure, notional) {
			return res, domain.NewExecutionError(domain.KindPolicy, domain.GateRisk,
				errors.Wrapf(domain.ErrExposureLimit, "exposure %s + %s exceeds %s",
					exposure.StringFixed(2), notional.StringFixed(2), e.cfg.Limits.Ceiling().StringFixed(2)))
		}
	}

	trade, err := domain.NewTradeRecord(e.now(), order.Symbol, order.Side, order.Quantity, price, order.Note)
	if err != nil {
		return res, domain.NewExecutionError(domain.KindValidation, domain.GateValidation, err)
	}

	ack, err := e.broker.SubmitOrder(ctx, order.Symbol, order.Side, order.Quantity)
	if err != nil {
		return res, domain.NewExecutionError(domain.KindUpstream, domain.GateBroker, errors.Wrap(err, "submit order"))
	}

	seq, err := e.ledger.Append(ctx, trade)
	if err != nil {
		e.logger.Error("order accepted but trade was not recorded",
			zap.String("order_id", ack.ID),
			zap.String("symbol", order.Symbol),
			zap.Error(err))
		return res, domain.NewExecutionError(domain.KindStorage, domain.GateLedger, errors.Wrap(err, "append trade"))
	}
	trade.Seq = seq

	e.logger.Info("trade executed",
		zap.Uint64("seq", seq),
		zap.String("order_id", ack.ID),
		zap.String("symbol", trade.Symbol),
		zap.String("side", trade.Side.String()),
		zap.Int64("qty", trade.Quantity),
		zap.String("price", trade.Price.String()))

	e.afterAppend(ctx, trade)

	return domain.ExecutionResult{
		Quantity: order.Quantity,
		Price:    price,
		Order:    ack,
		Trade:    trade,
	}, nil
}

func validateOrder(order domain.Order, checkQuantity bool) error {
	if order.Symbol == "" {
		return errors.Wrap(domain.ErrInvalidSymbol, "symbol is required")
	}
	if order.Side != domain.SideBuy && order.Side != domain.SideSell {
		return errors.Wrapf(domain.ErrInvalidSide, "side must be 'buy' or 'sell', got %q", order.Side)
	}
	if checkQuantity && order.Quantity <= 0 {
		return errors.Wrapf(domain.ErrInvalidQuantity, "quantity must be positive, got %d", order.Quantity)
	}
	if checkQuantity && order.Quantity > domain.MaxQuantity {
		return errors.Wrapf(domain.ErrInvalidQuantity, "quantity must not exceed %d, got %d", domain.MaxQuantity, order.Quantity)
	}
	if order.Price != nil && !order.Price.IsPositive() {
		return errors.Wrapf(domain.ErrInvalidPrice, "price must be positive, got %s", order.Price.String())
	}
	return nil
}

func (e *Executor) resolvePrice(ctx context.Context, order domain.Order) (decimal.Decimal, error) {
	if order.Price != nil {
		return *order.Price, nil
	}

	price, err := e.quotes.LastPrice(ctx, order.Symbol)
	switch {
	case errors.Is(err, domain.ErrNoPrice):
		return decimal.Zero, domain.NewExecutionError(domain.KindValidation, domain.GatePrice, err)
	case err != nil:
		return decimal.Zero, domain.NewExecutionError(domain.KindUpstream, domain.GatePrice, errors.Wrap(err, "quote"))
	case !price.IsPositive():
		return decimal.Zero, domain.NewExecutionError(domain.KindValidation, domain.GatePrice,
			errors.Wrapf(domain.ErrNoPrice, "quote for %s is %s", order.Symbol, price.String()))
	}
	return price, nil
}

// SizeQuantity whole shares affordable with maxNotional at price, at least one.
func SizeQuantity(maxNotional, price decimal.Decimal) int64 {
	if !price.IsPositive() {
		return 1
	}
	qty := maxNotional.Div(price).Floor()
	if qty.LessThan(decimal.NewFromInt(1)) {
		return 1
	}
	if qty.GreaterThan(decimal.NewFromInt(domain.MaxQuantity)) {
		return domain.MaxQuantity
	}
	return qty.IntPart()
}

func (e *Executor) afterAppend(ctx context.Context, trade domain.TradeRecord) {
	buys, sells, err := e.positions.BuysAndSells(ctx)
	if err != nil {
		e.logger.Warn("failed to read exposure after trade", zap.Error(err))
		return
	}
	exposure, _ := buys.Float64()
	e.metrics.SetExposure(exposure)

	if e.snapshots == nil {
		return
	}
	open, err := e.positions.OpenPositions(ctx)
	if err != nil {
		e.logger.Warn("failed to read positions after trade", zap.Error(err))
		return
	}
	snapshot := domain.PortfolioSnapshot{
		Timestamp:     trade.Time,
		TradeSeq:      trade.Seq,
		Symbol:        trade.Symbol,
		Side:          trade.Side,
		Cash:          e.cfg.Limits.BaseCapital.Sub(buys).Add(sells),
		Exposure:      buys,
		OpenPositions: len(open),
	}
	if err := e.snapshots.Save(snapshot); err != nil {
		e.logger.Warn("failed to save portfolio snapshot", zap.Error(err))
	}
}

func resultLabel(err error) string {
	switch domain.KindOf(err) {
	case "":
		if err != nil {
			return metrics.ResultFailed
		}
		return metrics.ResultOK
	case domain.KindValidation, domain.KindPolicy:
		return metrics.ResultRejected
	default:
		return metrics.ResultFailed
	}
}
