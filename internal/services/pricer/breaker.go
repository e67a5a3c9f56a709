package pricer

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/vadiminshakov/sigtrader/internal/domain"
)

const (
	breakerFailures    = 5
	breakerOpenTimeout = 30 * time.Second
)

// BreakerPricer stops calling a failing provider for a while. Missing prices
// do not count as failures.
type BreakerPricer struct {
	next Pricer
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerPricer wraps next with a circuit breaker.
func NewBreakerPricer(name string, next Pricer, logger *zap.Logger) *BreakerPricer {
	if logger == nil {
		logger = zap.NewNop()
	}

	st := gobreaker.Settings{Name: name, Timeout: breakerOpenTimeout}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= breakerFailures }
	st.IsSuccessful = func(err error) bool { return err == nil || errors.Is(err, domain.ErrNoPrice) }
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		logger.Warn("quote provider breaker state changed",
			zap.String("provider", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()))
	}

	return &BreakerPricer{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

func (p *BreakerPricer) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	v, err := p.cb.Execute(func() (interface{}, error) {
		return p.next.LastPrice(ctx, symbol)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}

// QuoteDetail delegates to the wrapped provider through the breaker.
func (p *BreakerPricer) QuoteDetail(ctx context.Context, symbol string) (domain.QuoteDetail, error) {
	v, err := p.cb.Execute(func() (interface{}, error) {
		return Detail(ctx, p.next, symbol)
	})
	if err != nil {
		return domain.QuoteDetail{}, err
	}
	return v.(domain.QuoteDetail), nil
}

// History delegates when the wrapped provider keeps price history.
func (p *BreakerPricer) History(ctx context.Context, symbol string, days int) ([]decimal.Decimal, error) {
	h, ok := p.next.(HistoryProvider)
	if !ok {
		return nil, errors.Errorf("provider %s has no price history", p.cb.Name())
	}
	v, err := p.cb.Execute(func() (interface{}, error) {
		return h.History(ctx, symbol, days)
	})
	if err != nil {
		return nil, err
	}
	return v.([]decimal.Decimal), nil
}
