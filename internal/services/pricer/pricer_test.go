package pricer

import (
	"context"
	"testing"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/sigtrader/internal/domain"
	"github.com/vadiminshakov/sigtrader/pkg/retrier"
)

func TestStaticPricer(t *testing.T) {
	ctx := context.Background()
	p := NewStaticPricer(map[string]decimal.Decimal{
		"aapl": decimal.NewFromInt(190),
		"ZERO": decimal.Zero,
	})

	price, err := p.LastPrice(ctx, " AAPL ")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(190).Equal(price))

	_, err = p.LastPrice(ctx, "ZERO")
	assert.ErrorIs(t, err, domain.ErrNoPrice)

	_, err = p.LastPrice(ctx, "MSFT")
	assert.ErrorIs(t, err, domain.ErrNoPrice)

	p.Set("msft", decimal.NewFromInt(400))
	price, err = p.LastPrice(ctx, "MSFT")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(400).Equal(price))
}

func TestDetail_Fallback(t *testing.T) {
	p := NewStaticPricer(map[string]decimal.Decimal{"TSLA": decimal.NewFromInt(250)})

	d, err := Detail(context.Background(), p, "tsla")
	require.NoError(t, err)
	assert.Equal(t, "TSLA", d.Symbol)
	assert.Equal(t, "TSLA", d.Name)
	assert.True(t, d.ChangePercent.IsZero())

	prices := Prices(context.Background(), p, []string{"TSLA", "NOPE"})
	assert.Len(t, prices, 1)
	assert.Contains(t, prices, "TSLA")
}

func fastYahoo(q quoteFunc, h historyFunc) *YahooPricer {
	p := newYahooPricer(q, h)
	p.retrier = retrier.New(
		retrier.WithMaxRetries(2),
		retrier.WithInitialInterval(time.Millisecond),
		retrier.WithRetryIf(retryable),
	)
	return p
}

func TestYahooPricer_QuoteDetail(t *testing.T) {
	ctx := context.Background()

	t.Run("computes change against previous close", func(t *testing.T) {
		p := fastYahoo(func(symbol string) (*finance.Quote, error) {
			assert.Equal(t, "AAPL", symbol)
			q := &finance.Quote{ShortName: "Apple Inc."}
			q.RegularMarketPrice = 110
			q.RegularMarketPreviousClose = 100
			return q, nil
		}, nil)

		d, err := p.QuoteDetail(ctx, "aapl")
		require.NoError(t, err)
		assert.Equal(t, "Apple Inc.", d.Name)
		assert.Equal(t, "110", d.Last.String())
		assert.Equal(t, "10", d.ChangePercent.String())
	})

	t.Run("unknown symbol is not retried", func(t *testing.T) {
		calls := 0
		p := fastYahoo(func(string) (*finance.Quote, error) {
			calls++
			return nil, nil
		}, nil)

		_, err := p.LastPrice(ctx, "NOPE")
		assert.ErrorIs(t, err, domain.ErrNoPrice)
		assert.Equal(t, 1, calls)
	})

	t.Run("transport errors are retried", func(t *testing.T) {
		calls := 0
		p := fastYahoo(func(string) (*finance.Quote, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("timeout")
			}
			q := &finance.Quote{}
			q.RegularMarketPrice = 42
			return q, nil
		}, nil)

		price, err := p.LastPrice(ctx, "AAPL")
		require.NoError(t, err)
		assert.Equal(t, "42", price.String())
		assert.Equal(t, 3, calls)
	})
}

func TestYahooPricer_History(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	p := fastYahoo(nil, func(symbol string, start, end time.Time) ([]decimal.Decimal, error) {
		assert.Equal(t, now, end)
		assert.Equal(t, now.AddDate(0, 0, -90), start)
		return []decimal.Decimal{decimal.NewFromInt(1), decimal.NewFromInt(2)}, nil
	})
	p.now = func() time.Time { return now }

	closes, err := p.History(context.Background(), "AAPL", 90)
	require.NoError(t, err)
	assert.Len(t, closes, 2)
}

type flakyPricer struct {
	err   error
	calls int
}

func (f *flakyPricer) LastPrice(context.Context, string) (decimal.Decimal, error) {
	f.calls++
	return decimal.Zero, f.err
}

func TestBreakerPricer(t *testing.T) {
	ctx := context.Background()

	t.Run("opens after consecutive failures", func(t *testing.T) {
		next := &flakyPricer{err: errors.New("connection refused")}
		p := NewBreakerPricer("test", next, nil)

		for i := 0; i < breakerFailures; i++ {
			_, err := p.LastPrice(ctx, "AAPL")
			require.Error(t, err)
		}
		_, err := p.LastPrice(ctx, "AAPL")
		assert.ErrorIs(t, err, gobreaker.ErrOpenState)
		assert.Equal(t, breakerFailures, next.calls)
	})

	t.Run("missing prices do not trip", func(t *testing.T) {
		next := &flakyPricer{err: noPrice("AAPL")}
		p := NewBreakerPricer("test", next, nil)

		for i := 0; i < breakerFailures*2; i++ {
			_, err := p.LastPrice(ctx, "AAPL")
			assert.ErrorIs(t, err, domain.ErrNoPrice)
		}
		assert.Equal(t, breakerFailures*2, next.calls)
	})
}
