package pricer

import (
	"context"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/sigtrader/internal/domain"
	"github.com/vadiminshakov/sigtrader/pkg/retrier"
)

type (
	quoteFunc   func(symbol string) (*finance.Quote, error)
	historyFunc func(symbol string, start, end time.Time) ([]decimal.Decimal, error)
)

// YahooPricer quotes equities from Yahoo Finance.
type YahooPricer struct {
	quote   quoteFunc
	history historyFunc
	retrier *retrier.Retrier
	now     func() time.Time
}

// NewYahooPricer creates a Yahoo Finance pricer.
func NewYahooPricer() *YahooPricer {
	return newYahooPricer(quote.Get, chartCloses)
}

func newYahooPricer(q quoteFunc, h historyFunc) *YahooPricer {
	return &YahooPricer{
		quote:   q,
		history: h,
		retrier: retrier.New(
			retrier.WithMaxRetries(2),
			retrier.WithInitialInterval(300*time.Millisecond),
			retrier.WithRetryIf(retryable),
		),
		now: time.Now,
	}
}

func (p *YahooPricer) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	d, err := p.QuoteDetail(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Last, nil
}

// QuoteDetail returns the last price, short name and change against the previous close.
func (p *YahooPricer) QuoteDetail(ctx context.Context, symbol string) (domain.QuoteDetail, error) {
	symbol = domain.NormalizeSymbol(symbol)

	return retrier.DoWithData(p.retrier, ctx, func(ctx context.Context) (domain.QuoteDetail, error) {
		if err := ctx.Err(); err != nil {
			return domain.QuoteDetail{}, err
		}

		q, err := p.quote(symbol)
		if err != nil {
			return domain.QuoteDetail{}, errors.Wrapf(err, "yahoo quote %s", symbol)
		}
		if q == nil {
			return domain.QuoteDetail{}, noPrice(symbol)
		}

		last, err := positive(symbol, decimal.NewFromFloat(q.RegularMarketPrice))
		if err != nil {
			return domain.QuoteDetail{}, err
		}

		change := decimal.Zero
		if q.RegularMarketPreviousClose > 0 {
			prev := decimal.NewFromFloat(q.RegularMarketPreviousClose)
			change = last.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(2)
		}

		name := q.ShortName
		if name == "" {
			name = symbol
		}

		return domain.QuoteDetail{Symbol: symbol, Name: name, Last: last, ChangePercent: change}, nil
	})
}

// History returns daily closes for the last days calendar days.
func (p *YahooPricer) History(ctx context.Context, symbol string, days int) ([]decimal.Decimal, error) {
	symbol = domain.NormalizeSymbol(symbol)
	end := p.now()
	start := end.AddDate(0, 0, -days)

	return retrier.DoWithData(p.retrier, ctx, func(ctx context.Context) ([]decimal.Decimal, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		closes, err := p.history(symbol, start, end)
		if err != nil {
			return nil, errors.Wrapf(err, "yahoo history %s", symbol)
		}
		if len(closes) == 0 {
			return nil, noPrice(symbol)
		}
		return closes, nil
	})
}

func chartCloses(symbol string, start, end time.Time) ([]decimal.Decimal, error) {
	iter := chart.Get(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})

	closes := make([]decimal.Decimal, 0)
	for iter.Next() {
		closes = append(closes, iter.Bar().Close)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return closes, nil
}
