package pricer

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	hyperliquid "github.com/sonirico/go-hyperliquid"

	"github.com/vadiminshakov/sigtrader/internal/domain"
	"github.com/vadiminshakov/sigtrader/pkg/retrier"
)

type (
	midsFunc    func(ctx context.Context) (map[string]string, error)
	candlesFunc func(ctx context.Context, coin string, startMs, endMs int64) ([]string, error)
)

// HyperliquidPricer quotes mid prices from the Hyperliquid public Info API.
// Symbols are base coins such as BTC or ETH.
type HyperliquidPricer struct {
	mids    midsFunc
	candles candlesFunc
	retrier *retrier.Retrier
	now     func() time.Time
}

func NewHyperliquidPricer(info *hyperliquid.Info) *HyperliquidPricer {
	candles := func(ctx context.Context, coin string, startMs, endMs int64) ([]string, error) {
		cs, err := info.CandlesSnapshot(ctx, coin, "1d", startMs, endMs)
		if err != nil {
			return nil, err
		}
		closes := make([]string, 0, len(cs))
		for _, c := range cs {
			closes = append(closes, c.Close)
		}
		return closes, nil
	}
	return newHyperliquidPricer(info.AllMids, candles)
}

func newHyperliquidPricer(mids midsFunc, candles candlesFunc) *HyperliquidPricer {
	return &HyperliquidPricer{
		mids:    mids,
		candles: candles,
		retrier: retrier.New(
			retrier.WithMaxRetries(2),
			retrier.WithInitialInterval(200*time.Millisecond),
			retrier.WithRetryIf(retryable),
		),
		now: time.Now,
	}
}

func (p *HyperliquidPricer) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	coin := domain.NormalizeSymbol(symbol)

	return retrier.DoWithData(p.retrier, ctx, func(ctx context.Context) (decimal.Decimal, error) {
		mids, err := p.mids(ctx)
		if err != nil {
			return decimal.Zero, errors.Wrap(err, "hyperliquid all mids")
		}
		raw, ok := mids[coin]
		if !ok || raw == "" {
			return decimal.Zero, noPrice(coin)
		}
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, errors.Wrapf(domain.ErrNoPrice, "parse hyperliquid mid %q", raw)
		}
		return positive(coin, price)
	})
}

// History returns daily closes for the last days days, oldest first.
func (p *HyperliquidPricer) History(ctx context.Context, symbol string, days int) ([]decimal.Decimal, error) {
	coin := domain.NormalizeSymbol(symbol)
	end := p.now()
	start := end.AddDate(0, 0, -max(days, 1))

	return retrier.DoWithData(p.retrier, ctx, func(ctx context.Context) ([]decimal.Decimal, error) {
		raw, err := p.candles(ctx, coin, start.UnixMilli(), end.UnixMilli())
		if err != nil {
			return nil, errors.Wrapf(err, "hyperliquid candles %s", coin)
		}
		if len(raw) == 0 {
			return nil, noPrice(coin)
		}
		return parseCloses("hyperliquid", raw)
	})
}
