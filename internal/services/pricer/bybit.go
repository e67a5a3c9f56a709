package pricer

import (
	"context"
	"slices"
	"time"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/sigtrader/internal/domain"
	"github.com/vadiminshakov/sigtrader/pkg/retrier"
)

const bybitMaxKlines = 1000

type (
	// bybitTickerFunc returns the raw last price, "" when Bybit lists no such ticker.
	bybitTickerFunc func(symbol string) (string, error)
	// bybitKlineFunc returns raw daily closes, newest first as Bybit sends them.
	bybitKlineFunc func(symbol string, limit int) ([]string, error)
)

// BybitPricer quotes spot tickers (BTCUSDT, ETHUSDT) from the Bybit V5 public market API.
type BybitPricer struct {
	ticker  bybitTickerFunc
	klines  bybitKlineFunc
	retrier *retrier.Retrier
}

func NewBybitPricer(client *bybit.Client) *BybitPricer {
	if client == nil {
		client = bybit.NewClient()
	}
	market := client.V5().Market()

	ticker := func(symbol string) (string, error) {
		sym := bybit.SymbolV5(symbol)
		res, err := market.GetTickers(bybit.V5GetTickersParam{
			Category: bybit.CategoryV5Spot,
			Symbol:   &sym,
		})
		if err != nil {
			return "", err
		}
		if res == nil || len(res.Result.Spot.List) == 0 {
			return "", nil
		}
		return res.Result.Spot.List[0].LastPrice, nil
	}

	klines := func(symbol string, limit int) ([]string, error) {
		res, err := market.GetKline(bybit.V5GetKlineParam{
			Category: bybit.CategoryV5Spot,
			Symbol:   bybit.SymbolV5(symbol),
			Interval: bybit.Interval("D"),
			Limit:    &limit,
		})
		if err != nil {
			return nil, err
		}
		if res == nil {
			return nil, nil
		}
		closes := make([]string, 0, len(res.Result.List))
		for _, k := range res.Result.List {
			closes = append(closes, k.Close)
		}
		return closes, nil
	}

	return newBybitPricer(ticker, klines)
}

func newBybitPricer(ticker bybitTickerFunc, klines bybitKlineFunc) *BybitPricer {
	return &BybitPricer{
		ticker: ticker,
		klines: klines,
		retrier: retrier.New(
			retrier.WithMaxRetries(2),
			retrier.WithInitialInterval(200*time.Millisecond),
			retrier.WithRetryIf(retryable),
		),
	}
}

func (p *BybitPricer) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = domain.NormalizeSymbol(symbol)

	return retrier.DoWithData(p.retrier, ctx, func(ctx context.Context) (decimal.Decimal, error) {
		if err := ctx.Err(); err != nil {
			return decimal.Zero, err
		}
		raw, err := p.ticker(symbol)
		if err != nil {
			return decimal.Zero, errors.Wrapf(err, "bybit tickers %s", symbol)
		}
		if raw == "" {
			return decimal.Zero, noPrice(symbol)
		}
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, errors.Wrapf(domain.ErrNoPrice, "parse bybit price %q", raw)
		}
		return positive(symbol, price)
	})
}

// History returns up to days daily closes, oldest first.
func (p *BybitPricer) History(ctx context.Context, symbol string, days int) ([]decimal.Decimal, error) {
	symbol = domain.NormalizeSymbol(symbol)
	limit := min(max(days, 1), bybitMaxKlines)

	return retrier.DoWithData(p.retrier, ctx, func(ctx context.Context) ([]decimal.Decimal, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := p.klines(symbol, limit)
		if err != nil {
			return nil, errors.Wrapf(err, "bybit klines %s", symbol)
		}
		if len(raw) == 0 {
			return nil, noPrice(symbol)
		}
		closes, err := parseCloses("bybit", raw)
		if err != nil {
			return nil, err
		}
		slices.Reverse(closes)
		return closes, nil
	})
}

func parseCloses(source string, raw []string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, 0, len(raw))
	for i, r := range raw {
		c, err := decimal.NewFromString(r)
		if err != nil {
			return nil, errors.Wrapf(domain.ErrNoPrice, "parse %s close %q at %d", source, r, i)
		}
		out = append(out, c)
	}
	return out, nil
}
