package pricer

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/sigtrader/internal/domain"
	"github.com/vadiminshakov/sigtrader/pkg/retrier"
)

const (
	binanceInvalidSymbol = -1121
	binanceMaxKlines     = 1000
)

// BinancePricer fetches real market prices from Binance public API
// without requiring authentication. Symbols are exchange tickers such as BTCUSDT.
type BinancePricer struct {
	client  *binance.Client
	retrier *retrier.Retrier
}

// NewBinancePricer creates a pricer over the Binance public API.
func NewBinancePricer(client *binance.Client) *BinancePricer {
	if client == nil {
		client = binance.NewClient("", "")
	}
	return &BinancePricer{
		client: client,
		retrier: retrier.New(
			retrier.WithMaxRetries(2),
			retrier.WithInitialInterval(200*time.Millisecond),
			retrier.WithRetryIf(retryable),
		),
	}
}

// LastPrice fetches the current market price from Binance public API.
func (p *BinancePricer) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = domain.NormalizeSymbol(symbol)

	return retrier.DoWithData(p.retrier, ctx, func(ctx context.Context) (decimal.Decimal, error) {
		prices, err := p.client.NewListPricesService().Symbol(symbol).Do(ctx)
		if err != nil {
			return decimal.Zero, binanceErr(err, symbol, "list prices")
		}
		if len(prices) == 0 {
			return decimal.Zero, noPrice(symbol)
		}

		price, err := decimal.NewFromString(prices[0].Price)
		if err != nil {
			return decimal.Zero, errors.Wrapf(domain.ErrNoPrice, "parse binance price %q", prices[0].Price)
		}
		return positive(symbol, price)
	})
}

// History returns up to days daily closes, oldest first. Binance caps one request at 1000 candles.
func (p *BinancePricer) History(ctx context.Context, symbol string, days int) ([]decimal.Decimal, error) {
	symbol = domain.NormalizeSymbol(symbol)
	limit := min(max(days, 1), binanceMaxKlines)

	return retrier.DoWithData(p.retrier, ctx, func(ctx context.Context) ([]decimal.Decimal, error) {
		klines, err := p.client.NewKlinesService().Symbol(symbol).Interval("1d").Limit(limit).Do(ctx)
		if err != nil {
			return nil, binanceErr(err, symbol, "klines")
		}
		if len(klines) == 0 {
			return nil, noPrice(symbol)
		}

		closes := make([]decimal.Decimal, 0, len(klines))
		for i, k := range klines {
			c, err := decimal.NewFromString(k.Close)
			if err != nil {
				return nil, errors.Wrapf(domain.ErrNoPrice, "parse binance close %q at %d", k.Close, i)
			}
			closes = append(closes, c)
		}
		return closes, nil
	})
}

// binanceErr reports an unknown ticker as a missing price so it is not retried.
func binanceErr(err error, symbol, call string) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) && apiErr.Code == binanceInvalidSymbol {
		return errors.Wrapf(domain.ErrNoPrice, "binance: %s (%s)", apiErr.Message, symbol)
	}
	return errors.Wrapf(err, "binance %s %s", call, symbol)
}
