// Package positions derives holdings, exposure and account summaries by
// folding the trade ledger. Nothing here is cached; every call rereads the ledger.
package positions

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/sigtrader/internal/domain"
)

// TradeReader read side of the ledger.
type TradeReader interface {
	Trades(ctx context.Context) ([]domain.TradeRecord, error)
}

// Aggregator computes positions from the ledger.
type Aggregator struct {
	ledger TradeReader
}

// NewAggregator creates an aggregator over the ledger.
func NewAggregator(ledger TradeReader) *Aggregator {
	return &Aggregator{ledger: ledger}
}

type accumulator struct {
	net     int64
	buyQty  int64
	buyCost decimal.Decimal
}

// OpenPositions returns positions with a positive net quantity, sorted by symbol.
func (a *Aggregator) OpenPositions(ctx context.Context) ([]domain.Position, error) {
	trades, err := a.ledger.Trades(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load trades")
	}
	return Fold(trades)
}

// ExposureValue cumulative notional of all buy trades. Sells do not reduce it.
func (a *Aggregator) ExposureValue(ctx context.Context) (decimal.Decimal, error) {
	buys, _, err := a.BuysAndSells(ctx)
	return buys, err
}

// BuysAndSells cumulative buy and sell notionals.
func (a *Aggregator) BuysAndSells(ctx context.Context) (buys, sells decimal.Decimal, err error) {
	trades, err := a.ledger.Trades(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, errors.Wrap(err, "load trades")
	}

	buys, sells = decimal.Zero, decimal.Zero
	for _, t := range trades {
		if t.Side == domain.SideBuy {
			buys = buys.Add(t.Notional())
		} else {
			sells = sells.Add(t.Notional())
		}
	}
	return buys, sells, nil
}

// PositionViews values open positions at the given prices. A symbol without a
// quote shows a last price of zero.
func (a *Aggregator) PositionViews(ctx context.Context, prices map[string]decimal.Decimal) ([]domain.PositionView, error) {
	open, err := a.OpenPositions(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]domain.PositionView, 0, len(open))
	for _, p := range open {
		views = append(views, domain.NewPositionView(p, lastPrice(p.Symbol, prices)))
	}
	return views, nil
}

// Portfolio summarizes the book against the base capital.
func (a *Aggregator) Portfolio(ctx context.Context, baseCapital decimal.Decimal, prices map[string]decimal.Decimal) (domain.Portfolio, error) {
	buys, sells, err := a.BuysAndSells(ctx)
	if err != nil {
		return domain.Portfolio{}, err
	}
	open, err := a.OpenPositions(ctx)
	if err != nil {
		return domain.Portfolio{}, err
	}

	marketValue := decimal.Zero
	for _, p := range open {
		marketValue = marketValue.Add(p.MarketValue(lastPrice(p.Symbol, prices)))
	}
	return domain.NewPortfolio(baseCapital, buys, sells, marketValue), nil
}

// Fold reduces trades to open positions sorted by symbol. Average cost uses buy
// fills only, so sells never move it. A ledger whose running quantities leave the
// int64 range yields ErrQuantityOverflow rather than a wrapped position.
func Fold(trades []domain.TradeRecord) ([]domain.Position, error) {
	acc := make(map[string]*accumulator)
	for _, t := range trades {
		s, ok := acc[t.Symbol]
		if !ok {
			s = &accumulator{buyCost: decimal.Zero}
			acc[t.Symbol] = s
		}
		net, ok := addQty(s.net, t.SignedQuantity())
		if !ok {
			return nil, errors.Wrapf(domain.ErrQuantityOverflow, "%s at trade #%d", t.Symbol, t.Seq)
		}
		s.net = net
		if t.Side == domain.SideBuy {
			if s.buyQty, ok = addQty(s.buyQty, t.Quantity); !ok {
				return nil, errors.Wrapf(domain.ErrQuantityOverflow, "%s bought quantity at trade #%d", t.Symbol, t.Seq)
			}
			s.buyCost = s.buyCost.Add(t.Notional())
		}
	}

	out := make([]domain.Position, 0, len(acc))
	for symbol, s := range acc {
		if s.net <= 0 {
			continue
		}
		avg := decimal.Zero
		if s.buyQty > 0 {
			avg = s.buyCost.Div(decimal.NewFromInt(s.buyQty))
		}
		out = append(out, domain.Position{Symbol: symbol, NetQuantity: s.net, AverageCost: avg})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func addQty(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

// lastPrice is the quote for symbol, or zero when none is usable. An unquoted
// position contributes nothing to market value.
func lastPrice(symbol string, prices map[string]decimal.Decimal) decimal.Decimal {
	if last, ok := prices[symbol]; ok && last.IsPositive() {
		return last
	}
	return decimal.Zero
}
