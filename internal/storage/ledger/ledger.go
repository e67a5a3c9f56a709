// Package ledger persists the append-only trade journal and small keyed state
// (kill switch, watchlist). Positions and exposure are never stored; they are
// derived from the trades on every read.
package ledger

import (
	"context"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/sigtrader/internal/domain"
)

const (
	// DefaultRecentLimit number of trades returned when no limit is given.
	DefaultRecentLimit = 100
	// MaxRecentLimit upper bound for Recent.
	MaxRecentLimit = 500
)

// ErrClosed is returned by a store after Close.
var ErrClosed = errors.New("ledger store is closed")

// Store durable trade ledger with keyed state.
type Store interface {
	// Append writes a trade and returns its assigned sequence id.
	Append(ctx context.Context, trade domain.TradeRecord) (uint64, error)
	// Trades returns every trade in sequence order.
	Trades(ctx context.Context) ([]domain.TradeRecord, error)
	// Recent returns up to limit trades, newest first.
	Recent(ctx context.Context, limit int) ([]domain.TradeRecord, error)
	// Flag returns the value stored under key.
	Flag(ctx context.Context, key string) (value string, ok bool, err error)
	// SetFlag stores value under key, replacing any previous value.
	SetFlag(ctx context.Context, key, value string) error
	Close() error
}

// ClampLimit bounds a requested trade listing size to [1, MaxRecentLimit].
func ClampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxRecentLimit {
		return MaxRecentLimit
	}
	return limit
}

// newestFirst returns the last limit trades in reverse order.
func newestFirst(trades []domain.TradeRecord, limit int) []domain.TradeRecord {
	limit = ClampLimit(limit)
	if limit > len(trades) {
		limit = len(trades)
	}
	out := make([]domain.TradeRecord, 0, limit)
	for i := len(trades) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, trades[i])
	}
	return out
}
