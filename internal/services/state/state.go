// Package state reads and writes the keyed settings persisted next to the
// trade ledger: the kill switch and the watchlist.
package state

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/sigtrader/internal/domain"
)

const (
	KillSwitchKey = "kill_switch"
	WatchlistKey  = "watchlist"

	flagOn  = "1"
	flagOff = "0"
)

type flagStore interface {
	Flag(ctx context.Context, key string) (string, bool, error)
	SetFlag(ctx context.Context, key, value string) error
}

// KillSwitchOn reports whether buy-side execution is halted. A missing flag means off.
func KillSwitchOn(ctx context.Context, store flagStore) (bool, error) {
	v, ok, err := store.Flag(ctx, KillSwitchKey)
	if err != nil {
		return false, errors.Wrap(err, "read kill switch")
	}
	return ok && v == flagOn, nil
}

// SetKillSwitch persists the kill switch state.
func SetKillSwitch(ctx context.Context, store flagStore, on bool) error {
	v := flagOff
	if on {
		v = flagOn
	}
	return errors.Wrap(store.SetFlag(ctx, KillSwitchKey, v), "write kill switch")
}

// Watchlist returns the stored watchlist, or the default one if none was saved.
func Watchlist(ctx context.Context, store flagStore) (domain.Watchlist, error) {
	raw, ok, err := store.Flag(ctx, WatchlistKey)
	if err != nil {
		return nil, errors.Wrap(err, "read watchlist")
	}
	if !ok {
		return domain.NewWatchlist(domain.DefaultWatchlist), nil
	}

	var symbols []string
	if err := json.Unmarshal([]byte(raw), &symbols); err != nil {
		// corrupted value is treated as an empty list
		return domain.Watchlist{}, nil
	}
	return domain.NewWatchlist(symbols), nil
}

// SetWatchlist persists the watchlist as a JSON array.
func SetWatchlist(ctx context.Context, store flagStore, w domain.Watchlist) error {
	if w == nil {
		w = domain.Watchlist{}
	}
	payload, err := json.Marshal(w)
	if err != nil {
		return errors.Wrap(err, "marshal watchlist")
	}
	return errors.Wrap(store.SetFlag(ctx, WatchlistKey, string(payload)), "write watchlist")
}
