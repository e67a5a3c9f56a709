package domain

// DefaultWatchlist symbols shown before the user edits the list.
var DefaultWatchlist = []string{"AAPL", "TSLA"}

// Watchlist ordered set of unique symbols.
type Watchlist []string

// NewWatchlist normalizes symbols and drops blanks and duplicates, keeping order.
func NewWatchlist(symbols []string) Watchlist {
	seen := make(map[string]struct{}, len(symbols))
	out := make(Watchlist, 0, len(symbols))
	for _, s := range symbols {
		s = NormalizeSymbol(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Add appends a symbol if it is not present yet.
func (w Watchlist) Add(symbol string) Watchlist {
	return NewWatchlist(append(append(Watchlist{}, w...), symbol))
}

// Remove drops a symbol.
func (w Watchlist) Remove(symbol string) Watchlist {
	symbol = NormalizeSymbol(symbol)
	out := make(Watchlist, 0, len(w))
	for _, s := range w {
		if s != symbol {
			out = append(out, s)
		}
	}
	return out
}
