package pricer

import (
	"github.com/pkg/errors"

	"github.com/vadiminshakov/sigtrader/internal/domain"
)

func noPrice(symbol string) error {
	return errors.Wrapf(domain.ErrNoPrice, "symbol %s", symbol)
}

// retryable reports whether a provider error is worth another attempt.
func retryable(err error) bool {
	return !errors.Is(err, domain.ErrNoPrice)
}
