package internal

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vadiminshakov/sigtrader/config"
	"github.com/vadiminshakov/sigtrader/internal/clients"
	"github.com/vadiminshakov/sigtrader/internal/services/pricer"
	"github.com/vadiminshakov/sigtrader/internal/storage/ledger"
)

// quoteProvider is the pricer the pipeline and the HTTP views read quotes from.
type quoteProvider interface {
	pricer.Pricer
	pricer.QuoteDetailer
	pricer.HistoryProvider
}

// newQuoteProvider creates the configured market data source behind a circuit breaker.
// This is the single point of truth for dispatching to provider-specific implementations.
func newQuoteProvider(ctx context.Context, cfg config.QuotesConfig, logger *zap.Logger) (quoteProvider, error) {
	var next pricer.Pricer
	switch cfg.Provider {
	case config.QuotesYahoo:
		next = pricer.NewYahooPricer()
	case config.QuotesBinance:
		next = pricer.NewBinancePricer(clients.NewBinanceClient())
	case config.QuotesBybit:
		next = pricer.NewBybitPricer(clients.NewBybitClient())
	case config.QuotesHyperliquid:
		next = pricer.NewHyperliquidPricer(clients.NewHyperliquidInfo(ctx))
	case config.QuotesStatic:
		next = pricer.NewStaticPricer(cfg.Static)
	default:
		return nil, fmt.Errorf("unsupported quotes provider: %q", cfg.Provider)
	}
	return pricer.NewBreakerPricer(cfg.Provider, next, logger), nil
}

// newLedger opens the configured ledger backend.
func newLedger(cfg config.LedgerConfig) (ledger.Store, error) {
	switch cfg.Backend {
	case config.LedgerBackendWAL:
		return ledger.NewWALStore(cfg.Dir)
	case config.LedgerBackendSQLite:
		return ledger.NewSQLStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported ledger backend: %q", cfg.Backend)
	}
}
