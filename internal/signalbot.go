package internal

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/sigtrader/config"
	"github.com/vadiminshakov/sigtrader/internal/domain"
	"github.com/vadiminshakov/sigtrader/internal/metrics"
	"github.com/vadiminshakov/sigtrader/internal/services/execution"
	"github.com/vadiminshakov/sigtrader/internal/services/notifier"
	"github.com/vadiminshakov/sigtrader/internal/services/state"
	"github.com/vadiminshakov/sigtrader/internal/services/strategy/rules"
	"github.com/vadiminshakov/sigtrader/internal/services/trader"
	"github.com/vadiminshakov/sigtrader/internal/storage/decisions"
	"github.com/vadiminshakov/sigtrader/internal/storage/ledger"
	"github.com/vadiminshakov/sigtrader/internal/storage/snapshots"
	"github.com/vadiminshakov/sigtrader/internal/web"
	"github.com/vadiminshakov/sigtrader/pkg/indicators"
)

// DefaultHistoryDays daily closes fetched to compute indicators for a scan.
const DefaultHistoryDays = 120

// SignalBot wires the paper trading pipeline to its stores and collaborators.
type SignalBot struct {
	Config    config.Config
	Executor  *execution.Executor
	Ledger    ledger.Store
	Quotes    quoteProvider
	Decisions *decisions.WALStore
	Snapshots *snapshots.WALStore
	Telegram  *notifier.Telegram
	Metrics   *metrics.Registry

	logger *zap.Logger
}

// NewSignalBot opens the stores and builds the executor.
func NewSignalBot(conf config.Config, logger *zap.Logger) (*SignalBot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	quotes, err := newQuoteProvider(context.Background(), conf.Quotes, logger.Named("quotes"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create quote provider")
	}

	store, err := newLedger(conf.Ledger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open ledger")
	}

	decisionStore, err := decisions.NewWALStore(conf.DecisionsDir)
	if err != nil {
		_ = store.Close()
		return nil, errors.Wrap(err, "failed to open decision store")
	}

	snapshotStore, err := snapshots.NewWALStore(conf.SnapshotsDir)
	if err != nil {
		_ = store.Close()
		_ = decisionStore.Close()
		return nil, errors.Wrap(err, "failed to open snapshot store")
	}

	tg := notifier.NewTelegram(conf.Telegram.BotToken, conf.Telegram.ChatID)
	reg := metrics.NewRegistry()

	exec := execution.NewExecutor(
		execution.Config{
			Limits:         conf.Limits(),
			MaxTradeAmount: conf.MaxTradeAmount,
		},
		store,
		trader.NewPaperBroker(logger.Named("broker")),
		quotes,
		execution.WithNotifier(tg),
		execution.WithLogger(logger.Named("execution")),
		execution.WithMetrics(reg),
		execution.WithDecisionRecorder(decisionStore),
		execution.WithSnapshotRecorder(snapshotStore),
	)

	return &SignalBot{
		Config:    conf,
		Executor:  exec,
		Ledger:    store,
		Quotes:    quotes,
		Decisions: decisionStore,
		Snapshots: snapshotStore,
		Telegram:  tg,
		Metrics:   reg,
		logger:    logger,
	}, nil
}

// Close closes the stores.
func (b *SignalBot) Close() error {
	var errs []string
	for name, c := range map[string]interface{ Close() error }{
		"ledger":    b.Ledger,
		"decisions": b.Decisions,
		"snapshots": b.Snapshots,
	} {
		if err := c.Close(); err != nil {
			errs = append(errs, name+": "+err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.Errorf("close stores: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Server builds the HTTP front.
func (b *SignalBot) Server() (*web.Server, error) {
	return web.NewServer(web.Config{
		Addr:          b.Config.HTTP.Addr,
		Executor:      b.Executor,
		Ledger:        b.Ledger,
		Quotes:        b.Quotes,
		Decisions:     b.Decisions,
		Snapshots:     b.Snapshots,
		Telegram:      b.Telegram,
		Metrics:       b.Metrics,
		Logger:        b.logger,
		WebhookSecret: b.Config.WebhookSecret,
		HMACSecret:    b.Config.HMACSecret,
	})
}

// Serve runs the HTTP server, with ACME TLS when a domain is configured, and
// the optional watchlist scan loop until ctx is cancelled.
func (b *SignalBot) Serve(ctx context.Context, scanInterval time.Duration) error {
	srv, err := b.Server()
	if err != nil {
		return err
	}

	if scanInterval > 0 {
		go func() {
			if err := b.Scan(ctx, scanInterval); err != nil && !errors.Is(err, context.Canceled) {
				b.logger.Error("watchlist scan stopped", zap.Error(err))
			}
		}()
	}

	if b.Config.HTTP.TLSDomain != "" {
		return srv.StartWithAutoTLS(ctx, []string{b.Config.HTTP.TLSDomain}, b.Config.HTTP.CertDir)
	}
	return srv.Start(ctx)
}

// SignalFromHistory builds a signal for symbol from daily closes of the quote provider.
func (b *SignalBot) SignalFromHistory(ctx context.Context, symbol string, days int) (domain.Signal, error) {
	if days <= 0 {
		days = DefaultHistoryDays
	}
	symbol = domain.NormalizeSymbol(symbol)

	closes, err := b.Quotes.History(ctx, symbol, days)
	if err != nil {
		return domain.Signal{}, errors.Wrapf(err, "load history for %s", symbol)
	}
	snapshot, err := indicators.SnapshotFromCloses(closes)
	if err != nil {
		return domain.Signal{}, errors.Wrapf(err, "indicators for %s", symbol)
	}

	return domain.Signal{
		Symbol:    symbol,
		Snapshot:  snapshot,
		Timeframe: "1d",
	}, nil
}

// Scan periodically evaluates every watchlist symbol from its price history
// and executes the resulting signals.
func (b *SignalBot) Scan(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.logger.Info("starting watchlist scan", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("context done, stopping watchlist scan")
			return ctx.Err()
		case <-ticker.C:
			b.scanOnce(ctx)
		}
	}
}

func (b *SignalBot) scanOnce(ctx context.Context) {
	symbols, err := state.Watchlist(ctx, b.Ledger)
	if err != nil {
		b.logger.Error("scan: read watchlist", zap.Error(err))
		return
	}

	for _, symbol := range symbols {
		sig, err := b.SignalFromHistory(ctx, symbol, DefaultHistoryDays)
		if err != nil {
			b.logger.Debug("scan: no signal", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		// a quiet tick sends no hold notifications
		if rules.Decide(sig.Snapshot).IsHold() {
			continue
		}
		res, err := b.Executor.ExecuteSignal(ctx, sig)
		if err != nil {
			b.logger.Warn("scan: signal rejected", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		if res.Execution != nil {
			b.logger.Info("scan: signal executed", zap.String("symbol", symbol), zap.Any("trade", res.Execution.Trade))
		}
	}
}
