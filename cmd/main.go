// Command sigtrader runs the signal-to-order paper trading pipeline.
// Signals arrive over webhooks or the CLI, are turned into buy/sell/hold
// decisions, pass the kill switch and exposure gates and are recorded in an
// append-only ledger. No real orders are ever sent.
//
// Usage:
//
//	sigtrader serve --config config.yaml
//	sigtrader trade AAPL buy 10
//	sigtrader decide AAPL --rsi 25 --ema-fast 11 --ema-slow 10
//	sigtrader setup
//
// Settings come from the yaml file, then .env, then the environment
// (BASE_CAPITAL, MAX_PORTFOLIO_EXPOSURE_PCT, WEBHOOK_SECRET, TELEGRAM_BOT_TOKEN, ...).
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vadiminshakov/sigtrader/config"
	"github.com/vadiminshakov/sigtrader/internal"
)

type rootOptions struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "sigtrader",
		Short: "Signal-driven paper trading pipeline",
		Long: `sigtrader turns indicator alerts and manual orders into simulated trades,
guarded by a kill switch and a portfolio exposure limit.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to yaml configuration file")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "Path to .env file")

	root.AddCommand(
		newServeCmd(opts),
		newTradeCmd(opts),
		newDecideCmd(opts),
		newKillCmd(opts),
		newPositionsCmd(opts),
		newPortfolioCmd(opts),
		newLiquidateCmd(opts),
		newWatchlistCmd(opts),
		newSetupCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openBot loads the configuration and opens the pipeline. The caller closes
// the bot and syncs the logger.
func openBot(opts *rootOptions) (*internal.SignalBot, *zap.Logger, error) {
	conf, err := config.Load(opts.configPath, opts.envFile)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load configuration")
	}

	logger, err := newLogger(conf.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	bot, err := internal.NewSignalBot(conf, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return bot, logger, nil
}

func withBot(opts *rootOptions, fn func(bot *internal.SignalBot, logger *zap.Logger) error) error {
	bot, logger, err := openBot(opts)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	runErr := fn(bot, logger)
	if err := bot.Close(); err != nil {
		logger.Error("failed to close stores", zap.Error(err))
	}
	return runErr
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
