package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vadiminshakov/sigtrader/internal"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var scanInterval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server with webhooks, dashboard and streams",
		Long: `Serve the webhook endpoints, JSON APIs, dashboard and SSE streams.
With --scan-interval the watchlist is also evaluated from daily price history
on every tick and buy/sell decisions are executed.

Examples:
  sigtrader serve
  sigtrader serve --config config.yaml --scan-interval 1h`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withBot(opts, func(bot *internal.SignalBot, logger *zap.Logger) error {
				logger.Info("starting sigtrader",
					zap.String("env", bot.Config.Env),
					zap.String("addr", bot.Config.HTTP.Addr),
					zap.Any("config", bot.Config.Redacted()))
				return bot.Serve(ctx, scanInterval)
			})
		},
	}
	cmd.Flags().DurationVar(&scanInterval, "scan-interval", 0, "Evaluate the watchlist every interval (0 disables)")
	return cmd
}
