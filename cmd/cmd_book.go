package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vadiminshakov/sigtrader/internal"
	"github.com/vadiminshakov/sigtrader/internal/domain"
	"github.com/vadiminshakov/sigtrader/internal/services/pricer"
	"github.com/vadiminshakov/sigtrader/internal/storage/ledger"
)

func newPositionsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "positions",
		Short: "List open positions valued at current quotes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBot(opts, func(bot *internal.SignalBot, _ *zap.Logger) error {
				ctx := cmd.Context()
				agg := bot.Executor.Positions()

				open, err := agg.OpenPositions(ctx)
				if err != nil {
					return err
				}
				views, err := agg.PositionViews(ctx, pricer.Prices(ctx, bot.Quotes, symbols(open)))
				if err != nil {
					return err
				}
				printPositions(cmd.OutOrStdout(), views)
				return nil
			})
		},
	}
}

func newPortfolioCmd(opts *rootOptions) *cobra.Command {
	var tradesLimit int

	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Show cash, equity and PnL of the paper book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBot(opts, func(bot *internal.SignalBot, _ *zap.Logger) error {
				ctx := cmd.Context()
				agg := bot.Executor.Positions()

				open, err := agg.OpenPositions(ctx)
				if err != nil {
					return err
				}
				portfolio, err := agg.Portfolio(ctx, bot.Config.BaseCapital, pricer.Prices(ctx, bot.Quotes, symbols(open)))
				if err != nil {
					return err
				}
				exposure, err := agg.ExposureValue(ctx)
				if err != nil {
					return err
				}
				printPortfolio(cmd.OutOrStdout(), portfolio, exposure, bot.Executor.Limits().Ceiling())

				if tradesLimit > 0 {
					trades, err := bot.Ledger.Recent(ctx, ledger.ClampLimit(tradesLimit))
					if err != nil {
						return err
					}
					printTrades(cmd.OutOrStdout(), trades)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&tradesLimit, "trades", 0, "Also list this many recent trades")
	return cmd
}

func newLiquidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "liquidate",
		Short: "Sell every open position at the current quote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBot(opts, func(bot *internal.SignalBot, _ *zap.Logger) error {
				res, err := bot.Executor.LiquidateAll(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				printLiquidation(out, res)
				if len(res.Failed) > 0 {
					return fmt.Errorf("%d symbols could not be closed", len(res.Failed))
				}
				return nil
			})
		},
	}
}

func symbols(positions []domain.Position) []string {
	out := make([]string, 0, len(positions))
	for _, p := range positions {
		out = append(out, p.Symbol)
	}
	return out
}
