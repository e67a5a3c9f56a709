package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vadiminshakov/sigtrader/internal"
	"github.com/vadiminshakov/sigtrader/internal/domain"
	"github.com/vadiminshakov/sigtrader/internal/services/state"
)

func newWatchlistCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watchlist",
		Short: "Show or edit the watchlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBot(opts, func(bot *internal.SignalBot, _ *zap.Logger) error {
				w, err := state.Watchlist(cmd.Context(), bot.Ledger)
				if err != nil {
					return err
				}
				printWatchlist(cmd, w)
				return nil
			})
		},
	}

	cmd.AddCommand(
		editWatchlistCmd(opts, "add", "Add symbols to the watchlist", domain.Watchlist.Add),
		editWatchlistCmd(opts, "remove", "Remove symbols from the watchlist", domain.Watchlist.Remove),
	)
	return cmd
}

func editWatchlistCmd(opts *rootOptions, use, short string, op func(domain.Watchlist, string) domain.Watchlist) *cobra.Command {
	return &cobra.Command{
		Use:   use + " SYMBOL...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBot(opts, func(bot *internal.SignalBot, _ *zap.Logger) error {
				w, err := state.Watchlist(cmd.Context(), bot.Ledger)
				if err != nil {
					return err
				}
				for _, symbol := range args {
					w = op(w, symbol)
				}
				if err := state.SetWatchlist(cmd.Context(), bot.Ledger, w); err != nil {
					return err
				}
				printWatchlist(cmd, w)
				return nil
			})
		},
	}
}

func printWatchlist(cmd *cobra.Command, w domain.Watchlist) {
	if len(w) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("watchlist is empty"))
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(w, ", "))
}
