package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vadiminshakov/sigtrader/internal"
)

func newKillCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kill",
		Short: "Show or change the kill switch that halts buys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBot(opts, func(bot *internal.SignalBot, _ *zap.Logger) error {
				on, err := bot.Executor.KillSwitchOn(cmd.Context())
				if err != nil {
					return err
				}
				printKill(cmd.OutOrStdout(), on)
				return nil
			})
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "toggle",
			Short: "Flip the kill switch",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withBot(opts, func(bot *internal.SignalBot, _ *zap.Logger) error {
					on, err := bot.Executor.ToggleKillSwitch(cmd.Context())
					if err != nil {
						return err
					}
					printKill(cmd.OutOrStdout(), on)
					return nil
				})
			},
		},
		setKillCmd(opts, "on", true),
		setKillCmd(opts, "off", false),
	)
	return cmd
}

func setKillCmd(opts *rootOptions, use string, on bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Turn the kill switch %s", use),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBot(opts, func(bot *internal.SignalBot, _ *zap.Logger) error {
				if err := bot.Executor.SetKillSwitch(cmd.Context(), on); err != nil {
					return err
				}
				printKill(cmd.OutOrStdout(), on)
				return nil
			})
		},
	}
}

func printKill(w io.Writer, on bool) {
	if on {
		fmt.Fprintln(w, badStyle.Render("Kill switch: ON (buys halted)"))
		return
	}
	fmt.Fprintln(w, goodStyle.Render("Kill switch: OFF"))
}
