package main

import (
	"github.com/spf13/cobra"

	"github.com/vadiminshakov/sigtrader/internal/setup"
)

func newSetupCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Interactive configuration wizard",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return setup.RunTUI(out)
		},
	}
	cmd.Flags().StringVar(&out, "out", setup.DefaultConfigFile, "Where to write the generated configuration")
	return cmd
}
