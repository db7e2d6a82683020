package main

import (
	"github.com/arthur-debert/nanotodo/client"
	"github.com/arthur-debert/nanotodo/internal/logging"
	"github.com/arthur-debert/nanotodo/tui"
	"github.com/spf13/cobra"
)

func (cli *CLI) tuiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse and edit the list interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			remote := client.NewHTTPClient(cli.cfg.Server)
			// console logs would draw over the alternate screen
			err := tui.Run(cmd.Context(), remote, client.WithLogger(logging.Discard()))
			return WrapError("run the terminal UI", err)
		},
	}
}
