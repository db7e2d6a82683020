package main

import (
	"context"
	"fmt"

	"github.com/arthur-debert/nanotodo/api"
	"github.com/arthur-debert/nanotodo/bot"
	"github.com/arthur-debert/nanotodo/store"
	"github.com/arthur-debert/nanotodo/todo"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func (cli *CLI) serveCommand() *cobra.Command {
	var noBot bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API and web page, plus the Telegram bot when a token is set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.serve(cmd.Context(), !noBot)
		},
	}
	cmd.Flags().BoolVar(&noBot, "no-bot", false, "do not start the Telegram bot even when a token is set")
	return cmd
}

func (cli *CLI) botCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run only the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cli.cfg.TelegramToken == "" {
				return &CLIError{
					Operation:   "start bot",
					Cause:       "no Telegram token configured",
					Suggestions: []string{CommonSuggestions.CheckToken},
				}
			}
			ctx := cmd.Context()
			s, err := cli.openStore(ctx)
			if err != nil {
				return err
			}
			defer cli.closeStore(s)

			listener, err := cli.newListener(s)
			if err != nil {
				return err
			}
			return WrapError("run bot", listener.Run(ctx))
		},
	}
}

// serve runs the HTTP server and, when enabled, the bot until ctx is done or
// either of them fails
func (cli *CLI) serve(ctx context.Context, withBot bool) error {
	s, err := cli.openStore(ctx)
	if err != nil {
		return err
	}
	defer cli.closeStore(s)

	var listener *bot.Listener
	switch {
	case !withBot:
		cli.logger.Info("telegram bot disabled by flag")
	case cli.cfg.TelegramToken == "":
		cli.logger.Warn("no telegram token configured, bot not started")
	default:
		if listener, err = cli.newListener(s); err != nil {
			return err
		}
	}

	router := api.NewRouter(s, api.WithLogger(cli.logger))
	srv := api.NewServer(cli.cfg.Addr(), router, cli.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	if listener != nil {
		g.Go(func() error {
			return listener.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil {
		return &CLIError{
			Operation:   "serve",
			Cause:       err.Error(),
			Suggestions: []string{fmt.Sprintf("Check that port %d is free or pick another with --port", cli.cfg.Port)},
			Underlying:  err,
		}
	}
	cli.logger.Info("shutdown complete")
	return nil
}

func (cli *CLI) newListener(s todo.Store) (*bot.Listener, error) {
	transport, err := bot.NewTelegram(cli.cfg.TelegramToken, cli.logger)
	if err != nil {
		return nil, &CLIError{
			Operation:   "start bot",
			Cause:       "telegram rejected the token",
			Details:     err.Error(),
			Suggestions: []string{CommonSuggestions.CheckToken},
			Underlying:  err,
		}
	}
	return bot.NewListener(s, transport, bot.WithLogger(cli.logger.With("component", "bot"))), nil
}

func (cli *CLI) openStore(ctx context.Context) (todo.Store, error) {
	s, err := store.Open(ctx, cli.cfg.Store)
	if err != nil {
		return nil, NewStoreError("open store", err, CommonSuggestions.CheckStore)
	}
	cli.logger.Debug("store opened", "driver", cli.cfg.Store.Driver)
	return s, nil
}

func (cli *CLI) closeStore(s todo.Store) {
	if err := s.Close(); err != nil {
		cli.logger.Warn("failed to close store", "error", err)
	}
}
