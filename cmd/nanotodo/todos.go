package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/arthur-debert/nanotodo/client"
	"github.com/arthur-debert/nanotodo/formats"
	"github.com/arthur-debert/nanotodo/internal/logging"
	"github.com/arthur-debert/nanotodo/todo"
	"github.com/spf13/cobra"
)

// newController returns a controller over the configured server. Failures
// come back as errors, so the controller's own logging and banner expiry
// are switched off.
func (cli *CLI) newController(opts ...client.Option) *client.Controller {
	remote := client.NewHTTPClient(cli.cfg.Server)
	base := []client.Option{
		client.WithLogger(logging.Discard()),
		client.WithAfterFunc(func(time.Duration, func()) {}),
	}
	return client.NewController(remote, append(base, opts...)...)
}

// load fetches the list and applies the filter named by the --filter flag
func (cli *CLI) load(ctx context.Context, ctl *client.Controller, filter, operation string) error {
	f, err := todo.ParseFilter(filter)
	if err != nil {
		return &CLIError{
			Operation:   operation,
			Cause:       err.Error(),
			Suggestions: []string{"Use --filter all, active or completed"},
			Underlying:  err,
		}
	}
	if err := ctl.Init(ctx); err != nil {
		return NewRequestError(operation, cli.cfg.Server, err)
	}
	ctl.SetFilter(f)
	return nil
}

func (cli *CLI) resolve(ctl *client.Controller, ref, operation string) (todo.Todo, error) {
	t, err := ctl.Resolve(ref)
	if err != nil {
		return todo.Todo{}, NewNotFoundError(operation, ref, err)
	}
	return t, nil
}

func (cli *CLI) listCommand() *cobra.Command {
	var filter, format string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List todos, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl := cli.newController()
			if err := cli.load(cmd.Context(), ctl, filter, "list todos"); err != nil {
				return err
			}
			if err := formats.Write(cli.out, format, ctl.Visible()); err != nil {
				return &CLIError{
					Operation:   "list todos",
					Cause:       err.Error(),
					Suggestions: []string{fmt.Sprintf("Use --format %s", strings.Join(formats.List(), "|"))},
					Underlying:  err,
				}
			}
			if format == formats.Table.Name {
				s := ctl.Stats()
				cli.printf("Total: %d  Active: %d  Completed: %d\n", s.Total, s.Active, s.Completed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", string(todo.FilterAll), "show all, active or completed todos")
	cmd.Flags().StringVarP(&format, "format", "f", formats.Table.Name, "output format ("+strings.Join(formats.List(), "|")+")")
	return cmd
}

func (cli *CLI) addCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <text...>",
		Short: "Add a todo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl := cli.newController()
			ctl.SetInput(strings.Join(args, " "))
			if err := ctl.Add(cmd.Context()); err != nil {
				return NewRequestError("add todo", cli.cfg.Server, err)
			}
			cli.printf("Added %q\n", strings.TrimSpace(strings.Join(args, " ")))
			return nil
		},
	}
}

func (cli *CLI) doneCommand() *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:     "done <id|index>",
		Aliases: []string{"toggle"},
		Short:   "Toggle whether a todo is completed",
		Long: `Toggle whether a todo is completed.

The todo is named by its id or by its number in 'nanotodo list' run with the
same --filter.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctl := cli.newController()
			if err := cli.load(ctx, ctl, filter, "update todo"); err != nil {
				return err
			}
			t, err := cli.resolve(ctl, args[0], "update todo")
			if err != nil {
				return err
			}
			if err := ctl.Toggle(ctx, t.ID, !t.Completed); err != nil {
				return NewRequestError("update todo", cli.cfg.Server, err)
			}
			state := "active"
			if !t.Completed {
				state = "completed"
			}
			cli.printf("Marked %q as %s\n", t.Text, state)
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", string(todo.FilterAll), "resolve numbers against all, active or completed todos")
	return cmd
}

func (cli *CLI) rmCommand() *cobra.Command {
	var filter string
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm <id|index>",
		Aliases: []string{"delete"},
		Short:   "Delete a todo after confirmation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			confirmer := client.Confirmer(client.AlwaysConfirm)
			if !yes {
				confirmer = cli.promptConfirmer()
			}
			ctl := cli.newController(client.WithConfirmer(confirmer))
			if err := cli.load(ctx, ctl, filter, "delete todo"); err != nil {
				return err
			}
			t, err := cli.resolve(ctl, args[0], "delete todo")
			if err != nil {
				return err
			}
			deleted, err := ctl.Delete(ctx, t.ID)
			if err != nil {
				return NewRequestError("delete todo", cli.cfg.Server, err)
			}
			if !deleted {
				cli.printf("Kept %q\n", t.Text)
				return nil
			}
			cli.printf("Deleted %q\n", t.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", string(todo.FilterAll), "resolve numbers against all, active or completed todos")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// promptConfirmer asks on errOut and reads a y/N answer from in. Anything but
// y or yes declines.
func (cli *CLI) promptConfirmer() client.Confirmer {
	reader := bufio.NewReader(cli.in)
	return client.ConfirmFunc(func(ctx context.Context, t todo.Todo) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		_, _ = fmt.Fprintf(cli.errOut, "Delete %q? [y/N] ", t.Text)
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	})
}
