package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/nanotodo/formats"
	"github.com/arthur-debert/nanotodo/todo"
	"github.com/spf13/cobra"
)

func (cli *CLI) exportCommand() *cobra.Command {
	var format, output string
	var pending bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump the store in a structured format",
		Long: `Dump every todo, newest first, straight from the configured store.

No server is needed. With --output the dump is written to a file; the
format defaults to the file extension when --format is not given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if output != "" && !cmd.Flags().Changed("format") {
				format = formatForPath(output, format)
			}
			if _, err := formats.Get(format); err != nil {
				return &CLIError{
					Operation:   "export",
					Cause:       err.Error(),
					Suggestions: []string{fmt.Sprintf("Use --format %s", strings.Join(formats.List(), "|"))},
					Underlying:  err,
				}
			}

			s, err := cli.openStore(ctx)
			if err != nil {
				return err
			}
			defer cli.closeStore(s)

			opts := todo.ListOptions{}
			if pending {
				opts = todo.Pending()
			}
			todos, err := s.List(ctx, opts)
			if err != nil {
				return NewStoreError("export", err, CommonSuggestions.CheckStore)
			}

			if output == "" {
				if err := formats.Write(cli.out, format, todos); err != nil {
					return WrapError("export", err)
				}
				return nil
			}
			if err := writeFile(output, format, todos); err != nil {
				return NewStoreError("export", err)
			}
			cli.logger.Info("export written", "path", output, "format", format, "count", len(todos))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formats.JSON.Name, "output format ("+strings.Join(formats.List(), "|")+")")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().BoolVar(&pending, "pending", false, "only export todos that are not completed")
	return cmd
}

// createFile opens export targets
var createFile = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

// writeFile writes the dump to path. A failed close fails the export.
func writeFile(path, format string, todos []todo.Todo) (err error) {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return formats.Write(f, format, todos)
}

// formatForPath picks the format whose extension matches path
func formatForPath(path, fallback string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yml" {
		ext = ".yaml"
	}
	for _, name := range formats.List() {
		f, err := formats.Get(name)
		if err == nil && f.Extension == ext {
			return f.Name
		}
	}
	return fallback
}
