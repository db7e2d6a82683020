package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/arthur-debert/nanotodo/internal/config"
	"github.com/arthur-debert/nanotodo/internal/logging"
	"github.com/spf13/cobra"
)

// flagKeys maps persistent flags to configuration keys
var flagKeys = map[string]string{
	"port":           config.KeyPort,
	"store-driver":   config.KeyStoreDriver,
	"store-path":     config.KeyStorePath,
	"store-uri":      config.KeyStoreURI,
	"telegram-token": config.KeyTelegramToken,
	"server":         config.KeyServer,
	"log-level":      config.KeyLogLevel,
	"log-file":       config.KeyLogFile,
}

// CLI is the nanotodo command tree together with its resolved settings
type CLI struct {
	root   *cobra.Command
	cfg    config.Config
	logger *slog.Logger

	in       io.Reader
	out      io.Writer
	errOut   io.Writer
	closeLog func() error

	configFile string
}

// NewCLI builds the command tree. Commands read from in and write results
// to out; logs and prompts go to errOut.
func NewCLI(in io.Reader, out, errOut io.Writer) *CLI {
	cli := &CLI{
		in:       in,
		out:      out,
		errOut:   errOut,
		logger:   logging.Discard(),
		closeLog: func() error { return nil },
	}
	cli.createRootCommand()
	cli.addCommands()
	return cli
}

func (cli *CLI) createRootCommand() {
	cli.root = &cobra.Command{
		Use:   "nanotodo",
		Short: "A small todo list with a web app, a REST API and a Telegram bot",
		Long: `nanotodo keeps a single shared todo list.

'nanotodo serve' runs the REST API, the web page and, when a token is set,
the Telegram bot. The list, add, done, rm and tui commands talk to a running
server; export reads the store directly.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (NANOTODO_*, PORT, MONGODB_URI, TELEGRAM_BOT_TOKEN)
3. Configuration file (--config, NANOTODO_CONFIG, ./nanotodo.* or ~/.nanotodo/nanotodo.*)
4. Defaults

Examples:
  nanotodo serve --store-driver sqlite --store-path todos.db
  nanotodo add "Buy milk"
  nanotodo list --filter active
  nanotodo done 1`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: cli.setup,
	}
	cli.root.SetIn(cli.in)
	cli.root.SetOut(cli.out)
	cli.root.SetErr(cli.errOut)

	flags := cli.root.PersistentFlags()
	flags.StringVar(&cli.configFile, "config", "", "config file (default: ./nanotodo.{yaml,toml,json})")
	flags.Int("port", 3000, "HTTP port for serve")
	flags.String("store-driver", "json", "store backend (json|sqlite|mongodb)")
	flags.String("store-path", "todos.json", "data file for the json and sqlite backends")
	flags.String("store-uri", "mongodb://localhost:27017/todoapp", "connection string for the mongodb backend")
	flags.String("telegram-token", "", "Telegram bot token")
	flags.StringP("server", "s", "http://localhost:3000", "server URL used by client commands")
	flags.String("log-level", "info", "log level (debug|info|warn|error)")
	flags.String("log-file", "", "also write JSON logs to this file")
}

func (cli *CLI) addCommands() {
	cli.root.AddCommand(
		cli.serveCommand(),
		cli.botCommand(),
		cli.listCommand(),
		cli.addCommand(),
		cli.doneCommand(),
		cli.rmCommand(),
		cli.exportCommand(),
		cli.tuiCommand(),
	)
}

// setup resolves the configuration and the logger before any command runs
func (cli *CLI) setup(cmd *cobra.Command, args []string) error {
	v, err := config.New(cli.configFile)
	if err != nil {
		return NewConfigError("load configuration", err, CommonSuggestions.CheckConfig)
	}

	// only flags set on the command line override the file and environment
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return NewConfigError("load configuration", err)
			}
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return NewConfigError("load configuration", err, CommonSuggestions.CheckConfig)
	}

	logger, closeLog, err := logging.Setup(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Console: cli.errOut,
	})
	if err != nil {
		return NewConfigError("set up logging", err)
	}

	cli.cfg = cfg
	cli.logger = logger
	cli.closeLog = closeLog
	logger.Debug("configuration loaded", "config_file", v.ConfigFileUsed(), "store_driver", cfg.Store.Driver)
	return nil
}

// Execute runs the command line in args. Commands stop when ctx is done.
func (cli *CLI) Execute(ctx context.Context, args []string) error {
	cli.root.SetArgs(args)
	err := cli.root.ExecuteContext(ctx)
	if cerr := cli.closeLog(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (cli *CLI) printf(format string, a ...interface{}) {
	_, _ = fmt.Fprintf(cli.out, format, a...)
}
