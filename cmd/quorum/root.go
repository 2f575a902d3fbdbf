package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// exitError carries a process exit code through cobra's error plumbing:
// 1 for failed runs, 2 for configuration and flag mistakes.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func configErr(err error) error { return &exitError{code: 2, err: err} }
func runErr(err error) error    { return &exitError{code: 1, err: err} }

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	pretty     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "quorum",
		Short: "Weighted multi-analyst consensus engine",
		Long: `quorum dispatches a roster of market analysts concurrently against a
symbol, tolerates individual analyst failures and deadline overruns, and
folds the surviving results into one weighted consensus decision.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			// .env is a local-run convenience; a missing file is fine.
			_ = godotenv.Load()
			return setupLogging(opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "quorum.yaml",
		"path to the engine configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info",
		"log level: debug, info, warn or error")
	cmd.PersistentFlags().BoolVar(&opts.pretty, "pretty", false,
		"human-readable log output instead of JSON")

	cmd.AddCommand(newAnalyzeCmd(opts))
	cmd.AddCommand(newValidateCmd(opts))

	return cmd
}

// setupLogging installs the process-wide slog default: JSON to stderr, or
// the text handler under --pretty.
func setupLogging(opts *rootOptions) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.logLevel)); err != nil {
		return configErr(fmt.Errorf("invalid log level %q", opts.logLevel))
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if opts.pretty {
		handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
