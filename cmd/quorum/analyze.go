package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-quorum/infrastructure/analysts"
	"github.com/ahrav/go-quorum/infrastructure/marketdata"
	"github.com/ahrav/go-quorum/infrastructure/middleware"
	"github.com/ahrav/go-quorum/infrastructure/report"
	"github.com/ahrav/go-quorum/internal/application"
	"github.com/ahrav/go-quorum/internal/domain"
)

// analyzeOptions holds the flags of the analyze subcommand.
type analyzeOptions struct {
	offline      bool
	watchWeights bool
	timeout      time.Duration
	reportOnly   bool
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze SYMBOL",
		Short: "Run one consensus analysis for a symbol",
		Long: `Analyze dispatches every configured analyst against SYMBOL, prints the
rendered consensus report and, unless --report-only is set, the
consolidated decision as JSON.

Market data comes from the REST API named by QUORUM_API_BASE_URL and
QUORUM_API_KEY, or from deterministic built-in fixtures under --offline.`,
		Example: `  quorum analyze ACME --config quorum.yaml
  quorum analyze ACME --offline --report-only`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.offline, "offline", false,
		"use built-in demo fixtures instead of the REST API")
	cmd.Flags().BoolVar(&opts.watchWeights, "watch-weights", false,
		"apply analyst weight changes from the config file while running")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0,
		"overall command deadline, e.g. 45s (0 means no extra deadline)")
	cmd.Flags().BoolVar(&opts.reportOnly, "report-only", false,
		"print only the rendered report, without the JSON decision")

	return cmd
}

func runAnalyze(cmd *cobra.Command, root *rootOptions, opts *analyzeOptions, symbol string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	provider, err := buildProvider(opts.offline, symbol)
	if err != nil {
		return configErr(err)
	}

	registry := application.NewDefaultAnalystRegistry()
	if err := analysts.RegisterBuiltins(registry, provider); err != nil {
		return configErr(err)
	}

	loader, err := application.NewConfigLoader(registry)
	if err != nil {
		return configErr(err)
	}
	config, err := loader.LoadFromFile(root.configPath)
	if err != nil {
		return configErr(fmt.Errorf("loading %s: %w", root.configPath, err))
	}

	engine, err := loader.BuildEngine(config, report.NewTemplateComposer(),
		application.WithEngineMetrics(middleware.NewPrometheusMetrics()),
		application.WithEngineObserver(middleware.NewOTelRunObserver()),
	)
	if err != nil {
		return configErr(err)
	}

	if opts.watchWeights {
		watcher, err := application.NewWeightsWatcher(root.configPath, engine, loader)
		if err != nil {
			return configErr(err)
		}
		watchCtx, cancelWatch := context.WithCancel(ctx)
		defer cancelWatch()
		go func() {
			if err := watcher.Watch(watchCtx); err != nil {
				slog.Warn("weights watcher stopped", "error", err)
			}
		}()
	}

	res, runFailure := engine.Run(ctx, domain.AnalysisRequest{Symbol: symbol})

	if err := engine.Shutdown(context.Background()); err != nil {
		slog.Warn("engine shutdown incomplete", "error", err)
	}

	if runFailure != nil {
		return runErr(runFailure)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, res.Report)

	if !opts.reportOnly {
		payload, err := json.MarshalIndent(res.Consolidated, "", "  ")
		if err != nil {
			return runErr(fmt.Errorf("encoding decision: %w", err))
		}
		fmt.Fprintln(out, string(payload))
	}
	return nil
}

// buildProvider selects the market data source: deterministic fixtures
// seeded for the requested symbol under --offline, the REST client
// otherwise.
func buildProvider(offline bool, symbol string) (marketdata.Provider, error) {
	if offline {
		return marketdata.NewDemoProvider(symbol), nil
	}

	baseURL := os.Getenv("QUORUM_API_BASE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("QUORUM_API_BASE_URL is not set; use --offline for the built-in fixtures")
	}

	cfg := marketdata.DefaultClientConfig()
	cfg.BaseURL = baseURL
	cfg.APIKey = os.Getenv("QUORUM_API_KEY")
	return marketdata.NewClient(cfg)
}

// newValidateCmd checks a configuration file without running anything.
// The analyst registry is wired with fixture-backed factories so
// parameter schemas validate exactly as they would at startup.
func newValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry := application.NewDefaultAnalystRegistry()
			if err := analysts.RegisterBuiltins(registry, marketdata.NewStaticProvider()); err != nil {
				return configErr(err)
			}

			loader, err := application.NewConfigLoader(registry)
			if err != nil {
				return configErr(err)
			}
			config, err := loader.LoadFromFile(root.configPath)
			if err != nil {
				return configErr(fmt.Errorf("validating %s: %w", root.configPath, err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: configuration valid, %d analysts\n",
				root.configPath, len(config.Analysts))
			return nil
		},
	}
}
