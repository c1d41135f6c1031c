package main

import (
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	postgresRepo "github.com/iho/txengine/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/txengine/internal/adapter/repository/redis"
	"github.com/iho/txengine/internal/infrastructure/config"
	"github.com/iho/txengine/internal/infrastructure/logger"
	"github.com/iho/txengine/internal/infrastructure/metrics"
	"github.com/iho/txengine/internal/usecase"
)

// options holds command line flags. Flags that were set override the
// environment configuration.
type options struct {
	format             string
	order              string
	strict             bool
	denyLockedDeposits bool
	metricsFile        string
	logLevel           string
}

func (o *options) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("format") {
		cfg.OutputFormat = o.format
	}
	if flags.Changed("order") {
		cfg.SnapshotOrder = o.order
	}
	if flags.Changed("strict") {
		cfg.StrictInput = o.strict
	}
	if flags.Changed("deny-locked-deposits") {
		cfg.AllowDepositOnLocked = !o.denyLockedDeposits
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsTextfile = o.metricsFile
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}

	return cfg.Validate()
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "txengine [flags] <transactions.csv>",
		Short: "Replay a transaction log into client account balances",
		Long: `txengine reads deposits, withdrawals, disputes, resolves and chargebacks
from a CSV file and prints the resulting client accounts to stdout.
Rejected and malformed records are reported on stderr.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}

			defer a.close()

			report, err := a.process(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if err := a.writeAccounts(report.Accounts()); err != nil {
				return err
			}

			return a.finish(cmd.Context(), report)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.format, "format", "csv", "Output format: csv or json")
	flags.StringVar(&opts.order, "order", "ascending", "Account order: ascending or first-seen")
	flags.BoolVar(&opts.strict, "strict", false, "Abort on the first malformed line")
	flags.BoolVar(&opts.denyLockedDeposits, "deny-locked-deposits", false, "Reject deposits to locked accounts")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	cmd.AddCommand(newServeCmd(opts), newMigrateCmd(opts), newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "txengine %s\n", version)
		},
	}
}

// app carries the per-invocation dependencies.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	out      io.Writer
	ids      usecase.IDGenerator

	pool  *pgxpool.Pool
	redis *goredis.Client

	archive *postgresRepo.AccountSnapshotRepository
	cache   *redisRepo.SnapshotCache
}

func newApp(cmd *cobra.Command, opts *options) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := opts.apply(cmd, cfg); err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()

	return &app{
		cfg: cfg,
		log: logger.New(logger.Config{
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
			Output: cmd.ErrOrStderr(),
		}),
		registry: registry,
		metrics:  metrics.New(registry),
		out:      cmd.OutOrStdout(),
		ids:      postgresRepo.NewRunIDGenerator(),
	}, nil
}
