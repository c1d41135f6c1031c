package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	csvadapter "github.com/iho/txengine/internal/adapter/csv"
	"github.com/iho/txengine/internal/adapter/http/handler"
	postgresRepo "github.com/iho/txengine/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/txengine/internal/adapter/repository/redis"
	"github.com/iho/txengine/internal/domain"
	"github.com/iho/txengine/internal/infrastructure/logger"
	"github.com/iho/txengine/internal/infrastructure/postgres"
	"github.com/iho/txengine/internal/infrastructure/redis"
	"github.com/iho/txengine/internal/usecase"
)

// process folds the input file into a frozen report.
func (a *app) process(ctx context.Context, path string) (*usecase.Report, error) {
	order, err := usecase.ParseSnapshotOrder(a.cfg.SnapshotOrder)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	reporter := logger.NewRejectionLogger(a.log)
	engine := usecase.NewEngine(usecase.Policy{AllowDepositOnLocked: a.cfg.AllowDepositOnLocked}, reporter, a.metrics)
	ingest := usecase.NewIngestUseCase(engine, reporter, a.metrics, a.cfg.StrictInput)

	stats, err := ingest.Run(ctx, csvadapter.NewReader(bufio.NewReader(f)))
	if err != nil {
		return nil, err
	}

	report := usecase.NewReport(a.ids.Generate(), engine, order, stats)

	a.log.Info().
		Str("run_id", report.RunID()).
		Int("applied", stats.Applied).
		Int("rejected", stats.Rejected).
		Int("malformed", stats.Malformed).
		Int("accounts", len(report.Accounts())).
		Msg("run complete")

	return report, nil
}

type accountWriter interface {
	Write(accounts []domain.ClientAccount) error
}

func (a *app) writeAccounts(accounts []domain.ClientAccount) error {
	var w accountWriter
	switch a.cfg.OutputFormat {
	case "json":
		w = csvadapter.NewJSONWriter(a.out)
	default:
		w = csvadapter.NewWriter(a.out)
	}

	if err := w.Write(accounts); err != nil {
		return fmt.Errorf("failed to write accounts: %w", err)
	}
	return nil
}

// finish publishes the report to the configured sinks and writes the
// metrics textfile.
func (a *app) finish(ctx context.Context, report *usecase.Report) error {
	sinks, err := a.openSinks(ctx)
	if err != nil {
		return err
	}

	publisher := usecase.NewPublishUseCase(sinks...)
	if publisher.Enabled() {
		if err := publisher.Publish(ctx, report.RunID(), report.Accounts()); err != nil {
			return fmt.Errorf("failed to publish snapshot: %w", err)
		}
		a.log.Info().Str("run_id", report.RunID()).Int("sinks", len(sinks)).Msg("snapshot published")
	}

	if a.cfg.MetricsTextfile != "" {
		if err := prometheus.WriteToTextfile(a.cfg.MetricsTextfile, a.registry); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	return nil
}

// openSinks connects to every configured snapshot store.
func (a *app) openSinks(ctx context.Context) ([]usecase.SnapshotSink, error) {
	var sinks []usecase.SnapshotSink

	if a.cfg.DatabaseURL != "" {
		if a.pool == nil {
			if err := postgres.RunMigrations(a.cfg.DatabaseURL, a.log); err != nil {
				return nil, err
			}

			pool, err := postgres.NewPool(ctx, a.cfg.DatabaseURL, a.cfg.DatabaseMaxConns, a.cfg.DatabaseMinConns)
			if err != nil {
				return nil, fmt.Errorf("failed to connect to postgres: %w", err)
			}
			a.pool = pool
			a.log.Info().Msg("connected to postgres")
		}
		a.archive = postgresRepo.NewAccountSnapshotRepository(a.pool, a.log, a.metrics)
		sinks = append(sinks, a.archive)
	}

	if a.cfg.RedisURL != "" {
		if a.redis == nil {
			client, err := redis.NewClient(ctx, a.cfg.RedisURL)
			if err != nil {
				return nil, fmt.Errorf("failed to connect to redis: %w", err)
			}
			a.redis = client
			a.log.Info().Msg("connected to redis")
		}
		a.cache = redisRepo.NewSnapshotCache(a.redis, a.cfg.SnapshotTTL, a.metrics)
		sinks = append(sinks, a.cache)
	}

	return sinks, nil
}

// runHandler serves snapshots of earlier runs from the connected sinks.
func (a *app) runHandler() *handler.RunHandler {
	var (
		cache   handler.SnapshotCache
		archive handler.SnapshotArchive
	)
	if a.cache != nil {
		cache = a.cache
	}
	if a.archive != nil {
		archive = a.archive
	}

	return handler.NewRunHandler(cache, archive)
}

func (a *app) healthChecks() []handler.HealthCheck {
	var checks []handler.HealthCheck

	if a.pool != nil {
		checks = append(checks, handler.HealthCheck{Name: "postgres", Check: a.pool.Ping})
	}
	if a.redis != nil {
		client := a.redis
		checks = append(checks, handler.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
	}

	return checks
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}
