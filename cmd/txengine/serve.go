package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	httpAdapter "github.com/iho/txengine/internal/adapter/http"
	"github.com/iho/txengine/internal/adapter/http/handler"
	"github.com/iho/txengine/internal/adapter/http/middleware"
	"github.com/iho/txengine/internal/usecase"
)

const limiterCleanupInterval = 5 * time.Minute

func newServeCmd(opts *options) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve [flags] <transactions.csv>",
		Short: "Process a file and serve the resulting accounts over HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			if cmd.Flags().Changed("port") {
				a.cfg.HTTPPort = port
			}

			ctx := cmd.Context()

			report, err := a.process(ctx, args[0])
			if err != nil {
				return err
			}

			if err := a.finish(ctx, report); err != nil {
				return err
			}

			return a.serve(ctx, report)
		},
	}

	cmd.Flags().StringVar(&port, "port", "8080", "HTTP port")

	return cmd
}

// handler builds the read-only API over a finished report.
func (a *app) handler(ctx context.Context, report *usecase.Report) http.Handler {
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	limiter := middleware.NewRateLimiter(a.cfg.RateLimitRPS, a.cfg.RateLimitBurst, a.metrics)
	go limiter.RunCleanup(ctx, limiterCleanupInterval)

	return httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler: handler.NewAccountHandler(report),
		RunHandler:     a.runHandler(),
		HealthHandler:  handler.NewHealthHandler(a.healthChecks()...),
		MetricsHandler: promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
		Metrics:        a.metrics,
		RateLimiter:    limiter,
		Logger:         a.log,
	})
}

func (a *app) serve(ctx context.Context, report *usecase.Report) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", a.cfg.HTTPPort),
		Handler:      a.handler(ctx, report),
		ReadTimeout:  a.cfg.HTTPReadTimeout,
		WriteTimeout: a.cfg.HTTPWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("port", a.cfg.HTTPPort).Str("run_id", report.RunID()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	a.log.Info().Msg("server stopped")
	return nil
}
