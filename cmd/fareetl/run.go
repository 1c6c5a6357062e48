package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fareetl/internal/config"
	"fareetl/internal/extract"
	"fareetl/internal/fare"
	"fareetl/internal/logger"
	"fareetl/internal/metrics"
	"fareetl/internal/metrics/datadog"
	"fareetl/internal/metrics/prompush"
	"fareetl/internal/pipeline"
	"fareetl/internal/storage/postgres"
	"fareetl/internal/tunnel"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the extract, unify, and load pipeline once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := reportIssues(p); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, p)
		},
	}
}

func run(ctx context.Context, p config.Pipeline) error {
	log := logger.Init(&logger.Config{
		Level:      logger.ParseLevel(p.Log.Level),
		Output:     os.Stderr,
		JSON:       p.Log.JSON,
		TimeFormat: "2006-01-02 15:04:05",
	})
	log.Info("starting", "config", p.String())

	if flush := setupMetrics(p, log); flush != nil {
		defer flush()
	}

	if p.Tunnel.Enabled {
		tun, err := tunnel.Start(ctx, p.Tunnel, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := tun.Stop(); err != nil {
				log.Warn("stop iap tunnel", "err", err)
			}
		}()
	}

	bq, err := extract.NewBigQuery(ctx, p.Warehouse.Project)
	if err != nil {
		return err
	}
	defer bq.Close()

	repo, err := postgres.Open(ctx, p.Database.ConnString(), postgres.Config{
		Table:            p.Database.QualifiedTable(),
		Columns:          fare.OutputColumns(),
		BatchSize:        p.Database.BatchSize,
		BackupRetention:  p.Database.BackupRetention,
		StatementTimeout: p.Database.StatementTimeout,
		LockKey:          p.Database.LockKey,
	}, log)
	if err != nil {
		return err
	}
	defer repo.Close()

	runner := &pipeline.Runner{
		Job: p.Job,
		Extract: &extract.Extractor{
			Querier:  bq,
			Project:  p.Warehouse.Project,
			Dataset:  p.Warehouse.Dataset,
			Lookback: p.Warehouse.Lookback,
			Attempts: p.Warehouse.RetryAttempts,
			Backoff:  p.Warehouse.RetryBackoff,
			Log:      log,
		},
		Repo:        repo,
		Log:         log,
		Concurrency: p.Warehouse.Concurrency,
	}
	if _, err := runner.Run(ctx); err != nil {
		log.Error("pipeline failed", "err", err)
		return err
	}
	return nil
}

// setupMetrics installs the configured backend and returns its flush
// function, or nil when metrics are disabled.
func setupMetrics(p config.Pipeline, log logger.Logger) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch p.Metrics.Backend {
	case "pushgateway":
		b, err = prompush.NewBackend(p.Job, p.Metrics.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:      p.Metrics.DatadogAddr,
			Namespace: p.Metrics.Namespace,
			Job:       p.Job,
		})
	default:
		log.Debug("metrics disabled", "backend", p.Metrics.Backend)
		return nil
	}
	if err != nil {
		log.Warn("metrics backend unavailable; using nop", "backend", p.Metrics.Backend, "err", err)
		return nil
	}
	log.Info("metrics enabled", "backend", p.Metrics.Backend)
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush", "err", err)
		}
	}
}
