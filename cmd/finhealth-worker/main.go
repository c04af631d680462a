package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finhealth/internal/amqp"
	"finhealth/internal/cli"
	"finhealth/internal/config"
	applog "finhealth/internal/log"
	"finhealth/internal/storage"
	"finhealth/internal/storage/memory"
	"finhealth/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, logger := cli.Init(applog.ComponentWorker)
	logger.Info("Starting finhealth-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the event worker")
		os.Exit(1)
	}

	var events storage.Repository
	switch cfg.DataBackend {
	case config.BackendSQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", applog.FieldError, err.Error(), "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		events = repo
	default:
		logger.Warn("Audit trail kept in memory only", "backend", cfg.DataBackend)
		events = memory.New()
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
		_ = events.Close()
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	audit := worker.NewAuditWorker(events)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.ConsumeBudgetEvents(gctx, audit.HandleBudgetEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	err = g.Wait()
	shutdownErr := cli.Shutdown(logger, shutdownTimeout,
		func(context.Context) error { return client.Close() },
		func(context.Context) error { return events.Close() },
	)
	if err := errors.Join(err, shutdownErr); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
