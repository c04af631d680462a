package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finhealth/internal/cli"
	apphttp "finhealth/internal/http"
	applog "finhealth/internal/log"
	"finhealth/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, logger := cli.Init(applog.ComponentApp)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", applog.FieldError, err.Error())
		os.Exit(1)
	}

	srv, err := apphttp.NewServer(apphttp.ServerConfig{
		Addr:               ":" + cfg.Port,
		Budgets:            app.Budgets,
		Health:             app.Health,
		Events:             app.Backend.Repo,
		Metrics:            app.Metrics,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              app.Ready,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", applog.FieldError, err.Error())
		_ = app.Close()
		os.Exit(1)
	}

	refresher := services.NewRefreshProcessor(app.Budgets, services.RefreshProcessorConfig{
		Interval: cfg.SpendRefreshInterval,
		Suggest:  true,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting finhealth server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"spend_source", cfg.SpendSource)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := refresher.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return cli.Shutdown(logger, shutdownTimeout,
			srv.Shutdown,
			refresher.Stop,
			func(context.Context) error { return app.Close() },
		)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
