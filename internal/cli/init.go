// Package cli provides the initialization shared by cmd/finhealth,
// cmd/finhealth-worker and cmd/finhealthctl.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finhealth/internal/backend"
	"finhealth/internal/config"
	"finhealth/internal/core"
	"finhealth/internal/health"
	applog "finhealth/internal/log"
	"finhealth/internal/metrics"
	"finhealth/internal/services"
)

// LoadEnvFile loads the .env file for local development. A missing file is
// not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger at the LOG_LEVEL level and installs
// it as the slog default.
func SetupLogger(level, component string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level = applog.ParseLevel(level)
	cfg.Component = component
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// Init loads .env and the configuration, sets up logging and exits the
// process when the configuration is invalid.
func Init(component string) (*config.Config, *applog.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg.LogLevel, component)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg, logger
}

// App is the wired set of services behind every binary.
type App struct {
	Config  *config.Config
	Logger  *applog.Logger
	Backend *backend.BackendResult
	Metrics *metrics.Metrics
	Budgets *services.BudgetService
	Health  *services.HealthService

	now func() time.Time
}

// ErrUnsupported reports an operation the configured backend cannot do.
var ErrUnsupported = errors.New("not supported by this backend")

// budgetReplacer is implemented by repositories that can overwrite their
// whole budget set.
type budgetReplacer interface {
	ReplaceBudgets(ctx context.Context, records []core.Budget) error
}

// NewApp opens the configured backend and loads budgets and score history.
func NewApp(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("backend config: %w", err)
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, Logger: logger, Backend: res, Metrics: metrics.New(), now: time.Now}
	if err := app.wire(ctx); err != nil {
		return nil, errors.Join(err, res.Cleanup())
	}
	return app, nil
}

func (a *App) wire(ctx context.Context) error {
	var publisher services.EventPublisher
	if a.Backend.AMQP != nil {
		publisher = a.Backend.AMQP
	}

	budgets, err := services.NewBudgetService(services.BudgetServiceConfig{
		Repo:      a.Backend.Repo,
		Publisher: publisher,
		Source:    a.Backend.Source,
		Metrics:   a.Metrics,
		Logger:    a.Logger,
	})
	if err != nil {
		return err
	}
	if err := budgets.Load(ctx); err != nil {
		return err
	}
	a.Budgets = budgets

	factors, err := config.LoadFactors(a.Config.ScoringConfigFile)
	if err != nil {
		return err
	}
	static, err := config.LoadStaticScores(a.Config.ScoringConfigFile)
	if err != nil {
		return err
	}
	seed, err := config.LoadHistorySeed(a.Config.HistorySeedFile)
	if err != nil {
		return err
	}
	engine, err := core.NewScoreEngine(factors)
	if err != nil {
		return err
	}
	providers, err := health.Providers(factors, budgets, static)
	if err != nil {
		return fmt.Errorf("score providers: %w", err)
	}

	healthSvc, err := services.NewHealthService(services.HealthServiceConfig{
		Engine:    engine,
		Providers: providers,
		Repo:      a.Backend.Repo,
		Metrics:   a.Metrics,
		Logger:    a.Logger,
	})
	if err != nil {
		return err
	}
	if err := healthSvc.Load(ctx, seed); err != nil {
		return err
	}
	a.Health = healthSvc
	return nil
}

// Now is the clock the app was wired with.
func (a *App) Now() time.Time { return a.now() }

// ResetDemo stores the demo budgets in place of every stored budget and
// reloads the in-memory set. It returns the number of records stored.
func (a *App) ResetDemo(ctx context.Context) (int, error) {
	r, ok := a.Backend.Repo.(budgetReplacer)
	if !ok {
		return 0, ErrUnsupported
	}
	records := backend.DemoBudgets()
	if err := r.ReplaceBudgets(ctx, records); err != nil {
		return 0, fmt.Errorf("replace budgets: %w", err)
	}
	if err := a.Budgets.Load(ctx); err != nil {
		return 0, err
	}
	a.Logger.InfoContext(ctx, "Demo budgets restored", "count", len(records))
	return len(records), nil
}

// Ready pings the repository when it supports it.
func (a *App) Ready(ctx context.Context) error {
	if p, ok := a.Backend.Repo.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (a *App) Close() error {
	return a.Backend.Cleanup()
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Shutdown runs each step under one shared timeout, in order, and joins
// their errors.
func Shutdown(logger *applog.Logger, timeout time.Duration, steps ...func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for _, step := range steps {
		if err := step(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if ctx.Err() != nil {
		logger.Warn("Shutdown timeout reached")
	}
	err := errors.Join(errs...)
	if err == nil {
		logger.Info("Shutdown complete")
	}
	return err
}
