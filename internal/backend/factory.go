package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finhealth/internal/amqp"
	"finhealth/internal/cache"
	"finhealth/internal/spend"
	"finhealth/internal/spend/google"
	"finhealth/internal/storage"
	"finhealth/internal/storage/memory"
)

const (
	spendCacheSize       = 512
	cacheCleanupInterval = time.Minute
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger, now: time.Now}
}

// CreateBackend builds the repository, the optional AMQP client and the
// spend source. Anything opened before a failure is closed again.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	res := &BackendResult{}
	var closers []func() error
	res.Cleanup = func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	repo, err := f.createRepository(config)
	if err != nil {
		return nil, err
	}
	res.Repo = repo
	closers = append(closers, repo.Close)

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			res.AMQP = client
			closers = append(closers, client.Close)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	source, err := f.createSpendSource(ctx, config.Spend)
	if err != nil {
		_ = res.Cleanup()
		return nil, err
	}
	if config.Spend.CacheTTL > 0 {
		cached := spend.NewCached(source, spendCacheSize, config.Spend.CacheTTL)
		res.Caches = cache.NewManager()
		cached.Register(res.Caches)
		res.Caches.StartCleanup(cacheCleanupInterval)
		closers = append(closers, func() error { res.Caches.Stop(); return nil })
		source = cached
	}
	res.Source = source

	return res, nil
}

func (f *DefaultFactory) createRepository(config Config) (storage.Repository, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory backend with demo budgets")
		return memory.NewWithBudgets(DemoBudgets()), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSpendSource(ctx context.Context, config SpendConfig) (spend.Source, error) {
	switch config.Type {
	case SheetsSpend:
		cli, err := google.New(ctx, google.Config{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			DashboardBase:   config.DashboardSheetName,
			OAuthClientFile: config.GoogleOAuthClientFile,
			OAuthClientJSON: config.GoogleOAuthClientJSON,
			OAuthTokenFile:  config.GoogleOAuthTokenFile,
			OAuthTokenJSON:  config.GoogleOAuthTokenJSON,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets spend source: %w", err)
		}
		f.logger.Info("Initialized Google Sheets spend source", "sheet", config.DashboardSheetName)
		return cli, nil
	case MemorySpend:
		src := spend.NewMemorySource()
		if err := SeedDemoSpend(src, spend.PeriodOf(f.now())); err != nil {
			return nil, err
		}
		f.logger.Info("Initialized memory spend source")
		return src, nil
	default:
		return nil, fmt.Errorf("unsupported spend source: %s", config.Type)
	}
}
