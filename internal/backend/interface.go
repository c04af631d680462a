package backend

import (
	"context"
	"time"

	"finhealth/internal/amqp"
	"finhealth/internal/cache"
	"finhealth/internal/spend"
	"finhealth/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the infrastructure the services are wired on. AMQP is
// nil when no broker is configured.
type BackendResult struct {
	Repo    storage.Repository
	AMQP    *amqp.Client
	Source  spend.Source
	Caches  *cache.Manager
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// AMQP, optional for every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	Spend SpendConfig
}

type SpendConfig struct {
	Type     SpendType
	CacheTTL time.Duration // 0 disables caching

	// Google Sheets specific
	GoogleSpreadsheetID   string
	DashboardSheetName    string
	GoogleOAuthClientFile string
	GoogleOAuthTokenFile  string
	GoogleOAuthClientJSON string
	GoogleOAuthTokenJSON  string
}

// BackendType represents the type of persistence backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// SpendType selects where spend figures come from
type SpendType string

const (
	MemorySpend SpendType = "memory"
	SheetsSpend SpendType = "sheets"
)

func (st SpendType) IsValid() bool {
	switch st {
	case MemorySpend, SheetsSpend:
		return true
	default:
		return false
	}
}
