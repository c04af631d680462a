// Package storage persists budgets, the health score history and the budget
// event audit trail.
package storage

import (
	"context"
	"time"

	"finhealth/internal/budget"
	"finhealth/internal/core"
)

// ScoreRecord is one entry of the score history. Components are empty for
// points imported without a breakdown.
type ScoreRecord struct {
	Point          core.HistoricalScorePoint
	Classification core.Classification
	Components     []core.ScoreComponent
	RecordedAt     time.Time
}

// Event is an audited budget lifecycle event.
type Event struct {
	EventID    string
	Action     budget.Action
	BudgetID   string
	Category   string
	Amount     float64
	Spent      float64
	Status     core.Status
	OccurredAt time.Time
}

// BudgetRepository stores the budget records behind budget.Store.
type BudgetRepository interface {
	LoadBudgets(ctx context.Context) ([]core.Budget, error)
	// ApplyChanges persists the changes of one command atomically.
	ApplyChanges(ctx context.Context, changes []budget.Change) error
}

// ScoreRepository stores the append-only score history.
type ScoreRepository interface {
	AppendScore(ctx context.Context, rec ScoreRecord) error
	// AppendScores persists recs in order, all or none.
	AppendScores(ctx context.Context, recs []ScoreRecord) error
	ScoreHistory(ctx context.Context) ([]core.HistoricalScorePoint, error)
	// LatestScore returns the newest record that carries a breakdown.
	LatestScore(ctx context.Context) (ScoreRecord, bool, error)
}

// EventRepository keeps the audit trail written by the event worker.
type EventRepository interface {
	// RecordEvent stores e once; replays of the same EventID report false.
	RecordEvent(ctx context.Context, e Event) (bool, error)
	RecentEvents(ctx context.Context, limit int) ([]Event, error)
}

type Repository interface {
	BudgetRepository
	ScoreRepository
	EventRepository
	Close() error
}
