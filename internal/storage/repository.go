package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"finhealth/internal/budget"
	"finhealth/internal/core"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
	schema  uint
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := Migrate(dbPath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps PRAGMAs in force and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
		schema:  version,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SchemaVersion is the migration version the database was opened at.
func (r *SQLiteRepository) SchemaVersion() uint { return r.schema }

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) LoadBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.queries.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, 0, len(rows))
	for _, row := range rows {
		b, err := budgetFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *SQLiteRepository) ApplyChanges(ctx context.Context, changes []budget.Change) error {
	if len(changes) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	now := r.now().UTC()
	for _, c := range changes {
		if err := applyChange(ctx, q, c, now); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit budget changes: %w", err)
	}

	slog.DebugContext(ctx, "Budget changes persisted", "count", len(changes), "first_action", string(changes[0].Action))
	return nil
}

func applyChange(ctx context.Context, q *Queries, c budget.Change, now time.Time) error {
	params := budgetParams(c.Budget, now)
	switch c.Action {
	case budget.ActionSuggested, budget.ActionCreated, budget.ActionAccepted:
		if err := q.AppendBudget(ctx, params); err != nil {
			return fmt.Errorf("%s budget %s: %w", c.Action, c.Budget.ID, err)
		}
	case budget.ActionEdited, budget.ActionSpendUpdated:
		n, err := q.UpdateBudget(ctx, params)
		if err != nil {
			return fmt.Errorf("%s budget %s: %w", c.Action, c.Budget.ID, err)
		}
		if n == 0 {
			return fmt.Errorf("%s budget %s: %w", c.Action, c.Budget.ID, core.ErrNotFound)
		}
	case budget.ActionDismissed, budget.ActionDeleted:
		if _, err := q.DeleteBudget(ctx, c.Budget.ID); err != nil {
			return fmt.Errorf("%s budget %s: %w", c.Action, c.Budget.ID, err)
		}
	default:
		return fmt.Errorf("unknown budget action %q", c.Action)
	}
	return nil
}

// ReplaceBudgets overwrites every stored budget with records, keeping their
// order. Used to seed a fresh database.
func (r *SQLiteRepository) ReplaceBudgets(ctx context.Context, records []core.Budget) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteAllBudgets(ctx); err != nil {
		return fmt.Errorf("clear budgets: %w", err)
	}
	now := r.now().UTC()
	for _, b := range records {
		if err := q.AppendBudget(ctx, budgetParams(b, now)); err != nil {
			return fmt.Errorf("seed budget %s: %w", b.ID, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) AppendScore(ctx context.Context, rec ScoreRecord) error {
	return r.AppendScores(ctx, []ScoreRecord{rec})
}

func (r *SQLiteRepository) AppendScores(ctx context.Context, recs []ScoreRecord) error {
	for _, rec := range recs {
		if err := rec.Point.Validate(); err != nil {
			return err
		}
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	now := r.now()
	for _, rec := range recs {
		if err := insertScore(ctx, q, rec, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertScore(ctx context.Context, q *Queries, rec ScoreRecord, now time.Time) error {
	recordedAt := rec.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = now
	}
	var class sql.NullString
	if rec.Classification != 0 {
		class = sql.NullString{String: rec.Classification.String(), Valid: true}
	}
	id, err := q.InsertScorePoint(ctx, InsertScorePointParams{
		PeriodLabel:    rec.Point.PeriodLabel,
		Score:          int64(rec.Point.Score),
		Classification: class,
		RecordedAt:     recordedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("insert score point %s: %w", rec.Point.PeriodLabel, err)
	}
	for i, c := range rec.Components {
		err := q.InsertScoreComponent(ctx, ScoreComponent{
			HistoryID:    id,
			Position:     int64(i),
			Name:         c.Name,
			RawScore:     c.RawScore,
			Weight:       c.Weight,
			Contribution: c.Contribution,
		})
		if err != nil {
			return fmt.Errorf("insert score component %q: %w", c.Name, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) ScoreHistory(ctx context.Context) ([]core.HistoricalScorePoint, error) {
	rows, err := r.queries.ListScoreHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("list score history: %w", err)
	}
	out := make([]core.HistoricalScorePoint, len(rows))
	for i, row := range rows {
		out[i] = core.HistoricalScorePoint{PeriodLabel: row.PeriodLabel, Score: int(row.Score)}
	}
	return out, nil
}

func (r *SQLiteRepository) LatestScore(ctx context.Context) (ScoreRecord, bool, error) {
	row, err := r.queries.LatestScoredPoint(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return ScoreRecord{}, false, nil
	}
	if err != nil {
		return ScoreRecord{}, false, fmt.Errorf("latest score: %w", err)
	}
	comps, err := r.queries.ListScoreComponents(ctx, row.ID)
	if err != nil {
		return ScoreRecord{}, false, fmt.Errorf("list score components: %w", err)
	}
	class, err := core.ParseClassification(row.Classification.String)
	if err != nil {
		return ScoreRecord{}, false, err
	}
	rec := ScoreRecord{
		Point:          core.HistoricalScorePoint{PeriodLabel: row.PeriodLabel, Score: int(row.Score)},
		Classification: class,
		RecordedAt:     row.RecordedAt,
		Components:     make([]core.ScoreComponent, len(comps)),
	}
	for i, c := range comps {
		rec.Components[i] = core.ScoreComponent{
			Name:         c.Name,
			RawScore:     c.RawScore,
			Weight:       c.Weight,
			Contribution: c.Contribution,
		}
	}
	return rec, true, nil
}

func (r *SQLiteRepository) RecordEvent(ctx context.Context, e Event) (bool, error) {
	n, err := r.queries.InsertBudgetEvent(ctx, InsertBudgetEventParams{
		EventID:    e.EventID,
		Action:     string(e.Action),
		BudgetID:   e.BudgetID,
		Category:   e.Category,
		Amount:     e.Amount,
		Spent:      e.Spent,
		Status:     nullStatus(e.Status),
		OccurredAt: e.OccurredAt.UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("insert budget event %s: %w", e.EventID, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	rows, err := r.queries.ListBudgetEvents(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list budget events: %w", err)
	}
	out := make([]Event, 0, len(rows))
	for _, row := range rows {
		status, err := statusFromNull(row.Status)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", row.EventID, err)
		}
		out = append(out, Event{
			EventID:    row.EventID,
			Action:     budget.Action(row.Action),
			BudgetID:   row.BudgetID,
			Category:   row.Category,
			Amount:     row.Amount,
			Spent:      row.Spent,
			Status:     status,
			OccurredAt: row.OccurredAt,
		})
	}
	return out, nil
}

func budgetParams(b core.Budget, now time.Time) BudgetParams {
	return BudgetParams{
		ID:              b.ID,
		Category:        b.Category,
		Emoji:           b.Emoji,
		SuggestedAmount: b.SuggestedAmount,
		CurrentAmount:   b.CurrentAmount,
		SpentAmount:     b.SpentAmount,
		Status:          nullStatus(b.Status),
		LastMonthSpent:  b.LastMonthSpent,
		IsSuggestion:    b.IsSuggestion,
		UpdatedAt:       now,
	}
}

func budgetFromRow(row Budget) (core.Budget, error) {
	status, err := statusFromNull(row.Status)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %s: %w", row.ID, err)
	}
	return core.Budget{
		ID:              row.ID,
		Category:        row.Category,
		Emoji:           row.Emoji,
		SuggestedAmount: row.SuggestedAmount,
		CurrentAmount:   row.CurrentAmount,
		SpentAmount:     row.SpentAmount,
		Status:          status,
		LastMonthSpent:  row.LastMonthSpent,
		IsSuggestion:    row.IsSuggestion,
	}, nil
}

func nullStatus(s core.Status) sql.NullString {
	if !s.Valid() {
		return sql.NullString{}
	}
	return sql.NullString{String: s.String(), Valid: true}
}

func statusFromNull(v sql.NullString) (core.Status, error) {
	if !v.Valid {
		return 0, nil
	}
	return core.ParseStatus(v.String)
}
