package storage

import (
	"context"
	"database/sql"
	"time"
)

const listBudgets = `SELECT id, category, emoji, suggested_amount, current_amount, spent_amount,
       status, last_month_spent, is_suggestion, position, updated_at
FROM budgets
ORDER BY position, id`

func (q *Queries) ListBudgets(ctx context.Context) ([]Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Budget
	for rows.Next() {
		var i Budget
		if err := rows.Scan(
			&i.ID,
			&i.Category,
			&i.Emoji,
			&i.SuggestedAmount,
			&i.CurrentAmount,
			&i.SpentAmount,
			&i.Status,
			&i.LastMonthSpent,
			&i.IsSuggestion,
			&i.Position,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Appending moves the row behind every other row, which mirrors promotion
// of a suggestion to the end of the active list.
const appendBudget = `INSERT INTO budgets (
    id, category, emoji, suggested_amount, current_amount, spent_amount,
    status, last_month_spent, is_suggestion, position, updated_at
) VALUES (
    ?, ?, ?, ?, ?, ?, ?, ?, ?,
    (SELECT COALESCE(MAX(position), 0) + 1 FROM budgets), ?
)
ON CONFLICT(id) DO UPDATE SET
    category = excluded.category,
    emoji = excluded.emoji,
    suggested_amount = excluded.suggested_amount,
    current_amount = excluded.current_amount,
    spent_amount = excluded.spent_amount,
    status = excluded.status,
    last_month_spent = excluded.last_month_spent,
    is_suggestion = excluded.is_suggestion,
    position = excluded.position,
    updated_at = excluded.updated_at`

type BudgetParams struct {
	ID              string
	Category        string
	Emoji           string
	SuggestedAmount float64
	CurrentAmount   float64
	SpentAmount     float64
	Status          sql.NullString
	LastMonthSpent  float64
	IsSuggestion    bool
	UpdatedAt       time.Time
}

func (q *Queries) AppendBudget(ctx context.Context, arg BudgetParams) error {
	_, err := q.db.ExecContext(ctx, appendBudget,
		arg.ID,
		arg.Category,
		arg.Emoji,
		arg.SuggestedAmount,
		arg.CurrentAmount,
		arg.SpentAmount,
		arg.Status,
		arg.LastMonthSpent,
		arg.IsSuggestion,
		arg.UpdatedAt,
	)
	return err
}

const updateBudget = `UPDATE budgets SET
    category = ?,
    emoji = ?,
    suggested_amount = ?,
    current_amount = ?,
    spent_amount = ?,
    status = ?,
    last_month_spent = ?,
    is_suggestion = ?,
    updated_at = ?
WHERE id = ?`

func (q *Queries) UpdateBudget(ctx context.Context, arg BudgetParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateBudget,
		arg.Category,
		arg.Emoji,
		arg.SuggestedAmount,
		arg.CurrentAmount,
		arg.SpentAmount,
		arg.Status,
		arg.LastMonthSpent,
		arg.IsSuggestion,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteBudget = `DELETE FROM budgets WHERE id = ?`

func (q *Queries) DeleteBudget(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteBudget, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteAllBudgets = `DELETE FROM budgets`

func (q *Queries) DeleteAllBudgets(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllBudgets)
	return err
}

const insertScorePoint = `INSERT INTO score_history (period_label, score, classification, recorded_at)
VALUES (?, ?, ?, ?)
RETURNING id`

type InsertScorePointParams struct {
	PeriodLabel    string
	Score          int64
	Classification sql.NullString
	RecordedAt     time.Time
}

func (q *Queries) InsertScorePoint(ctx context.Context, arg InsertScorePointParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertScorePoint,
		arg.PeriodLabel,
		arg.Score,
		arg.Classification,
		arg.RecordedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const insertScoreComponent = `INSERT INTO score_components (history_id, position, name, raw_score, weight, contribution)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertScoreComponent(ctx context.Context, arg ScoreComponent) error {
	_, err := q.db.ExecContext(ctx, insertScoreComponent,
		arg.HistoryID,
		arg.Position,
		arg.Name,
		arg.RawScore,
		arg.Weight,
		arg.Contribution,
	)
	return err
}

const listScoreHistory = `SELECT id, period_label, score, classification, recorded_at
FROM score_history
ORDER BY id`

func (q *Queries) ListScoreHistory(ctx context.Context) ([]ScoreHistory, error) {
	rows, err := q.db.QueryContext(ctx, listScoreHistory)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ScoreHistory
	for rows.Next() {
		var i ScoreHistory
		if err := rows.Scan(&i.ID, &i.PeriodLabel, &i.Score, &i.Classification, &i.RecordedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const latestScoredPoint = `SELECT id, period_label, score, classification, recorded_at
FROM score_history
WHERE classification IS NOT NULL
ORDER BY id DESC
LIMIT 1`

func (q *Queries) LatestScoredPoint(ctx context.Context) (ScoreHistory, error) {
	row := q.db.QueryRowContext(ctx, latestScoredPoint)
	var i ScoreHistory
	err := row.Scan(&i.ID, &i.PeriodLabel, &i.Score, &i.Classification, &i.RecordedAt)
	return i, err
}

const listScoreComponents = `SELECT history_id, position, name, raw_score, weight, contribution
FROM score_components
WHERE history_id = ?
ORDER BY position`

func (q *Queries) ListScoreComponents(ctx context.Context, historyID int64) ([]ScoreComponent, error) {
	rows, err := q.db.QueryContext(ctx, listScoreComponents, historyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ScoreComponent
	for rows.Next() {
		var i ScoreComponent
		if err := rows.Scan(&i.HistoryID, &i.Position, &i.Name, &i.RawScore, &i.Weight, &i.Contribution); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertBudgetEvent = `INSERT INTO budget_events (event_id, action, budget_id, category, amount, spent, status, occurred_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(event_id) DO NOTHING`

type InsertBudgetEventParams struct {
	EventID    string
	Action     string
	BudgetID   string
	Category   string
	Amount     float64
	Spent      float64
	Status     sql.NullString
	OccurredAt time.Time
}

func (q *Queries) InsertBudgetEvent(ctx context.Context, arg InsertBudgetEventParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertBudgetEvent,
		arg.EventID,
		arg.Action,
		arg.BudgetID,
		arg.Category,
		arg.Amount,
		arg.Spent,
		arg.Status,
		arg.OccurredAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listBudgetEvents = `SELECT id, event_id, action, budget_id, category, amount, spent, status, occurred_at
FROM budget_events
ORDER BY id DESC
LIMIT ?`

func (q *Queries) ListBudgetEvents(ctx context.Context, limit int64) ([]BudgetEvent, error) {
	rows, err := q.db.QueryContext(ctx, listBudgetEvents, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BudgetEvent
	for rows.Next() {
		var i BudgetEvent
		if err := rows.Scan(
			&i.ID,
			&i.EventID,
			&i.Action,
			&i.BudgetID,
			&i.Category,
			&i.Amount,
			&i.Spent,
			&i.Status,
			&i.OccurredAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
