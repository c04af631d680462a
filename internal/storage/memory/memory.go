// Package memory is an in-process storage.Repository for the memory backend
// and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"finhealth/internal/budget"
	"finhealth/internal/core"
	"finhealth/internal/storage"
)

type Store struct {
	mu      sync.RWMutex
	budgets []core.Budget
	scores  []storage.ScoreRecord
	events  []storage.Event
	seen    map[string]struct{}
}

var _ storage.Repository = (*Store)(nil)

func New() *Store {
	return &Store{seen: make(map[string]struct{})}
}

// NewWithBudgets returns a store preloaded with records in order.
func NewWithBudgets(records []core.Budget) *Store {
	s := New()
	s.budgets = append(s.budgets, records...)
	return s
}

func (s *Store) Close() error { return nil }

func (s *Store) LoadBudgets(context.Context) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Budget(nil), s.budgets...), nil
}

func (s *Store) ReplaceBudgets(_ context.Context, records []core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets = append([]core.Budget(nil), records...)
	return nil
}

func (s *Store) ApplyChanges(_ context.Context, changes []budget.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := append([]core.Budget(nil), s.budgets...)
	for _, c := range changes {
		i := indexOf(next, c.Budget.ID)
		switch c.Action {
		case budget.ActionSuggested, budget.ActionCreated, budget.ActionAccepted:
			if i >= 0 {
				next = append(next[:i], next[i+1:]...)
			}
			next = append(next, c.Budget)
		case budget.ActionEdited, budget.ActionSpendUpdated:
			if i < 0 {
				return fmt.Errorf("%s budget %s: %w", c.Action, c.Budget.ID, core.ErrNotFound)
			}
			next[i] = c.Budget
		case budget.ActionDismissed, budget.ActionDeleted:
			if i >= 0 {
				next = append(next[:i], next[i+1:]...)
			}
		default:
			return fmt.Errorf("unknown budget action %q", c.Action)
		}
	}
	s.budgets = next
	return nil
}

func (s *Store) AppendScore(ctx context.Context, rec storage.ScoreRecord) error {
	return s.AppendScores(ctx, []storage.ScoreRecord{rec})
}

func (s *Store) AppendScores(_ context.Context, recs []storage.ScoreRecord) error {
	out := make([]storage.ScoreRecord, len(recs))
	now := time.Now()
	for i, rec := range recs {
		if err := rec.Point.Validate(); err != nil {
			return err
		}
		if rec.RecordedAt.IsZero() {
			rec.RecordedAt = now
		}
		rec.Components = append([]core.ScoreComponent(nil), rec.Components...)
		out[i] = rec
	}

	s.mu.Lock()
	s.scores = append(s.scores, out...)
	s.mu.Unlock()
	return nil
}

func (s *Store) ScoreHistory(context.Context) ([]core.HistoricalScorePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.HistoricalScorePoint, len(s.scores))
	for i, r := range s.scores {
		out[i] = r.Point
	}
	return out, nil
}

func (s *Store) LatestScore(context.Context) (storage.ScoreRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.scores) - 1; i >= 0; i-- {
		if s.scores[i].Classification != 0 {
			rec := s.scores[i]
			rec.Components = append([]core.ScoreComponent(nil), rec.Components...)
			return rec, true, nil
		}
	}
	return storage.ScoreRecord{}, false, nil
}

func (s *Store) RecordEvent(_ context.Context, e storage.Event) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[e.EventID]; dup {
		return false, nil
	}
	s.seen[e.EventID] = struct{}{}
	s.events = append(s.events, e)
	return true, nil
}

// RecentEvents returns up to limit events, newest first.
func (s *Store) RecentEvents(_ context.Context, limit int) ([]storage.Event, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]storage.Event, 0, min(limit, len(s.events)))
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

func indexOf(list []core.Budget, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
