// Package budget holds the budget lifecycle state machine.
//
// A budget record is either a pending suggestion, an active budget, or gone.
// Snapshot implements the transitions with value semantics; Store serialises
// commands against a current snapshot, runs an optional commit hook and only
// then publishes the new snapshot to subscribers.
package budget

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"finhealth/internal/core"
)

// CommitFunc is called with the changes of a command before the new snapshot
// becomes visible. Returning an error aborts the command.
type CommitFunc func(ctx context.Context, changes []Change) error

// Option configures a Store.
type Option func(*Store)

// WithCommit installs the commit hook.
func WithCommit(fn CommitFunc) Option {
	return func(s *Store) { s.commit = fn }
}

// WithIDGenerator replaces the UUID generator used for custom budgets.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

type Store struct {
	mu     sync.Mutex
	snap   Snapshot
	commit CommitFunc
	newID  func() string

	subMu  sync.Mutex
	subs   map[int]func(Snapshot)
	nextID int

	// notifyMu serialises delivery; delivered is the newest version handed
	// to subscribers.
	notifyMu  sync.Mutex
	delivered uint64
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		newID: func() string { return uuid.NewString() },
		subs:  make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore replaces the store contents with previously persisted records.
// Statuses of active budgets are re-derived; the commit hook is not called.
func (s *Store) Restore(records []core.Budget) error {
	var next Snapshot
	seen := make(map[string]struct{}, len(records))
	for _, b := range records {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("restore budget %s: %w", b.ID, err)
		}
		if _, ok := seen[b.ID]; ok {
			return fmt.Errorf("restore budget %s: %w", b.ID, core.ErrDuplicateID)
		}
		seen[b.ID] = struct{}{}
		if b.IsSuggestion {
			b.Status = 0
			next.Suggestions = append(next.Suggestions, b)
			continue
		}
		status, err := core.Classify(b.SpentAmount, b.CurrentAmount)
		if err != nil {
			return fmt.Errorf("restore budget %s: %w", b.ID, err)
		}
		b.Status = status
		next.Active = append(next.Active, b)
	}

	s.mu.Lock()
	next.Version = s.snap.Version + 1
	s.snap = next
	s.mu.Unlock()

	s.notify(next)
	return nil
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.clone()
}

// Active lists the active budgets.
func (s *Store) Active() []core.Budget {
	return s.Snapshot().Active
}

// Suggestions lists the pending suggestions.
func (s *Store) Suggestions() []core.Budget {
	return s.Snapshot().Suggestions
}

// Summary totals the active budgets.
func (s *Store) Summary() core.BudgetSummary {
	return s.Snapshot().Summary()
}

// Get returns one record by id.
func (s *Store) Get(id string) (core.Budget, error) {
	b, ok := s.Snapshot().Find(id)
	if !ok {
		return core.Budget{}, fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	return b, nil
}

// Subscribe registers fn to receive new snapshots in commit order. A
// snapshot older than one already delivered is skipped, so the last value a
// subscriber saw is always the newest. Callbacks run one at a time and must
// not issue store commands. The returned func removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) AcceptSuggestion(ctx context.Context, id string, amount *float64) (core.Budget, error) {
	return s.apply(ctx, func(cur Snapshot) (Snapshot, []Change, error) {
		return cur.AcceptSuggestion(id, amount)
	})
}

func (s *Store) EditBudget(ctx context.Context, id string, amount float64) (core.Budget, error) {
	return s.apply(ctx, func(cur Snapshot) (Snapshot, []Change, error) {
		return cur.EditBudget(id, amount)
	})
}

func (s *Store) DismissSuggestion(ctx context.Context, id string) error {
	_, err := s.apply(ctx, func(cur Snapshot) (Snapshot, []Change, error) {
		return cur.DismissSuggestion(id)
	})
	return err
}

func (s *Store) AddCustomBudget(ctx context.Context, nb core.NewBudget) (core.Budget, error) {
	return s.apply(ctx, func(cur Snapshot) (Snapshot, []Change, error) {
		return cur.AddCustomBudget(s.newID(), nb)
	})
}

func (s *Store) DeleteBudget(ctx context.Context, id string) error {
	_, err := s.apply(ctx, func(cur Snapshot) (Snapshot, []Change, error) {
		return cur.DeleteBudget(id)
	})
	return err
}

func (s *Store) UpdateSpent(ctx context.Context, id string, spent, lastMonth float64) (core.Budget, error) {
	return s.apply(ctx, func(cur Snapshot) (Snapshot, []Change, error) {
		return cur.UpdateSpent(id, spent, lastMonth)
	})
}

// AddSuggestions ingests candidates and returns how many were added.
func (s *Store) AddSuggestions(ctx context.Context, candidates []core.Budget) (int, error) {
	var n int
	_, err := s.apply(ctx, func(cur Snapshot) (Snapshot, []Change, error) {
		next, changes, err := cur.AddSuggestions(candidates)
		n = len(changes)
		return next, changes, err
	})
	return n, err
}

// apply runs one command under the store lock. The snapshot is swapped only
// when both the transition and the commit hook succeed.
func (s *Store) apply(ctx context.Context, cmd func(Snapshot) (Snapshot, []Change, error)) (core.Budget, error) {
	s.mu.Lock()
	next, changes, err := cmd(s.snap)
	if err != nil {
		s.mu.Unlock()
		return core.Budget{}, err
	}
	if len(changes) == 0 {
		s.mu.Unlock()
		return core.Budget{}, nil
	}
	for i := range changes {
		changes[i].Version = next.Version
	}
	if s.commit != nil {
		if err := s.commit(ctx, changes); err != nil {
			s.mu.Unlock()
			return core.Budget{}, fmt.Errorf("commit %s: %w", changes[0].Action, err)
		}
	}
	s.snap = next
	published := next.clone()
	s.mu.Unlock()

	s.notify(published)
	return changes[len(changes)-1].Budget, nil
}

func (s *Store) notify(snap Snapshot) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if snap.Version <= s.delivered {
		return
	}
	s.delivered = snap.Version

	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap.clone())
	}
}
