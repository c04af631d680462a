package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"finhealth/internal/amqp"
	"finhealth/internal/budget"
	"finhealth/internal/core"
	applog "finhealth/internal/log"
	"finhealth/internal/metrics"
	"finhealth/internal/spend"
	"finhealth/internal/storage"
)

// refreshConcurrency bounds parallel spend lookups during a refresh.
const refreshConcurrency = 4

// EventPublisher hands committed budget changes to a broker.
type EventPublisher interface {
	PublishBudgetEvent(ctx context.Context, msg *amqp.BudgetEventMessage) error
}

// BudgetServiceConfig wires the collaborators of a BudgetService. Only Repo
// is required.
type BudgetServiceConfig struct {
	Repo      storage.BudgetRepository
	Publisher EventPublisher
	Source    spend.Source
	Suggester spend.SuggestionGenerator
	Metrics   *metrics.Metrics
	Logger    *applog.Logger
	Now       func() time.Time
	NewID     func() string
}

// BudgetService orchestrates the budget store, its persistence, lifecycle
// events and the spend source.
type BudgetService struct {
	store     *budget.Store
	repo      storage.BudgetRepository
	publisher EventPublisher
	source    spend.Source
	suggester spend.SuggestionGenerator
	metrics   *metrics.Metrics
	logger    *applog.Logger
	slog      *applog.StructuredLogger
	now       func() time.Time
}

type sinkKey struct{}

// changeSink collects the changes committed during one command.
type changeSink struct {
	changes []budget.Change
}

func NewBudgetService(cfg BudgetServiceConfig) (*BudgetService, error) {
	if cfg.Repo == nil {
		return nil, errors.New("budget service: repository is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentBudget)
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	s := &BudgetService{
		repo:      cfg.Repo,
		publisher: cfg.Publisher,
		source:    cfg.Source,
		suggester: cfg.Suggester,
		metrics:   cfg.Metrics,
		logger:    logger,
		slog:      applog.NewStructuredLogger(logger),
		now:       now,
	}
	if s.suggester == nil && s.source != nil {
		s.suggester = spend.NewHistorySuggester(s.source, nil)
	}

	opts := []budget.Option{budget.WithCommit(s.commit)}
	if cfg.NewID != nil {
		opts = append(opts, budget.WithIDGenerator(cfg.NewID))
	}
	s.store = budget.NewStore(opts...)
	if s.metrics != nil {
		s.store.Subscribe(func(snap budget.Snapshot) {
			s.metrics.ObserveBudgets(snap.Active, snap.Suggestions)
		})
	}
	return s, nil
}

// Store exposes the underlying store for read-only collaborators.
func (s *BudgetService) Store() *budget.Store { return s.store }

// Load restores the persisted budgets into the store.
func (s *BudgetService) Load(ctx context.Context) error {
	records, err := s.repo.LoadBudgets(ctx)
	if err != nil {
		return fmt.Errorf("load budgets: %w", err)
	}
	if err := s.store.Restore(records); err != nil {
		return fmt.Errorf("restore budgets: %w", err)
	}
	snap := s.store.Snapshot()
	s.logger.InfoContext(ctx, "Budgets loaded",
		"active", len(snap.Active),
		"suggestions", len(snap.Suggestions))
	return nil
}

// commit persists changes before the store publishes the new snapshot.
func (s *BudgetService) commit(ctx context.Context, changes []budget.Change) error {
	if err := s.repo.ApplyChanges(ctx, changes); err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	if sink, ok := ctx.Value(sinkKey{}).(*changeSink); ok {
		sink.changes = append(sink.changes, changes...)
	}
	return nil
}

func (s *BudgetService) Snapshot() budget.Snapshot   { return s.store.Snapshot() }
func (s *BudgetService) Active() []core.Budget       { return s.store.Active() }
func (s *BudgetService) Suggestions() []core.Budget  { return s.store.Suggestions() }
func (s *BudgetService) Summary() core.BudgetSummary { return s.store.Summary() }

func (s *BudgetService) Get(id string) (core.Budget, error) { return s.store.Get(id) }

func (s *BudgetService) AcceptSuggestion(ctx context.Context, id string, amount *float64) (core.Budget, error) {
	var b core.Budget
	err := s.run(ctx, applog.OpAccept, func(ctx context.Context) error {
		var err error
		b, err = s.store.AcceptSuggestion(ctx, id, amount)
		return err
	})
	return b, err
}

func (s *BudgetService) EditBudget(ctx context.Context, id string, amount float64) (core.Budget, error) {
	var b core.Budget
	err := s.run(ctx, applog.OpUpdate, func(ctx context.Context) error {
		var err error
		b, err = s.store.EditBudget(ctx, id, amount)
		return err
	})
	return b, err
}

func (s *BudgetService) DismissSuggestion(ctx context.Context, id string) error {
	return s.run(ctx, applog.OpDismiss, func(ctx context.Context) error {
		return s.store.DismissSuggestion(ctx, id)
	})
}

func (s *BudgetService) AddCustomBudget(ctx context.Context, nb core.NewBudget) (core.Budget, error) {
	var b core.Budget
	err := s.run(ctx, applog.OpCreate, func(ctx context.Context) error {
		var err error
		b, err = s.store.AddCustomBudget(ctx, nb)
		return err
	})
	return b, err
}

func (s *BudgetService) DeleteBudget(ctx context.Context, id string) error {
	return s.run(ctx, applog.OpDelete, func(ctx context.Context) error {
		return s.store.DeleteBudget(ctx, id)
	})
}

// GenerateSuggestions asks the suggestion generator for categories without a
// budget and adds what it proposes.
func (s *BudgetService) GenerateSuggestions(ctx context.Context, period spend.Period) (int, error) {
	if s.suggester == nil {
		return 0, errors.New("no suggestion generator configured")
	}
	snap := s.store.Snapshot()
	covered := make([]string, 0, len(snap.Active)+len(snap.Suggestions))
	for _, b := range snap.Active {
		covered = append(covered, b.Category)
	}
	for _, b := range snap.Suggestions {
		covered = append(covered, b.Category)
	}

	candidates, err := s.suggester.Suggest(ctx, period, covered)
	if err != nil {
		return 0, fmt.Errorf("generate suggestions: %w", err)
	}
	var n int
	err = s.run(ctx, applog.OpCreate, func(ctx context.Context) error {
		var err error
		n, err = s.store.AddSuggestions(ctx, candidates)
		return err
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "Suggestions generated", "count", n, applog.FieldPeriod, period.String())
	}
	return n, nil
}

type spendFigures struct {
	id        string
	spent     float64
	lastMonth float64
}

// RefreshSpend re-reads spend for every budget from the spend source and
// reclassifies the records whose figures changed. It returns how many
// records were updated.
func (s *BudgetService) RefreshSpend(ctx context.Context, period spend.Period) (int, error) {
	if s.source == nil {
		return 0, errors.New("no spend source configured")
	}
	if !period.Valid() {
		return 0, fmt.Errorf("invalid period %v", period)
	}
	start := s.now()
	n, err := s.refreshSpend(ctx, period)
	if s.metrics != nil {
		s.metrics.ObserveRefresh(s.now().Sub(start), err)
	}
	return n, err
}

func (s *BudgetService) refreshSpend(ctx context.Context, period spend.Period) (int, error) {
	if inv, ok := s.source.(interface{ Invalidate() }); ok {
		inv.Invalidate()
	}

	snap := s.store.Snapshot()
	records := append(append([]core.Budget(nil), snap.Active...), snap.Suggestions...)
	figures := make([]spendFigures, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)
	for i, b := range records {
		g.Go(func() error {
			spent, err := s.source.SpentForCategory(gctx, b.Category, period)
			if err != nil {
				return fmt.Errorf("spend for %q: %w", b.Category, err)
			}
			last, err := s.source.SpentLastPeriod(gctx, b.Category, period)
			if err != nil {
				return fmt.Errorf("last period spend for %q: %w", b.Category, err)
			}
			figures[i] = spendFigures{id: b.ID, spent: spent, lastMonth: last}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.slog.LogError(ctx, "Spend refresh failed", err, applog.ComponentSpend, applog.OpRefresh, nil)
		return 0, fmt.Errorf("refresh spend: %w", err)
	}

	updated := 0
	for i, f := range figures {
		b := records[i]
		if b.SpentAmount == f.spent && b.LastMonthSpent == f.lastMonth {
			continue
		}
		err := s.run(ctx, applog.OpRefresh, func(ctx context.Context) error {
			_, err := s.store.UpdateSpent(ctx, f.id, f.spent, f.lastMonth)
			return err
		})
		switch {
		case errors.Is(err, core.ErrNotFound):
			// Removed since the snapshot was taken.
			continue
		case err != nil:
			return updated, err
		}
		updated++
	}
	s.logger.InfoContext(ctx, "Spend refreshed",
		applog.FieldPeriod, period.String(),
		"budgets", len(records),
		"updated", updated)
	return updated, nil
}

// run executes one store command, then logs and publishes what it committed.
func (s *BudgetService) run(ctx context.Context, op string, cmd func(ctx context.Context) error) error {
	sink := &changeSink{}
	err := cmd(context.WithValue(ctx, sinkKey{}, sink))
	if err != nil {
		if s.metrics != nil {
			s.metrics.BudgetRejections.WithLabelValues(op, errorReason(err)).Inc()
		}
		if errorReason(err) == "internal" {
			s.slog.LogError(ctx, "Budget command failed", err, applog.ComponentBudget, op, nil)
		} else {
			s.logger.WarnContext(ctx, "Budget command rejected", applog.FieldOperation, op, applog.FieldError, err.Error())
		}
		return err
	}

	for _, c := range sink.changes {
		b := c.Budget
		status := ""
		if b.Status.Valid() {
			status = b.Status.String()
		}
		amount := b.CurrentAmount
		if b.IsSuggestion {
			amount = b.SuggestedAmount
		}
		s.slog.LogBudgetChange(ctx, string(c.Action), b.ID, b.Category, amount, b.SpentAmount, status)
		if s.metrics != nil {
			s.metrics.BudgetTransitions.WithLabelValues(string(c.Action)).Inc()
		}
		s.publish(ctx, c)
	}
	return nil
}

// publish is best effort: the change is already persisted.
func (s *BudgetService) publish(ctx context.Context, c budget.Change) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewBudgetEventMessage(c)
	err := s.publisher.PublishBudgetEvent(ctx, msg)
	if s.metrics != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		s.metrics.EventsPublished.WithLabelValues(result).Inc()
	}
	if err != nil {
		s.slog.LogError(ctx, "Failed to publish budget event", err, applog.ComponentAMQP, applog.OpPublish,
			applog.NewFields().WithBudget(c.Budget.ID, c.Budget.Category, msg.Amount, msg.Spent, msg.Status))
	}
}

// errorReason maps a command error to a short label.
func errorReason(err error) string {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return "not_found"
	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrInvalidLimit), errors.Is(err, core.ErrEmptyCategory):
		return "invalid"
	case errors.Is(err, core.ErrDuplicateID):
		return "duplicate"
	default:
		return "internal"
	}
}

