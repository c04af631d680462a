package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"finhealth/internal/spend"
)

// RefreshProcessorConfig holds configuration for the refresh processor
type RefreshProcessorConfig struct {
	// Interval between spend refreshes (default: 15m)
	Interval time.Duration

	// Suggest also asks for new suggestions after each refresh
	Suggest bool
}

func DefaultRefreshProcessorConfig() RefreshProcessorConfig {
	return RefreshProcessorConfig{
		Interval: 15 * time.Minute,
		Suggest:  true,
	}
}

// RefreshProcessor periodically re-reads spend for the current period and
// reclassifies budgets.
type RefreshProcessor struct {
	budgets *BudgetService
	config  RefreshProcessorConfig
	now     func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRefreshProcessor(budgets *BudgetService, config RefreshProcessorConfig) *RefreshProcessor {
	if config.Interval <= 0 {
		config.Interval = DefaultRefreshProcessorConfig().Interval
	}
	return &RefreshProcessor{
		budgets: budgets,
		config:  config,
		now:     time.Now,
	}
}

// Start begins the refresh loop. Returns an error if already running.
func (p *RefreshProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("refresh processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Refresh processor started",
		"component", "worker",
		"interval", p.config.Interval,
		"suggest", p.config.Suggest)
	return nil
}

// Stop signals the loop and waits for the current pass to finish.
func (p *RefreshProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Refresh processor stopped gracefully", "component", "worker")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Refresh processor stop timed out", "component", "worker")
		return ctx.Err()
	}
}

func (p *RefreshProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *RefreshProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Refresh immediately on startup
	p.RunOnce(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single refresh pass for the current period. Failures
// are logged and retried on the next tick.
func (p *RefreshProcessor) RunOnce(ctx context.Context) {
	period := spend.PeriodOf(p.now())
	if _, err := p.budgets.RefreshSpend(ctx, period); err != nil {
		slog.WarnContext(ctx, "Spend refresh failed", "component", "worker", "period", period.String(), "error", err)
		return
	}
	if !p.config.Suggest {
		return
	}
	if _, err := p.budgets.GenerateSuggestions(ctx, period); err != nil {
		slog.WarnContext(ctx, "Suggestion generation failed", "component", "worker", "period", period.String(), "error", err)
	}
}
