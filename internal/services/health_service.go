package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"finhealth/internal/core"
	"finhealth/internal/health"
	applog "finhealth/internal/log"
	"finhealth/internal/metrics"
	"finhealth/internal/storage"
)

type HealthServiceConfig struct {
	Engine    *core.ScoreEngine
	Providers []health.FactorProvider
	Repo      storage.ScoreRepository
	Metrics   *metrics.Metrics
	Logger    *applog.Logger
	Now       func() time.Time
}

// HealthService scores the configured factors and keeps the score history.
type HealthService struct {
	engine    *core.ScoreEngine
	providers []health.FactorProvider
	repo      storage.ScoreRepository
	metrics   *metrics.Metrics
	logger    *applog.Logger
	slog      *applog.StructuredLogger
	now       func() time.Time

	mu      sync.Mutex
	history *core.ScoreHistory
}

func NewHealthService(cfg HealthServiceConfig) (*HealthService, error) {
	if cfg.Engine == nil {
		return nil, errors.New("health service: score engine is required")
	}
	if cfg.Repo == nil {
		return nil, errors.New("health service: repository is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentHealth)
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &HealthService{
		engine:    cfg.Engine,
		providers: cfg.Providers,
		repo:      cfg.Repo,
		metrics:   cfg.Metrics,
		logger:    logger,
		slog:      applog.NewStructuredLogger(logger),
		now:       now,
		history:   &core.ScoreHistory{},
	}, nil
}

// Load reads the persisted history, then appends seed points if the history
// is still empty. The seed is persisted in one transaction, so a failed seed
// leaves the history empty and the next Load retries it.
func (s *HealthService) Load(ctx context.Context, seed []core.HistoricalScorePoint) error {
	points, err := s.repo.ScoreHistory(ctx)
	if err != nil {
		return fmt.Errorf("load score history: %w", err)
	}
	h, err := core.NewScoreHistory(points...)
	if err != nil {
		return fmt.Errorf("load score history: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = h
	if h.Len() > 0 || len(seed) == 0 {
		return nil
	}
	seeded, err := core.NewScoreHistory(seed...)
	if err != nil {
		return fmt.Errorf("seed score history: %w", err)
	}
	recs := make([]storage.ScoreRecord, len(seed))
	for i, p := range seed {
		recs[i] = storage.ScoreRecord{Point: p}
	}
	if err := s.repo.AppendScores(ctx, recs); err != nil {
		return fmt.Errorf("seed score history: %w", err)
	}
	s.history = seeded
	s.logger.InfoContext(ctx, "Score history seeded", "points", len(seed))
	return nil
}

// Current scores the raw values reported by the providers without touching
// the history.
func (s *HealthService) Current(ctx context.Context) (core.HealthScore, error) {
	raw := make(map[string]float64, len(s.providers))
	for _, p := range s.providers {
		v, err := p.RawScore(ctx)
		if err != nil {
			return core.HealthScore{}, fmt.Errorf("factor %q: %w", p.Name(), err)
		}
		raw[p.Name()] = v
	}
	score, err := s.engine.Score(raw)
	if err != nil {
		s.slog.LogError(ctx, "Health score computation failed", err, applog.ComponentHealth, applog.OpScore, nil)
		return core.HealthScore{}, err
	}
	if s.metrics != nil {
		s.metrics.ObserveScore(score)
	}
	return score, nil
}

// Record scores the current state and appends it to the history under
// label, which defaults to the current month.
func (s *HealthService) Record(ctx context.Context, label string) (core.HealthScore, error) {
	score, err := s.Current(ctx)
	if err != nil {
		return core.HealthScore{}, err
	}
	now := s.now()
	if label == "" {
		label = now.Format("2006-01")
	}
	rec := storage.ScoreRecord{
		Point:          core.HistoricalScorePoint{PeriodLabel: label, Score: score.Overall},
		Classification: score.Classification,
		Components:     score.Components,
		RecordedAt:     now,
	}

	s.mu.Lock()
	err = s.appendLocked(ctx, rec)
	s.mu.Unlock()
	if err != nil {
		return core.HealthScore{}, err
	}
	s.slog.LogScore(ctx, score.Overall, score.Classification.String())
	return score, nil
}

// AppendPoint imports a historical point that has no breakdown.
func (s *HealthService) AppendPoint(ctx context.Context, p core.HistoricalScorePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(ctx, storage.ScoreRecord{Point: p, RecordedAt: s.now()})
}

func (s *HealthService) appendLocked(ctx context.Context, rec storage.ScoreRecord) error {
	if err := rec.Point.Validate(); err != nil {
		return err
	}
	if err := s.repo.AppendScore(ctx, rec); err != nil {
		return fmt.Errorf("persist score: %w", err)
	}
	return s.history.Append(rec.Point)
}

func (s *HealthService) History() []core.HistoricalScorePoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Points()
}

func (s *HealthService) Trend(ctx context.Context, window core.TrendWindow) (core.Trend, error) {
	s.mu.Lock()
	t, err := s.history.Trend(window)
	s.mu.Unlock()
	if err != nil {
		s.logger.WarnContext(ctx, "Trend unavailable",
			applog.FieldWindow, window.String(),
			applog.FieldError, err.Error())
		return core.Trend{}, err
	}
	return t, nil
}

// Tips lists the factors worth improving in the current score.
func (s *HealthService) Tips(ctx context.Context) ([]core.Tip, error) {
	score, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return core.Tips(score), nil
}

// Latest returns the newest recorded score that carries a breakdown.
func (s *HealthService) Latest(ctx context.Context) (storage.ScoreRecord, bool, error) {
	return s.repo.LatestScore(ctx)
}
