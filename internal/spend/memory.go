package spend

import (
	"context"
	"sort"
	"strings"
	"sync"

	"finhealth/internal/core"
)

// MemorySource is a Source backed by a map, seeded by callers.
type MemorySource struct {
	mu    sync.RWMutex
	spent map[Period]map[string]float64
}

var _ Source = (*MemorySource)(nil)

func NewMemorySource() *MemorySource {
	return &MemorySource{spent: make(map[Period]map[string]float64)}
}

// Set records the spend of category in period.
func (s *MemorySource) Set(period Period, category string, amount float64) error {
	if err := core.ValidateSpend(amount); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.spent[period]
	if !ok {
		m = make(map[string]float64)
		s.spent[period] = m
	}
	m[normalize(category)] = amount
	return nil
}

func (s *MemorySource) SpentForCategory(_ context.Context, category string, period Period) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spent[period][normalize(category)], nil
}

func (s *MemorySource) SpentLastPeriod(ctx context.Context, category string, period Period) (float64, error) {
	return s.SpentForCategory(ctx, category, period.Previous())
}

// Categories returns the normalised category keys in period, sorted.
func (s *MemorySource) Categories(_ context.Context, period Period) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.spent[period]))
	for k := range s.spent[period] {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// normalize keeps the category display form but folds surrounding spaces.
func normalize(category string) string {
	return strings.TrimSpace(category)
}
