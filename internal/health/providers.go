// Package health supplies raw factor scores to the health score engine.
package health

import (
	"context"
	"fmt"
	"math"

	"finhealth/internal/core"
)

// FactorProvider reports the 0..100 raw score of one named factor.
type FactorProvider interface {
	Name() string
	RawScore(ctx context.Context) (float64, error)
}

// StaticProvider always reports the same raw score.
type StaticProvider struct {
	name  string
	score float64
}

func NewStaticProvider(name string, score float64) (*StaticProvider, error) {
	if math.IsNaN(score) || score < 0 || score > 100 {
		return nil, fmt.Errorf("factor %q raw score %v: %w", name, score, core.ErrInvalidScore)
	}
	return &StaticProvider{name: name, score: score}, nil
}

func (p *StaticProvider) Name() string { return p.name }

func (p *StaticProvider) RawScore(context.Context) (float64, error) {
	return p.score, nil
}

// ActiveBudgets lists the budgets currently in force.
type ActiveBudgets interface {
	Active() []core.Budget
}

// BudgetAdherenceProvider scores the share of active budgets that are not
// over their limit. With no active budgets there is nothing to break, so
// the score is 100.
type BudgetAdherenceProvider struct {
	budgets ActiveBudgets
}

func NewBudgetAdherenceProvider(budgets ActiveBudgets) *BudgetAdherenceProvider {
	return &BudgetAdherenceProvider{budgets: budgets}
}

func (p *BudgetAdherenceProvider) Name() string { return core.FactorBudgetAdherence }

func (p *BudgetAdherenceProvider) RawScore(context.Context) (float64, error) {
	active := p.budgets.Active()
	if len(active) == 0 {
		return 100, nil
	}
	within := 0
	for _, b := range active {
		if b.Status != core.StatusDanger {
			within++
		}
	}
	return float64(within) / float64(len(active)) * 100, nil
}

// Providers builds one provider per configured factor: adherence is live,
// every other factor needs an entry in static.
func Providers(factors []core.Factor, budgets ActiveBudgets, static map[string]float64) ([]FactorProvider, error) {
	out := make([]FactorProvider, 0, len(factors))
	for _, f := range factors {
		if f.Name == core.FactorBudgetAdherence && budgets != nil {
			out = append(out, NewBudgetAdherenceProvider(budgets))
			continue
		}
		v, ok := static[f.Name]
		if !ok {
			return nil, fmt.Errorf("factor %q has no provider: %w", f.Name, core.ErrMissingFactor)
		}
		p, err := NewStaticProvider(f.Name, v)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
