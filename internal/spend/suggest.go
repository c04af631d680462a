package spend

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"finhealth/internal/core"
)

const (
	suggestionStep    = 50
	minimumSuggestion = 50
)

// HistorySuggester suggests a budget for every category that had spend in
// the previous period and is not yet covered.
type HistorySuggester struct {
	source Source
	newID  func() string
	emoji  map[string]string
}

var _ SuggestionGenerator = (*HistorySuggester)(nil)

func NewHistorySuggester(source Source, emoji map[string]string) *HistorySuggester {
	return &HistorySuggester{
		source: source,
		newID:  func() string { return "sug-" + uuid.NewString() },
		emoji:  emoji,
	}
}

// SuggestedAmount rounds last period's spend to the nearest 50, never below
// 50.
func SuggestedAmount(lastPeriod float64) float64 {
	v := math.Round(lastPeriod/suggestionStep) * suggestionStep
	return math.Max(v, minimumSuggestion)
}

func (g *HistorySuggester) Suggest(ctx context.Context, period Period, covered []string) ([]core.Budget, error) {
	prev := period.Previous()
	categories, err := g.source.Categories(ctx, prev)
	if err != nil {
		return nil, fmt.Errorf("list categories for %s: %w", prev, err)
	}
	skip := make(map[string]struct{}, len(covered))
	for _, c := range covered {
		skip[categoryKey(c)] = struct{}{}
	}

	var out []core.Budget
	for _, category := range categories {
		key := categoryKey(category)
		if _, ok := skip[key]; ok {
			continue
		}
		last, err := g.source.SpentLastPeriod(ctx, category, period)
		if err != nil {
			return nil, fmt.Errorf("last period spend for %s: %w", category, err)
		}
		if last <= 0 {
			continue
		}
		spent, err := g.source.SpentForCategory(ctx, category, period)
		if err != nil {
			return nil, fmt.Errorf("spend for %s: %w", category, err)
		}
		out = append(out, core.Budget{
			ID:              g.newID(),
			Category:        strings.TrimSpace(category),
			Emoji:           g.emoji[strings.TrimSpace(category)],
			SuggestedAmount: SuggestedAmount(last),
			SpentAmount:     spent,
			LastMonthSpent:  last,
			IsSuggestion:    true,
		})
		skip[key] = struct{}{}
	}
	return out, nil
}

// categoryKey matches categories regardless of case and surrounding spaces.
func categoryKey(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
