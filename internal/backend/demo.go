package backend

import (
	"fmt"

	"finhealth/internal/core"
	"finhealth/internal/spend"
)

// DemoBudgets is the starting data of the memory backend.
func DemoBudgets() []core.Budget {
	return []core.Budget{
		{ID: "1", Category: "Food & Dining", Emoji: "🍔", SuggestedAmount: 400, CurrentAmount: 400, SpentAmount: 320, LastMonthSpent: 385},
		{ID: "2", Category: "Transportation", Emoji: "🚗", SuggestedAmount: 200, CurrentAmount: 200, SpentAmount: 180, LastMonthSpent: 195},
		{ID: "3", Category: "Entertainment", Emoji: "🎮", SuggestedAmount: 150, CurrentAmount: 150, SpentAmount: 195, LastMonthSpent: 140},
		{ID: "4", Category: "Shopping", Emoji: "🛍️", SuggestedAmount: 300, CurrentAmount: 300, SpentAmount: 280, LastMonthSpent: 310},
		{ID: "5", Category: "Utilities", Emoji: "💡", SuggestedAmount: 150, CurrentAmount: 150, SpentAmount: 120, LastMonthSpent: 145},
		{ID: "s1", Category: "Healthcare", Emoji: "🏥", SuggestedAmount: 200, LastMonthSpent: 195, IsSuggestion: true},
		{ID: "s2", Category: "Education", Emoji: "📚", SuggestedAmount: 100, LastMonthSpent: 95, IsSuggestion: true},
	}
}

// SeedDemoSpend loads the demo figures into src for period and the one
// before it.
func SeedDemoSpend(src *spend.MemorySource, period spend.Period) error {
	for _, b := range DemoBudgets() {
		if err := src.Set(period, b.Category, b.SpentAmount); err != nil {
			return fmt.Errorf("seed %s: %w", b.Category, err)
		}
		if err := src.Set(period.Previous(), b.Category, b.LastMonthSpent); err != nil {
			return fmt.Errorf("seed %s: %w", b.Category, err)
		}
	}
	return nil
}
