package core

// BudgetSummary aggregates the active budget set.
type BudgetSummary struct {
	TotalBudget     float64
	TotalSpent      float64
	Remaining       float64
	OverallProgress float64 // percent, not clamped
	Count           int
	ByStatus        map[Status]int
}

// Summarize totals the active budgets. Suggestions passed in by mistake are
// skipped since they have no limit in force.
func Summarize(active []Budget) BudgetSummary {
	s := BudgetSummary{ByStatus: make(map[Status]int, len(Statuses()))}
	for _, b := range active {
		if b.IsSuggestion {
			continue
		}
		s.TotalBudget += b.CurrentAmount
		s.TotalSpent += b.SpentAmount
		s.Count++
		s.ByStatus[b.Status]++
	}
	s.Remaining = s.TotalBudget - s.TotalSpent
	if s.TotalBudget > 0 {
		s.OverallProgress = s.TotalSpent / s.TotalBudget * 100
	}
	return s
}
