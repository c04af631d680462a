package http

import (
	"time"

	"finhealth/internal/core"
	"finhealth/internal/storage"
)

type budgetJSON struct {
	ID              string  `json:"id"`
	Category        string  `json:"category"`
	Emoji           string  `json:"emoji,omitempty"`
	SuggestedAmount float64 `json:"suggested_amount"`
	CurrentAmount   float64 `json:"current_amount"`
	SpentAmount     float64 `json:"spent_amount"`
	LastMonthSpent  float64 `json:"last_month_spent"`
	IsSuggestion    bool    `json:"is_suggestion"`
	// Suggestions carry no status.
	Status      string          `json:"status,omitempty"`
	Progress    float64         `json:"progress"`
	Left        float64         `json:"left"`
	VsLastMonth core.Comparison `json:"vs_last_month"`
}

func toBudgetJSON(b core.Budget) budgetJSON {
	out := budgetJSON{
		ID:              b.ID,
		Category:        b.Category,
		Emoji:           b.Emoji,
		SuggestedAmount: b.SuggestedAmount,
		CurrentAmount:   b.CurrentAmount,
		SpentAmount:     b.SpentAmount,
		LastMonthSpent:  b.LastMonthSpent,
		IsSuggestion:    b.IsSuggestion,
		Progress:        b.Progress(),
		Left:            b.Left(),
		VsLastMonth:     b.VsLastMonth(),
	}
	if b.Status.Valid() {
		out.Status = b.Status.String()
	}
	return out
}

func toBudgetList(list []core.Budget) []budgetJSON {
	out := make([]budgetJSON, 0, len(list))
	for _, b := range list {
		out = append(out, toBudgetJSON(b))
	}
	return out
}

type budgetListJSON struct {
	Version uint64       `json:"version"`
	Budgets []budgetJSON `json:"budgets"`
}

type summaryJSON struct {
	TotalBudget     float64        `json:"total_budget"`
	TotalSpent      float64        `json:"total_spent"`
	Remaining       float64        `json:"remaining"`
	OverallProgress float64        `json:"overall_progress"`
	Count           int            `json:"count"`
	ByStatus        map[string]int `json:"by_status"`
}

func toSummaryJSON(s core.BudgetSummary) summaryJSON {
	by := make(map[string]int, len(core.Statuses()))
	for _, st := range core.Statuses() {
		by[st.String()] = s.ByStatus[st]
	}
	return summaryJSON{
		TotalBudget:     s.TotalBudget,
		TotalSpent:      s.TotalSpent,
		Remaining:       s.Remaining,
		OverallProgress: s.OverallProgress,
		Count:           s.Count,
		ByStatus:        by,
	}
}

type newBudgetRequest struct {
	Category       string  `json:"category"`
	Emoji          string  `json:"emoji"`
	Amount         float64 `json:"amount"`
	SpentAmount    float64 `json:"spent_amount"`
	LastMonthSpent float64 `json:"last_month_spent"`
}

// amountRequest is the body of accept (amount optional) and edit (required).
type amountRequest struct {
	Amount *float64 `json:"amount"`
}

type refreshJSON struct {
	Period    string `json:"period"`
	Updated   int    `json:"updated"`
	Suggested int    `json:"suggested"`
}

type componentJSON struct {
	Name         string             `json:"name"`
	RawScore     float64            `json:"raw_score"`
	Weight       float64            `json:"weight"`
	Contribution float64            `json:"contribution"`
	Tier         core.ComponentTier `json:"tier"`
}

type tipJSON struct {
	Factor          string             `json:"factor"`
	Tier            core.ComponentTier `json:"tier"`
	PotentialPoints float64            `json:"potential_points"`
}

type scoreJSON struct {
	Overall        int                 `json:"overall"`
	Classification core.Classification `json:"classification"`
	Components     []componentJSON     `json:"components"`
	Tips           []tipJSON           `json:"tips"`
}

func toScoreJSON(h core.HealthScore) scoreJSON {
	out := scoreJSON{
		Overall:        h.Overall,
		Classification: h.Classification,
		Components:     make([]componentJSON, 0, len(h.Components)),
		Tips:           []tipJSON{},
	}
	for _, c := range h.Components {
		out.Components = append(out.Components, componentJSON{
			Name:         c.Name,
			RawScore:     c.RawScore,
			Weight:       c.Weight,
			Contribution: c.Contribution,
			Tier:         c.Tier(),
		})
	}
	for _, t := range core.Tips(h) {
		out.Tips = append(out.Tips, tipJSON{Factor: t.Factor, Tier: t.Tier, PotentialPoints: t.PotentialPoints})
	}
	return out
}

type pointJSON struct {
	Period   string         `json:"period"`
	Score    int            `json:"score"`
	Movement *core.Movement `json:"movement,omitempty"`
}

type trendJSON struct {
	Window        core.TrendWindow `json:"window"`
	Points        []pointJSON      `json:"points"`
	Delta         int              `json:"delta"`
	PercentChange float64          `json:"percent_change"`
	Direction     core.Direction   `json:"direction"`
}

func toTrendJSON(t core.Trend) trendJSON {
	out := trendJSON{
		Window:        t.Window,
		Points:        make([]pointJSON, 0, len(t.Points)),
		Delta:         t.Delta,
		PercentChange: t.PercentChange,
		Direction:     t.Direction,
	}
	for _, p := range t.Points {
		pj := pointJSON{Period: p.PeriodLabel, Score: p.Score}
		if p.Movement != core.MovementNone {
			m := p.Movement
			pj.Movement = &m
		}
		out.Points = append(out.Points, pj)
	}
	return out
}

// historyRequest records the current score under Period, or imports Score
// as a bare historical point when it is set.
type historyRequest struct {
	Period string `json:"period"`
	Score  *int   `json:"score"`
}

type eventJSON struct {
	EventID    string    `json:"event_id"`
	Action     string    `json:"action"`
	BudgetID   string    `json:"budget_id"`
	Category   string    `json:"category"`
	Amount     float64   `json:"amount"`
	Spent      float64   `json:"spent"`
	Status     string    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func toEventJSON(e storage.Event) eventJSON {
	out := eventJSON{
		EventID:    e.EventID,
		Action:     string(e.Action),
		BudgetID:   e.BudgetID,
		Category:   e.Category,
		Amount:     e.Amount,
		Spent:      e.Spent,
		OccurredAt: e.OccurredAt,
	}
	if e.Status.Valid() {
		out.Status = e.Status.String()
	}
	return out
}
