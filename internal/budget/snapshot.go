package budget

import (
	"fmt"
	"strings"

	"finhealth/internal/core"
)

// Action names a lifecycle transition.
type Action string

const (
	ActionSuggested    Action = "suggested"
	ActionAccepted     Action = "accepted"
	ActionEdited       Action = "edited"
	ActionDismissed    Action = "dismissed"
	ActionCreated      Action = "created"
	ActionDeleted      Action = "deleted"
	ActionSpendUpdated Action = "spend_updated"
)

// Change describes one record transition produced by a command. Budget is the
// record after the transition; for dismissals and deletions it is the record
// that was removed. Version is the snapshot version the command committed.
type Change struct {
	Action   Action
	Budget   core.Budget
	Previous *core.Budget
	Version  uint64
}

// Snapshot is an immutable view of the store. Every command method returns
// a new Snapshot and leaves the receiver untouched.
type Snapshot struct {
	Version     uint64
	Active      []core.Budget
	Suggestions []core.Budget
}

// Summary totals the active set.
func (s Snapshot) Summary() core.BudgetSummary {
	return core.Summarize(s.Active)
}

// Find looks an id up among active budgets and pending suggestions.
func (s Snapshot) Find(id string) (core.Budget, bool) {
	if i := indexOf(s.Active, id); i >= 0 {
		return s.Active[i], true
	}
	if i := indexOf(s.Suggestions, id); i >= 0 {
		return s.Suggestions[i], true
	}
	return core.Budget{}, false
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{
		Version:     s.Version,
		Active:      append([]core.Budget(nil), s.Active...),
		Suggestions: append([]core.Budget(nil), s.Suggestions...),
	}
}

func (s Snapshot) next() Snapshot {
	c := s.clone()
	c.Version++
	return c
}

// AcceptSuggestion promotes a pending suggestion. A nil amount adopts the
// suggested amount.
func (s Snapshot) AcceptSuggestion(id string, amount *float64) (Snapshot, []Change, error) {
	i := indexOf(s.Suggestions, id)
	if i < 0 {
		return s, nil, fmt.Errorf("suggestion %s: %w", id, core.ErrNotFound)
	}
	sug := s.Suggestions[i]
	resolved := sug.SuggestedAmount
	if amount != nil {
		resolved = *amount
	}
	return s.promote(i, resolved, false)
}

// EditBudget changes the limit of an active budget. Editing a pending
// suggestion promotes it with the edited amount as both its current and its
// suggested amount.
func (s Snapshot) EditBudget(id string, amount float64) (Snapshot, []Change, error) {
	if i := indexOf(s.Suggestions, id); i >= 0 {
		return s.promote(i, amount, true)
	}
	i := indexOf(s.Active, id)
	if i < 0 {
		return s, nil, fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	if err := core.ValidateAmount(amount); err != nil {
		return s, nil, fmt.Errorf("edit budget %s: %w", id, err)
	}
	prev := s.Active[i]
	b := prev
	status, err := core.Classify(b.SpentAmount, amount)
	if err != nil {
		return s, nil, err
	}
	b.CurrentAmount = amount
	b.Status = status

	out := s.next()
	out.Active[i] = b
	return out, []Change{{Action: ActionEdited, Budget: b, Previous: &prev}}, nil
}

func (s Snapshot) promote(i int, amount float64, edited bool) (Snapshot, []Change, error) {
	prev := s.Suggestions[i]
	if err := core.ValidateAmount(amount); err != nil {
		return s, nil, fmt.Errorf("accept suggestion %s: %w", prev.ID, err)
	}
	status, err := core.Classify(prev.SpentAmount, amount)
	if err != nil {
		return s, nil, err
	}
	b := prev
	b.CurrentAmount = amount
	b.IsSuggestion = false
	b.Status = status
	if edited {
		b.SuggestedAmount = amount
	}

	out := s.next()
	out.Suggestions = removeAt(out.Suggestions, i)
	out.Active = append(out.Active, b)
	return out, []Change{{Action: ActionAccepted, Budget: b, Previous: &prev}}, nil
}

// DismissSuggestion drops a pending suggestion for good.
func (s Snapshot) DismissSuggestion(id string) (Snapshot, []Change, error) {
	i := indexOf(s.Suggestions, id)
	if i < 0 {
		return s, nil, fmt.Errorf("suggestion %s: %w", id, core.ErrNotFound)
	}
	gone := s.Suggestions[i]
	out := s.next()
	out.Suggestions = removeAt(out.Suggestions, i)
	return out, []Change{{Action: ActionDismissed, Budget: gone}}, nil
}

// AddCustomBudget creates an active budget directly under the given id.
func (s Snapshot) AddCustomBudget(id string, nb core.NewBudget) (Snapshot, []Change, error) {
	if err := nb.Validate(); err != nil {
		return s, nil, fmt.Errorf("add budget %q: %w", nb.Category, err)
	}
	if _, ok := s.Find(id); ok || strings.TrimSpace(id) == "" {
		return s, nil, fmt.Errorf("add budget %q with id %q: %w", nb.Category, id, core.ErrDuplicateID)
	}
	status, err := core.Classify(nb.SpentAmount, nb.Amount)
	if err != nil {
		return s, nil, err
	}
	b := core.Budget{
		ID:              id,
		Category:        strings.TrimSpace(nb.Category),
		Emoji:           nb.Emoji,
		SuggestedAmount: nb.Amount,
		CurrentAmount:   nb.Amount,
		SpentAmount:     nb.SpentAmount,
		LastMonthSpent:  nb.LastMonthSpent,
		Status:          status,
	}
	out := s.next()
	out.Active = append(out.Active, b)
	return out, []Change{{Action: ActionCreated, Budget: b}}, nil
}

// DeleteBudget removes an active budget.
func (s Snapshot) DeleteBudget(id string) (Snapshot, []Change, error) {
	i := indexOf(s.Active, id)
	if i < 0 {
		return s, nil, fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	gone := s.Active[i]
	out := s.next()
	out.Active = removeAt(out.Active, i)
	return out, []Change{{Action: ActionDeleted, Budget: gone}}, nil
}

// AddSuggestions ingests generator candidates. They are normalised to the
// suggestion shape; the whole batch is refused if any id is taken.
func (s Snapshot) AddSuggestions(candidates []core.Budget) (Snapshot, []Change, error) {
	seen := make(map[string]struct{}, len(candidates))
	added := make([]core.Budget, 0, len(candidates))
	for _, c := range candidates {
		c.IsSuggestion = true
		c.CurrentAmount = 0
		c.Status = 0
		c.Category = strings.TrimSpace(c.Category)
		if err := c.Validate(); err != nil {
			return s, nil, fmt.Errorf("suggestion %q: %w", c.ID, err)
		}
		if _, ok := s.Find(c.ID); ok {
			return s, nil, fmt.Errorf("suggestion %s: %w", c.ID, core.ErrDuplicateID)
		}
		if _, ok := seen[c.ID]; ok {
			return s, nil, fmt.Errorf("suggestion %s: %w", c.ID, core.ErrDuplicateID)
		}
		seen[c.ID] = struct{}{}
		added = append(added, c)
	}
	if len(added) == 0 {
		return s, nil, nil
	}
	out := s.next()
	changes := make([]Change, len(added))
	for i, b := range added {
		out.Suggestions = append(out.Suggestions, b)
		changes[i] = Change{Action: ActionSuggested, Budget: b}
	}
	return out, changes, nil
}

// UpdateSpent re-seeds spend figures and reclassifies active budgets.
func (s Snapshot) UpdateSpent(id string, spent, lastMonth float64) (Snapshot, []Change, error) {
	if core.ValidateSpend(spent) != nil || core.ValidateSpend(lastMonth) != nil {
		return s, nil, fmt.Errorf("spend for %s: %w", id, core.ErrInvalidAmount)
	}
	if i := indexOf(s.Active, id); i >= 0 {
		prev := s.Active[i]
		b := prev
		status, err := core.Classify(spent, b.CurrentAmount)
		if err != nil {
			return s, nil, err
		}
		b.SpentAmount, b.LastMonthSpent, b.Status = spent, lastMonth, status
		out := s.next()
		out.Active[i] = b
		return out, []Change{{Action: ActionSpendUpdated, Budget: b, Previous: &prev}}, nil
	}
	if i := indexOf(s.Suggestions, id); i >= 0 {
		prev := s.Suggestions[i]
		b := prev
		b.SpentAmount, b.LastMonthSpent = spent, lastMonth
		out := s.next()
		out.Suggestions[i] = b
		return out, []Change{{Action: ActionSpendUpdated, Budget: b, Previous: &prev}}, nil
	}
	return s, nil, fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
}

func indexOf(list []core.Budget, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func removeAt(list []core.Budget, i int) []core.Budget {
	out := make([]core.Budget, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}
