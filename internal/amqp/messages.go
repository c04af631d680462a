package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"finhealth/internal/budget"
)

const routingPrefix = "budget."

// BudgetEventMessage announces one committed budget lifecycle transition.
type BudgetEventMessage struct {
	EventID      string    `json:"event_id"`
	Action       string    `json:"action"`
	BudgetID     string    `json:"budget_id"`
	Category     string    `json:"category"`
	Amount       float64   `json:"amount"`
	Spent        float64   `json:"spent"`
	Status       string    `json:"status,omitempty"`
	IsSuggestion bool      `json:"is_suggestion"`
	Version      uint64    `json:"version"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewBudgetEventMessage describes change as it was committed. Amount is the
// limit in force, or the suggested amount for suggestions.
func NewBudgetEventMessage(change budget.Change) *BudgetEventMessage {
	b := change.Budget
	amount := b.CurrentAmount
	if b.IsSuggestion {
		amount = b.SuggestedAmount
	}
	msg := &BudgetEventMessage{
		EventID:      uuid.NewString(),
		Action:       string(change.Action),
		BudgetID:     b.ID,
		Category:     b.Category,
		Amount:       amount,
		Spent:        b.SpentAmount,
		IsSuggestion: b.IsSuggestion,
		Version:      change.Version,
		Timestamp:    time.Now().UTC(),
	}
	if b.Status.Valid() {
		msg.Status = b.Status.String()
	}
	return msg
}

// RoutingKey is "budget.<action>".
func (m *BudgetEventMessage) RoutingKey() string {
	return routingPrefix + m.Action
}

func (m *BudgetEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetEventMessageFromJSON(data []byte) (*BudgetEventMessage, error) {
	var msg BudgetEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.EventID == "" || msg.Action == "" || msg.BudgetID == "" {
		return nil, errors.New("budget event is missing event_id, action or budget_id")
	}
	return &msg, nil
}
