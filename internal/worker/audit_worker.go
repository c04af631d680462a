// Package worker consumes budget lifecycle events off the broker.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"finhealth/internal/amqp"
	"finhealth/internal/budget"
	"finhealth/internal/core"
	"finhealth/internal/storage"
)

// AuditWorker records every budget event it receives in the audit trail.
// Redeliveries of an already recorded event are acknowledged and skipped.
type AuditWorker struct {
	events storage.EventRepository
}

func NewAuditWorker(events storage.EventRepository) *AuditWorker {
	return &AuditWorker{events: events}
}

// HandleBudgetEvent is an amqp.Handler. A returned error requeues the
// delivery.
func (w *AuditWorker) HandleBudgetEvent(ctx context.Context, msg *amqp.BudgetEventMessage) error {
	e, err := eventFromMessage(msg)
	if err != nil {
		// Requeueing cannot fix a malformed payload.
		slog.WarnContext(ctx, "Dropping malformed budget event",
			"component", "worker",
			"event_id", msg.EventID,
			"error", err)
		return nil
	}

	inserted, err := w.events.RecordEvent(ctx, e)
	if err != nil {
		return fmt.Errorf("record budget event %s: %w", msg.EventID, err)
	}
	if !inserted {
		slog.DebugContext(ctx, "Budget event already recorded",
			"component", "worker",
			"event_id", msg.EventID)
		return nil
	}

	slog.InfoContext(ctx, "Recorded budget event",
		"component", "worker",
		"event_id", msg.EventID,
		"action", msg.Action,
		"budget_id", msg.BudgetID,
		"version", msg.Version)
	return nil
}

func eventFromMessage(msg *amqp.BudgetEventMessage) (storage.Event, error) {
	e := storage.Event{
		EventID:    msg.EventID,
		Action:     budget.Action(msg.Action),
		BudgetID:   msg.BudgetID,
		Category:   msg.Category,
		Amount:     msg.Amount,
		Spent:      msg.Spent,
		OccurredAt: msg.Timestamp,
	}
	switch e.Action {
	case budget.ActionSuggested, budget.ActionAccepted, budget.ActionEdited, budget.ActionDismissed,
		budget.ActionCreated, budget.ActionDeleted, budget.ActionSpendUpdated:
	default:
		return storage.Event{}, fmt.Errorf("unknown action %q", msg.Action)
	}
	if msg.Status != "" {
		status, err := core.ParseStatus(msg.Status)
		if err != nil {
			return storage.Event{}, err
		}
		e.Status = status
	}
	return e, nil
}
