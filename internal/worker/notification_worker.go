// Package worker turns automation events into persisted user notifications.
package worker

import (
	"context"
	"fmt"

	"budgeteer/internal/amqp"
	"budgeteer/internal/core"
	"budgeteer/internal/log"
	"budgeteer/internal/storage"
)

// NotificationWorker consumes automation events and records one
// notification per event. Delivery is at-least-once; a duplicate event
// produces a duplicate notification rather than lost work.
type NotificationWorker struct {
	storage *storage.SQLiteRepository
	logger  *log.Logger
}

func NewNotificationWorker(storage *storage.SQLiteRepository, logger *log.Logger) *NotificationWorker {
	return &NotificationWorker{
		storage: storage,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent records a notification for one automation event. Returning an
// error requeues the event.
func (w *NotificationWorker) HandleEvent(ctx context.Context, event *amqp.AutomationEvent) error {
	message, err := formatMessage(event)
	if err != nil {
		// Unknown kinds are dropped, not requeued forever.
		w.logger.WarnContext(ctx, "dropping unknown event",
			"kind", event.Kind, log.FieldUserID, event.UserID)
		return nil
	}

	n := core.Notification{
		UserID:    event.UserID,
		Kind:      event.Kind,
		Message:   message,
		CreatedAt: event.Timestamp,
	}
	if err := w.storage.InsertNotification(ctx, &n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	w.logger.InfoContext(ctx, "recorded notification",
		log.FieldUserID, event.UserID,
		"kind", event.Kind,
		"notification_id", n.ID)
	return nil
}

func formatMessage(event *amqp.AutomationEvent) (string, error) {
	switch event.Kind {
	case amqp.KindExpensePosted:
		return fmt.Sprintf("Recurring expense %q (%.2f) was posted for %s.",
			event.Name, float64(event.AmountCents)/100, event.Month), nil
	case amqp.KindIncomeIncremented:
		return fmt.Sprintf("Your income was increased by %.2f for %s.",
			float64(event.AmountCents)/100, event.Month), nil
	case amqp.KindBadgeAwarded:
		return fmt.Sprintf("You earned the %q badge (+%d points).",
			event.Name, event.Points), nil
	default:
		return "", fmt.Errorf("unknown event kind %q", event.Kind)
	}
}
