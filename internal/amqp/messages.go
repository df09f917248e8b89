package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds published by the automation engine.
const (
	KindExpensePosted     = "expense_posted"
	KindIncomeIncremented = "income_incremented"
	KindBadgeAwarded      = "badge_awarded"
)

// AutomationEvent is the wire message for everything the engine does on a
// user's behalf. The worker turns these into user notifications.
type AutomationEvent struct {
	Kind        string    `json:"kind"`
	UserID      int64     `json:"user_id"`
	Month       string    `json:"month"`
	Name        string    `json:"name,omitempty"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	Points      int64     `json:"points,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewExpensePostedEvent(userID int64, month, name string, amountCents int64) *AutomationEvent {
	return &AutomationEvent{
		Kind:        KindExpensePosted,
		UserID:      userID,
		Month:       month,
		Name:        name,
		AmountCents: amountCents,
		Timestamp:   time.Now(),
	}
}

func NewIncomeIncrementedEvent(userID int64, month string, amountCents int64) *AutomationEvent {
	return &AutomationEvent{
		Kind:        KindIncomeIncremented,
		UserID:      userID,
		Month:       month,
		AmountCents: amountCents,
		Timestamp:   time.Now(),
	}
}

func NewBadgeAwardedEvent(userID int64, month, badge string, points int64) *AutomationEvent {
	return &AutomationEvent{
		Kind:      KindBadgeAwarded,
		UserID:    userID,
		Month:     month,
		Name:      badge,
		Points:    points,
		Timestamp: time.Now(),
	}
}

func (m *AutomationEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AutomationEventFromJSON(data []byte) (*AutomationEvent, error) {
	var msg AutomationEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
