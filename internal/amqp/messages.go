package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"aurabudget/internal/core"
)

const (
	EntityExpense  = "expense"
	EntityCategory = "category"
	EntityBudget   = "budget"
	EntityGoal     = "goal"
)

const (
	KindCreated     = "created"
	KindUpdated     = "updated"
	KindDeleted     = "deleted"
	KindToggled     = "toggled"
	KindContributed = "contributed"
	KindRolledOver  = "rolled_over"
)

// ChangeMessage announces a committed mutation. Consumers re-read current
// state by ID; expense deletions carry the removed row since it is gone.
type ChangeMessage struct {
	Kind       string        `json:"kind"`
	Entity     string        `json:"entity"`
	ID         int64         `json:"id"`
	OccurredAt time.Time     `json:"occurred_at"`
	Expense    *core.Expense `json:"expense,omitempty"`
}

func NewChangeMessage(entity, kind string, id int64) *ChangeMessage {
	return &ChangeMessage{
		Kind:       kind,
		Entity:     entity,
		ID:         id,
		OccurredAt: time.Now().UTC(),
	}
}

// NewExpenseDeletedMessage builds the deletion event for e.
func NewExpenseDeletedMessage(e core.Expense) *ChangeMessage {
	msg := NewChangeMessage(EntityExpense, KindDeleted, e.ID)
	msg.Expense = &e
	return msg
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes and checks a message body.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Entity == "" || msg.Kind == "" {
		return nil, fmt.Errorf("change message missing entity or kind")
	}
	if msg.Entity == EntityExpense && msg.Kind == KindDeleted && msg.Expense == nil {
		return nil, fmt.Errorf("expense deletion %d carries no expense", msg.ID)
	}
	return &msg, nil
}
