// Package events carries the signals emitted when recurring transactions come
// due. Events can be dispatched in-process through a Bus or published to
// RabbitMQ for an out-of-process consumer.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// TransactionDueType is the routing name of TransactionDue.
const TransactionDueType = "recurring.transaction_due"

// TransactionDue is emitted once per processed occurrence of a recurring
// transaction. Date is the occurrence date, i.e. the run date before the
// schedule advanced.
type TransactionDue struct {
	RecurringTransactionID string    `json:"recurring_transaction_id"`
	WorkspaceID            string    `json:"workspace_id"`
	Type                   string    `json:"type"`
	AccountID              string    `json:"account_id"`
	CategoryID             string    `json:"category_id"`
	SubcategoryID          string    `json:"subcategory_id,omitempty"`
	Amount                 int64     `json:"amount"`
	Currency               string    `json:"currency"`
	Notes                  string    `json:"notes,omitempty"`
	Date                   time.Time `json:"date"`
	CreatedBy              string    `json:"created_by"`
}

// ToJSON encodes the event.
func (e TransactionDue) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionDueFromJSON decodes an event produced by ToJSON.
func TransactionDueFromJSON(data []byte) (TransactionDue, error) {
	var evt TransactionDue
	if err := json.Unmarshal(data, &evt); err != nil {
		return TransactionDue{}, err
	}
	return evt, nil
}

// Publisher emits TransactionDue events.
type Publisher interface {
	PublishTransactionDue(ctx context.Context, evt TransactionDue) error
}

// Handler reacts to a TransactionDue event.
type Handler func(ctx context.Context, evt TransactionDue) error

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, evt TransactionDue) error

func (f PublisherFunc) PublishTransactionDue(ctx context.Context, evt TransactionDue) error {
	return f(ctx, evt)
}
