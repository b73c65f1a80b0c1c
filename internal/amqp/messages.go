package amqp

import (
	"encoding/json"
	"time"

	"hadaf/internal/core"
)

// TransactionEventMessage announces one stored transaction. Consumers get the
// fields an audit trail needs without reading the store.
type TransactionEventMessage struct {
	TransactionID string               `json:"transactionId"`
	AccountID     string               `json:"accountId"`
	Kind          core.TransactionKind `json:"type"`
	Category      string               `json:"category"`
	AmountCents   int64                `json:"amountCents"`
	Date          core.Date            `json:"date"`
	Recurring     bool                 `json:"isRecurring"`
	Timestamp     time.Time            `json:"timestamp"`
}

// NewTransactionEventMessage builds the event for a transaction.
func NewTransactionEventMessage(t core.Transaction) *TransactionEventMessage {
	return &TransactionEventMessage{
		TransactionID: t.ID,
		AccountID:     t.AccountID,
		Kind:          t.Kind,
		Category:      t.Category,
		AmountCents:   t.Amount.Cents,
		Date:          t.Date,
		Recurring:     t.Recurring,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *TransactionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventMessageFromJSON parses a message from JSON bytes.
func TransactionEventMessageFromJSON(data []byte) (*TransactionEventMessage, error) {
	var msg TransactionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
