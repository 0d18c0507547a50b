package events

import (
	"encoding/json"
	"time"

	"budgetd/internal/core"
)

// TransactionGeneratedMessage notifies downstream consumers that the
// recurring engine materialized a transaction.
type TransactionGeneratedMessage struct {
	TransactionID string    `json:"transactionId"`
	RuleID        string    `json:"ruleId"`
	UserID        string    `json:"userId"`
	CategoryID    string    `json:"categoryId"`
	Date          string    `json:"date"`
	AmountCents   int64     `json:"amountCents"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionGeneratedMessage(t core.Transaction) *TransactionGeneratedMessage {
	return &TransactionGeneratedMessage{
		TransactionID: t.ID,
		RuleID:        t.RecurringID,
		UserID:        t.UserID,
		CategoryID:    t.CategoryID,
		Date:          t.Date.String(),
		AmountCents:   t.Amount.Cents,
		Type:          string(t.Type),
		Timestamp:     time.Now(),
	}
}

func (m *TransactionGeneratedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
