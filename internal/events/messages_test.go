package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetd/internal/core"
)

func TestNewTransactionGeneratedMessage(t *testing.T) {
	txn := core.Transaction{
		ID:          "t1",
		UserID:      "u1",
		CategoryID:  "c1",
		Amount:      core.Money{Cents: 5000},
		Type:        core.Expense,
		Date:        core.DateOf(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)),
		IsRecurring: true,
		RecurringID: "r1",
	}

	msg := NewTransactionGeneratedMessage(txn)
	assert.Equal(t, "t1", msg.TransactionID)
	assert.Equal(t, "r1", msg.RuleID)
	assert.Equal(t, "2024-01-08", msg.Date)
	assert.Equal(t, int64(5000), msg.AmountCents)
	assert.Equal(t, "expense", msg.Type)
	assert.False(t, msg.Timestamp.IsZero())

	body, err := msg.ToJSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "u1", decoded["userId"])
	assert.Equal(t, "c1", decoded["categoryId"])
}

func TestNilPublisherIsSafe(t *testing.T) {
	var p *Publisher
	assert.NoError(t, p.TransactionGenerated(context.Background(), core.Transaction{}))
	assert.NoError(t, p.Close())
}
