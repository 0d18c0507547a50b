package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validTransaction() Transaction {
	return Transaction{
		ID:         "t1",
		UserID:     "u1",
		CategoryID: "c1",
		Amount:     Money{Cents: 1500},
		Type:       Expense,
		Date:       NewDate(2024, time.March, 1),
	}
}

func validRule() RecurringRule {
	return RecurringRule{
		ID:          "r1",
		UserID:      "u1",
		Name:        "Rent",
		CategoryID:  "c1",
		Amount:      Money{Cents: 120000},
		Type:        Expense,
		Frequency:   Monthly,
		StartDate:   NewDate(2024, time.January, 1),
		NextDueDate: NewDate(2024, time.January, 1),
		IsActive:    true,
	}
}

func TestTransactionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{name: "valid", mutate: func(*Transaction) {}},
		{name: "missing id", mutate: func(tr *Transaction) { tr.ID = "" }, wantErr: ErrEmptyID},
		{name: "missing user", mutate: func(tr *Transaction) { tr.UserID = "" }, wantErr: ErrEmptyUserID},
		{name: "missing category", mutate: func(tr *Transaction) { tr.CategoryID = "" }, wantErr: ErrEmptyCategoryID},
		{name: "zero amount", mutate: func(tr *Transaction) { tr.Amount = Money{} }, wantErr: ErrInvalidAmount},
		{name: "bad type", mutate: func(tr *Transaction) { tr.Type = "transfer" }, wantErr: ErrInvalidType},
		{name: "zero date", mutate: func(tr *Transaction) { tr.Date = Date{} }, wantErr: ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := validTransaction()
			tt.mutate(&tr)
			err := tr.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestRecurringRuleValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RecurringRule)
		wantErr error
	}{
		{name: "valid", mutate: func(*RecurringRule) {}},
		{name: "empty name", mutate: func(r *RecurringRule) { r.Name = "  " }, wantErr: ErrEmptyName},
		{name: "bad frequency", mutate: func(r *RecurringRule) { r.Frequency = "fortnightly" }, wantErr: ErrInvalidFrequency},
		{name: "zero start date", mutate: func(r *RecurringRule) { r.StartDate = Date{} }, wantErr: ErrInvalidDate},
		{name: "zero next due date", mutate: func(r *RecurringRule) { r.NextDueDate = Date{} }, wantErr: ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRule()
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestEntryTypeValid(t *testing.T) {
	assert.True(t, Income.Valid())
	assert.True(t, Expense.Valid())
	assert.False(t, EntryType("transfer").Valid())
}

func TestTimestampsTouch(t *testing.T) {
	var ts Timestamps
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ts.Touch(now)
	assert.Equal(t, now, ts.UpdatedAt)
}
