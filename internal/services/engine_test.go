package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetd/internal/core"
	"budgetd/internal/store"
	"budgetd/internal/store/jsonstore"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st := jsonstore.New(t.TempDir())
	require.NoError(t, st.Init(context.Background()))
	return st
}

func seedUser(t *testing.T, st store.Store, id string) core.User {
	t.Helper()
	u := core.User{ID: id, Name: "Test " + id, CreatedAt: time.Now()}
	require.NoError(t, st.Users().Insert(context.Background(), u))
	return u
}

func seedCategory(t *testing.T, st store.Store, userID, id string, typ core.EntryType) core.Category {
	t.Helper()
	c := core.Category{ID: id, UserID: userID, Name: "Cat " + id, Type: typ}
	require.NoError(t, st.Categories().Insert(context.Background(), c))
	return c
}

func seedRule(t *testing.T, st store.Store, rule core.RecurringRule) core.RecurringRule {
	t.Helper()
	require.NoError(t, st.Recurring().Insert(context.Background(), rule))
	return rule
}

func TestProcessRuleWeeklyCatchUp(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedUser(t, st, "u1")
	seedCategory(t, st, "u1", "c1", core.Expense)

	rule := seedRule(t, st, core.RecurringRule{
		ID:          "r1",
		UserID:      "u1",
		Name:        "Gym",
		CategoryID:  "c1",
		Amount:      core.Money{Cents: 5000},
		Type:        core.Expense,
		Frequency:   core.Weekly,
		StartDate:   date(2024, time.January, 1),
		NextDueDate: date(2024, time.January, 1),
		IsActive:    true,
	})

	now := time.Date(2024, time.January, 22, 14, 30, 0, 0, time.UTC)
	engine := NewEngine(st, nil)

	generated, err := engine.ProcessRule(ctx, rule, now)
	require.NoError(t, err)
	assert.Equal(t, 4, generated)

	txns, err := st.Transactions().ByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, txns, 4)

	wantDates := []string{"2024-01-01", "2024-01-08", "2024-01-15", "2024-01-22"}
	for i, txn := range txns {
		assert.Equal(t, wantDates[i], txn.Date.String())
		assert.True(t, txn.IsRecurring)
		assert.Equal(t, "r1", txn.RecurringID)
		assert.Equal(t, "c1", txn.CategoryID)
		assert.Equal(t, int64(5000), txn.Amount.Cents)
		assert.Equal(t, core.Expense, txn.Type)
	}

	stored, err := st.Recurring().ByID(ctx, "u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-29", stored.NextDueDate.String())
}

func TestProcessRuleDailyCatchUp(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedUser(t, st, "u1")
	seedCategory(t, st, "u1", "c1", core.Expense)

	now := time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC)
	rule := seedRule(t, st, core.RecurringRule{
		ID:          "r1",
		UserID:      "u1",
		Name:        "Coffee",
		CategoryID:  "c1",
		Amount:      core.Money{Cents: 300},
		Type:        core.Expense,
		Frequency:   core.Daily,
		StartDate:   date(2024, time.June, 5),
		NextDueDate: date(2024, time.June, 5),
		IsActive:    true,
	})

	engine := NewEngine(st, nil)
	generated, err := engine.ProcessRule(ctx, rule, now)
	require.NoError(t, err)

	// Due dates June 5 through June 10 inclusive: one per missed day plus
	// today itself.
	assert.Equal(t, 6, generated)

	stored, err := st.Recurring().ByID(ctx, "u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-11", stored.NextDueDate.String())
}

func TestProcessRuleInactiveSkipped(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedUser(t, st, "u1")
	seedCategory(t, st, "u1", "c1", core.Income)

	rule := seedRule(t, st, core.RecurringRule{
		ID:          "r1",
		UserID:      "u1",
		Name:        "Salary",
		CategoryID:  "c1",
		Amount:      core.Money{Cents: 250000},
		Type:        core.Income,
		Frequency:   core.Monthly,
		StartDate:   date(2024, time.January, 1),
		NextDueDate: date(2024, time.January, 1),
		IsActive:    false,
	})

	engine := NewEngine(st, nil)
	generated, err := engine.ProcessRule(ctx, rule, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, generated)

	txns, err := st.Transactions().ByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestProcessRuleNotYetDue(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedUser(t, st, "u1")
	seedCategory(t, st, "u1", "c1", core.Expense)

	rule := seedRule(t, st, core.RecurringRule{
		ID:          "r1",
		UserID:      "u1",
		Name:        "Rent",
		CategoryID:  "c1",
		Amount:      core.Money{Cents: 120000},
		Type:        core.Expense,
		Frequency:   core.Monthly,
		StartDate:   date(2024, time.July, 1),
		NextDueDate: date(2024, time.July, 1),
		IsActive:    true,
	})

	engine := NewEngine(st, nil)
	generated, err := engine.ProcessRule(ctx, rule, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, generated)

	stored, err := st.Recurring().ByID(ctx, "u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "2024-07-01", stored.NextDueDate.String())
}

func TestProcessRuleMissingCategory(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedUser(t, st, "u1")

	rule := seedRule(t, st, core.RecurringRule{
		ID:          "r1",
		UserID:      "u1",
		Name:        "Orphan",
		CategoryID:  "gone",
		Amount:      core.Money{Cents: 1000},
		Type:        core.Expense,
		Frequency:   core.Daily,
		StartDate:   date(2024, time.January, 1),
		NextDueDate: date(2024, time.January, 1),
		IsActive:    true,
	})

	engine := NewEngine(st, nil)
	generated, err := engine.ProcessRule(ctx, rule, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	assert.Zero(t, generated)

	var ruleErr *RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "r1", ruleErr.RuleID)
	assert.ErrorIs(t, err, store.ErrInvalidReference)

	// Nothing generated, nothing advanced.
	stored, err := st.Recurring().ByID(ctx, "u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", stored.NextDueDate.String())
}

func TestProcessAllIsolatesFailedRules(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedUser(t, st, "u1")
	seedCategory(t, st, "u1", "c1", core.Expense)

	seedRule(t, st, core.RecurringRule{
		ID: "bad", UserID: "u1", Name: "Bad", CategoryID: "gone",
		Amount: core.Money{Cents: 100}, Type: core.Expense, Frequency: core.Daily,
		StartDate: date(2024, time.January, 1), NextDueDate: date(2024, time.January, 1),
		IsActive: true,
	})
	seedRule(t, st, core.RecurringRule{
		ID: "good", UserID: "u1", Name: "Good", CategoryID: "c1",
		Amount: core.Money{Cents: 100}, Type: core.Expense, Frequency: core.Daily,
		StartDate: date(2024, time.January, 1), NextDueDate: date(2024, time.January, 1),
		IsActive: true,
	})

	engine := NewEngine(st, nil)
	summary, err := engine.ProcessAll(ctx, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.RulesProcessed)
	assert.Equal(t, 1, summary.RulesFailed)
	assert.Equal(t, 3, summary.TransactionsGenerated)

	txns, err := st.Transactions().ByUser(ctx, "u1")
	require.NoError(t, err)
	for _, txn := range txns {
		assert.Equal(t, "good", txn.RecurringID)
	}
}

func TestProcessAllIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedUser(t, st, "u1")
	seedCategory(t, st, "u1", "c1", core.Expense)
	seedRule(t, st, core.RecurringRule{
		ID: "r1", UserID: "u1", Name: "Rent", CategoryID: "c1",
		Amount: core.Money{Cents: 120000}, Type: core.Expense, Frequency: core.Monthly,
		StartDate: date(2024, time.January, 31), NextDueDate: date(2024, time.January, 31),
		IsActive: true,
	})

	engine := NewEngine(st, nil)
	now := time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC)

	first, err := engine.ProcessAll(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 3, first.TransactionsGenerated) // Jan 31, Feb 29, Mar 31

	second, err := engine.ProcessAll(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, second.TransactionsGenerated)
}

func TestProcessAllBusy(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	engine := NewEngine(st, nil)

	require.True(t, engine.guard.TryAcquire(1))
	defer engine.guard.Release(1)

	_, err := engine.ProcessAll(ctx, time.Now())
	assert.ErrorIs(t, err, store.ErrBusy)

	_, err = engine.ProcessRuleByID(ctx, "u1", "r1", time.Now())
	assert.ErrorIs(t, err, store.ErrBusy)
}

func TestProcessRuleByID(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedUser(t, st, "u1")
	seedCategory(t, st, "u1", "c1", core.Expense)
	seedRule(t, st, core.RecurringRule{
		ID: "r1", UserID: "u1", Name: "Rent", CategoryID: "c1",
		Amount: core.Money{Cents: 120000}, Type: core.Expense, Frequency: core.Weekly,
		StartDate: date(2024, time.January, 1), NextDueDate: date(2024, time.January, 1),
		IsActive: true,
	})

	engine := NewEngine(st, nil)
	generated, err := engine.ProcessRuleByID(ctx, "u1", "r1", time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, generated)

	_, err = engine.ProcessRuleByID(ctx, "u1", "nope", time.Now())
	assert.ErrorIs(t, err, store.ErrNotFound)
}
