package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetd/internal/core"
	"budgetd/internal/store"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "budgetd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Init(context.Background()))
	return st
}

func TestInsertAndQuery(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	u := core.User{ID: "u1", Name: "Alice", CreatedAt: time.Now()}
	require.NoError(t, st.Users().Insert(ctx, u))

	got, err := st.Users().ByID(ctx, "u1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)

	ok, err := st.UserExists(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	err = st.Users().Insert(ctx, u)
	assert.ErrorIs(t, err, store.ErrDuplicateID)

	_, err = st.Users().ByID(ctx, "u1", "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestInitIsIdempotent(t *testing.T) {
	st := newStore(t)
	require.NoError(t, st.Init(context.Background()))
}

func TestOrderAndScoping(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	for _, c := range []core.Category{
		{ID: "c1", UserID: "u1", Name: "Food", Type: core.Expense},
		{ID: "c2", UserID: "u1", Name: "Salary", Type: core.Income},
		{ID: "c1", UserID: "u2", Name: "Rent", Type: core.Expense},
	} {
		require.NoError(t, st.Categories().Insert(ctx, c))
	}

	items, err := st.Categories().ByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "c1", items[0].ID)
	assert.Equal(t, "c2", items[1].ID)

	all, err := st.Categories().All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Global scan resolves the owner.
	got, err := st.Categories().ByID(ctx, "", "c2")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
}

func TestUpdateRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st.nowFn = func() time.Time { return created.Add(24 * time.Hour) }

	txn := core.Transaction{
		ID:         "t1",
		UserID:     "u1",
		CategoryID: "c1",
		Amount:     core.Money{Cents: 4550},
		Type:       core.Expense,
		Date:       core.DateOf(created),
		Timestamps: core.Timestamps{CreatedAt: created, UpdatedAt: created},
	}
	require.NoError(t, st.Transactions().Insert(ctx, txn))

	updated, err := st.Transactions().Update(ctx, "u1", "t1", func(tx *core.Transaction) {
		tx.Amount = core.Money{Cents: 5000}
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), updated.Amount.Cents)
	assert.True(t, updated.UpdatedAt.After(created))

	got, err := st.Transactions().ByID(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), got.Amount.Cents)

	_, err = st.Transactions().Update(ctx, "u1", "ghost", func(*core.Transaction) {})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	for _, c := range []core.Category{
		{ID: "c1", UserID: "u1", Name: "Food", Type: core.Expense},
		{ID: "c2", UserID: "u1", Name: "Rent", Type: core.Expense},
		{ID: "c3", UserID: "u2", Name: "Rent", Type: core.Expense},
	} {
		require.NoError(t, st.Categories().Insert(ctx, c))
	}

	require.NoError(t, st.Categories().Remove(ctx, "u1", "c1"))
	require.NoError(t, st.Categories().Remove(ctx, "u1", "c1")) // absent: no-op

	require.NoError(t, st.Categories().RemoveByUser(ctx, "u1"))
	items, err := st.Categories().ByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = st.Categories().ByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
