package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"budgetd/internal/core"
	"budgetd/internal/store"
)

var (
	// ErrCategoryInUse rejects deleting (or retyping) a category still
	// referenced by transactions or recurring rules.
	ErrCategoryInUse = errors.New("category is referenced by transactions or recurring rules")

	// ErrTypeMismatch rejects a transaction or rule whose type differs from
	// its category's type.
	ErrTypeMismatch = errors.New("entry type does not match category type")
)

// Ledger validates and orchestrates all direct writes: ownership of
// cross-entity references, category deletion guards, user cascades and
// server-side id generation.
type Ledger struct {
	store store.Store
	nowFn func() time.Time
}

func NewLedger(st store.Store) *Ledger {
	return &Ledger{store: st, nowFn: time.Now}
}

// Users

func (l *Ledger) CreateUser(ctx context.Context, name string) (core.User, error) {
	u := core.User{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: l.nowFn(),
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	if err := l.store.Users().Insert(ctx, u); err != nil {
		return core.User{}, err
	}
	slog.InfoContext(ctx, "User created", "user_id", u.ID)
	return u, nil
}

func (l *Ledger) GetUser(ctx context.Context, userID string) (core.User, error) {
	return l.store.Users().ByID(ctx, userID, userID)
}

func (l *Ledger) ListUsers(ctx context.Context) ([]core.User, error) {
	return l.store.Users().All(ctx)
}

// DeleteUser removes the user and everything they own. Transactions and rules
// go first so a failure part-way never leaves orphans without an owner.
func (l *Ledger) DeleteUser(ctx context.Context, userID string) error {
	if err := l.requireUser(ctx, userID); err != nil {
		return err
	}
	if err := l.store.Transactions().RemoveByUser(ctx, userID); err != nil {
		return fmt.Errorf("remove transactions: %w", err)
	}
	if err := l.store.Recurring().RemoveByUser(ctx, userID); err != nil {
		return fmt.Errorf("remove recurring rules: %w", err)
	}
	if err := l.store.Categories().RemoveByUser(ctx, userID); err != nil {
		return fmt.Errorf("remove categories: %w", err)
	}
	if err := l.store.Users().RemoveByUser(ctx, userID); err != nil {
		return fmt.Errorf("remove user: %w", err)
	}
	slog.InfoContext(ctx, "User deleted", "user_id", userID)
	return nil
}

// Categories

type CategoryInput struct {
	Name string
	Type core.EntryType
	Icon string
}

type CategoryPatch struct {
	Name *string
	Icon *string
}

func (l *Ledger) CreateCategory(ctx context.Context, userID string, in CategoryInput) (core.Category, error) {
	if err := l.requireUser(ctx, userID); err != nil {
		return core.Category{}, err
	}
	c := core.Category{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   in.Name,
		Type:   in.Type,
		Icon:   in.Icon,
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := l.store.Categories().Insert(ctx, c); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func (l *Ledger) GetCategory(ctx context.Context, userID, id string) (core.Category, error) {
	return l.store.Categories().ByID(ctx, userID, id)
}

func (l *Ledger) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	if err := l.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return l.store.Categories().ByUser(ctx, userID)
}

// UpdateCategory merges the patch. The category's type is immutable: retyping
// under existing transactions would silently break the type-consistency
// invariant.
func (l *Ledger) UpdateCategory(ctx context.Context, userID, id string, patch CategoryPatch) (core.Category, error) {
	updated, err := l.store.Categories().Update(ctx, userID, id, func(c *core.Category) {
		if patch.Name != nil {
			c.Name = *patch.Name
		}
		if patch.Icon != nil {
			c.Icon = *patch.Icon
		}
	})
	if err != nil {
		return core.Category{}, err
	}
	if err := updated.Validate(); err != nil {
		return core.Category{}, err
	}
	return updated, nil
}

// DeleteCategory is rejected while any transaction or recurring rule of the
// same user still references the category.
func (l *Ledger) DeleteCategory(ctx context.Context, userID, id string) error {
	if _, err := l.store.Categories().ByID(ctx, userID, id); err != nil {
		return err
	}

	txns, err := l.store.Transactions().ByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, t := range txns {
		if t.CategoryID == id {
			return fmt.Errorf("category %s: %w", id, ErrCategoryInUse)
		}
	}

	rules, err := l.store.Recurring().ByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, r := range rules {
		if r.CategoryID == id {
			return fmt.Errorf("category %s: %w", id, ErrCategoryInUse)
		}
	}

	return l.store.Categories().Remove(ctx, userID, id)
}

// Transactions

type TransactionInput struct {
	CategoryID string
	Amount     core.Money
	Type       core.EntryType
	Date       core.Date
	Notes      string
}

type TransactionPatch struct {
	CategoryID *string
	Amount     *core.Money
	Type       *core.EntryType
	Date       *core.Date
	Notes      *string
}

func (l *Ledger) CreateTransaction(ctx context.Context, userID string, in TransactionInput) (core.Transaction, error) {
	if err := l.requireUser(ctx, userID); err != nil {
		return core.Transaction{}, err
	}
	if err := l.checkCategory(ctx, userID, in.CategoryID, in.Type); err != nil {
		return core.Transaction{}, err
	}

	now := l.nowFn()
	t := core.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		CategoryID:  in.CategoryID,
		Amount:      in.Amount,
		Type:        in.Type,
		Date:        in.Date,
		Notes:       in.Notes,
		IsRecurring: false,
		Timestamps:  core.Timestamps{CreatedAt: now, UpdatedAt: now},
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := l.store.Transactions().Insert(ctx, t); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (l *Ledger) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	return l.store.Transactions().ByID(ctx, userID, id)
}

func (l *Ledger) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	if err := l.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return l.store.Transactions().ByUser(ctx, userID)
}

func (l *Ledger) UpdateTransaction(ctx context.Context, userID, id string, patch TransactionPatch) (core.Transaction, error) {
	current, err := l.store.Transactions().ByID(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}

	categoryID := current.CategoryID
	if patch.CategoryID != nil {
		categoryID = *patch.CategoryID
	}
	entryType := current.Type
	if patch.Type != nil {
		entryType = *patch.Type
	}
	if err := l.checkCategory(ctx, userID, categoryID, entryType); err != nil {
		return core.Transaction{}, err
	}

	updated, err := l.store.Transactions().Update(ctx, userID, id, func(t *core.Transaction) {
		t.CategoryID = categoryID
		t.Type = entryType
		if patch.Amount != nil {
			t.Amount = *patch.Amount
		}
		if patch.Date != nil {
			t.Date = *patch.Date
		}
		if patch.Notes != nil {
			t.Notes = *patch.Notes
		}
	})
	if err != nil {
		return core.Transaction{}, err
	}
	if err := updated.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return updated, nil
}

func (l *Ledger) DeleteTransaction(ctx context.Context, userID, id string) error {
	return l.store.Transactions().Remove(ctx, userID, id)
}

// Recurring rules

type RuleInput struct {
	Name       string
	CategoryID string
	Amount     core.Money
	Type       core.EntryType
	Frequency  core.Frequency
	StartDate  core.Date
	Notes      string
}

type RulePatch struct {
	Name        *string
	CategoryID  *string
	Amount      *core.Money
	Type        *core.EntryType
	Frequency   *core.Frequency
	Notes       *string
	IsActive    *bool
	NextDueDate *core.Date // explicit user override; the engine owns it otherwise
}

// CreateRule creates an active rule with nextDueDate seeded from startDate.
func (l *Ledger) CreateRule(ctx context.Context, userID string, in RuleInput) (core.RecurringRule, error) {
	if err := l.requireUser(ctx, userID); err != nil {
		return core.RecurringRule{}, err
	}
	if err := l.checkCategory(ctx, userID, in.CategoryID, in.Type); err != nil {
		return core.RecurringRule{}, err
	}

	now := l.nowFn()
	r := core.RecurringRule{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        in.Name,
		CategoryID:  in.CategoryID,
		Amount:      in.Amount,
		Type:        in.Type,
		Frequency:   in.Frequency,
		StartDate:   in.StartDate,
		NextDueDate: in.StartDate,
		Notes:       in.Notes,
		IsActive:    true,
		Timestamps:  core.Timestamps{CreatedAt: now, UpdatedAt: now},
	}
	if err := r.Validate(); err != nil {
		return core.RecurringRule{}, err
	}
	if err := l.store.Recurring().Insert(ctx, r); err != nil {
		return core.RecurringRule{}, err
	}
	return r, nil
}

func (l *Ledger) GetRule(ctx context.Context, userID, id string) (core.RecurringRule, error) {
	return l.store.Recurring().ByID(ctx, userID, id)
}

func (l *Ledger) ListRules(ctx context.Context, userID string) ([]core.RecurringRule, error) {
	if err := l.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return l.store.Recurring().ByUser(ctx, userID)
}

func (l *Ledger) UpdateRule(ctx context.Context, userID, id string, patch RulePatch) (core.RecurringRule, error) {
	current, err := l.store.Recurring().ByID(ctx, userID, id)
	if err != nil {
		return core.RecurringRule{}, err
	}

	categoryID := current.CategoryID
	if patch.CategoryID != nil {
		categoryID = *patch.CategoryID
	}
	entryType := current.Type
	if patch.Type != nil {
		entryType = *patch.Type
	}
	if err := l.checkCategory(ctx, userID, categoryID, entryType); err != nil {
		return core.RecurringRule{}, err
	}

	updated, err := l.store.Recurring().Update(ctx, userID, id, func(r *core.RecurringRule) {
		r.CategoryID = categoryID
		r.Type = entryType
		if patch.Name != nil {
			r.Name = *patch.Name
		}
		if patch.Amount != nil {
			r.Amount = *patch.Amount
		}
		if patch.Frequency != nil {
			r.Frequency = *patch.Frequency
		}
		if patch.Notes != nil {
			r.Notes = *patch.Notes
		}
		if patch.IsActive != nil {
			r.IsActive = *patch.IsActive
		}
		if patch.NextDueDate != nil {
			r.NextDueDate = *patch.NextDueDate
		}
	})
	if err != nil {
		return core.RecurringRule{}, err
	}
	if err := updated.Validate(); err != nil {
		return core.RecurringRule{}, err
	}
	return updated, nil
}

func (l *Ledger) DeleteRule(ctx context.Context, userID, id string) error {
	return l.store.Recurring().Remove(ctx, userID, id)
}

// helpers

func (l *Ledger) requireUser(ctx context.Context, userID string) error {
	ok, err := l.store.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %s: %w", userID, store.ErrNotFound)
	}
	return nil
}

// checkCategory verifies the category exists, is owned by userID and has the
// expected entry type.
func (l *Ledger) checkCategory(ctx context.Context, userID, categoryID string, entryType core.EntryType) error {
	cat, err := l.store.Categories().ByID(ctx, userID, categoryID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("category %s: %w", categoryID, store.ErrInvalidReference)
		}
		return err
	}
	if cat.Type != entryType {
		return fmt.Errorf("category %s is %s: %w", categoryID, cat.Type, ErrTypeMismatch)
	}
	return nil
}
