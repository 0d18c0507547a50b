// Package store defines the persistence contract for the budgeting backend:
// four per-user partitioned collections plus the shared error taxonomy.
// Implementations live in the jsonstore and sqlite subpackages.
package store

import (
	"context"

	"budgetd/internal/core"
)

// Kind names one of the four persisted collections. It doubles as the
// document file name in the JSON backend and the discriminator column in the
// SQLite backend.
type Kind string

const (
	KindUsers        Kind = "users"
	KindCategories   Kind = "categories"
	KindTransactions Kind = "transactions"
	KindRecurring    Kind = "recurring"
)

// Kinds lists all collection kinds, in the order a user's data is laid out.
var Kinds = []Kind{KindUsers, KindCategories, KindTransactions, KindRecurring}

// Collection is the generic per-kind store contract. Entities are returned in
// insertion order for a given user; cross-user ordering is unspecified.
type Collection[T core.Entity] interface {
	// All returns every entity of the kind across all users. Intended for
	// global scans only (the scheduler iterating all rules).
	All(ctx context.Context) ([]T, error)

	// ByUser returns the entities owned by userID, insertion order preserved.
	ByUser(ctx context.Context, userID string) ([]T, error)

	// ByID returns a single entity. An empty userID forces a scan across all
	// users; passing the owner lets implementations shard the lookup.
	ByID(ctx context.Context, userID, id string) (T, error)

	// Insert persists a new entity. Returns ErrDuplicateID if the id is
	// already present in the owner's collection.
	Insert(ctx context.Context, e T) error

	// Update applies a mutation to the stored entity, refreshes its
	// UpdatedAt timestamp where the entity carries one, and returns the
	// merged result. Returns ErrNotFound if the id is absent.
	Update(ctx context.Context, userID, id string, apply func(*T)) (T, error)

	// Remove deletes one entity. Removing an absent id is a no-op.
	Remove(ctx context.Context, userID, id string) error

	// RemoveByUser deletes all of a user's entities of this kind.
	RemoveByUser(ctx context.Context, userID string) error
}

// Store bundles the four typed collections behind one handle.
type Store interface {
	Users() Collection[core.User]
	Categories() Collection[core.Category]
	Transactions() Collection[core.Transaction]
	Recurring() Collection[core.RecurringRule]

	// UserExists reports whether a user record exists for userID.
	UserExists(ctx context.Context, userID string) (bool, error)

	// Init prepares backing files or schema. Safe to call more than once.
	Init(ctx context.Context) error

	Close() error
}
