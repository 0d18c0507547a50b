// Package sqlite is the alternate Store backend: every entity is kept as a
// JSON document row in a single documents table, so the collection contract
// and on-the-wire entity shape stay identical to the JSON file backend.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"budgetd/internal/core"
	"budgetd/internal/store"
)

// Store persists all collections in one SQLite database.
type Store struct {
	db    *sql.DB
	path  string
	nowFn func() time.Time

	users        *collection[core.User]
	categories   *collection[core.Category]
	transactions *collection[core.Transaction]
	recurring    *collection[core.RecurringRule]
}

func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	// Serialize writers; the store contract requires serialized
	// read-modify-write per document anyway.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: dbPath, nowFn: time.Now}
	s.users = newCollection[core.User](s, store.KindUsers)
	s.categories = newCollection[core.Category](s, store.KindCategories)
	s.transactions = newCollection[core.Transaction](s, store.KindTransactions)
	s.recurring = newCollection[core.RecurringRule](s, store.KindRecurring)
	return s, nil
}

func (s *Store) Users() store.Collection[core.User]               { return s.users }
func (s *Store) Categories() store.Collection[core.Category]      { return s.categories }
func (s *Store) Transactions() store.Collection[core.Transaction] { return s.transactions }
func (s *Store) Recurring() store.Collection[core.RecurringRule]  { return s.recurring }

// Init applies pending schema migrations. Idempotent.
func (s *Store) Init(_ context.Context) error {
	return runMigrations(s.path)
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) UserExists(ctx context.Context, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM documents WHERE kind = ? AND id = ?`,
		string(store.KindUsers), userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return true, nil
}

type collection[T core.Entity] struct {
	st   *Store
	kind store.Kind
}

func newCollection[T core.Entity](st *Store, kind store.Kind) *collection[T] {
	return &collection[T]{st: st, kind: kind}
}

func (c *collection[T]) decode(userID string, raw []byte) (T, error) {
	var e T
	if err := json.Unmarshal(raw, &e); err != nil {
		return e, &store.CorruptError{Kind: c.kind, UserID: userID, Path: c.st.path, Err: err}
	}
	return e, nil
}

func (c *collection[T]) queryDocs(ctx context.Context, query string, args ...any) ([]T, error) {
	rows, err := c.st.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s documents: %w", c.kind, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var userID string
		var raw []byte
		if err := rows.Scan(&userID, &raw); err != nil {
			return nil, fmt.Errorf("scan %s document: %w", c.kind, err)
		}
		e, err := c.decode(userID, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (c *collection[T]) All(ctx context.Context) ([]T, error) {
	return c.queryDocs(ctx,
		`SELECT user_id, doc FROM documents WHERE kind = ? ORDER BY seq`,
		string(c.kind))
}

func (c *collection[T]) ByUser(ctx context.Context, userID string) ([]T, error) {
	return c.queryDocs(ctx,
		`SELECT user_id, doc FROM documents WHERE kind = ? AND user_id = ? ORDER BY seq`,
		string(c.kind), userID)
}

func (c *collection[T]) ByID(ctx context.Context, userID, id string) (T, error) {
	var zero T

	query := `SELECT user_id, doc FROM documents WHERE kind = ? AND id = ?`
	args := []any{string(c.kind), id}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}

	var owner string
	var raw []byte
	err := c.st.db.QueryRowContext(ctx, query, args...).Scan(&owner, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, fmt.Errorf("%s %s: %w", c.kind, id, store.ErrNotFound)
	}
	if err != nil {
		return zero, fmt.Errorf("get %s document: %w", c.kind, err)
	}
	return c.decode(owner, raw)
}

func (c *collection[T]) Insert(ctx context.Context, e T) error {
	userID := e.OwnerID()
	if userID == "" {
		return core.ErrEmptyUserID
	}

	doc, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s document: %w", c.kind, err)
	}

	tx, err := c.st.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM documents WHERE kind = ? AND user_id = ? AND id = ?`,
		string(c.kind), userID, e.EntityID()).Scan(&one)
	if err == nil {
		return fmt.Errorf("%s %s: %w", c.kind, e.EntityID(), store.ErrDuplicateID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check duplicate: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (kind, user_id, id, doc) VALUES (?, ?, ?, ?)`,
		string(c.kind), userID, e.EntityID(), string(doc)); err != nil {
		return fmt.Errorf("insert %s document: %w", c.kind, err)
	}
	return tx.Commit()
}

func (c *collection[T]) Update(ctx context.Context, userID, id string, apply func(*T)) (T, error) {
	var zero T

	tx, err := c.st.db.BeginTx(ctx, nil)
	if err != nil {
		return zero, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT user_id, doc FROM documents WHERE kind = ? AND id = ?`
	args := []any{string(c.kind), id}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}

	var owner string
	var raw []byte
	err = tx.QueryRowContext(ctx, query, args...).Scan(&owner, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, fmt.Errorf("%s %s: %w", c.kind, id, store.ErrNotFound)
	}
	if err != nil {
		return zero, fmt.Errorf("get %s document: %w", c.kind, err)
	}

	merged, err := c.decode(owner, raw)
	if err != nil {
		return zero, err
	}
	apply(&merged)
	if t, ok := any(&merged).(interface{ Touch(time.Time) }); ok {
		t.Touch(c.st.nowFn())
	}

	doc, err := json.Marshal(merged)
	if err != nil {
		return zero, fmt.Errorf("marshal %s document: %w", c.kind, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET doc = ? WHERE kind = ? AND user_id = ? AND id = ?`,
		string(doc), string(c.kind), owner, id); err != nil {
		return zero, fmt.Errorf("update %s document: %w", c.kind, err)
	}
	if err := tx.Commit(); err != nil {
		return zero, err
	}
	return merged, nil
}

func (c *collection[T]) Remove(ctx context.Context, userID, id string) error {
	_, err := c.st.db.ExecContext(ctx,
		`DELETE FROM documents WHERE kind = ? AND user_id = ? AND id = ?`,
		string(c.kind), userID, id)
	if err != nil {
		return fmt.Errorf("delete %s document: %w", c.kind, err)
	}
	return nil
}

func (c *collection[T]) RemoveByUser(ctx context.Context, userID string) error {
	_, err := c.st.db.ExecContext(ctx,
		`DELETE FROM documents WHERE kind = ? AND user_id = ?`,
		string(c.kind), userID)
	if err != nil {
		return fmt.Errorf("delete %s documents for user %s: %w", c.kind, userID, err)
	}
	return nil
}
