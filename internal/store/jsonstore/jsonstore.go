// Package jsonstore is the canonical Store implementation: one JSON document
// per (kind, user) pair under a per-user directory, written atomically via
// temp file + rename. Read-modify-write cycles for a given document are
// serialized by a per-document lock, and a corrupt document only fails
// operations touching that one (kind, user) pair.
package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"budgetd/internal/cache"
	"budgetd/internal/core"
	"budgetd/internal/store"
)

const (
	cacheSize = 512
	cacheTTL  = 5 * time.Minute
)

// Store persists the four collections as JSON files under dir.
type Store struct {
	dir   string
	nowFn func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.RWMutex

	users        *collection[core.User]
	categories   *collection[core.Category]
	transactions *collection[core.Transaction]
	recurring    *collection[core.RecurringRule]
}

func New(dir string) *Store {
	s := &Store{
		dir:   dir,
		nowFn: time.Now,
		locks: make(map[string]*sync.RWMutex),
	}
	s.users = newCollection[core.User](s, store.KindUsers)
	s.categories = newCollection[core.Category](s, store.KindCategories)
	s.transactions = newCollection[core.Transaction](s, store.KindTransactions)
	s.recurring = newCollection[core.RecurringRule](s, store.KindRecurring)
	return s
}

func (s *Store) Users() store.Collection[core.User]               { return s.users }
func (s *Store) Categories() store.Collection[core.Category]      { return s.categories }
func (s *Store) Transactions() store.Collection[core.Transaction] { return s.transactions }
func (s *Store) Recurring() store.Collection[core.RecurringRule]  { return s.recurring }

// Init creates the data directory if absent and warms the cache from any
// existing documents. Corrupt documents are left for their own operations to
// surface; Init never fails because of one bad file.
func (s *Store) Init(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	_, _ = s.users.All(ctx)
	_, _ = s.categories.All(ctx)
	_, _ = s.transactions.All(ctx)
	_, _ = s.recurring.All(ctx)
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) UserExists(ctx context.Context, userID string) (bool, error) {
	_, err := s.users.ByID(ctx, userID, userID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// userIDs lists the per-user directories currently on disk.
func (s *Store) userIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read data directory: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// lockFor returns the lock serializing access to one (kind, user) document.
func (s *Store) lockFor(key string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[key] = l
	}
	return l
}

// collection implements store.Collection for a single kind on top of the
// shared file layout.
type collection[T core.Entity] struct {
	st    *Store
	kind  store.Kind
	cache *cache.LRU[[]T]
}

func newCollection[T core.Entity](st *Store, kind store.Kind) *collection[T] {
	return &collection[T]{
		st:    st,
		kind:  kind,
		cache: cache.NewLRU[[]T](cacheSize, cacheTTL),
	}
}

func (c *collection[T]) key(userID string) string {
	return string(c.kind) + "/" + userID
}

func (c *collection[T]) path(userID string) string {
	return filepath.Join(c.st.dir, userID, string(c.kind)+".json")
}

// read loads one user's document, bypassing locks. Callers hold the
// appropriate lock for the document's key.
func (c *collection[T]) read(userID string) ([]T, error) {
	key := c.key(userID)
	if items, ok := c.cache.Get(key); ok {
		return items, nil
	}

	path := c.path(userID)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s document for user %s: %w", c.kind, userID, err)
	}

	var items []T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, &store.CorruptError{Kind: c.kind, UserID: userID, Path: path, Err: err}
		}
	}
	c.cache.Set(key, items)
	return items, nil
}

// write replaces one user's document atomically and refreshes the cache.
func (c *collection[T]) write(userID string, items []T) error {
	userDir := filepath.Join(c.st.dir, userID)
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return fmt.Errorf("create user directory: %w", err)
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s document: %w", c.kind, err)
	}

	tmp, err := os.CreateTemp(userDir, "."+string(c.kind)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp document: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp document: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp document: %w", err)
	}
	if err := os.Rename(tmpPath, c.path(userID)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s document: %w", c.kind, err)
	}

	c.cache.Set(c.key(userID), items)
	return nil
}

func (c *collection[T]) All(_ context.Context) ([]T, error) {
	ids, err := c.st.userIDs()
	if err != nil {
		return nil, err
	}

	var out []T
	var errs *multierror.Error
	for _, uid := range ids {
		items, err := c.forUser(uid)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		out = append(out, items...)
	}
	return out, errs.ErrorOrNil()
}

func (c *collection[T]) ByUser(_ context.Context, userID string) ([]T, error) {
	return c.forUser(userID)
}

func (c *collection[T]) ByID(_ context.Context, userID, id string) (T, error) {
	var zero T

	if userID != "" {
		items, err := c.forUser(userID)
		if err != nil {
			return zero, err
		}
		for _, it := range items {
			if it.EntityID() == id {
				return it, nil
			}
		}
		return zero, notFound(c.kind, id)
	}

	// No owner hint: scan every user's document.
	ids, err := c.st.userIDs()
	if err != nil {
		return zero, err
	}
	var errs *multierror.Error
	for _, uid := range ids {
		items, err := c.forUser(uid)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		for _, it := range items {
			if it.EntityID() == id {
				return it, nil
			}
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return zero, err
	}
	return zero, notFound(c.kind, id)
}

func (c *collection[T]) Insert(_ context.Context, e T) error {
	userID := e.OwnerID()
	if userID == "" {
		return core.ErrEmptyUserID
	}

	lock := c.st.lockFor(c.key(userID))
	lock.Lock()
	defer lock.Unlock()

	items, err := c.read(userID)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.EntityID() == e.EntityID() {
			return fmt.Errorf("%s %s: %w", c.kind, e.EntityID(), store.ErrDuplicateID)
		}
	}
	return c.write(userID, append(slices.Clone(items), e))
}

func (c *collection[T]) Update(ctx context.Context, userID, id string, apply func(*T)) (T, error) {
	var zero T

	if userID == "" {
		// Resolve the owner first so the mutation runs under its lock.
		found, err := c.ByID(ctx, "", id)
		if err != nil {
			return zero, err
		}
		userID = found.OwnerID()
	}

	lock := c.st.lockFor(c.key(userID))
	lock.Lock()
	defer lock.Unlock()

	items, err := c.read(userID)
	if err != nil {
		return zero, err
	}
	idx := slices.IndexFunc(items, func(it T) bool { return it.EntityID() == id })
	if idx < 0 {
		return zero, notFound(c.kind, id)
	}

	merged := items[idx]
	apply(&merged)
	if t, ok := any(&merged).(interface{ Touch(time.Time) }); ok {
		t.Touch(c.st.nowFn())
	}

	updated := slices.Clone(items)
	updated[idx] = merged
	if err := c.write(userID, updated); err != nil {
		return zero, err
	}
	return merged, nil
}

func (c *collection[T]) Remove(_ context.Context, userID, id string) error {
	lock := c.st.lockFor(c.key(userID))
	lock.Lock()
	defer lock.Unlock()

	items, err := c.read(userID)
	if err != nil {
		return err
	}
	remaining := slices.DeleteFunc(slices.Clone(items), func(it T) bool { return it.EntityID() == id })
	if len(remaining) == len(items) {
		return nil
	}
	return c.write(userID, remaining)
}

func (c *collection[T]) RemoveByUser(_ context.Context, userID string) error {
	lock := c.st.lockFor(c.key(userID))
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(c.path(userID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s document for user %s: %w", c.kind, userID, err)
	}
	c.cache.Delete(c.key(userID))

	// Drop the user directory once its last document is gone.
	os.Remove(filepath.Join(c.st.dir, userID))
	return nil
}

// forUser returns a caller-owned copy of one user's entities.
func (c *collection[T]) forUser(userID string) ([]T, error) {
	lock := c.st.lockFor(c.key(userID))
	lock.RLock()
	defer lock.RUnlock()

	items, err := c.read(userID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(items), nil
}

func notFound(kind store.Kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
