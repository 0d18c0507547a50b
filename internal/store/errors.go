package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced entity or id is absent.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateID is returned by Insert when the id already exists.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrInvalidReference marks a cross-entity reference that does not
	// resolve to an entity owned by the same user.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrBusy is returned when an engine run is requested while another run
	// holds the guard.
	ErrBusy = errors.New("engine busy")
)

// CorruptError reports an unparseable persisted document. The failure is
// scoped to one (kind, user) pair; other collections stay readable.
type CorruptError struct {
	Kind   Kind
	UserID string
	Path   string
	Err    error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt %s document for user %s at %s: %v", e.Kind, e.UserID, e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// IsCorrupt reports whether err wraps a CorruptError.
func IsCorrupt(err error) bool {
	var ce *CorruptError
	return errors.As(err, &ce)
}
