package core

import (
	"errors"
	"strings"
	"time"
)

// EntryType classifies money movement for categories, transactions and
// recurring rules.
type EntryType string

const (
	Income  EntryType = "income"
	Expense EntryType = "expense"
)

func (t EntryType) Valid() bool {
	return t == Income || t == Expense
}

// Frequency is the calendar step applied to a recurring rule's next due date.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

var (
	ErrEmptyID          = errors.New("empty id")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyUserID      = errors.New("empty user id")
	ErrEmptyCategoryID  = errors.New("empty category id")
	ErrInvalidType      = errors.New("invalid entry type")
	ErrInvalidFrequency = errors.New("invalid frequency")
)

// Entity is the contract every stored record satisfies: a stable opaque
// identifier plus the id of the owning user.
type Entity interface {
	EntityID() string
	OwnerID() string
}

// Timestamps carries the audit fields common to mutable entities. Touch is
// called by the store on every update.
type Timestamps struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t *Timestamps) Touch(now time.Time) {
	t.UpdatedAt = now
}

// User owns all other entities transitively.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) EntityID() string { return u.ID }
func (u User) OwnerID() string  { return u.ID }

func (u User) Validate() error {
	if u.ID == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Category groups transactions and recurring rules of a single user.
type Category struct {
	ID     string    `json:"id"`
	UserID string    `json:"userId"`
	Name   string    `json:"name"`
	Type   EntryType `json:"type"`
	Icon   string    `json:"icon,omitempty"`
}

func (c Category) EntityID() string { return c.ID }
func (c Category) OwnerID() string  { return c.UserID }

func (c Category) Validate() error {
	if c.ID == "" {
		return ErrEmptyID
	}
	if c.UserID == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

// Transaction is a single dated income or expense entry. Entries materialized
// by the recurring engine carry IsRecurring=true and the originating rule id;
// manually entered ones have IsRecurring=false and no RecurringID.
type Transaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	CategoryID  string    `json:"categoryId"`
	Amount      Money     `json:"amount"`
	Type        EntryType `json:"type"`
	Date        Date      `json:"date"`
	Notes       string    `json:"notes,omitempty"`
	IsRecurring bool      `json:"isRecurring"`
	RecurringID string    `json:"recurringId,omitempty"`
	Timestamps
}

func (t Transaction) EntityID() string { return t.ID }
func (t Transaction) OwnerID() string  { return t.UserID }

func (t Transaction) Validate() error {
	if t.ID == "" {
		return ErrEmptyID
	}
	if t.UserID == "" {
		return ErrEmptyUserID
	}
	if t.CategoryID == "" {
		return ErrEmptyCategoryID
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	return t.Date.Validate()
}

// RecurringRule is a template that periodically generates transactions.
// NextDueDate starts at StartDate and is advanced only by the engine, never
// backwards.
type RecurringRule struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	CategoryID  string    `json:"categoryId"`
	Amount      Money     `json:"amount"`
	Type        EntryType `json:"type"`
	Frequency   Frequency `json:"frequency"`
	StartDate   Date      `json:"startDate"`
	NextDueDate Date      `json:"nextDueDate"`
	Notes       string    `json:"notes,omitempty"`
	IsActive    bool      `json:"isActive"`
	Timestamps
}

func (r RecurringRule) EntityID() string { return r.ID }
func (r RecurringRule) OwnerID() string  { return r.UserID }

func (r RecurringRule) Validate() error {
	if r.ID == "" {
		return ErrEmptyID
	}
	if r.UserID == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if r.CategoryID == "" {
		return ErrEmptyCategoryID
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if !r.Type.Valid() {
		return ErrInvalidType
	}
	if !r.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if err := r.StartDate.Validate(); err != nil {
		return err
	}
	return r.NextDueDate.Validate()
}
