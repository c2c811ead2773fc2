package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

const (
	OwnershipPersonal Ownership = "personal"
	OwnershipGroup    Ownership = "group"
)

// Suggested categories. The set is open: any label is accepted, these are
// the ones the entry surface offers.
const (
	CategoryFood          = "Food"
	CategoryTransport     = "Transport"
	CategoryOffice        = "Office"
	CategoryUtilities     = "Utilities"
	CategoryEntertainment = "Entertainment"
	CategoryOther         = "Other"
)

type (
	TransactionType string

	Ownership string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID        string          `json:"id"`
		Date      Date            `json:"date"`
		Merchant  string          `json:"merchant"`
		Amount    Money           `json:"amount"`
		Type      TransactionType `json:"type"`
		Ownership Ownership       `json:"ownership"`
		GroupID   string          `json:"groupId,omitempty"`
		Category  string          `json:"category,omitempty"`
		Items     []string        `json:"items,omitempty"`
		Note      string          `json:"note,omitempty"`
		SlipURL   string          `json:"slipUrl,omitempty"`
	}

	Group struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Budget  Money  `json:"budget"`
		Members int    `json:"members"`
		Icon    string `json:"icon"`
	}
)

var (
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidGroup       = errors.New("invalid group")
	ErrNotFound           = errors.New("not found")
	ErrDuplicateID        = errors.New("duplicate id")
	ErrUnknownGroup       = errors.New("unknown group")
)

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a wall-clock instant to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// String returns the YYYY-MM-DD form used as the bucketing key everywhere.
func (d Date) String() string {
	return d.Format(time.DateOnly)
}

// SameMonth reports whether the date falls in the same calendar month and
// year as t.
func (d Date) SameMonth(t time.Time) bool {
	return d.Year() == t.Year() && d.Month() == t.Month()
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (tt TransactionType) Valid() bool {
	return tt == TypeIncome || tt == TypeExpense
}

func (o Ownership) Valid() bool {
	return o == OwnershipPersonal || o == OwnershipGroup
}

// Normalize drops a stale group reference from personal transactions. The
// entry surface may carry one over after the ownership toggle flips back.
func (t Transaction) Normalize() Transaction {
	if t.Ownership == OwnershipPersonal {
		t.GroupID = ""
	}
	return t
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Merchant) == "" {
		return fmt.Errorf("%w: merchant is required", ErrInvalidTransaction)
	}
	if t.Amount.Cents < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidTransaction)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidTransaction)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, t.Type)
	}
	if !t.Ownership.Valid() {
		return fmt.Errorf("%w: unknown ownership %q", ErrInvalidTransaction, t.Ownership)
	}
	if t.Ownership == OwnershipGroup && t.GroupID == "" {
		return fmt.Errorf("%w: group transactions need a group id", ErrInvalidTransaction)
	}
	return nil
}

func (g Group) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidGroup)
	}
	if g.Budget.Cents <= 0 {
		return fmt.Errorf("%w: budget must be positive", ErrInvalidGroup)
	}
	return nil
}

// CategoryOrOther maps an absent category to the "Other" bucket.
func (t Transaction) CategoryOrOther() string {
	if strings.TrimSpace(t.Category) == "" {
		return CategoryOther
	}
	return t.Category
}
