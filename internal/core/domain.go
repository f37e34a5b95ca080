package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

type (
	// TxType distinguishes money coming in from money going out.
	TxType string

	Money struct {
		Cents int64
	}

	// Transaction is a single income or expense record. ID is assigned by the
	// storage layer on creation and is opaque to everything above it.
	Transaction struct {
		ID       string
		Type     TxType
		Category string
		Amount   Money
		Date     time.Time
	}

	// Filter narrows which transactions are displayed and aggregated.
	// A zero Month or Year means no constraint on that field.
	Filter struct {
		Month int // 1-12, 0 = any
		Year  int // absolute year, 0 = any
	}

	// Summary holds the derived totals over a transaction set.
	Summary struct {
		Income    Money
		Expense   Money
		Remaining Money
	}

	// CategoryAmount is an amount aggregated under one category label.
	CategoryAmount struct {
		Name   string
		Amount Money
	}
)

var (
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyCategory = errors.New("empty category")
	ErrZeroDate      = errors.New("date cannot be zero")
	ErrInvalidMonth  = errors.New("invalid month")
)

func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// IsZero reports whether the filter constrains nothing (the clear-filter case).
func (f Filter) IsZero() bool {
	return f.Month == 0 && f.Year == 0
}

func (f Filter) Validate() error {
	if f.Month < 0 || f.Month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Matches reports whether a date satisfies the filter.
func (f Filter) Matches(d time.Time) bool {
	if f.Month != 0 && int(d.Month()) != f.Month {
		return false
	}
	if f.Year != 0 && d.Year() != f.Year {
		return false
	}
	return true
}

// Validate checks the fields that are mandatory before any write is attempted.
func (tx Transaction) Validate() error {
	if !tx.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(tx.Category) == "" {
		return ErrEmptyCategory
	}
	if len(tx.Category) > 100 {
		return errors.New("category too long (max 100 characters)")
	}
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	if tx.Date.IsZero() {
		return ErrZeroDate
	}
	return nil
}
