package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	StatusExcellent Status = iota + 1
	StatusGood
	StatusWarning
	StatusDanger
)

type (
	// Status is the spend-vs-limit tier of a budget. It is derived by
	// Classify and never set directly by callers.
	Status int

	Budget struct {
		ID              string
		Category        string
		Emoji           string
		SuggestedAmount float64
		CurrentAmount   float64 // 0 while IsSuggestion
		SpentAmount     float64
		Status          Status
		LastMonthSpent  float64
		IsSuggestion    bool
	}

	// NewBudget carries the caller-supplied fields of a custom budget.
	NewBudget struct {
		Category       string
		Emoji          string
		Amount         float64
		SpentAmount    float64
		LastMonthSpent float64
	}
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidLimit        = errors.New("invalid limit")
	ErrNotFound            = errors.New("not found")
	ErrInvalidWeights      = errors.New("invalid weights")
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrInvalidScore        = errors.New("invalid score")
	ErrMissingFactor       = errors.New("missing factor")
	ErrDuplicateID         = errors.New("duplicate id")
	ErrInvalidWindow       = errors.New("invalid trend window")
	ErrEmptyCategory       = errors.New("empty category")
)

// Statuses lists every tier from best to worst.
func Statuses() []Status {
	return []Status{StatusExcellent, StatusGood, StatusWarning, StatusDanger}
}

func (s Status) String() string {
	switch s {
	case StatusExcellent:
		return "excellent"
	case StatusGood:
		return "good"
	case StatusWarning:
		return "warning"
	case StatusDanger:
		return "danger"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Valid reports whether s is one of the four tiers.
func (s Status) Valid() bool {
	switch s {
	case StatusExcellent, StatusGood, StatusWarning, StatusDanger:
		return true
	}
	return false
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(v string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "excellent":
		return StatusExcellent, nil
	case "good":
		return StatusGood, nil
	case "warning":
		return StatusWarning, nil
	case "danger":
		return StatusDanger, nil
	}
	return 0, fmt.Errorf("unknown budget status %q", v)
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", s)
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ValidateAmount accepts only positive finite limits.
func ValidateAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateSpend accepts zero and positive finite spend figures.
func ValidateSpend(v float64) error {
	if !nonNegative(v) {
		return ErrInvalidAmount
	}
	return nil
}

func (b NewBudget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if err := ValidateAmount(b.Amount); err != nil {
		return err
	}
	if !nonNegative(b.SpentAmount) || !nonNegative(b.LastMonthSpent) {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks the record invariants shared by suggestions and active
// budgets.
func (b Budget) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return errors.New("empty budget id")
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if !nonNegative(b.SuggestedAmount) || !nonNegative(b.SpentAmount) || !nonNegative(b.LastMonthSpent) {
		return ErrInvalidAmount
	}
	if b.IsSuggestion {
		if b.CurrentAmount != 0 {
			return fmt.Errorf("suggestion %s has a current amount: %w", b.ID, ErrInvalidAmount)
		}
		return nil
	}
	return ValidateAmount(b.CurrentAmount)
}

// Progress is spent as a percentage of the limit in force. Suggestions have
// no limit and report 0.
func (b Budget) Progress() float64 {
	if b.CurrentAmount <= 0 {
		return 0
	}
	return b.SpentAmount / b.CurrentAmount * 100
}

// Left is the unspent part of the limit; negative when over budget.
func (b Budget) Left() float64 {
	return b.CurrentAmount - b.SpentAmount
}

// VsLastMonth compares this period's spend with the previous one.
func (b Budget) VsLastMonth() Comparison {
	switch {
	case b.SpentAmount < b.LastMonthSpent:
		return Below
	case b.SpentAmount > b.LastMonthSpent:
		return Above
	default:
		return Equal
	}
}

// Comparison is the outcome of comparing two periods.
type Comparison string

const (
	Below Comparison = "below"
	Above Comparison = "above"
	Equal Comparison = "equal"
)

func nonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
