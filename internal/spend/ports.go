// Package spend supplies per-category spending figures and derives budget
// suggestions from them.
package spend

import (
	"context"
	"fmt"
	"time"

	"finhealth/internal/core"
)

// Period is one calendar month.
type Period struct {
	Year  int
	Month time.Month
}

func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// Previous is the month before p.
func (p Period) Previous() Period {
	if p.Month == time.January {
		return Period{Year: p.Year - 1, Month: time.December}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

func (p Period) Valid() bool {
	return p.Year > 0 && p.Month >= time.January && p.Month <= time.December
}

// String formats p as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// ParsePeriod accepts YYYY-MM.
func ParsePeriod(v string) (Period, error) {
	t, err := time.Parse("2006-01", v)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q: want YYYY-MM", v)
	}
	return PeriodOf(t), nil
}

type (
	// Source reports how much was spent per category.
	Source interface {
		SpentForCategory(ctx context.Context, category string, period Period) (float64, error)
		SpentLastPeriod(ctx context.Context, category string, period Period) (float64, error)
		// Categories lists the categories with recorded spend in period.
		Categories(ctx context.Context, period Period) ([]string, error)
	}

	// SuggestionGenerator proposes suggestion budgets for categories that
	// have none. Returned records must satisfy the suggestion invariants.
	SuggestionGenerator interface {
		Suggest(ctx context.Context, period Period, covered []string) ([]core.Budget, error)
	}
)
