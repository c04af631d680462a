package core

import (
	"fmt"
	"math"
)

// Tier boundaries as percentages of the limit.
const (
	dangerAbove    = 100.0
	warningAbove   = 90.0
	excellentBelow = 70.0
)

// Classify maps spend against a limit to a Status tier. The limit must be
// positive; a budget without an effective limit has no meaningful status.
func Classify(spent, limit float64) (Status, error) {
	if math.IsNaN(limit) || math.IsInf(limit, 0) || limit <= 0 {
		return 0, fmt.Errorf("classify limit %v: %w", limit, ErrInvalidLimit)
	}
	ratio := spent / limit * 100
	switch {
	case ratio > dangerAbove:
		return StatusDanger, nil
	case ratio > warningAbove:
		return StatusWarning, nil
	case ratio < excellentBelow:
		return StatusExcellent, nil
	default:
		return StatusGood, nil
	}
}
