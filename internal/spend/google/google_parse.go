package google

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

var monthHeaders = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

type categoryAmount struct {
	Name   string
	Amount float64
}

// parseDashboard extracts primary-category totals for month (1-12) from a
// values matrix whose first row holds Primary, Secondary and Jan..Dec
// headers. Secondary rows and the "total" row are skipped; categories keep
// sheet order.
func parseDashboard(values [][]interface{}, month int) ([]categoryAmount, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month: %d", month)
	}
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	colPrimary := indexOf(headers, "Primary")
	colSecondary := indexOf(headers, "Secondary")
	colMonth := indexOf(headers, monthHeaders[month-1])
	if colPrimary == -1 || colSecondary == -1 || colMonth == -1 {
		missing := make([]string, 0, 3)
		if colPrimary == -1 {
			missing = append(missing, "Primary")
		}
		if colSecondary == -1 {
			missing = append(missing, "Secondary")
		}
		if colMonth == -1 {
			missing = append(missing, monthHeaders[month-1])
		}
		return nil, fmt.Errorf("unexpected dashboard header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}

	var out []categoryAmount
	pos := map[string]int{}
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		primary := safeGet(row, colPrimary)
		if primary == "" || safeGet(row, colSecondary) != "" || strings.EqualFold(primary, "total") {
			continue
		}
		amount, ok := parseAmount(safeGet(row, colMonth))
		if !ok {
			amount = 0
		}
		if j, seen := pos[primary]; seen {
			out[j].Amount += amount
			continue
		}
		pos[primary] = len(out)
		out = append(out, categoryAmount{Name: primary, Amount: amount})
	}
	return out, nil
}

// matchCategory finds category among names: an exact case-insensitive
// match first, otherwise the closest name within a quarter of the
// category's length in edits (at least 2). It returns -1 when nothing is
// close enough or two names tie.
func matchCategory(names []string, category string) int {
	want := strings.ToLower(strings.TrimSpace(category))
	if want == "" {
		return -1
	}
	for i, n := range names {
		if strings.ToLower(n) == want {
			return i
		}
	}

	limit := max(2, utf8.RuneCountInString(want)/4)
	best, bestDist, tie := -1, limit+1, false
	for i, n := range names {
		d := levenshtein.ComputeDistance(want, strings.ToLower(n))
		switch {
		case d < bestDist:
			best, bestDist, tie = i, d, false
		case d == bestDist:
			tie = true
		}
	}
	if tie || bestDist > limit {
		return -1
	}
	return best
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// parseAmount reads a sheet cell such as "385,5", "1234.00" or "€ 12".
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "€"))
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return f, true
}
