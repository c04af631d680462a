package google

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finhealth/internal/spend"
)

func dashboard2025() [][]interface{} {
	return [][]interface{}{
		{"Primary", "Secondary", "Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec", "Average", "Total"},
		{"Housing", "", 778.0, 509.6, 1170.5, 674.2, 382.2, 40.0, 988.9},
		{"", "Mortage", 648.1, 0.0, 583.9, 568.7, 0.0, 0.0, 339.5},
		{"", "Internet", 49.8, 0.0, 25.0, 0.0, 24.9, 40.0, 46.9},
		{"Health", "", 80.0, 144.4, 191.7, 395.1, 425.0, 102.0, 148.0},
		{"Groceries", "", 368.9, 270.1, 220.9, 201.1, 197.1, 128.0, "381,5"},
		{"Transport", "", 181.0, 817.1, 240.1, 55.9, 367.0, 171.0, 79.9},
		{"Leisure", "", 323.0, 413.6, 0.0, 300.0, 161.7, 600.0},
		{"total", "", 1994, 2236, 1841, 1778, 1699, 3081, 2258},
	}
}

func dashboard2024() [][]interface{} {
	return [][]interface{}{
		{"Primary", "Secondary", "Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
		{"Groceries", "", 300.0, 310.0, 320.0, 330.0, 340.0, 350.0, 360.0, 370.0, 380.0, 390.0, 400.0, 410.0},
	}
}

func TestParseDashboard_July(t *testing.T) {
	got, err := parseDashboard(dashboard2025(), 7)
	require.NoError(t, err)

	assert.Equal(t, []string{"Housing", "Health", "Groceries", "Transport", "Leisure"}, names(got))
	assert.InDelta(t, 988.9, got[0].Amount, 1e-9)
	assert.InDelta(t, 381.5, got[2].Amount, 1e-9)
	// Short row: the July cell is missing.
	assert.Equal(t, 0.0, got[4].Amount)
}

func TestParseDashboard_Errors(t *testing.T) {
	_, err := parseDashboard(dashboard2025(), 13)
	require.Error(t, err)

	_, err = parseDashboard([][]interface{}{{"Primary", "Jan"}}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Secondary")

	got, err := parseDashboard(nil, 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMatchCategory(t *testing.T) {
	sheet := []string{"Housing", "Health", "Groceries", "Transport", "Leisure"}
	tests := []struct {
		name     string
		category string
		want     int
	}{
		{"exact", "Groceries", 2},
		{"case insensitive", "transport", 3},
		{"typo", "Grocerys", 2},
		{"too far", "Entertainment", -1},
		{"empty", "  ", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchCategory(sheet, tt.category))
		})
	}

	// Equally distant candidates are ambiguous.
	assert.Equal(t, -1, matchCategory([]string{"Gas", "Gym"}, "Gam"))
}

func TestYearPrefixedName(t *testing.T) {
	assert.Equal(t, "2025 Dashboard", yearPrefixedName("Dashboard", 2025))
	assert.Equal(t, "2023 Dashboard", yearPrefixedName("2023 Dashboard", 2025))
	assert.Equal(t, "", yearPrefixedName(" ", 2025))
}

type fakeValues struct {
	sheets map[string][][]interface{}
	ranges []string
	err    error
}

func (f *fakeValues) Values(_ context.Context, _ string, rng string) ([][]interface{}, error) {
	f.ranges = append(f.ranges, rng)
	if f.err != nil {
		return nil, f.err
	}
	for name, v := range f.sheets {
		if strings.HasPrefix(rng, "'"+name+"'!") {
			return v, nil
		}
	}
	return nil, errors.New("unable to parse range: " + rng)
}

func TestClient_Spend(t *testing.T) {
	ctx := context.Background()
	fv := &fakeValues{sheets: map[string][][]interface{}{
		"2025 Dashboard": dashboard2025(),
		"2024 Dashboard": dashboard2024(),
	}}
	c := newClient(fv, "sheet-id", "")

	got, err := c.SpentForCategory(ctx, "groceries", spend.Period{Year: 2025, Month: 7})
	require.NoError(t, err)
	assert.InDelta(t, 381.5, got, 1e-9)

	got, err = c.SpentLastPeriod(ctx, "Groceries", spend.Period{Year: 2025, Month: 7})
	require.NoError(t, err)
	assert.InDelta(t, 128.0, got, 1e-9)

	// January looks back into the previous year's dashboard.
	got, err = c.SpentLastPeriod(ctx, "Groceries", spend.Period{Year: 2025, Month: 1})
	require.NoError(t, err)
	assert.InDelta(t, 410.0, got, 1e-9)
	assert.Equal(t, "'2024 Dashboard'!"+dashboardRange, fv.ranges[len(fv.ranges)-1])

	got, err = c.SpentForCategory(ctx, "Pets", spend.Period{Year: 2025, Month: 7})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	cats, err := c.Categories(ctx, spend.Period{Year: 2025, Month: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"Housing", "Health", "Groceries", "Transport", "Leisure"}, cats)
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()
	c := newClient(&fakeValues{err: errors.New("quota exceeded")}, "sheet-id", "Dashboard")

	_, err := c.SpentForCategory(ctx, "Groceries", spend.Period{Year: 2025, Month: 7})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	_, err = c.Categories(ctx, spend.Period{Year: 2025, Month: 0})
	require.Error(t, err)

	_, err = New(ctx, Config{})
	require.Error(t, err)

	_, err = New(ctx, Config{SpreadsheetID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing OAuth client credentials")
}
