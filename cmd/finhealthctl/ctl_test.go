package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finhealth/internal/cli"
	"finhealth/internal/config"
	"finhealth/internal/core"
	applog "finhealth/internal/log"
)

// newTestCtl shares one memory-backed app across commands; closing the
// memory backend is a no-op so state carries over.
func newTestCtl(t *testing.T) func(args ...string) (string, error) {
	t.Helper()
	cfg := &config.Config{
		DataBackend: config.BackendMemory,
		SpendSource: config.SpendSourceMemory,
	}
	app, err := cli.NewApp(context.Background(), cfg, applog.Discard())
	require.NoError(t, err)
	open := func(context.Context) (*cli.App, error) { return app, nil }

	return func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := newRootCmd(&out, open)
		cmd.SetArgs(args)
		err := cmd.ExecuteContext(context.Background())
		return out.String(), err
	}
}

func TestBudgetsList(t *testing.T) {
	run := newTestCtl(t)

	out, err := run("budgets", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Category")
	assert.Contains(t, out, "Food & Dining")
	assert.NotContains(t, out, "Healthcare")

	out, err = run("b", "suggestions")
	require.NoError(t, err)
	assert.Contains(t, out, "Healthcare")
	assert.Contains(t, out, "Education")
}

func TestBudgetsLifecycle(t *testing.T) {
	run := newTestCtl(t)

	out, err := run("budgets", "accept", "s1", "--amount", "250")
	require.NoError(t, err)
	assert.Equal(t, "Accepted Healthcare (s1) at 250.00\n", out)

	out, err = run("budgets", "edit", "1", "450,50")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated Food & Dining (1) to 450.50")

	_, err = run("budgets", "edit", "1", "12.3.4")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	out, err = run("budgets", "dismiss", "s2")
	require.NoError(t, err)
	assert.Equal(t, "Dismissed s2\n", out)

	out, err = run("budgets", "add", "Pets", "80", "--emoji", "🐶", "--spent", "20")
	require.NoError(t, err)
	assert.Contains(t, out, "Created Pets")
	assert.Contains(t, out, "status excellent")

	out, err = run("budgets", "delete", "3")
	require.NoError(t, err)
	assert.Equal(t, "Deleted 3\n", out)

	_, err = run("budgets", "delete", "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)

	out, err = run("budgets", "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Budgets")
	assert.Contains(t, out, "danger")
}

func TestBudgetsArgs(t *testing.T) {
	run := newTestCtl(t)

	_, err := run("budgets", "accept")
	assert.Error(t, err)
	_, err = run("budgets", "accept", "s1", "--amount", "abc")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	_, err = run("budgets", "refresh", "--period", "March")
	assert.Error(t, err)
}

func TestBudgetsRefreshAndReset(t *testing.T) {
	run := newTestCtl(t)

	out, err := run("budgets", "refresh")
	require.NoError(t, err)
	assert.Contains(t, out, "Refreshed ")

	_, err = run("budgets", "delete", "1")
	require.NoError(t, err)

	out, err = run("budgets", "reset-demo")
	require.NoError(t, err)
	assert.Equal(t, "Stored 7 demo budgets\n", out)

	out, err = run("budgets", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Food & Dining")
}

func TestScoreAndTrend(t *testing.T) {
	run := newTestCtl(t)

	out, err := run("score")
	require.NoError(t, err)
	assert.Contains(t, out, "Health score: ")
	assert.Contains(t, out, core.FactorBudgetAdherence)
	assert.NotContains(t, out, "Recorded")

	_, err = run("trend")
	assert.ErrorIs(t, err, core.ErrInsufficientHistory)

	for _, label := range []string{"2025-01", "2025-02", "2025-03"} {
		out, err = run("score", "--record", "--label", label)
		require.NoError(t, err)
		assert.Contains(t, out, "Recorded in history.")
	}

	out, err = run("trend", "-w", "3M")
	require.NoError(t, err)
	assert.Contains(t, out, "2025-01")
	assert.Contains(t, out, "2025-03")
	assert.Contains(t, out, "→")
	assert.Contains(t, out, "Improving over 3M: +0")

	_, err = run("trend", "-w", "2W")
	assert.ErrorIs(t, err, core.ErrInvalidWindow)
}

func TestEvents(t *testing.T) {
	run := newTestCtl(t)

	out, err := run("events", "-n", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Action")
}
