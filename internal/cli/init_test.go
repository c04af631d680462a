package cli

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finhealth/internal/config"
	"finhealth/internal/core"
	applog "finhealth/internal/log"
)

func memoryConfig() *config.Config {
	return &config.Config{
		DataBackend: config.BackendMemory,
		SpendSource: config.SpendSourceMemory,
		LogLevel:    "error",
	}
}

func TestNewApp_Memory(t *testing.T) {
	ctx := context.Background()
	app, err := NewApp(ctx, memoryConfig(), applog.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	assert.Nil(t, app.Backend.AMQP)
	assert.Len(t, app.Budgets.Active(), 5)
	assert.Len(t, app.Budgets.Suggestions(), 2)
	assert.NoError(t, app.Ready(ctx))

	score, err := app.Health.Current(ctx)
	require.NoError(t, err)
	assert.Len(t, score.Components, len(core.DefaultFactors()))
	assert.Empty(t, app.Health.History())
}

func TestNewApp_InvalidBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.DataBackend = "sheets"
	_, err := NewApp(context.Background(), cfg, applog.Discard())
	assert.ErrorContains(t, err, "backend config")
}

func TestNewApp_SQLiteReady(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()
	cfg.DataBackend = config.BackendSQLite
	cfg.SQLiteDBPath = filepath.Join(t.TempDir(), "finhealth.db")

	app, err := NewApp(ctx, cfg, applog.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	assert.NoError(t, app.Ready(ctx))
	assert.Empty(t, app.Budgets.Active())

	n, err := app.ResetDemo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Len(t, app.Budgets.Active(), 5)
}

func TestApp_ResetDemo(t *testing.T) {
	ctx := context.Background()
	app, err := NewApp(ctx, memoryConfig(), applog.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	require.NoError(t, app.Budgets.DeleteBudget(ctx, "1"))
	require.NoError(t, app.Budgets.DismissSuggestion(ctx, "s1"))

	n, err := app.ResetDemo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = app.Budgets.Get("1")
	assert.NoError(t, err)
	_, err = app.Budgets.Get("s1")
	assert.NoError(t, err)
}

func TestShutdown(t *testing.T) {
	var order []string
	step := func(name string, err error) func(context.Context) error {
		return func(ctx context.Context) error {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			order = append(order, name)
			return err
		}
	}
	boom := errors.New("boom")

	err := Shutdown(applog.Discard(), time.Second, step("server", nil), step("refresher", boom), step("backend", nil))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"server", "refresher", "backend"}, order)

	assert.NoError(t, Shutdown(applog.Discard(), time.Second))
}
