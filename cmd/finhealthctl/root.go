package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"finhealth/internal/cli"
)

// appOpener opens the configured backend. Each command opens it once and
// closes it before returning.
type appOpener func(ctx context.Context) (*cli.App, error)

type ctl struct {
	out  io.Writer
	p    *printer
	open appOpener
}

func newRootCmd(out io.Writer, open appOpener) *cobra.Command {
	c := &ctl{out: out, p: newPrinter(out), open: open}

	root := &cobra.Command{
		Use:           "finhealthctl",
		Short:         "Manage budgets and inspect the financial health score",
		Long:          "Operate on the configured finhealth backend: review suggestions, manage budgets, read the health score and its trend.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.AddCommand(c.budgetsCmd(), c.scoreCmd(), c.trendCmd(), c.eventsCmd())
	return root
}

// withApp runs fn against a freshly opened app and always closes it.
func (c *ctl) withApp(cmd *cobra.Command, fn func(ctx context.Context, app *cli.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := c.open(ctx)
	if err != nil {
		return err
	}
	runErr := fn(ctx, app)
	if err := app.Close(); err != nil && runErr == nil {
		return fmt.Errorf("close backend: %w", err)
	}
	return runErr
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
