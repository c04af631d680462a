package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"finhealth/internal/cli"
	"finhealth/internal/core"
	"finhealth/internal/spend"
)

func (c *ctl) budgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "budgets",
		Aliases: []string{"b"},
		Short:   "List and change budgets and suggestions",
	}
	cmd.AddCommand(
		c.listCmd(),
		c.suggestionsCmd(),
		c.summaryCmd(),
		c.acceptCmd(),
		c.editCmd(),
		c.dismissCmd(),
		c.addCmd(),
		c.deleteCmd(),
		c.refreshCmd(),
		c.resetDemoCmd(),
	)
	return cmd
}

func (c *ctl) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active budgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(_ context.Context, app *cli.App) error {
				c.printBudgets(app.Budgets.Active())
				return nil
			})
		},
	}
}

func (c *ctl) suggestionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggestions",
		Short: "List pending suggestions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(_ context.Context, app *cli.App) error {
				c.printBudgets(app.Budgets.Suggestions())
				return nil
			})
		},
	}
}

func (c *ctl) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show totals over active budgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(_ context.Context, app *cli.App) error {
				s := app.Budgets.Summary()
				rows := [][]string{
					{"Budgets", fmt.Sprint(s.Count)},
					{"Total budget", money(s.TotalBudget)},
					{"Total spent", money(s.TotalSpent)},
					{"Remaining", money(s.Remaining)},
					{"Progress", fmt.Sprintf("%.1f%%", s.OverallProgress)},
				}
				for _, st := range core.Statuses() {
					rows = append(rows, []string{st.String(), fmt.Sprint(s.ByStatus[st])})
				}
				c.p.table([]string{"Metric", "Value"}, rows, nil)
				return nil
			})
		},
	}
}

func (c *ctl) acceptCmd() *cobra.Command {
	var amount string
	cmd := &cobra.Command{
		Use:   "accept <id>",
		Short: "Accept a suggestion, optionally with a different amount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var override *float64
			if amount != "" {
				v, err := core.ParseAmount(amount)
				if err != nil {
					return fmt.Errorf("amount %q: %w", amount, err)
				}
				override = &v
			}
			return c.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				b, err := app.Budgets.AcceptSuggestion(ctx, args[0], override)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "Accepted %s (%s) at %s\n", b.Category, b.ID, money(b.CurrentAmount))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "limit to use instead of the suggested amount")
	return cmd
}

func (c *ctl) editCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> <amount>",
		Short: "Change a budget's limit; editing a suggestion accepts it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := core.ParseAmount(args[1])
			if err != nil {
				return fmt.Errorf("amount %q: %w", args[1], err)
			}
			return c.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				b, err := app.Budgets.EditBudget(ctx, args[0], v)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "Updated %s (%s) to %s, status %s\n", b.Category, b.ID, money(b.CurrentAmount), b.Status)
				return nil
			})
		},
	}
}

func (c *ctl) dismissCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss <id>",
		Short: "Dismiss a suggestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				if err := app.Budgets.DismissSuggestion(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(c.out, "Dismissed %s\n", args[0])
				return nil
			})
		},
	}
}

func (c *ctl) addCmd() *cobra.Command {
	var (
		emoji     string
		spent     float64
		lastMonth float64
	)
	cmd := &cobra.Command{
		Use:   "add <category> <amount>",
		Short: "Create a custom budget",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := core.ParseAmount(args[1])
			if err != nil {
				return fmt.Errorf("amount %q: %w", args[1], err)
			}
			return c.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				b, err := app.Budgets.AddCustomBudget(ctx, core.NewBudget{
					Category:       args[0],
					Emoji:          emoji,
					Amount:         v,
					SpentAmount:    spent,
					LastMonthSpent: lastMonth,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "Created %s (%s) at %s, status %s\n", b.Category, b.ID, money(b.CurrentAmount), b.Status)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&emoji, "emoji", "", "icon shown next to the category")
	cmd.Flags().Float64Var(&spent, "spent", 0, "amount already spent this month")
	cmd.Flags().Float64Var(&lastMonth, "last-month", 0, "amount spent last month")
	return cmd
}

func (c *ctl) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an active budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				if err := app.Budgets.DeleteBudget(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(c.out, "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func (c *ctl) refreshCmd() *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Re-read spend from the spend source and propose new suggestions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				p := spend.PeriodOf(app.Now())
				if period != "" {
					var err error
					if p, err = spend.ParsePeriod(period); err != nil {
						return err
					}
				}
				updated, err := app.Budgets.RefreshSpend(ctx, p)
				if err != nil {
					return err
				}
				suggested, err := app.Budgets.GenerateSuggestions(ctx, p)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "Refreshed %s: %d updated, %d new suggestions\n", p, updated, suggested)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "month to refresh as YYYY-MM (default current)")
	return cmd
}

// resetDemoCmd overwrites the stored budgets with the demo data set.
func (c *ctl) resetDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-demo",
		Short: "Replace every stored budget with the demo data set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				n, err := app.ResetDemo(ctx)
				if errors.Is(err, cli.ErrUnsupported) {
					return fmt.Errorf("reset-demo: %w", err)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "Stored %d demo budgets\n", n)
				return nil
			})
		},
	}
}

func (c *ctl) printBudgets(list []core.Budget) {
	rows := make([][]string, 0, len(list))
	for _, b := range list {
		status := "-"
		if b.Status.Valid() {
			status = b.Status.String()
		}
		rows = append(rows, []string{
			b.ID, b.Emoji + " " + b.Category,
			money(b.CurrentAmount), money(b.SuggestedAmount),
			money(b.SpentAmount), money(b.LastMonthSpent), status,
		})
	}
	c.p.table(
		[]string{"ID", "Category", "Limit", "Suggested", "Spent", "Last month", "Status"},
		rows,
		func(row, col int) lipgloss.Style {
			if col == 6 {
				return c.p.statusStyle(rows[row][col])
			}
			return c.p.r.NewStyle()
		})
}
