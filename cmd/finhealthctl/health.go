package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"finhealth/internal/cli"
	"finhealth/internal/core"
)

func (c *ctl) scoreCmd() *cobra.Command {
	var (
		record bool
		label  string
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute the current health score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				var (
					score core.HealthScore
					err   error
				)
				if record {
					score, err = app.Health.Record(ctx, label)
				} else {
					score, err = app.Health.Current(ctx)
				}
				if err != nil {
					return err
				}
				c.printScore(score)
				if record {
					fmt.Fprintln(c.out, "Recorded in history.")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&record, "record", false, "append the score to the history")
	cmd.Flags().StringVar(&label, "label", "", "period label for --record (default YYYY-MM)")
	return cmd
}

func (c *ctl) printScore(score core.HealthScore) {
	overall := c.p.classificationStyle(score.Classification).
		Render(fmt.Sprintf("%d (%s)", score.Overall, score.Classification))
	fmt.Fprintf(c.out, "Health score: %s\n", overall)

	rows := make([][]string, 0, len(score.Components))
	for _, comp := range score.Components {
		rows = append(rows, []string{
			comp.Name,
			fmt.Sprintf("%.1f", comp.RawScore),
			fmt.Sprintf("%.0f", comp.Weight),
			fmt.Sprintf("%.1f", comp.Contribution),
			comp.Tier().String(),
		})
	}
	c.p.table([]string{"Factor", "Raw", "Weight", "Contribution", "Tier"}, rows, nil)

	tips := core.Tips(score)
	if len(tips) == 0 {
		return
	}
	fmt.Fprintln(c.out, "Where to improve:")
	for _, t := range tips {
		fmt.Fprintf(c.out, "  %s (%s): up to +%.1f points\n", t.Factor, t.Tier, t.PotentialPoints)
	}
}

func (c *ctl) trendCmd() *cobra.Command {
	var window string
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Show how the score moved over a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := core.ParseTrendWindow(window)
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				t, err := app.Health.Trend(ctx, w)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(t.Points))
				for _, p := range t.Points {
					rows = append(rows, []string{p.PeriodLabel, fmt.Sprint(p.Score), arrow(p.Movement)})
				}
				c.p.table([]string{"Period", "Score", "Move"}, rows, nil)
				fmt.Fprintf(c.out, "%s over %s: %+d (%+.1f%%)\n", t.Direction, t.Window, t.Delta, t.PercentChange)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&window, "window", "w", "6M", "3M, 6M, 12M or 1Y")
	return cmd
}

func arrow(m core.Movement) string {
	switch m {
	case core.MovementUp:
		return "↑"
	case core.MovementDown:
		return "↓"
	case core.MovementFlat:
		return "→"
	}
	return ""
}

func (c *ctl) eventsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the most recent audited budget events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				events, err := app.Backend.Repo.RecentEvents(ctx, limit)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(events))
				for _, e := range events {
					rows = append(rows, []string{
						e.OccurredAt.Format("2006-01-02 15:04"), string(e.Action), e.BudgetID, e.Category, money(e.Amount),
					})
				}
				c.p.table([]string{"When", "Action", "Budget", "Category", "Amount"}, rows, nil)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of events")
	return cmd
}
