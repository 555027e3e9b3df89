package ui

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/dayplan/internal/dateutil"
)

func (a *App) historyCmd() *cobra.Command {
	var (
		days    int
		from    string
		to      string
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past plans with their completion",
		Long: `List plans in a date range, newest first.

Without flags, lists the last 7 days including today. --from and --to
accept the same date forms as 'dayplan show'.`,
		Example: `  dayplan history
  dayplan history --days 30
  dayplan history --from 2025-01-01 --to 2025-01-31`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if noColor {
				DisableColor()
			}
			if err := a.ensureRepo(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			r, err := dateutil.NewDateRange(from, to, days, a.now())
			if err != nil {
				return err
			}
			plans, err := a.repo.ListPlans(cmd.Context(), r.From, r.To)
			if err != nil {
				return fmt.Errorf("listing plans: %w", err)
			}
			if len(plans) == 0 {
				fmt.Fprintln(out, "No plans found in the specified date range.")
				return nil
			}

			var total, completed int
			for _, p := range plans {
				s := p.Stats()
				total += s.Total
				completed += s.Completed
				fmt.Fprintf(out, "%s  %s  %2d tasks  %-14s  %s  %s\n",
					p.DateKey(),
					p.Date.Format("Mon"),
					s.Total,
					statsLine(s),
					formatLabel(s),
					formatMuted(p.ID),
				)
			}

			fmt.Fprintf(out, "\n%d plans, %s\n", len(plans), formatStats(fmt.Sprintf("%d/%d tasks done", completed, total)))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Number of days to list when --from is not set")
	cmd.Flags().StringVar(&from, "from", "", "First date of the range")
	cmd.Flags().StringVar(&to, "to", "", "Last date of the range (defaults to today)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable color output")
	return cmd
}
