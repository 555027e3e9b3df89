package ui

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/dayplan/internal/dateutil"
	"github.com/javiermolinar/dayplan/internal/timegrid"
)

func (a *App) showCmd() *cobra.Command {
	var (
		full    bool
		list    bool
		verbose bool
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "show [date]",
		Short: "Show a day's plan",
		Long: `Display a day's plan laid out on the time grid.

Tasks outside the configured window are listed below the grid. Use
--full to show all 24 hours, or --list for a compact task list.`,
		Example: `  dayplan show
  dayplan show yesterday --full
  dayplan show 2025-01-15 --list`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				DisableColor()
			}
			if err := a.ensureRepo(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			var dateArg string
			if len(args) == 1 {
				dateArg = args[0]
			}
			date, err := dateutil.Resolve(dateArg, a.now())
			if err != nil {
				return err
			}

			p, err := a.repo.FindPlanByDate(cmd.Context(), date)
			if err != nil {
				return fmt.Errorf("fetching plan: %w", err)
			}
			if p == nil {
				fmt.Fprintf(out, "No plan for %s.\n", date.Format("Monday, January 2, 2006"))
				return nil
			}

			opts := PrintOpts{Width: termWidth(), Verbose: verbose}
			if list {
				PrintPlan(out, p, opts)
				return nil
			}

			w := a.config.DefaultWindow()
			if full {
				w = a.config.FullDayWindow()
			}
			g, err := timegrid.New(w)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "=== %s ===  %s\n\n", formatHeader(p.Date.Format("Monday, January 2, 2006")), formatStats(statsLine(p.Stats())))
			for _, line := range RenderGrid(p, g, opts.Width) {
				fmt.Fprintln(out, line)
			}
			if p.Explanation != "" {
				fmt.Fprintf(out, "\n%s\n", formatInsight(p.Explanation))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Show the full 24 hour day")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "Show a task list instead of the grid")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show task descriptions in the list")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable color output")
	return cmd
}
