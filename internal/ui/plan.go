package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/dayplan/internal/dateutil"
	"github.com/javiermolinar/dayplan/internal/planner"
)

func (a *App) planCmd() *cobra.Command {
	var (
		dateFlag string
		noColor  bool
	)

	cmd := &cobra.Command{
		Use:   "plan [title...]",
		Short: "Plan a day from task titles",
		Long: `Ask the AI to schedule the given tasks and save the plan.

Each argument is one task title. With no arguments, titles are read from
standard input, one per line. An existing plan for the date is replaced.

Dates accept "today", "tomorrow", "yesterday", weekday names,
"next-monday", "last-friday" or YYYY-MM-DD.`,
		Example: `  dayplan plan "Write thesis introduction" "Review PRs" "Email clients"
  dayplan plan --date tomorrow "Gym" "Groceries"
  cat tasks.txt | dayplan plan`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				DisableColor()
			}
			out := cmd.OutOrStdout()

			titles := args
			if len(titles) == 0 {
				if isTerminal(cmd.InOrStdin()) {
					return fmt.Errorf("no tasks given: pass titles as arguments or on standard input")
				}
				var err error
				titles, err = readTitles(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}

			now := a.now()
			date, err := dateutil.Resolve(dateFlag, now)
			if err != nil {
				return err
			}
			_, tzOffset := dateutil.Today(now)

			gen, err := a.ensureGenerator()
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Planning %d tasks for %s...\n", len(titles), date.Format("Mon, Jan 2"))
			res, err := gen.Generate(cmd.Context(), planner.Request{
				Date:     date,
				TZOffset: tzOffset,
				Titles:   titles,
			})
			if err != nil {
				return fmt.Errorf("planning: %w", err)
			}

			fmt.Fprintln(out)
			PrintPlan(out, res.Plan, PrintOpts{Width: termWidth()})
			for _, w := range res.Warnings {
				fmt.Fprintf(out, "%s %s\n", formatWarning("warning:"), w)
			}
			if res.Attempts > 1 {
				fmt.Fprintln(out, formatMuted(fmt.Sprintf("(took %d attempts)", res.Attempts)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dateFlag, "date", "d", "", "Date to plan (defaults to today)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable color output")
	return cmd
}

// readTitles reads one title per non-blank line.
func readTitles(r io.Reader) ([]string, error) {
	var b strings.Builder
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading titles: %w", err)
	}
	return planner.SplitTitles(b.String()), nil
}
