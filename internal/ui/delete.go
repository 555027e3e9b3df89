package ui

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"
)

func (a *App) deleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <plan-id>",
		Short: "Delete a plan and its tasks",
		Long: `Delete a plan by its ID. Plan IDs are shown by 'dayplan history'.

Example:
  dayplan delete 9b1d2f3e-...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureRepo(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			p, err := a.repo.GetPlan(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("fetching plan: %w", err)
			}

			if !yes {
				question := fmt.Sprintf("Delete the plan for %s with %d tasks?", p.Date.Format("Mon, Jan 2"), len(p.Tasks))
				if !promptYesNo(bufio.NewReader(cmd.InOrStdin()), out, question) {
					fmt.Fprintln(out, "Cancelled.")
					return nil
				}
			}

			if err := a.repo.DeletePlan(cmd.Context(), p.ID); err != nil {
				return fmt.Errorf("deleting plan: %w", err)
			}
			fmt.Fprintf(out, "Deleted plan %s\n", p.ID)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
