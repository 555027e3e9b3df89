package ui

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/dayplan/internal/plan"
)

func (a *App) toggleCmd() *cobra.Command {
	var done, undone bool

	cmd := &cobra.Command{
		Use:   "toggle <task-id>",
		Short: "Mark a task done or not done",
		Long: `Set the completion of a task by its ID.

Task IDs are shown by 'dayplan show --list --verbose' and the web API.`,
		Example: `  dayplan toggle 3f2c1a9e-... --done
  dayplan toggle 3f2c1a9e-... --undone`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureRepo(); err != nil {
				return err
			}

			// The toggler stores the opposite of the current value.
			toggler := plan.Toggler{Repo: a.repo}
			if err := toggler.ToggleTaskCompletion(cmd.Context(), args[0], !done); err != nil {
				return fmt.Errorf("updating task: %w", err)
			}

			state := "done"
			if undone {
				state = "not done"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked task %s %s\n", args[0], state)
			return nil
		},
	}

	cmd.Flags().BoolVar(&done, "done", false, "Mark the task done")
	cmd.Flags().BoolVar(&undone, "undone", false, "Mark the task not done")
	cmd.MarkFlagsMutuallyExclusive("done", "undone")
	cmd.MarkFlagsOneRequired("done", "undone")
	return cmd
}
