package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/dayplan/internal/db"
	"github.com/javiermolinar/dayplan/internal/plan"
)

// firstDate and lastDate bound ListPlans to every stored plan.
var (
	firstDate = time.Time{}
	lastDate  = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

func (a *App) importCmd() *cobra.Command {
	var skipExisting bool

	cmd := &cobra.Command{
		Use:   "import <sqlite-db>",
		Short: "Import plans from another dayplan database",
		Long: `Copy every plan and its tasks from a dayplan SQLite database into the
configured storage, keeping task completion.

Plans for dates that already exist are replaced unless --skip-existing is set.
This also migrates a local database to the mysql driver.`,
		Example: `  dayplan import ~/backup/dayplan.db
  DAYPLAN_STORAGE_DRIVER=mysql DAYPLAN_MYSQL_DSN=... dayplan import ~/.local/share/dayplan/dayplan.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureRepo(); err != nil {
				return err
			}

			sourcePath, err := resolvePath(args[0])
			if err != nil {
				return err
			}
			if a.config.Storage.Driver != "mysql" {
				destPath, err := resolvePath(a.config.Storage.DBPath)
				if err != nil {
					return err
				}
				if sourcePath == destPath {
					return fmt.Errorf("source database matches current database")
				}
			}

			info, err := os.Stat(sourcePath)
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("source database does not exist: %s", sourcePath)
				}
				return fmt.Errorf("checking source database: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("source database path is a directory: %s", sourcePath)
			}

			res, err := importPlans(cmd.Context(), a.repo, sourcePath, skipExisting)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d plans (%d tasks) from %s", res.Plans, res.Tasks, sourcePath)
			if res.Skipped > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), ", skipped %d existing", res.Skipped)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "Keep plans that already exist for a date")
	return cmd
}

type importResult struct {
	Plans   int
	Tasks   int
	Skipped int
}

func importPlans(ctx context.Context, dest plan.Repository, sourcePath string, skipExisting bool) (importResult, error) {
	var res importResult

	sourceRepo, err := db.New(sourcePath)
	if err != nil {
		return res, fmt.Errorf("opening source database: %w", err)
	}
	defer func() { _ = sourceRepo.Close() }()

	plans, err := sourceRepo.ListPlans(ctx, firstDate, lastDate)
	if err != nil {
		return res, fmt.Errorf("listing source plans: %w", err)
	}

	for _, src := range plans {
		if skipExisting {
			existing, err := dest.FindPlanByDate(ctx, src.Date)
			if err != nil {
				return res, fmt.Errorf("checking plan for %s: %w", src.DateKey(), err)
			}
			if existing != nil {
				res.Skipped++
				continue
			}
		}

		inputs := make([]plan.TaskInput, 0, len(src.Tasks))
		done := make(map[string]int)
		for _, t := range src.Tasks {
			inputs = append(inputs, plan.TaskInput{
				Title:       t.Title,
				Description: t.Description,
				StartTime:   t.StartTime,
				EndTime:     t.EndTime,
				Duration:    t.Duration,
				Priority:    t.Priority,
			})
			if t.Completed {
				done[taskKey(t)]++
			}
		}

		created, err := dest.ReplacePlan(ctx, src.Date, src.TZOffset, src.Explanation, inputs)
		if err != nil {
			return res, fmt.Errorf("importing plan for %s: %w", src.DateKey(), err)
		}

		// ReplacePlan stores tasks as not done.
		for _, t := range created.Tasks {
			if done[taskKey(t)] == 0 {
				continue
			}
			done[taskKey(t)]--
			if err := dest.UpdateTaskCompleted(ctx, t.ID, true); err != nil {
				return res, fmt.Errorf("importing completion of %q: %w", t.Title, err)
			}
		}

		res.Plans++
		res.Tasks += len(created.Tasks)
	}

	return res, nil
}

func taskKey(t plan.Task) string {
	return t.StartTime + "|" + t.EndTime + "|" + t.Title
}

func resolvePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("empty path")
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	return absPath, nil
}
