// Package ui implements the dayplan command line.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/javiermolinar/dayplan/internal/config"
	"github.com/javiermolinar/dayplan/internal/llm"
	"github.com/javiermolinar/dayplan/internal/logging"
	"github.com/javiermolinar/dayplan/internal/plan"
	"github.com/javiermolinar/dayplan/internal/planner"
	"github.com/javiermolinar/dayplan/internal/tui"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

// Generator creates plans from task titles.
type Generator interface {
	Generate(ctx context.Context, req planner.Request) (*planner.Result, error)
}

// App holds the CLI application state.
type App struct {
	repo      plan.Repository
	generator Generator
	config    *config.Config
	logger    *zap.SugaredLogger
	closers   []io.Closer
	now       func() time.Time
	root      *cobra.Command
	debug     bool // Enable debug logging
}

// NewApp creates a new CLI application with the given repository and config.
// A nil repository is opened from the config on first use.
func NewApp(repo plan.Repository, cfg *config.Config) *App {
	a := &App{
		repo:   repo,
		config: cfg,
		logger: logging.Nop(),
		now:    time.Now,
	}

	a.root = &cobra.Command{
		Use:   "dayplan",
		Short: "Plan your day with AI",
		Long: `Dayplan turns a list of task titles into a timed schedule for the day.

An AI provider proposes start and end times for each task. Plans are
stored locally and can be browsed in the terminal or in the browser.

Run without a subcommand to open today's plan in the terminal UI.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// The terminal UI owns the screen, so it only logs to the file.
			console := cmd.ErrOrStderr()
			if cmd == a.root {
				console = io.Discard
			}
			return a.initLogger(console)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runTUI(cmd.Context())
		},
	}

	// Add global flags
	a.root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	a.root.AddCommand(a.versionCmd())
	a.root.AddCommand(a.configCmd())
	a.root.AddCommand(a.planCmd())
	a.root.AddCommand(a.showCmd())
	a.root.AddCommand(a.historyCmd())
	a.root.AddCommand(a.toggleCmd())
	a.root.AddCommand(a.deleteCmd())
	a.root.AddCommand(a.importCmd())
	a.root.AddCommand(a.serveCmd())

	return a
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dayplan %s (commit: %s)\n", Version, Commit)
		},
	}
}

// Execute runs the CLI application.
func (a *App) Execute() error {
	return a.root.Execute()
}

// ExecuteContext runs the CLI application with a context.
func (a *App) ExecuteContext(ctx context.Context) error {
	return a.root.ExecuteContext(ctx)
}

// Close releases the repository and cache connections.
func (a *App) Close() error {
	var firstErr error
	if a.repo != nil {
		firstErr = a.repo.Close()
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	_ = a.logger.Sync()
	return firstErr
}

func (a *App) initLogger(console io.Writer) error {
	logger, err := logging.New(logging.Options{
		Level:   a.config.Log.Level,
		File:    a.config.Log.File,
		Console: console,
		Debug:   a.debug,
	})
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	a.logger = logger
	return nil
}

// ensureRepo opens the configured repository if none was injected.
func (a *App) ensureRepo() error {
	if a.repo != nil {
		return nil
	}
	repo, closers, err := openRepository(context.Background(), a.config, a.logger)
	if err != nil {
		return err
	}
	a.repo = repo
	a.closers = append(a.closers, closers...)
	return nil
}

// ensureGenerator builds the AI planner from the config if none was injected.
func (a *App) ensureGenerator() (Generator, error) {
	if a.generator != nil {
		return a.generator, nil
	}
	if err := a.ensureRepo(); err != nil {
		return nil, err
	}

	client, err := llm.NewClient(a.config.LLM.Provider, a.config.LLM.Model, a.config.LLM.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}
	suggester := llm.NewSuggester(client,
		llm.WithTimeout(a.config.LLMTimeout()),
		llm.WithLogger(a.logger),
	)
	a.generator = planner.New(suggester, a.repo,
		planner.WithMaxRetries(a.config.LLM.MaxRetries),
		planner.WithLogger(a.logger),
		planner.WithClock(a.now),
	)
	return a.generator, nil
}

// unavailableGenerator reports why planning cannot run.
type unavailableGenerator struct {
	err error
}

func (u unavailableGenerator) Generate(context.Context, planner.Request) (*planner.Result, error) {
	return nil, fmt.Errorf("planning unavailable: %w", u.err)
}

func (a *App) runTUI(ctx context.Context) error {
	if err := a.ensureRepo(); err != nil {
		return err
	}

	var gen tui.Generator
	if g, err := a.ensureGenerator(); err != nil {
		a.logger.Warnw("planning disabled", "err", err)
	} else {
		gen = g
	}

	m, err := tui.New(a.repo, gen, tui.Windows{
		Default: a.config.DefaultWindow(),
		Full:    a.config.FullDayWindow(),
	},
		tui.WithTheme(a.config.UI.Theme),
		tui.WithLogger(a.logger),
		tui.WithConfirmTimeout(a.config.ConfirmTimeout()),
		tui.WithClock(a.now),
	)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return tui.Run(ctx, m)
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && isTerminalFd(f.Fd())
}
