package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/dayplan/internal/config"
	"github.com/javiermolinar/dayplan/internal/tui/theme"
)

func (a *App) configCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or edit configuration",
		Long: `Manage the configuration file.

Without a subcommand, prints the effective configuration: defaults,
overlaid with the file, overlaid with DAYPLAN_* environment variables.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printConfig(cmd.OutOrStdout(), path, a.config)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&path, "path", config.DefaultConfigPath(), "Config file path")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printConfig(cmd.OutOrStdout(), path, a.config)
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Default().SaveTo(path); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	edit := &cobra.Command{
		Use:   "edit",
		Short: "Edit the configuration interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInteractive(cmd.InOrStdin(), cmd.OutOrStdout(), path)
		},
	}

	cmd.AddCommand(show, initCmd, edit)
	return cmd
}

func runConfigInteractive(in io.Reader, out io.Writer, configPath string) error {
	fmt.Fprintf(out, "Config file: %s\n\n", configPath)

	// Load existing config or create defaults
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	printConfig(out, configPath, cfg)

	reader := bufio.NewReader(in)
	if !promptYesNo(reader, out, "\nWould you like to edit the configuration?") {
		return nil
	}

	cfg.View.WindowStart = promptValue(reader, out, "Window start", cfg.View.WindowStart)
	cfg.View.WindowEnd = promptValue(reader, out, "Window end", cfg.View.WindowEnd)
	cfg.View.SlotMinutes = promptInt(reader, out, "Slot minutes", cfg.View.SlotMinutes)
	cfg.LLM.Provider = promptValue(reader, out, "LLM provider (openai, lmstudio, ollama, deepseek)", cfg.LLM.Provider)
	cfg.LLM.Model = promptValue(reader, out, "LLM model", cfg.LLM.Model)
	cfg.LLM.BaseURL = promptValue(reader, out, "LLM base URL (empty for the provider default)", cfg.LLM.BaseURL)
	cfg.Storage.DBPath = promptValue(reader, out, "Database path", cfg.Storage.DBPath)
	cfg.UI.Theme = promptTheme(reader, out, cfg.UI.Theme)

	// Validate before saving
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := cfg.SaveTo(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintln(out, "\nConfiguration saved!")
	return nil
}

func printConfig(out io.Writer, path string, cfg *config.Config) {
	fmt.Fprintf(out, "Config file: %s\n", path)
	fmt.Fprintln(out, "──────────────────────")
	fmt.Fprintln(out, "[view]")
	fmt.Fprintf(out, "  window_start     = %s\n", cfg.View.WindowStart)
	fmt.Fprintf(out, "  window_end       = %s\n", cfg.View.WindowEnd)
	fmt.Fprintf(out, "  slot_minutes     = %d\n", cfg.View.SlotMinutes)
	fmt.Fprintf(out, "  detail_start     = %s\n", cfg.View.DetailStart)
	fmt.Fprintln(out, "\n[llm]")
	fmt.Fprintf(out, "  provider         = %s\n", cfg.LLM.Provider)
	fmt.Fprintf(out, "  model            = %s\n", cfg.LLM.Model)
	fmt.Fprintf(out, "  base_url         = %s\n", cfg.LLM.BaseURL)
	fmt.Fprintf(out, "  max_retries      = %d\n", cfg.LLM.MaxRetries)
	fmt.Fprintf(out, "  timeout_seconds  = %d\n", cfg.LLM.TimeoutSeconds)
	fmt.Fprintln(out, "\n[storage]")
	fmt.Fprintf(out, "  driver           = %s\n", cfg.Storage.Driver)
	if cfg.Storage.Driver == "mysql" {
		fmt.Fprintf(out, "  dsn              = %s\n", redact(cfg.Storage.DSN))
	} else {
		fmt.Fprintf(out, "  db_path          = %s\n", cfg.Storage.DBPath)
	}
	if cfg.CacheEnabled() {
		fmt.Fprintln(out, "\n[cache]")
		fmt.Fprintf(out, "  redis_addr       = %s\n", cfg.Cache.RedisAddr)
		fmt.Fprintf(out, "  redis_db         = %d\n", cfg.Cache.RedisDB)
		fmt.Fprintf(out, "  ttl_seconds      = %d\n", cfg.Cache.TTLSeconds)
	}
	fmt.Fprintln(out, "\n[server]")
	fmt.Fprintf(out, "  addr             = %s\n", cfg.Server.Addr)
	fmt.Fprintf(out, "  mode             = %s\n", cfg.Server.Mode)
	fmt.Fprintln(out, "\n[log]")
	fmt.Fprintf(out, "  level            = %s\n", cfg.Log.Level)
	fmt.Fprintf(out, "  file             = %s\n", cfg.Log.File)
	fmt.Fprintln(out, "\n[store]")
	fmt.Fprintf(out, "  confirm_timeout_seconds = %d\n", cfg.Store.ConfirmTimeoutSeconds)
	fmt.Fprintln(out, "\n[ui]")
	fmt.Fprintf(out, "  theme            = %s\n", cfg.UI.Theme)
}

// redact hides the password of a user:password@... DSN.
func redact(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	colon := strings.Index(dsn, ":")
	if at < 0 || colon < 0 || colon > at {
		return dsn
	}
	return dsn[:colon+1] + "****" + dsn[at:]
}

func promptYesNo(reader *bufio.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}

func promptValue(reader *bufio.Reader, out io.Writer, label, current string) string {
	if current == "" {
		fmt.Fprintf(out, "  %s: ", label)
	} else {
		fmt.Fprintf(out, "  %s [%s]: ", label, current)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return current
	}
	return input
}

func promptInt(reader *bufio.Reader, out io.Writer, label string, current int) int {
	for {
		value := promptValue(reader, out, label, strconv.Itoa(current))
		n, err := strconv.Atoi(value)
		if err == nil {
			return n
		}
		fmt.Fprintf(out, "  Invalid number %q\n", value)
	}
}

func promptTheme(reader *bufio.Reader, out io.Writer, current string) string {
	options := strings.Join(theme.Available(), ", ")
	label := fmt.Sprintf("UI theme (%s)", options)
	for {
		value := strings.ToLower(promptValue(reader, out, label, current))
		if theme.IsAvailable(value) {
			return value
		}
		fmt.Fprintf(out, "  Invalid theme %q. Available: %s\n", value, options)
	}
}
