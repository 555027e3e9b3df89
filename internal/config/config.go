// Package config handles configuration loading from files, defaults, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/javiermolinar/dayplan/internal/timegrid"
)

// Config holds the application configuration.
type Config struct {
	View    ViewConfig    `toml:"view"`
	LLM     LLMConfig     `toml:"llm"`
	Storage StorageConfig `toml:"storage"`
	Cache   CacheConfig   `toml:"cache"`
	Server  ServerConfig  `toml:"server"`
	Log     LogConfig     `toml:"log"`
	Store   StoreConfig   `toml:"store"`
	UI      UIConfig      `toml:"ui"`
}

// ViewConfig holds schedule grid settings.
type ViewConfig struct {
	WindowStart string `toml:"window_start"` // e.g., "06:00"
	WindowEnd   string `toml:"window_end"`   // e.g., "22:00"
	SlotMinutes int    `toml:"slot_minutes"` // e.g., 30
	DetailStart string `toml:"detail_start"` // day detail view start, e.g., "08:00"
}

// LLMConfig holds LLM provider settings.
type LLMConfig struct {
	Provider       string `toml:"provider"` // "openai", "lmstudio", "ollama", "deepseek"
	Model          string `toml:"model"`
	BaseURL        string `toml:"base_url"`
	MaxRetries     int    `toml:"max_retries"`     // extra attempts on malformed output
	TimeoutSeconds int    `toml:"timeout_seconds"` // per request, 0 for none
}

// StorageConfig holds database settings.
type StorageConfig struct {
	Driver string `toml:"driver"` // "sqlite" or "mysql"
	DBPath string `toml:"db_path"`
	DSN    string `toml:"dsn"` // mysql only
}

// CacheConfig holds the optional Redis plan cache settings.
type CacheConfig struct {
	RedisAddr     string `toml:"redis_addr"` // empty disables the cache
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	TTLSeconds    int    `toml:"ttl_seconds"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `toml:"addr"`
	Mode string `toml:"mode"` // gin mode: "debug", "release", "test"
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"` // "debug", "info", "warn", "error"
	File  string `toml:"file"`  // optional rotated JSON log file
}

// StoreConfig holds optimistic toggle settings.
type StoreConfig struct {
	ConfirmTimeoutSeconds int `toml:"confirm_timeout_seconds"` // 0 waits indefinitely
}

// UIConfig holds terminal UI settings.
type UIConfig struct {
	Theme string `toml:"theme"` // "mocha", "macchiato", "latte"
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		View: ViewConfig{
			WindowStart: "06:00",
			WindowEnd:   "22:00",
			SlotMinutes: 30,
			DetailStart: "08:00",
		},
		LLM: LLMConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			MaxRetries:     1,
			TimeoutSeconds: 60,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			DBPath: defaultDBPath(),
		},
		Cache: CacheConfig{
			TTLSeconds: 600,
		},
		Server: ServerConfig{
			Addr: ":8080",
			Mode: "release",
		},
		Log: LogConfig{
			Level: "info",
		},
		UI: UIConfig{
			Theme: "mocha",
		},
	}
}

// defaultDBPath returns the default database path.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "dayplan.db"
	}
	return filepath.Join(home, ".local", "share", "dayplan", "dayplan.db")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "dayplan", "config.toml")
}

// Load loads configuration from the default path, merging with defaults and env vars.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom loads configuration from the specified path.
// It starts with defaults, overlays file config if it exists, then applies env overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	cfg.Storage.DBPath = expandPath(cfg.Storage.DBPath)
	cfg.Log.File = expandPath(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads config from a file if it exists.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies DAYPLAN_* environment variables.
// Environment variables take precedence over file config.
func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"DAYPLAN_VIEW_START":     &cfg.View.WindowStart,
		"DAYPLAN_VIEW_END":       &cfg.View.WindowEnd,
		"DAYPLAN_LLM_PROVIDER":   &cfg.LLM.Provider,
		"DAYPLAN_LLM_MODEL":      &cfg.LLM.Model,
		"DAYPLAN_LLM_BASE_URL":   &cfg.LLM.BaseURL,
		"DAYPLAN_STORAGE_DRIVER": &cfg.Storage.Driver,
		"DAYPLAN_DB_PATH":        &cfg.Storage.DBPath,
		"DAYPLAN_MYSQL_DSN":      &cfg.Storage.DSN,
		"DAYPLAN_REDIS_ADDR":     &cfg.Cache.RedisAddr,
		"DAYPLAN_REDIS_PASSWORD": &cfg.Cache.RedisPassword,
		"DAYPLAN_SERVER_ADDR":    &cfg.Server.Addr,
		"DAYPLAN_SERVER_MODE":    &cfg.Server.Mode,
		"DAYPLAN_LOG_LEVEL":      &cfg.Log.Level,
		"DAYPLAN_LOG_FILE":       &cfg.Log.File,
		"DAYPLAN_THEME":          &cfg.UI.Theme,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"DAYPLAN_SLOT_MINUTES":            &cfg.View.SlotMinutes,
		"DAYPLAN_LLM_MAX_RETRIES":         &cfg.LLM.MaxRetries,
		"DAYPLAN_LLM_TIMEOUT_SECONDS":     &cfg.LLM.TimeoutSeconds,
		"DAYPLAN_REDIS_DB":                &cfg.Cache.RedisDB,
		"DAYPLAN_CONFIRM_TIMEOUT_SECONDS": &cfg.Store.ConfirmTimeoutSeconds,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer, got %q", key, v)
		}
		*dst = n
	}
	return nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

var validProviders = map[string]bool{
	"openai":   true,
	"lmstudio": true,
	"ollama":   true,
	"deepseek": true,
}

var validLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := timegrid.Generate(c.View.WindowStart, c.View.WindowEnd, c.View.SlotMinutes); err != nil {
		return fmt.Errorf("view: %w", err)
	}
	if _, err := timegrid.Generate(c.View.DetailStart, c.View.WindowEnd, c.View.SlotMinutes); err != nil {
		return fmt.Errorf("view detail_start: %w", err)
	}

	if !validProviders[strings.ToLower(c.LLM.Provider)] {
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.LLM.MaxRetries < 0 {
		return errors.New("llm max_retries must not be negative")
	}
	if c.LLM.TimeoutSeconds < 0 {
		return errors.New("llm timeout_seconds must not be negative")
	}

	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return errors.New("db_path must be set")
		}
	case "mysql":
		if c.Storage.DSN == "" {
			return errors.New("dsn must be set for the mysql driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown server mode %q", c.Server.Mode)
	}

	if c.Cache.TTLSeconds < 0 {
		return errors.New("cache ttl_seconds must not be negative")
	}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	if c.Store.ConfirmTimeoutSeconds < 0 {
		return errors.New("store confirm_timeout_seconds must not be negative")
	}
	return nil
}

// DefaultWindow returns the grid window for today and history views.
func (c *Config) DefaultWindow() timegrid.Window {
	return timegrid.Window{Start: c.View.WindowStart, End: c.View.WindowEnd, SlotMinutes: c.View.SlotMinutes}
}

// FullDayWindow returns the 24 hour grid window with the configured slot size.
func (c *Config) FullDayWindow() timegrid.Window {
	return timegrid.Window{Start: "00:00", End: "24:00", SlotMinutes: c.View.SlotMinutes}
}

// DetailWindow returns the grid window for the day detail view.
func (c *Config) DetailWindow() timegrid.Window {
	return timegrid.Window{Start: c.View.DetailStart, End: c.View.WindowEnd, SlotMinutes: c.View.SlotMinutes}
}

// LLMTimeout returns the per request LLM timeout, zero for none.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// CacheEnabled returns true if a Redis address is configured.
func (c *Config) CacheEnabled() bool {
	return c.Cache.RedisAddr != ""
}

// CacheTTL returns the plan cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// ConfirmTimeout returns the toggle confirmation timeout, zero for none.
func (c *Config) ConfirmTimeout() time.Duration {
	return time.Duration(c.Store.ConfirmTimeoutSeconds) * time.Second
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigPath())
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
