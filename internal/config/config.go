// Package config loads deckstore configuration from defaults, the user
// config file, an explicit config file, and DECKSTORE_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
)

// Config represents the complete deckstore configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Store   StoreConfig   `yaml:"store" json:"store"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Import  ImportConfig  `yaml:"import" json:"import"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// StoreConfig configures the SQLite database.
type StoreConfig struct {
	// Path is the database file. Defaults to ~/.deckstore/deckstore.db
	Path string `yaml:"path" json:"path"`

	// BusyTimeoutMS is how long a statement waits on a locked database.
	BusyTimeoutMS int `yaml:"busy_timeout_ms" json:"busy_timeout_ms"`

	// CacheMB is the SQLite page cache size in MB.
	CacheMB int `yaml:"cache_mb" json:"cache_mb"`

	// ReadConns is the size of the connection pool used by readers.
	ReadConns int `yaml:"read_conns" json:"read_conns"`
}

// SearchConfig configures the query layer.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`
	MaxLimit     int `yaml:"max_limit" json:"max_limit"`

	// KeywordMatch is "all" (slide must carry every keyword) or "any".
	KeywordMatch string `yaml:"keyword_match" json:"keyword_match"`

	// KeepStopWords disables English stop-word removal from query text.
	KeepStopWords bool `yaml:"keep_stop_words" json:"keep_stop_words"`

	// Highlight computes hit highlights by default in the CLI.
	Highlight bool `yaml:"highlight" json:"highlight"`

	// HighlightCacheSize bounds the number of compiled highlight matchers kept.
	HighlightCacheSize int `yaml:"highlight_cache_size" json:"highlight_cache_size"`
}

// ImportConfig configures manifest import and the watch folder.
type ImportConfig struct {
	// WatchDir is the folder `deckstore watch` monitors for manifests.
	WatchDir string `yaml:"watch_dir" json:"watch_dir"`

	// Debounce is how long a manifest must stay unchanged before import.
	Debounce string `yaml:"debounce" json:"debounce"`

	// Workers is the number of manifests parsed in parallel.
	Workers int `yaml:"workers" json:"workers"`
}

// LoggingConfig configures the file logger.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Store: StoreConfig{
			Path:          filepath.Join(DefaultDataDir(), "deckstore.db"),
			BusyTimeoutMS: 5000,
			CacheMB:       64,
			ReadConns:     4,
		},
		Search: SearchConfig{
			DefaultLimit:       50,
			MaxLimit:           500,
			KeywordMatch:       "all",
			HighlightCacheSize: 256,
		},
		Import: ImportConfig{
			WatchDir: filepath.Join(DefaultDataDir(), "inbox"),
			Debounce: "500ms",
			Workers:  runtime.NumCPU(),
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// DefaultDataDir returns ~/.deckstore, or a temp-dir fallback when the home
// directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".deckstore")
	}
	return filepath.Join(home, ".deckstore")
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/deckstore/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/deckstore/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "deckstore", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "deckstore", "config.yaml")
	}
	return filepath.Join(home, ".config", "deckstore", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load loads configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/deckstore/config.yaml)
//  3. The explicit file at path, if path is not empty
//  4. Environment variables (DECKSTORE_*)
//
// A missing user config is fine; a missing explicit file is an error.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, err
		}
	}

	if path != "" {
		if !fileExists(path) {
			return nil, dserrors.New(dserrors.ErrCodeConfigNotFound,
				fmt.Sprintf("config file %s not found", path), nil).
				WithSuggestion("check the --config path or run 'deckstore config init'")
		}
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return dserrors.ConfigError(fmt.Sprintf("failed to read config file %s", path), err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return dserrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Store
	if other.Store.Path != "" {
		c.Store.Path = expandHome(other.Store.Path)
	}
	if other.Store.BusyTimeoutMS != 0 {
		c.Store.BusyTimeoutMS = other.Store.BusyTimeoutMS
	}
	if other.Store.CacheMB != 0 {
		c.Store.CacheMB = other.Store.CacheMB
	}
	if other.Store.ReadConns != 0 {
		c.Store.ReadConns = other.Store.ReadConns
	}

	// Search
	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}
	if other.Search.MaxLimit != 0 {
		c.Search.MaxLimit = other.Search.MaxLimit
	}
	if other.Search.KeywordMatch != "" {
		c.Search.KeywordMatch = other.Search.KeywordMatch
	}
	if other.Search.KeepStopWords {
		c.Search.KeepStopWords = true
	}
	if other.Search.Highlight {
		c.Search.Highlight = true
	}
	if other.Search.HighlightCacheSize != 0 {
		c.Search.HighlightCacheSize = other.Search.HighlightCacheSize
	}

	// Import
	if other.Import.WatchDir != "" {
		c.Import.WatchDir = expandHome(other.Import.WatchDir)
	}
	if other.Import.Debounce != "" {
		c.Import.Debounce = other.Import.Debounce
	}
	if other.Import.Workers != 0 {
		c.Import.Workers = other.Import.Workers
	}

	// Logging
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = expandHome(other.Logging.File)
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

// applyEnvOverrides applies DECKSTORE_* environment variable overrides.
// Unparseable numbers are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DECKSTORE_DB_PATH"); v != "" {
		c.Store.Path = expandHome(v)
	}
	if v := os.Getenv("DECKSTORE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DECKSTORE_SEARCH_DEFAULT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			c.Search.DefaultLimit = n
		}
	}
	if v := os.Getenv("DECKSTORE_SEARCH_MAX_LIMIT"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			c.Search.MaxLimit = n
		}
	}
	if v := os.Getenv("DECKSTORE_KEYWORD_MATCH"); v != "" {
		c.Search.KeywordMatch = v
	}
	if v := os.Getenv("DECKSTORE_WATCH_DIR"); v != "" {
		c.Import.WatchDir = expandHome(v)
	}
}

// Validate validates the configuration and returns a ConfigError if invalid.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return dserrors.ConfigError("store.path must not be empty", nil)
	}
	if c.Store.BusyTimeoutMS < 0 {
		return dserrors.ConfigError(fmt.Sprintf("store.busy_timeout_ms must be non-negative, got %d", c.Store.BusyTimeoutMS), nil)
	}
	if c.Store.CacheMB < 0 {
		return dserrors.ConfigError(fmt.Sprintf("store.cache_mb must be non-negative, got %d", c.Store.CacheMB), nil)
	}
	if c.Store.ReadConns < 1 {
		return dserrors.ConfigError(fmt.Sprintf("store.read_conns must be at least 1, got %d", c.Store.ReadConns), nil)
	}

	if c.Search.DefaultLimit < 1 {
		return dserrors.ConfigError(fmt.Sprintf("search.default_limit must be positive, got %d", c.Search.DefaultLimit), nil)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return dserrors.ConfigError(fmt.Sprintf("search.max_limit (%d) must be at least search.default_limit (%d)",
			c.Search.MaxLimit, c.Search.DefaultLimit), nil)
	}
	switch strings.ToLower(c.Search.KeywordMatch) {
	case "all", "any":
	default:
		return dserrors.ConfigError(fmt.Sprintf("search.keyword_match must be 'all' or 'any', got %s", c.Search.KeywordMatch), nil)
	}
	if c.Search.HighlightCacheSize < 1 {
		return dserrors.ConfigError(fmt.Sprintf("search.highlight_cache_size must be positive, got %d", c.Search.HighlightCacheSize), nil)
	}

	if _, err := time.ParseDuration(c.Import.Debounce); err != nil {
		return dserrors.ConfigError(fmt.Sprintf("import.debounce must be a duration like 500ms, got %s", c.Import.Debounce), err)
	}
	if c.Import.Workers < 1 {
		return dserrors.ConfigError(fmt.Sprintf("import.workers must be at least 1, got %d", c.Import.Workers), nil)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return dserrors.ConfigError(fmt.Sprintf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level), nil)
	}
	if c.Logging.MaxSizeMB < 1 || c.Logging.MaxFiles < 1 {
		return dserrors.ConfigError("logging.max_size_mb and logging.max_files must be positive", nil)
	}

	return nil
}

// DebounceDuration returns Import.Debounce parsed, or 500ms if it does not parse.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Import.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// BusyTimeout returns Store.BusyTimeoutMS as a duration.
func (c *Config) BusyTimeout() time.Duration {
	return time.Duration(c.Store.BusyTimeoutMS) * time.Millisecond
}

// WriteYAML writes the configuration to a YAML file, creating its directory.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
