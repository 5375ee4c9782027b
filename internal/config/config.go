package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harrison/svncrawl/internal/pattern"
	"gopkg.in/yaml.v3"
)

// Output modes for the output file.
const (
	OutputAppend   = "append"
	OutputTruncate = "truncate"
)

// Listing backends.
const (
	BackendSVN  = "svn"
	BackendHTTP = "http"
)

// HistoryConfig represents run history configuration
type HistoryConfig struct {
	// Enabled records every crawl in the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the history database; empty means $SVNCRAWL_HOME/history.db
	DBPath string `yaml:"db_path"`

	// KeepDays is how long `history prune` keeps runs (0 = keep everything)
	KeepDays int `yaml:"keep_days"`
}

// Config represents svncrawl configuration options
type Config struct {
	// Workers is the number of concurrent listing workers
	Workers int `yaml:"workers"`

	// Filters are regular expressions selecting the paths to report
	Filters []string `yaml:"filters"`

	// Stops are regular expressions naming directories not to descend into
	Stops []string `yaml:"stops"`

	// OnlyTrunkDirs adds the trunk presets to Filters and Stops
	OnlyTrunkDirs bool `yaml:"only_trunk_dirs"`

	// OutputPath is a file receiving one matched path per line
	OutputPath string `yaml:"output_path"`

	// OutputMode is append or truncate
	OutputMode string `yaml:"output_mode"`

	// Quiet suppresses matched paths on stdout
	Quiet bool `yaml:"quiet"`

	// Timeout bounds a whole crawl (0 = no limit)
	Timeout time.Duration `yaml:"timeout"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs will be written (empty = no file log)
	LogDir string `yaml:"log_dir"`

	// Backend selects how directories are listed: svn or http
	Backend string `yaml:"backend"`

	// SVNBinary is the svn executable used by the svn backend
	SVNBinary string `yaml:"svn_binary"`

	// Username is passed to the repository; passwords are never read from config
	Username string `yaml:"username"`

	// Strict makes `list` fail when any directory could not be listed
	Strict bool `yaml:"strict"`

	// History contains run history configuration
	History HistoryConfig `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Workers:    3,
		OutputMode: OutputAppend,
		Timeout:    0,
		LogLevel:   "info",
		Backend:    BackendSVN,
		SVNBinary:  "svn",
		History: HistoryConfig{
			Enabled:  true,
			KeepDays: 90,
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Timeout is parsed separately to accept "30m" style durations
	type yamlConfig struct {
		Workers       int           `yaml:"workers"`
		Filters       []string      `yaml:"filters"`
		Stops         []string      `yaml:"stops"`
		OnlyTrunkDirs bool          `yaml:"only_trunk_dirs"`
		OutputPath    string        `yaml:"output_path"`
		OutputMode    string        `yaml:"output_mode"`
		Quiet         bool          `yaml:"quiet"`
		Timeout       string        `yaml:"timeout"`
		LogLevel      string        `yaml:"log_level"`
		LogDir        string        `yaml:"log_dir"`
		Backend       string        `yaml:"backend"`
		SVNBinary     string        `yaml:"svn_binary"`
		Username      string        `yaml:"username"`
		Strict        bool          `yaml:"strict"`
		History       HistoryConfig `yaml:"history"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.Workers != 0 {
		cfg.Workers = yamlCfg.Workers
	}
	if yamlCfg.Filters != nil {
		cfg.Filters = yamlCfg.Filters
	}
	if yamlCfg.Stops != nil {
		cfg.Stops = yamlCfg.Stops
	}
	if yamlCfg.OnlyTrunkDirs {
		cfg.OnlyTrunkDirs = true
	}
	if yamlCfg.OutputPath != "" {
		cfg.OutputPath = yamlCfg.OutputPath
	}
	if yamlCfg.OutputMode != "" {
		cfg.OutputMode = yamlCfg.OutputMode
	}
	if yamlCfg.Quiet {
		cfg.Quiet = true
	}
	if yamlCfg.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", yamlCfg.Timeout, err)
		}
		cfg.Timeout = timeout
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}
	if yamlCfg.Backend != "" {
		cfg.Backend = yamlCfg.Backend
	}
	if yamlCfg.SVNBinary != "" {
		cfg.SVNBinary = yamlCfg.SVNBinary
	}
	if yamlCfg.Username != "" {
		cfg.Username = yamlCfg.Username
	}
	if yamlCfg.Strict {
		cfg.Strict = true
	}

	// The history section is merged key by key so that "enabled: false" and
	// an explicit empty db_path are honoured.
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		if section, ok := rawMap["history"].(map[string]interface{}); ok {
			if _, exists := section["enabled"]; exists {
				cfg.History.Enabled = yamlCfg.History.Enabled
			}
			if _, exists := section["db_path"]; exists {
				cfg.History.DBPath = yamlCfg.History.DBPath
			}
			if _, exists := section["keep_days"]; exists {
				cfg.History.KeepDays = yamlCfg.History.KeepDays
			}
		}
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .svncrawl/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".svncrawl", "config.yaml"))
}

// Flags carries CLI flag values. A nil field was not set on the command line.
type Flags struct {
	Workers       *int
	Filters       *[]string
	Stops         *[]string
	OnlyTrunkDirs *bool
	OutputPath    *string
	OutputMode    *string
	Quiet         *bool
	Timeout       *time.Duration
	LogLevel      *string
	LogDir        *string
	Backend       *string
	SVNBinary     *string
	Username      *string
	Strict        *bool
	NoHistory     *bool
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(f Flags) {
	if f.Workers != nil {
		c.Workers = *f.Workers
	}
	if f.Filters != nil {
		c.Filters = *f.Filters
	}
	if f.Stops != nil {
		c.Stops = *f.Stops
	}
	if f.OnlyTrunkDirs != nil {
		c.OnlyTrunkDirs = *f.OnlyTrunkDirs
	}
	if f.OutputPath != nil {
		c.OutputPath = *f.OutputPath
	}
	if f.OutputMode != nil {
		c.OutputMode = *f.OutputMode
	}
	if f.Quiet != nil {
		c.Quiet = *f.Quiet
	}
	if f.Timeout != nil {
		c.Timeout = *f.Timeout
	}
	if f.LogLevel != nil {
		c.LogLevel = *f.LogLevel
	}
	if f.LogDir != nil {
		c.LogDir = *f.LogDir
	}
	if f.Backend != nil {
		c.Backend = *f.Backend
	}
	if f.SVNBinary != nil {
		c.SVNBinary = *f.SVNBinary
	}
	if f.Username != nil {
		c.Username = *f.Username
	}
	if f.Strict != nil {
		c.Strict = *f.Strict
	}
	if f.NoHistory != nil && *f.NoHistory {
		c.History.Enabled = false
	}
}

// EffectiveFilters returns Filters plus the trunk presets when OnlyTrunkDirs
// is set.
func (c *Config) EffectiveFilters() []string {
	if !c.OnlyTrunkDirs {
		return c.Filters
	}
	return append(append([]string(nil), pattern.TrunkFilters...), c.Filters...)
}

// EffectiveStops returns Stops plus the trunk presets when OnlyTrunkDirs is
// set.
func (c *Config) EffectiveStops() []string {
	if !c.OnlyTrunkDirs {
		return c.Stops
	}
	return append(append([]string(nil), pattern.TrunkStops...), c.Stops...)
}

// Validate validates the configuration values
// Returns an error if any values are invalid. Malformed patterns are reported
// as *pattern.CompileError.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}

	switch c.OutputMode {
	case OutputAppend, OutputTruncate:
	default:
		return fmt.Errorf("invalid output_mode %q, must be %s or %s", c.OutputMode, OutputAppend, OutputTruncate)
	}

	switch c.Backend {
	case BackendSVN:
		if c.SVNBinary == "" {
			return fmt.Errorf("svn_binary cannot be empty with the svn backend")
		}
	case BackendHTTP:
	default:
		return fmt.Errorf("invalid backend %q, must be %s or %s", c.Backend, BackendSVN, BackendHTTP)
	}

	if c.History.KeepDays < 0 {
		return fmt.Errorf("history.keep_days must be >= 0, got %d", c.History.KeepDays)
	}

	if _, err := pattern.Compile(pattern.KindFilter, c.EffectiveFilters()); err != nil {
		return err
	}
	if _, err := pattern.Compile(pattern.KindStop, c.EffectiveStops()); err != nil {
		return err
	}

	return nil
}
