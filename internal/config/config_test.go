package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harrison/svncrawl/internal/pattern"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestDefaultConfig verifies default configuration values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
	if cfg.OutputMode != OutputAppend {
		t.Errorf("OutputMode = %q, want %q", cfg.OutputMode, OutputAppend)
	}
	if cfg.Backend != BackendSVN {
		t.Errorf("Backend = %q, want %q", cfg.Backend, BackendSVN)
	}
	if cfg.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0", cfg.Timeout)
	}
	if !cfg.History.Enabled {
		t.Error("History.Enabled = false, want true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

// TestLoadConfigValidFile tests loading a valid YAML config file
func TestLoadConfigValidFile(t *testing.T) {
	path := writeConfig(t, `workers: 8
filters:
  - "/trunk/$"
stops:
  - "tags/$"
output_path: /tmp/paths.txt
output_mode: truncate
quiet: true
timeout: 30m
log_level: debug
log_dir: /tmp/logs
backend: http
username: alice
strict: true
history:
  db_path: /tmp/history.db
  keep_days: 7
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
	if len(cfg.Filters) != 1 || cfg.Filters[0] != "/trunk/$" {
		t.Errorf("Filters = %v", cfg.Filters)
	}
	if len(cfg.Stops) != 1 || cfg.Stops[0] != "tags/$" {
		t.Errorf("Stops = %v", cfg.Stops)
	}
	if cfg.OutputPath != "/tmp/paths.txt" || cfg.OutputMode != OutputTruncate {
		t.Errorf("output = %q (%s)", cfg.OutputPath, cfg.OutputMode)
	}
	if !cfg.Quiet || !cfg.Strict {
		t.Errorf("Quiet = %v, Strict = %v, want both true", cfg.Quiet, cfg.Strict)
	}
	if cfg.Timeout != 30*time.Minute {
		t.Errorf("Timeout = %v, want 30m", cfg.Timeout)
	}
	if cfg.LogLevel != "debug" || cfg.LogDir != "/tmp/logs" {
		t.Errorf("logging = %q %q", cfg.LogLevel, cfg.LogDir)
	}
	if cfg.Backend != BackendHTTP || cfg.Username != "alice" {
		t.Errorf("backend = %q user = %q", cfg.Backend, cfg.Username)
	}
	if cfg.SVNBinary != "svn" {
		t.Errorf("SVNBinary = %q, want default", cfg.SVNBinary)
	}
	if !cfg.History.Enabled {
		t.Error("History.Enabled should keep its default when not set")
	}
	if cfg.History.DBPath != "/tmp/history.db" || cfg.History.KeepDays != 7 {
		t.Errorf("History = %+v", cfg.History)
	}
}

func TestLoadConfigHistoryDisabled(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "history:\n  enabled: false\n"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.History.Enabled {
		t.Error("History.Enabled = true, want false")
	}
	if cfg.History.KeepDays != 90 {
		t.Errorf("KeepDays = %d, want default 90", cfg.History.KeepDays)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Workers != DefaultConfig().Workers {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{name: "malformed yaml", content: "workers: [1, 2", wantMsg: "failed to parse config file"},
		{name: "bad timeout", content: "timeout: soon\n", wantMsg: "invalid timeout format"},
		{name: "wrong type", content: "workers: many\n", wantMsg: "failed to parse config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoadConfigFromDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".svncrawl"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".svncrawl", "config.yaml"), []byte("workers: 5\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFromDir(dir)
	if err != nil {
		t.Fatalf("LoadConfigFromDir() error = %v", err)
	}
	if cfg.Workers != 5 {
		t.Errorf("Workers = %d, want 5", cfg.Workers)
	}
}

func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Filters = []string{"from-file"}
	cfg.LogDir = "/from/file"

	workers := 12
	filters := []string{"from-flag"}
	timeout := 5 * time.Minute
	quiet := true
	noHistory := true
	backend := BackendHTTP

	cfg.MergeWithFlags(Flags{
		Workers:   &workers,
		Filters:   &filters,
		Timeout:   &timeout,
		Quiet:     &quiet,
		NoHistory: &noHistory,
		Backend:   &backend,
	})

	if cfg.Workers != 12 {
		t.Errorf("Workers = %d, want 12", cfg.Workers)
	}
	if len(cfg.Filters) != 1 || cfg.Filters[0] != "from-flag" {
		t.Errorf("Filters = %v", cfg.Filters)
	}
	if cfg.Timeout != 5*time.Minute || !cfg.Quiet || cfg.Backend != BackendHTTP {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.History.Enabled {
		t.Error("--no-history should disable history")
	}
	if cfg.LogDir != "/from/file" {
		t.Errorf("unset flag overrode LogDir: %q", cfg.LogDir)
	}

	// A false --no-history never re-enables history disabled in the file.
	cfg.History.Enabled = false
	off := false
	cfg.MergeWithFlags(Flags{NoHistory: &off})
	if cfg.History.Enabled {
		t.Error("History.Enabled flipped back on")
	}
}

func TestEffectivePatterns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Filters = []string{"extra"}
	cfg.Stops = []string{"vendor/$"}

	if got := cfg.EffectiveFilters(); len(got) != 1 {
		t.Errorf("EffectiveFilters() = %v without preset", got)
	}

	cfg.OnlyTrunkDirs = true
	filters := cfg.EffectiveFilters()
	stops := cfg.EffectiveStops()
	if len(filters) != len(pattern.TrunkFilters)+1 || filters[len(filters)-1] != "extra" {
		t.Errorf("EffectiveFilters() = %v", filters)
	}
	if len(stops) != len(pattern.TrunkStops)+1 || stops[len(stops)-1] != "vendor/$" {
		t.Errorf("EffectiveStops() = %v", stops)
	}
	if len(pattern.TrunkStops) != 3 {
		t.Errorf("preset modified: %v", pattern.TrunkStops)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "zero workers", mutate: func(c *Config) { c.Workers = 0 }, wantErr: "workers must be >= 1"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "invalid log_level"},
		{name: "negative timeout", mutate: func(c *Config) { c.Timeout = -time.Second }, wantErr: "timeout must be >= 0"},
		{name: "bad output mode", mutate: func(c *Config) { c.OutputMode = "overwrite" }, wantErr: "invalid output_mode"},
		{name: "bad backend", mutate: func(c *Config) { c.Backend = "git" }, wantErr: "invalid backend"},
		{name: "empty svn binary", mutate: func(c *Config) { c.SVNBinary = "" }, wantErr: "svn_binary cannot be empty"},
		{name: "http ignores svn binary", mutate: func(c *Config) { c.Backend = BackendHTTP; c.SVNBinary = "" }},
		{name: "negative keep days", mutate: func(c *Config) { c.History.KeepDays = -1 }, wantErr: "history.keep_days"},
		{name: "bad filter", mutate: func(c *Config) { c.Filters = []string{"(oops"} }, wantErr: "invalid filter pattern"},
		{name: "bad stop", mutate: func(c *Config) { c.Stops = []string{"+x"} }, wantErr: "invalid stop pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePatternErrorType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stops = []string{"[z-a]"}

	var compileErr *pattern.CompileError
	if err := cfg.Validate(); !errors.As(err, &compileErr) {
		t.Fatalf("expected *pattern.CompileError, got %T", err)
	}
	if compileErr.Set != pattern.KindStop || compileErr.Expr != "[z-a]" {
		t.Errorf("CompileError = %+v", compileErr)
	}
}

func TestHistoryDBPath(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")
	t.Setenv(HomeEnv, home)

	cfg := DefaultConfig()
	got, err := cfg.HistoryDBPath()
	if err != nil {
		t.Fatalf("HistoryDBPath() error = %v", err)
	}
	if got != filepath.Join(home, "history.db") {
		t.Errorf("HistoryDBPath() = %q", got)
	}
	if _, err := os.Stat(home); err != nil {
		t.Errorf("home directory not created: %v", err)
	}

	cfg.History.DBPath = "/explicit/history.db"
	if got, _ := cfg.HistoryDBPath(); got != "/explicit/history.db" {
		t.Errorf("HistoryDBPath() = %q, want explicit path", got)
	}
}
