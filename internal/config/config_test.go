package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/gams-ide/internal/compiler"
)

// Test Plan for Config System:
// - Default() returns valid configuration with all expected defaults
// - Load() uses defaults when no config file exists
// - Load() loads from .gams-ide/config.yml and .gams-ide/config.yaml
// - Load() merges config file with defaults
// - Project config overrides user config, which overrides defaults
// - Environment variables override config file values
// - Load() returns error for malformed YAML
// - Load() returns error for invalid configuration values
// - Validate() rejects out-of-range debounce, empty executable/scratch dir,
//   negative cache size and malformed glob patterns
// - Validate() returns multiple errors for multiple invalid fields
// - Settings toggles symbol value parsing and reports changes
// - Conversions produce scheduler and compiler options

// isolateHome points HOME at an empty directory so a real user config
// never leaks into tests.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	cfgDir := filepath.Join(dir, DirName)
	require.NoError(t, os.MkdirAll(cfgDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, name), []byte(content), 0644))
}

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NotNil(t, cfg)

	assert.False(t, cfg.Symbols.ParseValues)
	assert.Equal(t, 150, cfg.Scheduler.DebounceMs)
	assert.Equal(t, "gams", cfg.Compiler.Executable)
	assert.Equal(t, compiler.DefaultScratchDir(), cfg.Compiler.ScratchDir)
	assert.Equal(t, 64, cfg.Compiler.CacheEntries)
	assert.Equal(t, []string{"**/*.lst"}, cfg.Watch.Patterns)
	assert.Contains(t, cfg.Watch.Ignore, ".git/**")

	assert.NoError(t, Validate(cfg))
}

func TestLoadConfig_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()
	isolateHome(t)

	cfg, err := NewLoader(t.TempDir()).Load()
	require.NoError(t, err)

	expected := Default()
	assert.Equal(t, expected.Scheduler, cfg.Scheduler)
	assert.Equal(t, expected.Compiler.Executable, cfg.Compiler.Executable)
	assert.Equal(t, expected.Watch.Patterns, cfg.Watch.Patterns)
}

func TestLoadConfig_LoadsFromConfigYml(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	writeConfig(t, root, "config.yml", `
symbols:
  parse_values: true
scheduler:
  debounce_ms: 400
compiler:
  executable: /opt/gams/gams
  extra_args: ["pw=200", "ps=0"]
  cache_entries: 8
watch:
  patterns: ["out/*.lst"]
`)

	cfg, err := LoadConfigFromDir(root)
	require.NoError(t, err)

	assert.True(t, cfg.Symbols.ParseValues)
	assert.Equal(t, 400, cfg.Scheduler.DebounceMs)
	assert.Equal(t, "/opt/gams/gams", cfg.Compiler.Executable)
	assert.Equal(t, []string{"pw=200", "ps=0"}, cfg.Compiler.ExtraArgs)
	assert.Equal(t, 8, cfg.Compiler.CacheEntries)
	assert.Equal(t, []string{"out/*.lst"}, cfg.Watch.Patterns)

	// Unset keys keep their defaults
	assert.Equal(t, compiler.DefaultScratchDir(), cfg.Compiler.ScratchDir)
	assert.Equal(t, Default().Watch.Ignore, cfg.Watch.Ignore)
}

func TestLoadConfig_LoadsFromConfigYaml(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	writeConfig(t, root, "config.yaml", "scheduler:\n  debounce_ms: 75\n")

	cfg, err := LoadConfigFromDir(root)
	require.NoError(t, err)
	assert.Equal(t, 75, cfg.Scheduler.DebounceMs)
}

func TestLoadConfig_ProjectOverridesUserConfig(t *testing.T) {
	home := isolateHome(t)
	writeConfig(t, home, "config.yml", `
compiler:
  executable: /home/me/gams/gams
scheduler:
  debounce_ms: 300
`)
	root := t.TempDir()
	writeConfig(t, root, "config.yml", "scheduler:\n  debounce_ms: 50\n")

	cfg, err := LoadConfigFromDir(root)
	require.NoError(t, err)
	assert.Equal(t, "/home/me/gams/gams", cfg.Compiler.Executable)
	assert.Equal(t, 50, cfg.Scheduler.DebounceMs)
}

func TestLoadConfig_EnvironmentVariablesOverrideConfigFile(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()
	isolateHome(t)
	root := t.TempDir()
	writeConfig(t, root, "config.yml", `
symbols:
  parse_values: false
compiler:
  executable: from-file
`)

	t.Setenv("GAMSIDE_SYMBOLS_PARSE_VALUES", "true")
	t.Setenv("GAMSIDE_COMPILER_EXECUTABLE", "from-env")
	t.Setenv("GAMSIDE_SCHEDULER_DEBOUNCE_MS", "900")

	cfg, err := LoadConfigFromDir(root)
	require.NoError(t, err)
	assert.True(t, cfg.Symbols.ParseValues)
	assert.Equal(t, "from-env", cfg.Compiler.Executable)
	assert.Equal(t, 900, cfg.Scheduler.DebounceMs)
}

func TestLoadConfig_ReturnsErrorForMalformedYaml(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	writeConfig(t, root, "config.yml", "scheduler: [debounce_ms: 1\n  - broken")

	_, err := LoadConfigFromDir(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_ReturnsErrorForInvalidValues(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	writeConfig(t, root, "config.yml", "scheduler:\n  debounce_ms: 0\n")

	_, err := LoadConfigFromDir(root)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDebounce)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"debounce too small", func(c *Config) { c.Scheduler.DebounceMs = 0 }, ErrInvalidDebounce},
		{"debounce too large", func(c *Config) { c.Scheduler.DebounceMs = MaxDebounceMs + 1 }, ErrInvalidDebounce},
		{"empty executable", func(c *Config) { c.Compiler.Executable = "  " }, ErrEmptyExecutable},
		{"empty scratch dir", func(c *Config) { c.Compiler.ScratchDir = "" }, ErrEmptyScratchDir},
		{"negative cache", func(c *Config) { c.Compiler.CacheEntries = -1 }, ErrInvalidCacheSettings},
		{"bad pattern", func(c *Config) { c.Watch.Patterns = []string{"[a-"} }, ErrInvalidPattern},
		{"bad ignore", func(c *Config) { c.Watch.Ignore = []string{"{a,b"} }, ErrInvalidPattern},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, Validate(cfg), tt.wantErr)
		})
	}

	cfg := Default()
	cfg.Compiler.CacheEntries = 0
	cfg.Watch.Patterns = nil
	assert.NoError(t, Validate(cfg), "zero cache and no patterns are allowed")
}

func TestValidate_ReturnsMultipleErrorsForMultipleInvalidFields(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Scheduler.DebounceMs = -5
	cfg.Compiler.Executable = ""
	cfg.Compiler.CacheEntries = -1

	err := Validate(cfg)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "validation failed:"))
	assert.Contains(t, err.Error(), "debounce_ms")
	assert.Contains(t, err.Error(), "executable is required")
	assert.Contains(t, err.Error(), "cache_entries")
}

func TestSettings(t *testing.T) {
	t.Parallel()

	cfg := Default()
	s := NewSettings(cfg)
	assert.False(t, s.ParseSymbolValues())

	assert.True(t, s.SetParseSymbolValues(true))
	assert.True(t, s.ParseSymbolValues())
	assert.False(t, s.SetParseSymbolValues(true), "no change")
	assert.True(t, s.SetParseSymbolValues(false))
}

func TestConversions(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Scheduler.DebounceMs = 250
	cfg.Compiler.ExtraArgs = []string{"pw=120"}

	assert.Equal(t, 250*time.Millisecond, cfg.Debounce())
	assert.Equal(t, 250*time.Millisecond, cfg.ToSchedulerOptions().Debounce)

	opts := cfg.ToCompilerOptions()
	assert.Equal(t, "gams", opts.Executable)
	assert.Equal(t, []string{"pw=120"}, opts.ExtraArgs)
	assert.Equal(t, cfg.Compiler.ScratchDir, opts.ScratchDir)
	assert.Equal(t, 64, opts.CacheEntries)
}
