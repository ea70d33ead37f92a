package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DirName is the configuration directory, both per project and per user.
const DirName = ".gams-ide"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from files and environment variables.
	// Priority: defaults → user config → project config → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (GAMSIDE_*)
// 2. Project config file (.gams-ide/config.yml or .gams-ide/config.yaml)
// 3. User config file (~/.gams-ide/config.yml)
// 4. Default values
func (l *loader) Load() (*Config, error) {
	// Configure viper
	v := viper.New()
	v.SetConfigType("yaml")

	// Enable environment variable overrides
	v.SetEnvPrefix("GAMSIDE")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., GAMSIDE_COMPILER_EXECUTABLE)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVars(v)

	// Set defaults in viper
	setDefaults(v)

	// Merge config files, user first so the project wins
	dirs := []string{}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, DirName))
	}
	dirs = append(dirs, filepath.Join(l.rootDir, DirName))

	for _, dir := range dirs {
		path := findConfigFile(dir)
		if path == "" {
			// Config file not found is acceptable - we'll use defaults + env vars
			continue
		}
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	// Unmarshal into config struct
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate the configuration
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns config.yml or config.yaml in dir, or "".
func findConfigFile(dir string) string {
	for _, name := range []string{"config.yml", "config.yaml"} {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// bindEnvVars binds environment variables to config keys.
func bindEnvVars(v *viper.Viper) {
	// Symbols configuration
	v.BindEnv("symbols.parse_values")

	// Scheduler configuration
	v.BindEnv("scheduler.debounce_ms")

	// Compiler configuration
	v.BindEnv("compiler.executable")
	v.BindEnv("compiler.scratch_dir")
	v.BindEnv("compiler.cache_entries")
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	// Symbols defaults
	v.SetDefault("symbols.parse_values", defaults.Symbols.ParseValues)

	// Scheduler defaults
	v.SetDefault("scheduler.debounce_ms", defaults.Scheduler.DebounceMs)

	// Compiler defaults
	v.SetDefault("compiler.executable", defaults.Compiler.Executable)
	v.SetDefault("compiler.scratch_dir", defaults.Compiler.ScratchDir)
	v.SetDefault("compiler.extra_args", defaults.Compiler.ExtraArgs)
	v.SetDefault("compiler.cache_entries", defaults.Compiler.CacheEntries)

	// Watch defaults
	v.SetDefault("watch.patterns", defaults.Watch.Patterns)
	v.SetDefault("watch.ignore", defaults.Watch.Ignore)
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
