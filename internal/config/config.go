package config

import (
	"github.com/mvp-joe/gams-ide/internal/compiler"
	"github.com/mvp-joe/gams-ide/internal/scheduler"
)

// Config represents the complete gams-ide configuration.
// It can be loaded from .gams-ide/config.yml with environment variable overrides.
type Config struct {
	Symbols   SymbolsConfig   `yaml:"symbols" mapstructure:"symbols"`
	Scheduler SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`
	Compiler  CompilerConfig  `yaml:"compiler" mapstructure:"compiler"`
	Watch     WatchConfig     `yaml:"watch" mapstructure:"watch"`
}

// SymbolsConfig controls what the listing parser attaches to entries.
type SymbolsConfig struct {
	ParseValues bool `yaml:"parse_values" mapstructure:"parse_values"` // attach values and records to listing entries
}

// SchedulerConfig tunes incremental updates.
type SchedulerConfig struct {
	DebounceMs int `yaml:"debounce_ms" mapstructure:"debounce_ms"` // quiet period after the last edit
}

// CompilerConfig configures the gams invocation.
type CompilerConfig struct {
	Executable   string   `yaml:"executable" mapstructure:"executable"`       // gams binary, name or path
	ScratchDir   string   `yaml:"scratch_dir" mapstructure:"scratch_dir"`     // emptied at startup
	ExtraArgs    []string `yaml:"extra_args" mapstructure:"extra_args"`       // appended to every invocation
	CacheEntries int      `yaml:"cache_entries" mapstructure:"cache_entries"` // compile results kept in memory
}

// WatchConfig defines which listing files are watched for external rewrites.
type WatchConfig struct {
	Patterns []string `yaml:"patterns" mapstructure:"patterns"` // glob patterns for watched files
	Ignore   []string `yaml:"ignore" mapstructure:"ignore"`     // glob patterns to ignore
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Symbols: SymbolsConfig{
			ParseValues: false,
		},
		Scheduler: SchedulerConfig{
			DebounceMs: int(scheduler.DefaultDebounce.Milliseconds()),
		},
		Compiler: CompilerConfig{
			Executable:   compiler.DefaultExecutable,
			ScratchDir:   compiler.DefaultScratchDir(),
			ExtraArgs:    []string{},
			CacheEntries: compiler.DefaultCacheEntries,
		},
		Watch: WatchConfig{
			Patterns: []string{
				"**/*.lst",
			},
			Ignore: []string{
				".git/**",
				"225*/**", // gams process directories
			},
		},
	}
}
