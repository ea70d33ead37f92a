package config

import (
	"sync/atomic"
	"time"

	"github.com/mvp-joe/gams-ide/internal/compiler"
	"github.com/mvp-joe/gams-ide/internal/scheduler"
)

// Settings holds the runtime-mutable part of the configuration. The host
// may toggle symbol value parsing while the engine runs.
type Settings struct {
	parseValues atomic.Bool
}

// NewSettings seeds settings from cfg.
func NewSettings(cfg *Config) *Settings {
	s := &Settings{}
	s.parseValues.Store(cfg.Symbols.ParseValues)
	return s
}

// ParseSymbolValues reports whether values are attached to listing entries.
func (s *Settings) ParseSymbolValues() bool {
	return s.parseValues.Load()
}

// SetParseSymbolValues updates the flag and reports whether it changed.
func (s *Settings) SetParseSymbolValues(enabled bool) bool {
	return s.parseValues.Swap(enabled) != enabled
}

// Debounce returns the scheduler debounce as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Scheduler.DebounceMs) * time.Millisecond
}

// ToSchedulerOptions converts a Config to scheduler.Options.
func (c *Config) ToSchedulerOptions() scheduler.Options {
	return scheduler.Options{Debounce: c.Debounce()}
}

// ToCompilerOptions converts a Config to compiler.Options.
func (c *Config) ToCompilerOptions() compiler.Options {
	return compiler.Options{
		Executable:   c.Compiler.Executable,
		ScratchDir:   c.Compiler.ScratchDir,
		ExtraArgs:    c.Compiler.ExtraArgs,
		CacheEntries: c.Compiler.CacheEntries,
	}
}
