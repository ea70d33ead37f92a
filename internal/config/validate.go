package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

const (
	// MinDebounceMs and MaxDebounceMs bound scheduler.debounce_ms.
	MinDebounceMs = 1
	MaxDebounceMs = 5000
)

var (
	// ErrInvalidDebounce indicates a debounce outside the accepted range
	ErrInvalidDebounce = errors.New("invalid debounce")

	// ErrEmptyExecutable indicates a missing compiler executable
	ErrEmptyExecutable = errors.New("empty compiler executable")

	// ErrEmptyScratchDir indicates a missing scratch directory
	ErrEmptyScratchDir = errors.New("empty scratch directory")

	// ErrInvalidCacheSettings indicates invalid cache configuration
	ErrInvalidCacheSettings = errors.New("invalid cache settings")

	// ErrInvalidPattern indicates a watch pattern that does not compile
	ErrInvalidPattern = errors.New("invalid glob pattern")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	// Validate scheduler configuration
	if err := validateScheduler(&cfg.Scheduler); err != nil {
		errs = append(errs, err)
	}

	// Validate compiler configuration
	if err := validateCompiler(&cfg.Compiler); err != nil {
		errs = append(errs, err)
	}

	// Validate watch configuration
	if err := validateWatch(&cfg.Watch); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateScheduler(cfg *SchedulerConfig) error {
	if cfg.DebounceMs < MinDebounceMs || cfg.DebounceMs > MaxDebounceMs {
		return fmt.Errorf("%w: debounce_ms must be between %d and %d, got %d", ErrInvalidDebounce, MinDebounceMs, MaxDebounceMs, cfg.DebounceMs)
	}
	return nil
}

func validateCompiler(cfg *CompilerConfig) error {
	var errs []error

	if strings.TrimSpace(cfg.Executable) == "" {
		errs = append(errs, fmt.Errorf("%w: executable is required", ErrEmptyExecutable))
	}

	if strings.TrimSpace(cfg.ScratchDir) == "" {
		errs = append(errs, fmt.Errorf("%w: scratch_dir is required", ErrEmptyScratchDir))
	}

	// Zero means the compiler default
	if cfg.CacheEntries < 0 {
		errs = append(errs, fmt.Errorf("%w: cache_entries cannot be negative, got %d", ErrInvalidCacheSettings, cfg.CacheEntries))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateWatch(cfg *WatchConfig) error {
	var errs []error

	// Patterns can be empty - the watcher then reports nothing
	for _, pattern := range append(append([]string{}, cfg.Patterns...), cfg.Ignore...) {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
