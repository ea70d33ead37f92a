package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/maypok86/otter"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultExecutable is looked up on PATH.
	DefaultExecutable = "gams"
	// DefaultCacheEntries bounds the compile result cache.
	DefaultCacheEntries = 64
)

// Options configures the GAMS compiler.
type Options struct {
	Executable   string   // gams binary, name or path
	ScratchDir   string   // where inputs and outputs of each run are written
	ExtraArgs    []string // appended to every invocation
	CacheEntries int      // compile results kept, keyed by path and text
}

// GAMS runs the gams executable in compile-only mode.
type GAMS struct {
	opts  Options
	cache otter.Cache[uint64, *Output]
	group singleflight.Group
}

// NewGAMS creates a compiler. The executable is resolved lazily, so a
// missing gams only fails individual compilations.
func NewGAMS(opts Options) (*GAMS, error) {
	if opts.Executable == "" {
		opts.Executable = DefaultExecutable
	}
	if opts.ScratchDir == "" {
		opts.ScratchDir = DefaultScratchDir()
	}
	if opts.CacheEntries <= 0 {
		opts.CacheEntries = DefaultCacheEntries
	}

	cache, err := otter.MustBuilder[uint64, *Output](opts.CacheEntries).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create compile cache: %w", err)
	}

	return &GAMS{opts: opts, cache: cache}, nil
}

// DefaultScratchDir is the scratch directory under the system temp dir.
func DefaultScratchDir() string {
	return filepath.Join(os.TempDir(), "gams-ide", "scrdir")
}

// ScratchDir returns the configured scratch directory.
func (g *GAMS) ScratchDir() string {
	return g.opts.ScratchDir
}

// Compile runs gams on path. Identical requests are served from the cache,
// and concurrent identical requests share one run.
func (g *GAMS) Compile(ctx context.Context, path, text string) (*Output, error) {
	if text == "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &InvocationError{Path: path, Err: err}
		}
		text = string(data)
	}

	key := cacheKey(path, text)
	if out, ok := g.cache.Get(key); ok {
		return out, nil
	}

	v, err, _ := g.group.Do(strconv.FormatUint(key, 16), func() (interface{}, error) {
		out, err := g.run(ctx, path, text)
		if err != nil {
			return nil, err
		}
		g.cache.Set(key, out)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Output), nil
}

// Close releases the cache.
func (g *GAMS) Close() {
	g.cache.Close()
}

func cacheKey(path, text string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(path)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(text)
	return d.Sum64()
}

func (g *GAMS) run(ctx context.Context, path, text string) (*Output, error) {
	exe, err := exec.LookPath(g.opts.Executable)
	if err != nil {
		return nil, &InvocationError{Path: path, Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	if err := os.MkdirAll(g.opts.ScratchDir, 0755); err != nil {
		return nil, &InvocationError{Path: path, Err: fmt.Errorf("failed to create scratch directory: %w", err)}
	}
	// One directory per run; concurrent compiles never share files.
	runDir, err := os.MkdirTemp(g.opts.ScratchDir, "run-")
	if err != nil {
		return nil, &InvocationError{Path: path, Err: fmt.Errorf("failed to create run directory: %w", err)}
	}
	defer func() {
		if err := os.RemoveAll(runDir); err != nil {
			log.Printf("Warning: failed to remove scratch directory %s: %v", runDir, err)
		}
	}()

	input := filepath.Join(runDir, filepath.Base(absPath))
	if err := os.WriteFile(input, []byte(text), 0644); err != nil {
		return nil, &InvocationError{Path: path, Err: fmt.Errorf("failed to write compiler input: %w", err)}
	}
	lstPath := filepath.Join(runDir, "output.lst")
	refPath := filepath.Join(runDir, "output.ref")

	args := []string{
		input,
		"action=c",
		"o=" + lstPath,
		"rf=" + refPath,
		"lo=3",
		"idir=" + filepath.Dir(absPath),
	}
	args = append(args, g.opts.ExtraArgs...)

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Dir = filepath.Dir(absPath)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode := 0
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, &InvocationError{Path: path, Stderr: strings.TrimSpace(stderr.String()), Err: err}
		}
		exitCode = exitErr.ExitCode()
		if exitCode != ExitCompilationError {
			return nil, &InvocationError{Path: path, ExitCode: exitCode, Stderr: strings.TrimSpace(stderr.String())}
		}
	}

	lst, err := os.ReadFile(lstPath)
	if err != nil {
		return nil, &InvocationError{Path: path, ExitCode: exitCode, Stderr: strings.TrimSpace(stderr.String()), Err: fmt.Errorf("no listing produced: %w", err)}
	}

	// A missing reference file is normal when compilation stopped early.
	ref, err := os.ReadFile(refPath)
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to read reference file for %s: %v", path, err)
	}

	restore := strings.NewReplacer(input, absPath)
	return &Output{
		Listing:   string(lst),
		Reference: restore.Replace(string(ref)),
		Log:       restore.Replace(stdout.String()),
		ExitCode:  exitCode,
	}, nil
}

// ClearScratch removes everything inside dir, creating dir if needed.
func ClearScratch(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	if err != nil {
		return fmt.Errorf("failed to read scratch directory: %w", err)
	}

	var errs []error
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to clear scratch directory: %w", errors.Join(errs...))
	}
	return nil
}
