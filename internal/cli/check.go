package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/gams-ide/internal/compiler"
	"github.com/mvp-joe/gams-ide/internal/diagnostics"
	"github.com/mvp-joe/gams-ide/internal/listing"
)

var (
	checkJobs  int
	checkQuiet bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <files...>",
	Short: "Compile several GAMS models and report their diagnostics",
	Long: `Check compiles every given GAMS source concurrently and prints the
diagnostics of each. Listings are read without compiling.

A compiler that cannot be run is reported as one error for that file; the
other files are still checked. The command fails when any error is reported.

Examples:
  gams-ide check models/*.gms
  gams-ide check -j 2 --quiet a.gms b.gms
`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().IntVarP(&checkJobs, "jobs", "j", runtime.NumCPU(), "Number of concurrent compilations")
	checkCmd.Flags().BoolVarP(&checkQuiet, "quiet", "q", false, "Disable progress bar")
}

// checkResult is the outcome for one file.
type checkResult struct {
	Path        string
	Diagnostics []diagnostics.Diagnostic
}

func runCheck(cmd *cobra.Command, args []string) error {
	// Set up context with cancellation for Ctrl+C
	ctx, cancel := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	gams, err := compiler.NewGAMS(cfg.ToCompilerOptions())
	if err != nil {
		return err
	}
	defer gams.Close()

	progress := newCheckProgress(cmd.ErrOrStderr(), checkQuiet)
	results, err := checkFiles(ctx, gams, args, checkJobs, progress)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("check cancelled")
		}
		return err
	}

	var all []diagnostics.Diagnostic
	out := cmd.OutOrStdout()
	for _, res := range results {
		for _, d := range res.Diagnostics {
			fmt.Fprintln(out, d.String())
		}
		all = append(all, res.Diagnostics...)
	}

	errs, warnings, _ := diagnostics.Counts(all)
	progress.OnComplete(len(results), errs, warnings)
	if errs > 0 {
		return fmt.Errorf("%d error(s) reported", errs)
	}
	return nil
}

// checkFiles compiles files with at most jobs concurrent runs. Results keep
// the order of files.
func checkFiles(ctx context.Context, comp compiler.Compiler, files []string, jobs int, progress *checkProgress) ([]checkResult, error) {
	if jobs < 1 {
		jobs = 1
	}
	results := make([]checkResult, len(files))
	progress.OnStart(len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	for i, file := range files {
		g.Go(func() error {
			path, err := filepath.Abs(file)
			if err != nil {
				return err
			}
			diags, err := checkFile(gctx, comp, path)
			if err != nil {
				return err
			}
			results[i] = checkResult{Path: path, Diagnostics: diags}
			progress.OnFileChecked(path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// checkFile returns the diagnostics of one file. Compiler failures become a
// synthetic diagnostic; only cancellation is an error.
func checkFile(ctx context.Context, comp compiler.Compiler, path string) ([]diagnostics.Diagnostic, error) {
	if listing.IsListing(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return []diagnostics.Diagnostic{diagnostics.Synthetic(path, err)}, nil
		}
		return diagnostics.Extract(string(data), path), nil
	}

	out, err := comp.Compile(ctx, path, "")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return []diagnostics.Diagnostic{diagnostics.Synthetic(path, err)}, nil
	}
	return extractCompiled(out, path), nil
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
