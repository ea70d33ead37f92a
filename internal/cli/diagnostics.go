package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/gams-ide/internal/compiler"
	"github.com/mvp-joe/gams-ide/internal/config"
	"github.com/mvp-joe/gams-ide/internal/diagnostics"
	"github.com/mvp-joe/gams-ide/internal/listing"
)

var diagnosticsJSON bool

// diagnosticsCmd represents the diagnostics command
var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics <file.gms|file.lst>",
	Short: "Report compiler errors for a GAMS source or listing",
	Long: `Diagnostics prints one line per compiler marker. A listing is read
as is; a GAMS source is compiled first (action=c) with the configured gams
executable.

The command fails when any error is reported.

Examples:
  gams-ide diagnostics trnsport.gms
  gams-ide diagnostics trnsport.lst --json
`,
	Args: cobra.ExactArgs(1),
	RunE: runDiagnostics,
}

func init() {
	rootCmd.AddCommand(diagnosticsCmd)
	diagnosticsCmd.Flags().BoolVar(&diagnosticsJSON, "json", false, "Output as JSON")
}

func runDiagnostics(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	var diags []diagnostics.Diagnostic
	if listing.IsListing(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read listing: %w", err)
		}
		diags = diagnostics.Extract(string(data), path)
	} else {
		_, cfg, err := loadConfig()
		if err != nil {
			return err
		}
		diags, err = compileDiagnostics(commandContext(cmd), cfg, path)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if diagnosticsJSON {
		if diags == nil {
			diags = []diagnostics.Diagnostic{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(diags); err != nil {
			return err
		}
	} else {
		printDiagnostics(out, diags)
	}

	if errs, _, _ := diagnostics.Counts(diags); errs > 0 {
		return fmt.Errorf("%d error(s) reported", errs)
	}
	return nil
}

// compileDiagnostics compiles path from disk and extracts its diagnostics.
func compileDiagnostics(ctx context.Context, cfg *config.Config, path string) ([]diagnostics.Diagnostic, error) {
	gams, err := compiler.NewGAMS(cfg.ToCompilerOptions())
	if err != nil {
		return nil, err
	}
	defer gams.Close()

	out, err := gams.Compile(ctx, path, "")
	if err != nil {
		return nil, err
	}
	return extractCompiled(out, path), nil
}

// extractCompiled reads diagnostics from the listing, falling back to the log.
func extractCompiled(out *compiler.Output, path string) []diagnostics.Diagnostic {
	diags := diagnostics.Extract(out.Listing, path)
	if len(diags) == 0 {
		diags = diagnostics.Extract(out.Log, path)
	}
	return diags
}

func printDiagnostics(w io.Writer, diags []diagnostics.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(w, d.String())
	}
	errs, warnings, infos := diagnostics.Counts(diags)
	fmt.Fprintf(w, "%d error(s), %d warning(s), %d info\n", errs, warnings, infos)
}
