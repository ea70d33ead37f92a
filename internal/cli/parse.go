package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/gams-ide/internal/listing"
)

var (
	parseValues bool
	parseJSON   bool
)

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse <file.lst>",
	Short: "Print the structure tree of a GAMS listing",
	Long: `Parse reads a GAMS listing file and prints its structure tree: sections,
solve summaries and the equations, variables, parameters and sets they show.

Examples:
  # Print the tree of a listing
  gams-ide parse trnsport.lst

  # Include symbol values and records
  gams-ide parse trnsport.lst --values

  # Emit the tree as JSON
  gams-ide parse trnsport.lst --json
`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().BoolVar(&parseValues, "values", false, "Parse symbol values and records")
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "Output as JSON")
}

func runParse(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read listing: %w", err)
	}

	tree, err := listing.Parse(string(data), listing.Options{ParseValues: parseValues})
	var parseErr *listing.ParseError
	if errors.As(err, &parseErr) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", parseErr)
	}

	out := cmd.OutOrStdout()
	if parseJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(tree)
	}

	printTree(out, tree)
	return nil
}

// printTree writes one indented line per node below the root.
func printTree(w io.Writer, tree *listing.Node) {
	tree.Walk(func(node *listing.Node, depth int) bool {
		if depth == 0 {
			return true
		}
		indent := strings.Repeat("  ", depth-1)
		if node.Value != "" {
			fmt.Fprintf(w, "%s%s %s = %s  (%d:%d)\n", indent, node.Kind, node.Label, node.Value, node.Line, node.Column)
		} else {
			fmt.Fprintf(w, "%s%s %s  (%d:%d)\n", indent, node.Kind, node.Label, node.Line, node.Column)
		}
		return true
	})
}
