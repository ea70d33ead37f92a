package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/gams-ide/internal/reference"
)

var (
	refsFuzzy  bool
	refsSearch bool
	refsLimit  int
	refsJSON   bool
)

// refsCmd represents the refs command
var refsCmd = &cobra.Command{
	Use:   "refs <file.ref> <symbol>",
	Short: "Look up a symbol in a GAMS reference file",
	Long: `Refs reads a reference file written by gams (rf=<file>) and prints a
symbol's declaration, definitions, assignments, references and control uses,
together with the symbols it depends on and the symbols that use it.

Lookups are case-insensitive; a name declared more than once prints every
declaration. With --fuzzy the first symbol whose name contains the query is
used, and --json prints the first match only. With --search the query runs as a ranked
full-text search over names and descriptions.

Examples:
  gams-ide refs trnsport.ref supply
  gams-ide refs trnsport.ref upp --fuzzy
  gams-ide refs trnsport.ref capacity --search
`,
	Args: cobra.ExactArgs(2),
	RunE: runRefs,
}

func init() {
	rootCmd.AddCommand(refsCmd)
	refsCmd.Flags().BoolVar(&refsFuzzy, "fuzzy", false, "Match the first symbol containing the query")
	refsCmd.Flags().BoolVar(&refsSearch, "search", false, "Run a ranked full-text search")
	refsCmd.Flags().IntVar(&refsLimit, "limit", reference.DefaultSearchLimit, "Maximum number of search results")
	refsCmd.Flags().BoolVar(&refsJSON, "json", false, "Output as JSON")
}

func runRefs(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open reference file: %w", err)
	}
	defer f.Close()

	symbols, err := reference.ParseRefFile(f)
	if err != nil {
		return fmt.Errorf("failed to read reference file: %w", err)
	}
	idx := reference.NewIndex(symbols)
	name := args[1]
	out := cmd.OutOrStdout()

	if refsSearch {
		ctx := commandContext(cmd)
		searcher, err := reference.NewSearcher(ctx, idx)
		if err != nil {
			return err
		}
		defer searcher.Close()

		results, err := searcher.Search(ctx, name, refsLimit)
		if err != nil {
			return err
		}
		for _, res := range results {
			fmt.Fprintf(out, "%-20s %-6s %6.3f  %s\n", res.Symbol.Name, res.Symbol.Kind, res.Score, res.Symbol.Description)
		}
		return nil
	}

	var matches []*reference.Symbol
	if refsFuzzy {
		if sym := idx.LookupFuzzy(name); sym != nil {
			matches = []*reference.Symbol{sym}
		}
	} else {
		matches = idx.LookupAll(name)
	}
	if len(matches) == 0 {
		if suggestions := idx.Suggest(name, 5); len(suggestions) > 0 {
			return fmt.Errorf("symbol %q not found (did you mean %s?)", name, strings.Join(suggestions, ", "))
		}
		return fmt.Errorf("symbol %q not found", name)
	}

	if refsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(matches[0].View())
	}

	for i, sym := range matches {
		if i > 0 {
			fmt.Fprintln(out)
		}
		printSymbol(out, idx, sym)
	}
	return nil
}

func printSymbol(w io.Writer, idx *reference.Index, sym *reference.Symbol) {
	view := sym.View()
	fmt.Fprintf(w, "%s %s(%d)", view.Type, view.Name, view.Dim)
	if view.Description != "" {
		fmt.Fprintf(w, "  %q", view.Description)
	}
	fmt.Fprintf(w, "\n  definition: %s\n", view.Definition)

	groups := []struct {
		label     string
		positions []reference.Position
	}{
		{"declared", view.Declared},
		{"defined", view.Defined},
		{"assigned", view.Assigned},
		{"implicit", view.ImplAsn},
		{"referenced", view.Ref},
		{"control", view.Control},
		{"index", view.Index},
	}
	for _, g := range groups {
		if len(g.positions) == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s:\n", g.label)
		for _, p := range g.positions {
			fmt.Fprintf(w, "    %s\n", p)
		}
	}

	printNames(w, "depends on", idx.Dependencies(sym.Name))
	printNames(w, "used by", idx.Dependents(sym.Name))
}

func printNames(w io.Writer, label string, symbols []*reference.Symbol) {
	if len(symbols) == 0 {
		return
	}
	names := make([]string, len(symbols))
	for i, s := range symbols {
		names[i] = s.Name
	}
	fmt.Fprintf(w, "  %s: %s\n", label, strings.Join(names, ", "))
}
