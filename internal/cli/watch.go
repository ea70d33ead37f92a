package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/gams-ide/internal/listing"
	"github.com/mvp-joe/gams-ide/internal/watcher"
)

var watchOnce bool

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Report solve status of listings as they are rewritten",
	Long: `Watch discovers every listing under the directory (default: the project
directory), prints a one-line summary of each, and then reports listings again
whenever a running solve rewrites them.

Watched and ignored files follow watch.patterns and watch.ignore in
.gams-ide/config.yml.

Examples:
  gams-ide watch
  gams-ide watch ./runs --once
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "Summarize existing listings and exit")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rootDir, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		if rootDir, err = filepath.Abs(args[0]); err != nil {
			return err
		}
	}

	matcher, err := watcher.NewMatcher(rootDir, cfg.Watch.Patterns, cfg.Watch.Ignore)
	if err != nil {
		return fmt.Errorf("invalid watch patterns: %w", err)
	}
	files, err := matcher.Discover()
	if err != nil {
		return fmt.Errorf("failed to discover listings: %w", err)
	}

	out := cmd.OutOrStdout()
	summarizeListings(out, files)
	if watchOnce {
		return nil
	}

	fw, err := watcher.NewListingWatcher(matcher, watcher.DefaultDebounce)
	if err != nil {
		return fmt.Errorf("failed to create listing watcher: %w", err)
	}
	defer fw.Stop()

	if err := fw.Start(ctx, func(files []string) {
		summarizeListings(out, files)
	}); err != nil {
		return err
	}

	log.Printf("Watching %s for listing changes...", rootDir)
	<-ctx.Done()
	if ctx.Err() == context.Canceled {
		log.Printf("Watch stopped")
	}
	return nil
}

// summarizeListings prints one summary line per listing.
func summarizeListings(w io.Writer, files []string) {
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			log.Printf("Warning: failed to read %s: %v", file, err)
			continue
		}
		tree, _ := listing.Parse(string(data), listing.Options{ParseValues: true})
		fmt.Fprintln(w, summarizeListing(file, tree))
	}
}

// summarizeListing renders the node count and the solver status, model
// status and objective value of every solve summary.
func summarizeListing(file string, tree *listing.Node) string {
	var statuses []string
	tree.Walk(func(node *listing.Node, _ int) bool {
		if node.Kind == listing.KindStatus && (strings.HasSuffix(node.Label, "STATUS") || node.Label == "OBJECTIVE VALUE") {
			statuses = append(statuses, node.Label+" "+node.Value)
		}
		return true
	})

	line := fmt.Sprintf("%s: %d nodes", file, tree.Count())
	if len(statuses) > 0 {
		line += "; " + strings.Join(statuses, "; ")
	}
	return line
}
