package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/gams-ide/internal/compiler"
	"github.com/mvp-joe/gams-ide/internal/config"
	"github.com/mvp-joe/gams-ide/internal/engine"
	"github.com/mvp-joe/gams-ide/internal/protocol"
	"github.com/mvp-joe/gams-ide/internal/watcher"
)

var serveWatch bool

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve an editor over a stdio JSON-lines bridge",
	Long: `Serve reads one JSON message per line from stdin and writes one JSON
message per line to stdout. Each message is {"command": ..., "data": ...}.

Host events (didOpen, didChange, didSave, didChangeActiveEditor,
didChangeSelection, didChangeConfiguration) drive parsing; panel queries
(updateSymbol, jumpToPosition, getState, enableSymbolParsing, searchSymbols)
are answered from the session. Logs go to stderr.

With --watch, listing files rewritten on disk by a running solve are parsed
as they change.

Examples:
  gams-ide serve
  gams-ide serve --watch -C /path/to/project
`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "Parse listings rewritten on disk")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Handle interrupt signals gracefully
	ctx, cancel := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rootDir, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := compiler.ClearScratch(cfg.Compiler.ScratchDir); err != nil {
		log.Printf("Warning: failed to clear scratch directory: %v", err)
	}
	gams, err := compiler.NewGAMS(cfg.ToCompilerOptions())
	if err != nil {
		return err
	}
	defer gams.Close()

	var fw watcher.FileWatcher
	if serveWatch {
		fw, err = newListingWatcher(rootDir, cfg)
		if err != nil {
			return err
		}
		defer fw.Stop()
	}

	return serve(ctx, cfg, gams, fw, cmd.InOrStdin(), cmd.OutOrStdout())
}

// serve runs the bridge until in is exhausted or ctx is cancelled. It returns
// only after in-flight pipeline runs have finished.
func serve(ctx context.Context, cfg *config.Config, comp compiler.Compiler, fw watcher.FileWatcher, in io.Reader, out io.Writer) error {
	eng := engine.New(cfg, comp, protocol.NewStreamSink(out))
	defer eng.Close()

	if fw != nil {
		if err := fw.Start(ctx, eng.ListingsChanged); err != nil {
			return fmt.Errorf("failed to start listing watcher: %w", err)
		}
	}

	log.Printf("Serving on stdio...")

	// A read from stdin blocks until the host closes it, so read in the background
	readCh := make(chan error, 1)
	go func() {
		readCh <- protocol.ReadMessages(ctx, in, func(msg protocol.Message) error {
			return eng.Handle(ctx, msg)
		})
	}()

	var err error
	select {
	case err = <-readCh:
	case <-ctx.Done():
		log.Printf("Received shutdown signal, stopping gracefully...")
		err = ctx.Err()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Printf("Bridge closed, shutting down")
	return nil
}

// newListingWatcher watches the configured listing patterns under rootDir.
func newListingWatcher(rootDir string, cfg *config.Config) (watcher.FileWatcher, error) {
	matcher, err := watcher.NewMatcher(rootDir, cfg.Watch.Patterns, cfg.Watch.Ignore)
	if err != nil {
		return nil, fmt.Errorf("invalid watch patterns: %w", err)
	}
	fw, err := watcher.NewListingWatcher(matcher, watcher.DefaultDebounce)
	if err != nil {
		return nil, fmt.Errorf("failed to create listing watcher: %w", err)
	}
	return fw, nil
}
