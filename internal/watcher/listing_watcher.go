package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before changed files are reported.
// A running solve rewrites its listing in many small writes.
const DefaultDebounce = 300 * time.Millisecond

// listingWatcher implements FileWatcher for files selected by a Matcher.
type listingWatcher struct {
	watcher       *fsnotify.Watcher
	matcher       *Matcher
	debounceTime  time.Duration        // Quiet period before firing callback
	callback      func(files []string) // Callback to invoke with changed files
	ctx           context.Context      // Context for lifecycle management
	cancel        context.CancelFunc   // Cancel function for internal context
	accumulated   map[string]bool      // Accumulated file changes
	accumulatedMu sync.Mutex           // Protects accumulated map
	debounceTimer *time.Timer          // Current debounce timer
	timerMu       sync.Mutex           // Protects debounce timer
	stopOnce      sync.Once            // Ensures Stop() is idempotent
	doneCh        chan struct{}        // Signals watch goroutine has finished
}

// NewListingWatcher creates a watcher over the matcher's root directory.
// A debounce of zero uses DefaultDebounce.
func NewListingWatcher(matcher *Matcher, debounce time.Duration) (FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	lw := &listingWatcher{
		watcher:      watcher,
		matcher:      matcher,
		debounceTime: debounce,
		accumulated:  make(map[string]bool),
		doneCh:       make(chan struct{}),
	}

	if err := lw.addDirectoriesRecursively(matcher.Root()); err != nil {
		watcher.Close()
		return nil, err
	}

	return lw, nil
}

// Start begins watching for file changes.
func (lw *listingWatcher) Start(ctx context.Context, callback func(files []string)) error {
	if callback == nil {
		return nil
	}

	lw.callback = callback
	lw.ctx, lw.cancel = context.WithCancel(ctx)

	go lw.watch()
	return nil
}

// Stop stops the watcher.
func (lw *listingWatcher) Stop() error {
	var err error
	lw.stopOnce.Do(func() {
		if lw.cancel != nil {
			lw.cancel()
			<-lw.doneCh
		} else {
			// Never started
			close(lw.doneCh)
		}

		err = lw.watcher.Close()
	})
	return err
}

// watch is the main event loop.
func (lw *listingWatcher) watch() {
	defer close(lw.doneCh)

	flushCh := make(chan struct{}, 1)

	for {
		select {
		case <-lw.ctx.Done():
			lw.stopDebounceTimer()
			return

		case event, ok := <-lw.watcher.Events:
			if !ok {
				return
			}

			// Watch new directories unless ignored
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := lw.addDirectoriesRecursively(event.Name); err != nil {
						log.Printf("Warning: failed to watch new directory %s: %v", event.Name, err)
					}
				}
			}

			if !lw.shouldProcessEvent(event) {
				continue
			}

			lw.accumulatedMu.Lock()
			lw.accumulated[event.Name] = true
			lw.accumulatedMu.Unlock()

			lw.resetDebounceTimer(flushCh)

		case <-flushCh:
			lw.flush()

		case err, ok := <-lw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Listing watcher error: %v", err)
		}
	}
}

// flush fires the callback with the accumulated files in sorted order.
func (lw *listingWatcher) flush() {
	lw.accumulatedMu.Lock()
	if len(lw.accumulated) == 0 {
		lw.accumulatedMu.Unlock()
		return
	}

	files := make([]string, 0, len(lw.accumulated))
	for file := range lw.accumulated {
		files = append(files, file)
	}
	lw.accumulated = make(map[string]bool)
	lw.accumulatedMu.Unlock()

	sort.Strings(files)
	lw.callback(files)
}

// resetDebounceTimer restarts the quiet period.
func (lw *listingWatcher) resetDebounceTimer(flushCh chan struct{}) {
	lw.timerMu.Lock()
	defer lw.timerMu.Unlock()

	if lw.debounceTimer != nil {
		lw.debounceTimer.Stop()
	}

	lw.debounceTimer = time.AfterFunc(lw.debounceTime, func() {
		select {
		case flushCh <- struct{}{}:
		default:
		}
	})
}

// stopDebounceTimer stops the debounce timer if it exists.
func (lw *listingWatcher) stopDebounceTimer() {
	lw.timerMu.Lock()
	defer lw.timerMu.Unlock()

	if lw.debounceTimer != nil {
		lw.debounceTimer.Stop()
		lw.debounceTimer = nil
	}
}

// shouldProcessEvent keeps writes and creations of matched files. Removed
// listings have nothing left to parse.
func (lw *listingWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	return lw.matcher.Match(event.Name)
}

// addDirectoriesRecursively adds every non-ignored directory under rootPath.
func (lw *listingWatcher) addDirectoriesRecursively(rootPath string) error {
	return filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == rootPath {
				return err
			}
			log.Printf("Warning: error accessing %s: %v", path, err)
			return nil
		}

		if !info.IsDir() {
			return nil
		}
		if lw.matcher.SkipDir(path) {
			return filepath.SkipDir
		}

		if err := lw.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to watch directory %s: %v", path, err)
		}
		return nil
	})
}
