package watcher

import "context"

// FileWatcher reports debounced changes to watched files.
type FileWatcher interface {
	// Start begins watching, calling callback with batches of changed files.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the watcher and cleans up resources.
	Stop() error
}
