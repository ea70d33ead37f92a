package engine

// Implementation Plan:
// 1. Engine owns the Session and the Scheduler; the pipeline is a method
// 2. Host events (open/change/save/activate/cursor/config) feed the scheduler
//    or answer directly from the session
// 3. Handle dispatches protocol messages to events and queries
// 4. Watched listing rewrites are read from disk and submitted
// 5. Close stops the scheduler and releases the search index

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/mvp-joe/gams-ide/internal/compiler"
	"github.com/mvp-joe/gams-ide/internal/config"
	"github.com/mvp-joe/gams-ide/internal/protocol"
	"github.com/mvp-joe/gams-ide/internal/reference"
	"github.com/mvp-joe/gams-ide/internal/scheduler"
	"github.com/mvp-joe/gams-ide/internal/session"
)

// Engine connects host events to the parsing pipeline and answers queries
// from the session.
type Engine struct {
	cfg      *config.Config
	settings *config.Settings
	compiler compiler.Compiler
	sink     protocol.Sink
	sess     *session.Session
	sched    *scheduler.Scheduler

	mu       sync.Mutex
	active   string
	texts    map[string]string // last known text per document
	versions map[string]int64  // last host version per document
	cursor   *protocol.HistoryCursor

	searchMu    sync.Mutex
	searcher    *reference.Searcher
	searchIndex *reference.Index // index the searcher was built from

	closeOnce sync.Once
}

// New creates an engine. A nil cfg uses config.Default().
func New(cfg *config.Config, comp compiler.Compiler, sink protocol.Sink) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}

	e := &Engine{
		cfg:      cfg,
		settings: config.NewSettings(cfg),
		compiler: comp,
		sink:     sink,
		sess:     session.New(),
		texts:    make(map[string]string),
		versions: make(map[string]int64),
	}
	e.sched = scheduler.New(e.sess, e.pipeline, cfg.ToSchedulerOptions())

	log.Printf("Session %s started", e.sess.ID)
	return e
}

// Session returns the engine's session store.
func (e *Engine) Session() *session.Session {
	return e.sess
}

// Settings returns the runtime-mutable settings.
func (e *Engine) Settings() *config.Settings {
	return e.settings
}

// Stats returns scheduler counters.
func (e *Engine) Stats() scheduler.Stats {
	return e.sched.Stats()
}

// State returns the scheduling state of document.
func (e *Engine) State(document string) scheduler.State {
	return e.sched.State(document)
}

// Active returns the document of the active editor, "" if none.
func (e *Engine) Active() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Close stops scheduling, waits for in-flight runs and releases the search
// index. It is safe to call more than once.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		err = e.sched.Close()

		e.searchMu.Lock()
		defer e.searchMu.Unlock()
		if e.searcher != nil {
			if cerr := e.searcher.Close(); cerr != nil && err == nil {
				err = cerr
			}
			e.searcher = nil
			e.searchIndex = nil
		}
	})
	return err
}

// remember records text for document and returns the text to parse. An
// empty text falls back to the last known text, then to the file on disk.
func (e *Engine) remember(document, text string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if text == "" {
		text = e.texts[document]
	}
	if text == "" {
		data, err := os.ReadFile(document)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", document, err)
		}
		text = string(data)
	}
	e.texts[document] = text
	return text, nil
}

// text returns the last known text of document.
func (e *Engine) text(document string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.texts[document]
}

// staleVersion reports whether version is older than one already seen for
// document, and records it otherwise. Zero versions are never stale.
func (e *Engine) staleVersion(document string, version int64) bool {
	if version <= 0 {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if version < e.versions[document] {
		return true
	}
	e.versions[document] = version
	return false
}

// post encodes data and sends it to the sink.
func (e *Engine) post(cmd protocol.Command, data any) {
	msg, err := protocol.NewMessage(cmd, data)
	if err != nil {
		log.Printf("Error: %v", err)
		return
	}
	if err := e.sink.Post(msg); err != nil {
		log.Printf("Warning: failed to post %s: %v", cmd, err)
	}
}
