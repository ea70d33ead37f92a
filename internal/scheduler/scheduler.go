package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mvp-joe/gams-ide/internal/session"
)

// DefaultDebounce is the quiet period after the last edit before a parse.
const DefaultDebounce = 150 * time.Millisecond

// ErrClosed is returned by Submit and SubmitNow after Close.
var ErrClosed = errors.New("scheduler closed")

// State is the per-document scheduling state.
type State int

const (
	Idle State = iota
	PendingParse
	Parsing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PendingParse:
		return "pending"
	case Parsing:
		return "parsing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Event is a document change. A zero Revision asks the scheduler to assign
// the next revision for the document.
type Event struct {
	Document string
	Text     string
	Revision int64
}

// Snapshot is the immutable input handed to a Pipeline run.
type Snapshot struct {
	Document    string
	Text        string
	Revision    int64
	ScheduledAt time.Time
}

// Outcome is what a pipeline run produced. Updates are committed to the
// session atomically; Notify runs only after a successful commit, one at a
// time per document, and is skipped once a newer revision was committed.
type Outcome struct {
	Updates map[session.Key]any
	Notify  func()
}

// Pipeline derives artifacts from a snapshot. It runs off the caller's
// goroutine and may be slow.
type Pipeline func(ctx context.Context, snap Snapshot) (*Outcome, error)

// Options configures a Scheduler.
type Options struct {
	Debounce time.Duration
}

// Stats counts scheduler activity.
type Stats struct {
	Parses   int64
	Commits  int64
	Discards int64
	Failures int64
}

type document struct {
	timer    *time.Timer
	timerGen uint64 // invalidates timers that fired while being replaced
	pending  *Snapshot
	latest   int64 // highest revision scheduled for this document
	inFlight int

	notifyMu sync.Mutex // serializes Notify calls for this document
	notified int64      // highest revision delivered; guarded by notifyMu
}

// Scheduler debounces document changes, runs the pipeline off the caller's
// goroutine and commits results to the session unless a newer revision of
// the same document has been scheduled, is in flight, or was committed.
type Scheduler struct {
	sess     *session.Session
	pipeline Pipeline
	debounce time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	docs   map[string]*document
	closed bool

	wg       sync.WaitGroup
	stopOnce sync.Once

	parses   atomic.Int64
	commits  atomic.Int64
	discards atomic.Int64
	failures atomic.Int64
}

// New creates a scheduler that commits pipeline results to sess.
func New(sess *session.Session, pipeline Pipeline, opts Options) *Scheduler {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		sess:     sess,
		pipeline: pipeline,
		debounce: opts.Debounce,
		ctx:      ctx,
		cancel:   cancel,
		docs:     make(map[string]*document),
	}
}

// Submit records a change and (re)starts the document's debounce window.
// Changes to other documents are unaffected. It returns the revision the
// change was scheduled under.
func (s *Scheduler) Submit(ev Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	doc := s.document(ev.Document)
	snap := s.schedule(doc, ev)
	doc.pending = &snap

	s.stopTimer(doc)
	gen := doc.timerGen
	name := ev.Document
	doc.timer = time.AfterFunc(s.debounce, func() {
		s.fire(name, gen)
	})
	return snap.Revision, nil
}

// SubmitNow runs the pipeline for ev immediately, superseding any pending
// debounced change of the same document.
func (s *Scheduler) SubmitNow(ev Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	doc := s.document(ev.Document)
	snap := s.schedule(doc, ev)
	doc.pending = nil
	s.stopTimer(doc)
	s.start(doc, snap)
	return snap.Revision, nil
}

// State reports the scheduling state of a document. A document with a
// pending change reports PendingParse even while an older parse runs.
func (s *Scheduler) State(document string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[document]
	switch {
	case !ok:
		return Idle
	case doc.pending != nil:
		return PendingParse
	case doc.inFlight > 0:
		return Parsing
	default:
		return Idle
	}
}

// Stats returns a snapshot of the activity counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Parses:   s.parses.Load(),
		Commits:  s.commits.Load(),
		Discards: s.discards.Load(),
		Failures: s.failures.Load(),
	}
}

// Close stops pending timers, cancels running pipelines and waits for them
// to return. It is safe to call more than once.
func (s *Scheduler) Close() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		for _, doc := range s.docs {
			s.stopTimer(doc)
			doc.pending = nil
		}
		s.mu.Unlock()

		s.cancel()
		s.wg.Wait()
	})
	return nil
}

// document returns the state for name. Caller holds s.mu.
func (s *Scheduler) document(name string) *document {
	doc, ok := s.docs[name]
	if !ok {
		doc = &document{}
		s.docs[name] = doc
	}
	return doc
}

// schedule assigns the revision for ev. Caller holds s.mu.
func (s *Scheduler) schedule(doc *document, ev Event) Snapshot {
	rev := ev.Revision
	if rev == 0 {
		rev = doc.latest + 1
	}
	if rev > doc.latest {
		doc.latest = rev
	}
	return Snapshot{
		Document:    ev.Document,
		Text:        ev.Text,
		Revision:    rev,
		ScheduledAt: time.Now(),
	}
}

// stopTimer cancels the document's debounce timer. Caller holds s.mu.
func (s *Scheduler) stopTimer(doc *document) {
	if doc.timer != nil {
		doc.timer.Stop()
		doc.timer = nil
	}
	doc.timerGen++
}

// fire is the debounce timer callback.
func (s *Scheduler) fire(name string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[name]
	if s.closed || !ok || doc.timerGen != gen || doc.pending == nil {
		return
	}
	snap := *doc.pending
	doc.pending = nil
	doc.timer = nil
	s.start(doc, snap)
}

// start launches a pipeline run. Caller holds s.mu.
func (s *Scheduler) start(doc *document, snap Snapshot) {
	doc.inFlight++
	s.wg.Add(1)
	go s.run(snap)
}

func (s *Scheduler) run(snap Snapshot) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		if doc, ok := s.docs[snap.Document]; ok {
			doc.inFlight--
		}
		s.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			s.failures.Add(1)
			log.Printf("Error: pipeline panic for %s (revision %d): %v\n%s", snap.Document, snap.Revision, r, debug.Stack())
		}
	}()

	s.parses.Add(1)
	out, err := s.pipeline(s.ctx, snap)
	if err != nil {
		s.failures.Add(1)
		if !errors.Is(err, context.Canceled) {
			log.Printf("Error: pipeline failed for %s (revision %d): %v", snap.Document, snap.Revision, err)
		}
		return
	}
	if out == nil {
		out = &Outcome{}
	}

	doc, ok := s.commit(snap, out.Updates)
	if !ok || out.Notify == nil {
		return
	}
	s.notify(doc, snap, out.Notify)
}

// notify delivers a committed result unless a newer revision of the same
// document was committed or delivered in the meantime.
func (s *Scheduler) notify(doc *document, snap Snapshot, fn func()) {
	doc.notifyMu.Lock()
	defer doc.notifyMu.Unlock()

	if snap.Revision <= doc.notified || snap.Revision < s.sess.Revision(snap.Document) {
		log.Printf("Skipping stale notification for %s (revision %d)", snap.Document, snap.Revision)
		return
	}
	fn()
	doc.notified = snap.Revision
}

// commit writes updates back unless the result is stale. It returns the
// document state the result belongs to.
func (s *Scheduler) commit(snap Snapshot, updates map[session.Key]any) (*document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false
	}
	doc := s.document(snap.Document)
	if snap.Revision < doc.latest {
		s.discards.Add(1)
		log.Printf("Discarding stale result for %s (revision %d < %d)", snap.Document, snap.Revision, doc.latest)
		return nil, false
	}

	ok, err := s.sess.Commit(snap.Document, snap.Revision, updates)
	if err != nil {
		s.failures.Add(1)
		log.Printf("Error: failed to commit %s (revision %d): %v", snap.Document, snap.Revision, err)
		return nil, false
	}
	if !ok {
		s.discards.Add(1)
		log.Printf("Discarding stale result for %s (revision %d already superseded)", snap.Document, snap.Revision)
		return nil, false
	}
	s.commits.Add(1)
	return doc, true
}
