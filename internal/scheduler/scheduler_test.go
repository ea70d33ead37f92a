package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/gams-ide/internal/listing"
	"github.com/mvp-joe/gams-ide/internal/session"
)

// Test Plan for Scheduler:
// - Rapid edits within the debounce window produce exactly one parse of the last text
// - Documents debounce independently
// - A result is discarded when a newer revision completed first (r3 before r2)
// - A result is discarded when a newer revision is still pending
// - Notify runs only for committed results
// - Notify calls for one document never deliver an older revision last
// - Pipeline errors and panics are recovered and counted
// - State reports PendingParse / Parsing / Idle
// - Revisions are assigned per document when omitted
// - Submit after Close returns ErrClosed; Close waits for in-flight runs

// recordingPipeline records snapshots and optionally blocks per revision.
type recordingPipeline struct {
	mu       sync.Mutex
	snaps    []Snapshot
	gates    map[int64]chan struct{}
	notified []int64
}

func newRecordingPipeline() *recordingPipeline {
	return &recordingPipeline{gates: make(map[int64]chan struct{})}
}

func (p *recordingPipeline) gate(rev int64) chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan struct{})
	p.gates[rev] = ch
	return ch
}

func (p *recordingPipeline) run(ctx context.Context, snap Snapshot) (*Outcome, error) {
	p.mu.Lock()
	p.snaps = append(p.snaps, snap)
	gate := p.gates[snap.Revision]
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return &Outcome{
		Updates: map[session.Key]any{
			session.KeyListingTree: &listing.Node{Kind: listing.KindRoot, Label: snap.Text},
		},
		Notify: func() {
			p.mu.Lock()
			p.notified = append(p.notified, snap.Revision)
			p.mu.Unlock()
		},
	}, nil
}

func (p *recordingPipeline) snapshots() []Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Snapshot(nil), p.snaps...)
}

func (p *recordingPipeline) notifications() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int64(nil), p.notified...)
}

func committedLabel(sess *session.Session) string {
	if tree := sess.ListingTree(); tree != nil {
		return tree.Label
	}
	return ""
}

func TestSubmit_DebounceCoalesces(t *testing.T) {
	t.Parallel()

	sess := session.New()
	p := newRecordingPipeline()
	s := New(sess, p.run, Options{Debounce: 50 * time.Millisecond})
	defer s.Close()

	for _, text := range []string{"x", "x =", "x = 1;"} {
		_, err := s.Submit(Event{Document: "model.lst", Text: text})
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return s.Stats().Commits == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	snaps := p.snapshots()
	require.Len(t, snaps, 1)
	assert.Equal(t, "x = 1;", snaps[0].Text)
	assert.Equal(t, int64(3), snaps[0].Revision)
	assert.Equal(t, "x = 1;", committedLabel(sess))
	assert.Equal(t, []int64{3}, p.notifications())
}

func TestSubmit_IndependentDocuments(t *testing.T) {
	t.Parallel()

	sess := session.New()
	p := newRecordingPipeline()
	s := New(sess, p.run, Options{Debounce: 30 * time.Millisecond})
	defer s.Close()

	_, err := s.Submit(Event{Document: "a.lst", Text: "a"})
	require.NoError(t, err)
	_, err = s.Submit(Event{Document: "b.lst", Text: "b"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return s.Stats().Commits == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(2), s.Stats().Parses)
	assert.Equal(t, int64(1), sess.Revision("a.lst"))
	assert.Equal(t, int64(1), sess.Revision("b.lst"))
}

func TestWriteBack_OlderRevisionDiscarded(t *testing.T) {
	t.Parallel()

	sess := session.New()
	p := newRecordingPipeline()
	gate2 := p.gate(2)
	gate3 := p.gate(3)
	s := New(sess, p.run, Options{})
	defer s.Close()

	_, err := s.SubmitNow(Event{Document: "m.gms", Text: "r2", Revision: 2})
	require.NoError(t, err)
	_, err = s.SubmitNow(Event{Document: "m.gms", Text: "r3", Revision: 3})
	require.NoError(t, err)

	close(gate3)
	require.Eventually(t, func() bool { return s.Stats().Commits == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "r3", committedLabel(sess))

	close(gate2)
	require.Eventually(t, func() bool { return s.Stats().Discards == 1 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, "r3", committedLabel(sess))
	assert.Equal(t, int64(3), sess.Revision("m.gms"))
	assert.Equal(t, []int64{3}, p.notifications())
}

func TestWriteBack_DiscardedWhenNewerPending(t *testing.T) {
	t.Parallel()

	sess := session.New()
	p := newRecordingPipeline()
	gate1 := p.gate(1)
	s := New(sess, p.run, Options{Debounce: time.Hour})

	_, err := s.SubmitNow(Event{Document: "m.gms", Text: "first"})
	require.NoError(t, err)
	rev, err := s.Submit(Event{Document: "m.gms", Text: "second"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)
	assert.Equal(t, PendingParse, s.State("m.gms"))

	close(gate1)
	require.Eventually(t, func() bool { return s.Stats().Discards == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Close())
	assert.Nil(t, sess.ListingTree())
	assert.Equal(t, int64(0), sess.Revision("m.gms"))
	assert.Empty(t, p.notifications())
}

func TestNotify_DeliveredInRevisionOrder(t *testing.T) {
	t.Parallel()

	sess := session.New()
	entered := make(chan struct{})
	release := make(chan struct{})

	var mu sync.Mutex
	var delivered []int64
	pipeline := func(ctx context.Context, snap Snapshot) (*Outcome, error) {
		return &Outcome{
			Updates: map[session.Key]any{
				session.KeyListingTree: &listing.Node{Kind: listing.KindRoot, Label: snap.Text},
			},
			Notify: func() {
				if snap.Revision == 1 {
					close(entered)
					<-release
				}
				mu.Lock()
				delivered = append(delivered, snap.Revision)
				mu.Unlock()
			},
		}, nil
	}
	s := New(sess, pipeline, Options{})
	defer s.Close()

	_, err := s.SubmitNow(Event{Document: "m.lst", Text: "r1"})
	require.NoError(t, err)
	<-entered

	_, err = s.SubmitNow(Event{Document: "m.lst", Text: "r2"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.Stats().Commits == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "r2", committedLabel(sess))

	close(release)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered) == 2
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{1, 2}, delivered)
}

func TestNotify_SkipsSupersededRevision(t *testing.T) {
	t.Parallel()

	sess := session.New()
	s := New(sess, func(ctx context.Context, snap Snapshot) (*Outcome, error) {
		return nil, nil
	}, Options{})
	defer s.Close()

	doc, ok := s.commit(Snapshot{Document: "m.lst", Revision: 1}, nil)
	require.True(t, ok)
	_, ok = s.commit(Snapshot{Document: "m.lst", Revision: 2}, nil)
	require.True(t, ok)

	var delivered []int64
	s.notify(doc, Snapshot{Document: "m.lst", Revision: 1}, func() { delivered = append(delivered, 1) })
	s.notify(doc, Snapshot{Document: "m.lst", Revision: 2}, func() { delivered = append(delivered, 2) })
	s.notify(doc, Snapshot{Document: "m.lst", Revision: 2}, func() { delivered = append(delivered, 2) })

	assert.Equal(t, []int64{2}, delivered)
}

func TestPipeline_FailuresRecovered(t *testing.T) {
	t.Parallel()

	sess := session.New()
	pipeline := func(ctx context.Context, snap Snapshot) (*Outcome, error) {
		switch snap.Document {
		case "panic.gms":
			panic("boom")
		case "error.gms":
			return nil, errors.New("compile failed")
		}
		return nil, nil
	}
	s := New(sess, pipeline, Options{})
	defer s.Close()

	_, err := s.SubmitNow(Event{Document: "panic.gms"})
	require.NoError(t, err)
	_, err = s.SubmitNow(Event{Document: "error.gms"})
	require.NoError(t, err)
	_, err = s.SubmitNow(Event{Document: "ok.gms"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		st := s.Stats()
		return st.Failures == 2 && st.Commits == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, int64(0), sess.Revision("panic.gms"))
	assert.Equal(t, int64(0), sess.Revision("error.gms"))
	assert.Equal(t, int64(1), sess.Revision("ok.gms"))
}

func TestState(t *testing.T) {
	t.Parallel()

	sess := session.New()
	p := newRecordingPipeline()
	gate := p.gate(1)
	s := New(sess, p.run, Options{Debounce: 100 * time.Millisecond})
	defer s.Close()

	assert.Equal(t, Idle, s.State("m.lst"))

	_, err := s.Submit(Event{Document: "m.lst", Text: "t"})
	require.NoError(t, err)
	assert.Equal(t, PendingParse, s.State("m.lst"))

	require.Eventually(t, func() bool { return s.State("m.lst") == Parsing }, 2*time.Second, 2*time.Millisecond)

	close(gate)
	require.Eventually(t, func() bool { return s.State("m.lst") == Idle }, 2*time.Second, 2*time.Millisecond)
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "parsing", Parsing.String())
}

func TestRevisions_AssignedPerDocument(t *testing.T) {
	t.Parallel()

	s := New(session.New(), newRecordingPipeline().run, Options{Debounce: time.Hour})
	defer s.Close()

	for want := int64(1); want <= 3; want++ {
		rev, err := s.Submit(Event{Document: "a.gms"})
		require.NoError(t, err)
		assert.Equal(t, want, rev)
	}
	rev, err := s.Submit(Event{Document: "b.gms"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)

	rev, err = s.Submit(Event{Document: "a.gms", Revision: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(10), rev)
	rev, err = s.Submit(Event{Document: "a.gms"})
	require.NoError(t, err)
	assert.Equal(t, int64(11), rev)
}

func TestClose(t *testing.T) {
	t.Parallel()

	p := newRecordingPipeline()
	p.gate(1) // never released; Close must cancel it
	s := New(session.New(), p.run, Options{})

	_, err := s.SubmitNow(Event{Document: "m.gms"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(p.snapshots()) == 1 }, 2*time.Second, 2*time.Millisecond)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, int64(1), s.Stats().Failures)

	_, err = s.Submit(Event{Document: "m.gms"})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.SubmitNow(Event{Document: "m.gms"})
	assert.ErrorIs(t, err, ErrClosed)
}
