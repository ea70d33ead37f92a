package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mvp-joe/gams-ide/internal/diagnostics"
	"github.com/mvp-joe/gams-ide/internal/listing"
	"github.com/mvp-joe/gams-ide/internal/reference"
)

// Key names one of the artifacts a Session holds.
type Key string

const (
	KeyListingTree   Key = "listingTree"
	KeyDiagnostics   Key = "diagnostics"
	KeyReferenceTree Key = "referenceTree"
	KeyCurrentSymbol Key = "curSymbol"
)

var (
	// ErrUnknownKey is returned for keys outside the closed key set.
	ErrUnknownKey = errors.New("unknown session key")
	// ErrInvalidValue is returned when a value has the wrong type for its key.
	ErrInvalidValue = errors.New("invalid session value")
)

// Valid reports whether k is in the closed key set.
func (k Key) Valid() bool {
	switch k {
	case KeyListingTree, KeyDiagnostics, KeyReferenceTree, KeyCurrentSymbol:
		return true
	}
	return false
}

// Session is the single process-wide store of derived artifacts.
// Readers never observe a partially applied Commit.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.RWMutex
	values    map[Key]any
	revisions map[string]int64 // document -> last committed revision
}

// New creates an empty session.
func New() *Session {
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		values:    make(map[Key]any),
		revisions: make(map[string]int64),
	}
}

// Get returns the value stored under key.
func (s *Session) Get(key Key) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key. Last write wins.
func (s *Session) Set(key Key, value any) error {
	if err := checkValue(key, value); err != nil {
		return err
	}
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return nil
}

// Commit applies updates as one atomic write iff revision is newer than the
// last revision committed for document. It returns false for stale results;
// nothing is applied in that case.
func (s *Session) Commit(document string, revision int64, updates map[Key]any) (bool, error) {
	for key, value := range updates {
		if err := checkValue(key, value); err != nil {
			return false, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.revisions[document]; ok && revision <= last {
		return false, nil
	}
	for key, value := range updates {
		s.values[key] = value
	}
	s.revisions[document] = revision
	return true, nil
}

// Revision returns the last committed revision for document, 0 if none.
func (s *Session) Revision(document string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revisions[document]
}

// Snapshot returns a shallow copy of every stored value, taken under one
// lock so values committed together are read together.
func (s *Session) Snapshot() map[Key]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Key]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// ListingTree returns a copy of the stored listing tree, or nil.
func (s *Session) ListingTree() *listing.Node {
	v, _ := s.Get(KeyListingTree)
	node, _ := v.(*listing.Node)
	return node.Clone()
}

// Diagnostics returns a copy of the stored diagnostics.
func (s *Session) Diagnostics() []diagnostics.Diagnostic {
	v, _ := s.Get(KeyDiagnostics)
	items, _ := v.([]diagnostics.Diagnostic)
	if items == nil {
		return nil
	}
	return append([]diagnostics.Diagnostic(nil), items...)
}

// ReferenceIndex returns the stored reference index, or nil.
// Indexes are immutable, so the value is shared.
func (s *Session) ReferenceIndex() *reference.Index {
	v, _ := s.Get(KeyReferenceTree)
	idx, _ := v.(*reference.Index)
	return idx
}

// CurrentSymbol returns a copy of the symbol under the cursor, or nil.
func (s *Session) CurrentSymbol() *reference.Symbol {
	v, _ := s.Get(KeyCurrentSymbol)
	sym, _ := v.(*reference.Symbol)
	return sym.Clone()
}

func checkValue(key Key, value any) error {
	if !key.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKey, string(key))
	}
	if value == nil {
		return nil
	}

	ok := false
	switch key {
	case KeyListingTree:
		_, ok = value.(*listing.Node)
	case KeyDiagnostics:
		_, ok = value.([]diagnostics.Diagnostic)
	case KeyReferenceTree:
		_, ok = value.(*reference.Index)
	case KeyCurrentSymbol:
		_, ok = value.(*reference.Symbol)
	}
	if !ok {
		return fmt.Errorf("%w: %T for %s", ErrInvalidValue, value, key)
	}
	return nil
}
