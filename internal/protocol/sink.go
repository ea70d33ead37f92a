package protocol

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/mvp-joe/gams-ide/internal/diagnostics"
)

// Sink is the presentation side: the view, the diagnostics panel and the
// editor.
type Sink interface {
	// Post sends a message to the view.
	Post(msg Message) error
	// PublishDiagnostics replaces the diagnostics shown for document.
	PublishDiagnostics(document string, items []diagnostics.Diagnostic) error
	// Reveal opens file with the cursor at a 1-based position.
	Reveal(file string, line, column int) error
}

// StreamSink writes every outgoing message as one JSON line.
type StreamSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewStreamSink creates a sink writing JSON lines to w.
func NewStreamSink(w io.Writer) *StreamSink {
	return &StreamSink{enc: json.NewEncoder(w)}
}

// Post writes msg.
func (s *StreamSink) Post(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(msg); err != nil {
		return fmt.Errorf("failed to write %s: %w", msg.Command, err)
	}
	return nil
}

// PublishDiagnostics writes an updateDiagnostics message.
func (s *StreamSink) PublishDiagnostics(document string, items []diagnostics.Diagnostic) error {
	if items == nil {
		items = []diagnostics.Diagnostic{}
	}
	msg, err := NewMessage(CmdUpdateDiagnostics, DiagnosticsData{Document: document, Diagnostics: items})
	if err != nil {
		return err
	}
	return s.Post(msg)
}

// Reveal writes a reveal message.
func (s *StreamSink) Reveal(file string, line, column int) error {
	msg, err := NewMessage(CmdReveal, PositionData{File: file, Line: line, Column: column})
	if err != nil {
		return err
	}
	return s.Post(msg)
}

// maxMessageSize bounds one incoming JSON line; didChange carries whole files.
const maxMessageSize = 64 * 1024 * 1024

// ReadMessages reads JSON-lines messages from r and calls fn for each until
// r is exhausted or ctx is cancelled. Malformed lines and handler errors are
// logged and skipped.
func ReadMessages(ctx context.Context, r io.Reader, fn func(Message) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxMessageSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var msg Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			log.Printf("Warning: skipping malformed message: %v", err)
			continue
		}
		if err := fn(msg); err != nil {
			log.Printf("Warning: failed to handle %s: %v", msg.Command, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read messages: %w", err)
	}
	return ctx.Err()
}
