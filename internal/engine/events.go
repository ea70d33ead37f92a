package engine

import (
	"log"

	"github.com/mvp-joe/gams-ide/internal/listing"
	"github.com/mvp-joe/gams-ide/internal/protocol"
	"github.com/mvp-joe/gams-ide/internal/reference"
	"github.com/mvp-joe/gams-ide/internal/scheduler"
	"github.com/mvp-joe/gams-ide/internal/session"
)

// Open schedules an immediate parse of a newly opened document.
func (e *Engine) Open(document, text string, version int64) error {
	return e.submit(document, text, version, true)
}

// Change schedules a debounced parse of an edited document.
func (e *Engine) Change(document, text string, version int64) error {
	return e.submit(document, text, version, false)
}

// Save schedules an immediate parse of a saved document. An empty text
// parses the file on disk.
func (e *Engine) Save(document, text string, version int64) error {
	if text == "" {
		e.forget(document)
	}
	return e.submit(document, text, version, true)
}

func (e *Engine) submit(document, text string, version int64, now bool) error {
	if e.staleVersion(document, version) {
		log.Printf("Ignoring stale version %d of %s", version, document)
		return nil
	}

	text, err := e.remember(document, text)
	if err != nil {
		return err
	}

	ev := scheduler.Event{Document: document, Text: text}
	if now {
		_, err = e.sched.SubmitNow(ev)
	} else {
		_, err = e.sched.Submit(ev)
	}
	return err
}

func (e *Engine) forget(document string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.texts, document)
}

// Activate records the active editor and tells the panel whether it shows
// a listing. An empty document means no editor is active. Documents with
// text are parsed immediately.
func (e *Engine) Activate(document, text string) error {
	e.mu.Lock()
	e.active = document
	e.mu.Unlock()

	if document == "" {
		return nil
	}

	e.post(protocol.CmdShowGAMSorListing, protocol.ShowData{IsListing: listing.IsListing(document)})
	if text == "" {
		return nil
	}
	return e.submit(document, text, 0, true)
}

// Cursor records the editor position and resolves the identifier under it
// against the reference index. A known symbol becomes the current symbol and
// is sent with the position as its history entry. Anything else is ignored.
func (e *Engine) Cursor(document, text string, line, column int) error {
	cursor := &protocol.HistoryCursor{File: document, Line: line, Column: column}
	e.mu.Lock()
	e.cursor = cursor
	e.mu.Unlock()

	if text == "" {
		text = e.text(document)
	}
	word := reference.WordAt(text, line, column)
	if word == "" {
		return nil
	}

	sym := e.sess.ReferenceIndex().LookupExact(word)
	if sym == nil {
		return nil
	}

	if err := e.sess.Set(session.KeyCurrentSymbol, sym); err != nil {
		return err
	}
	e.post(protocol.CmdUpdateReference, protocol.NewReferenceData(sym, cursor))
	return nil
}

// lastCursor returns the most recent editor position, or nil.
func (e *Engine) lastCursor() *protocol.HistoryCursor {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cursor == nil {
		return nil
	}
	c := *e.cursor
	return &c
}

// SetSymbolParsing toggles symbol value parsing and reports the new state.
// Enabling it re-parses the active document.
func (e *Engine) SetSymbolParsing(enabled bool) error {
	changed := e.settings.SetParseSymbolValues(enabled)
	e.post(protocol.CmdIsSymbolParsingEnabled, protocol.SymbolParsingData{IsSymbolParsingEnabled: enabled})

	if !changed || !enabled {
		return nil
	}
	active := e.Active()
	if active == "" {
		return nil
	}
	return e.submit(active, "", 0, true)
}

// ListingsChanged submits listings rewritten on disk, typically by a running
// solve. Unreadable files are logged and skipped.
func (e *Engine) ListingsChanged(files []string) {
	for _, file := range files {
		e.forget(file)
		if err := e.submit(file, "", 0, true); err != nil {
			log.Printf("Warning: failed to submit %s: %v", file, err)
		}
	}
}
