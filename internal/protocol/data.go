package protocol

import (
	"fmt"

	"github.com/mvp-joe/gams-ide/internal/diagnostics"
	"github.com/mvp-joe/gams-ide/internal/listing"
	"github.com/mvp-joe/gams-ide/internal/reference"
)

// ListingData is the payload of updateListing.
type ListingData struct {
	LstTree   *listing.Node `json:"lstTree"`
	IsListing bool          `json:"isListing"`
}

// HistoryCursor is the editor position a symbol lookup was made from.
type HistoryCursor struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// ReferenceData is the payload of updateReference: the matched symbol's
// fields plus the cursor the lookup came from, both flat and nested.
type ReferenceData struct {
	ID string `json:"id"`
	reference.View

	HistoryCursorFile   string         `json:"historyCursorFile,omitempty"`
	HistoryCursorLine   int            `json:"historyCursorLine,omitempty"`
	HistoryCursorColumn int            `json:"historyCursorColumn,omitempty"`
	HistoryCursor       *HistoryCursor `json:"historyCursor,omitempty"`
}

// NewReferenceData builds the updateReference payload for sym. A nil
// cursor omits the history fields.
func NewReferenceData(sym *reference.Symbol, cursor *HistoryCursor) ReferenceData {
	d := ReferenceData{ID: sym.ID, View: sym.View()}
	if cursor != nil {
		d.HistoryCursorFile = cursor.File
		d.HistoryCursorLine = cursor.Line
		d.HistoryCursorColumn = cursor.Column
		c := *cursor
		d.HistoryCursor = &c
	}
	return d
}

// SymbolParsingData is the payload of isSymbolParsingEnabled.
type SymbolParsingData struct {
	IsSymbolParsingEnabled bool `json:"isSymbolParsingEnabled"`
}

// ShowData is the payload of showGAMSorListing.
type ShowData struct {
	IsListing bool `json:"isListing"`
}

// DiagnosticsData is the payload of updateDiagnostics. It replaces every
// diagnostic previously published for Document.
type DiagnosticsData struct {
	Document    string                   `json:"document"`
	Diagnostics []diagnostics.Diagnostic `json:"diagnostics"`
}

// SymbolNotFoundData is the payload of symbolNotFound.
type SymbolNotFoundData struct {
	Symbol      string   `json:"symbol"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// SearchResultsData answers searchSymbols.
type SearchResultsData struct {
	Query   string          `json:"query"`
	Results []ReferenceData `json:"results"`
}

// UpdateSymbolData is the payload of the updateSymbol query.
type UpdateSymbolData struct {
	Symbol string `json:"symbol"`
	Fuzzy  bool   `json:"fuzzy"`
}

// SearchSymbolsData is the payload of the searchSymbols query.
type SearchSymbolsData struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// PositionData is a 1-based file position (jumpToPosition, reveal).
type PositionData struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Validate checks the position is 1-based and names a file.
func (p PositionData) Validate() error {
	if p.File == "" {
		return fmt.Errorf("%w: missing file", ErrInvalidPosition)
	}
	if p.Line < 1 || p.Column < 1 {
		return fmt.Errorf("%w: %s:%d:%d", ErrInvalidPosition, p.File, p.Line, p.Column)
	}
	return nil
}

// DocumentData is the payload of didOpen, didChange, didSave and
// didChangeActiveEditor. An empty Document on didChangeActiveEditor means
// no editor is active.
type DocumentData struct {
	Document string `json:"document"`
	Text     string `json:"text,omitempty"`
	Version  int64  `json:"version,omitempty"`
}

// SelectionData is the payload of didChangeSelection. Text is optional when
// the document was opened or changed before.
type SelectionData struct {
	Document string `json:"document"`
	Text     string `json:"text,omitempty"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// ConfigurationData is the payload of didChangeConfiguration.
type ConfigurationData struct {
	ParseSymbolValues *bool `json:"parseSymbolValues,omitempty"`
}
