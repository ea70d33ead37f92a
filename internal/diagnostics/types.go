package diagnostics

import (
	"fmt"
	"strings"
)

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SeverityInfo is the default for markers the compiler vocabulary does not name.
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "unknown"
}

// ParseSeverity maps a compiler marker word to a severity.
// Unknown words map to SeverityInfo so no marker is ever dropped.
func ParseSeverity(word string) Severity {
	switch strings.ToLower(strings.TrimSpace(word)) {
	case "error", "errors":
		return SeverityError
	case "warning", "warnings":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	*s = ParseSeverity(string(text))
	return nil
}

// Diagnostic is a positioned compiler message. Positions are 1-based.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     int      `json:"code,omitempty"` // Compiler error number, 0 if none
	Message  string   `json:"message"`
	Document string   `json:"document"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
}

func (d Diagnostic) String() string {
	if d.Code != 0 {
		return fmt.Sprintf("%s:%d:%d: %s %d: %s", d.Document, d.Line, d.Column, d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.Document, d.Line, d.Column, d.Severity, d.Message)
}

// Set is the complete diagnostic batch for one document revision.
// A new Set replaces the previous one; sets are never merged.
type Set struct {
	Document string       `json:"document"`
	Revision int64        `json:"revision"`
	Items    []Diagnostic `json:"items"`
}

// Counts returns the number of errors, warnings and infos in items.
func Counts(items []Diagnostic) (errors, warnings, infos int) {
	for _, d := range items {
		switch d.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		default:
			infos++
		}
	}
	return errors, warnings, infos
}
