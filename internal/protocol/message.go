package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Command names a message in either direction.
type Command string

// Outgoing commands, posted to the presentation sink.
const (
	CmdUpdateListing          Command = "updateListing"
	CmdUpdateReference        Command = "updateReference"
	CmdIsSymbolParsingEnabled Command = "isSymbolParsingEnabled"
	CmdShowGAMSorListing      Command = "showGAMSorListing"
	CmdUpdateDiagnostics      Command = "updateDiagnostics"
	CmdReveal                 Command = "reveal"
	CmdSymbolNotFound         Command = "symbolNotFound"
)

// Incoming queries from the presentation sink.
const (
	CmdUpdateSymbol        Command = "updateSymbol"
	CmdJumpToPosition      Command = "jumpToPosition"
	CmdGetState            Command = "getState"
	CmdEnableSymbolParsing Command = "enableSymbolParsing"
	CmdSearchSymbols       Command = "searchSymbols"
)

// Incoming host events.
const (
	CmdDidOpen                Command = "didOpen"
	CmdDidChange              Command = "didChange"
	CmdDidSave                Command = "didSave"
	CmdDidChangeActiveEditor  Command = "didChangeActiveEditor"
	CmdDidChangeSelection     Command = "didChangeSelection"
	CmdDidChangeConfiguration Command = "didChangeConfiguration"
)

// Terminal management commands. Recognized, never handled.
const (
	CmdRunGams  Command = "runGams"
	CmdStopGams Command = "stopGams"
)

var (
	// ErrUnknownCommand is returned for commands outside the protocol.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrUnsupportedCommand is returned for terminal management commands.
	ErrUnsupportedCommand = errors.New("unsupported command")
	// ErrInvalidPosition is returned for positions that are not 1-based.
	ErrInvalidPosition = errors.New("invalid position")
)

// Message is the command/data envelope exchanged with the host.
type Message struct {
	Command Command         `json:"command"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewMessage encodes data into an envelope.
func NewMessage(cmd Command, data any) (Message, error) {
	if data == nil {
		return Message{Command: cmd}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode %s data: %w", cmd, err)
	}
	return Message{Command: cmd, Data: raw}, nil
}

// Decode unmarshals the envelope's data into T. Missing data decodes to
// the zero value.
func Decode[T any](msg Message) (T, error) {
	var v T
	if len(msg.Data) == 0 || string(msg.Data) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(msg.Data, &v); err != nil {
		return v, fmt.Errorf("failed to decode %s data: %w", msg.Command, err)
	}
	return v, nil
}

// Known reports whether cmd is part of the protocol.
func (c Command) Known() bool {
	switch c {
	case CmdUpdateListing, CmdUpdateReference, CmdIsSymbolParsingEnabled,
		CmdShowGAMSorListing, CmdUpdateDiagnostics, CmdReveal, CmdSymbolNotFound,
		CmdUpdateSymbol, CmdJumpToPosition, CmdGetState, CmdEnableSymbolParsing,
		CmdSearchSymbols,
		CmdDidOpen, CmdDidChange, CmdDidSave, CmdDidChangeActiveEditor,
		CmdDidChangeSelection, CmdDidChangeConfiguration,
		CmdRunGams, CmdStopGams:
		return true
	}
	return false
}
