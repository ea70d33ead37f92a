package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/gams-ide/internal/diagnostics"
	"github.com/mvp-joe/gams-ide/internal/reference"
)

// Test Plan for protocol:
// - NewMessage/Decode carry typed data through the envelope
// - Decode of missing data yields the zero value; bad data is an error
// - updateReference flattens the symbol and carries both cursor shapes
// - PositionData.Validate enforces 1-based positions
// - StreamSink writes one JSON line per message
// - ReadMessages skips blank and malformed lines and keeps going after handler errors
// - Known recognizes every protocol command and nothing else

func TestNewMessageDecode(t *testing.T) {
	t.Parallel()

	msg, err := NewMessage(CmdUpdateSymbol, UpdateSymbolData{Symbol: "x", Fuzzy: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"updateSymbol","data":{"symbol":"x","fuzzy":true}}`, mustJSON(t, msg))

	data, err := Decode[UpdateSymbolData](msg)
	require.NoError(t, err)
	assert.Equal(t, UpdateSymbolData{Symbol: "x", Fuzzy: true}, data)

	empty, err := Decode[UpdateSymbolData](Message{Command: CmdUpdateSymbol})
	require.NoError(t, err)
	assert.Equal(t, UpdateSymbolData{}, empty)

	_, err = Decode[PositionData](Message{Command: CmdJumpToPosition, Data: json.RawMessage(`{"line":"one"}`)})
	assert.Error(t, err)

	noData, err := NewMessage(CmdGetState, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"getState"}`, mustJSON(t, noData))
}

func TestReferenceData(t *testing.T) {
	t.Parallel()

	sym := &reference.Symbol{
		ID:         "x@m.gms:3:1",
		Name:       "x",
		Kind:       "VAR",
		Dimension:  2,
		Definition: reference.Position{File: "m.gms", Line: 3, Column: 1},
		Usages: []reference.Usage{
			{Position: reference.Position{File: "m.gms", Line: 3, Column: 1}, Type: reference.RefDeclared},
			{Position: reference.Position{File: "m.gms", Line: 9, Column: 4}, Type: reference.RefRef},
		},
	}

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(mustJSON(t, NewReferenceData(sym, &HistoryCursor{File: "m.gms", Line: 9, Column: 5}))), &got))

	assert.Equal(t, "x", got["name"])
	assert.Equal(t, "VAR", got["type"])
	assert.Equal(t, float64(2), got["dim"])
	assert.Len(t, got["ref"], 1)
	assert.Len(t, got["declared"], 1)
	assert.Empty(t, got["assigned"])
	assert.Equal(t, "m.gms", got["historyCursorFile"])
	assert.Equal(t, float64(9), got["historyCursorLine"])
	assert.Equal(t, float64(5), got["historyCursorColumn"])
	assert.Equal(t, map[string]any{"file": "m.gms", "line": float64(9), "column": float64(5)}, got["historyCursor"])

	require.NoError(t, json.Unmarshal([]byte(mustJSON(t, NewReferenceData(sym, nil))), &got))
	_, hasCursor := got["historyCursor"]
	assert.False(t, hasCursor)
}

func TestPositionData_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pos     PositionData
		wantErr bool
	}{
		{"valid", PositionData{File: "m.gms", Line: 1, Column: 1}, false},
		{"zero line", PositionData{File: "m.gms", Line: 0, Column: 1}, true},
		{"zero column", PositionData{File: "m.gms", Line: 4, Column: 0}, true},
		{"no file", PositionData{Line: 1, Column: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pos.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPosition)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStreamSink(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sink := NewStreamSink(&buf)

	require.NoError(t, sink.PublishDiagnostics("m.gms", nil))
	require.NoError(t, sink.Reveal("m.gms", 4, 2))
	require.NoError(t, sink.PublishDiagnostics("m.gms", []diagnostics.Diagnostic{{
		Severity: diagnostics.SeverityError, Code: 140, Message: "Unknown symbol", Document: "m.gms", Line: 5, Column: 1,
	}}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.JSONEq(t, `{"command":"updateDiagnostics","data":{"document":"m.gms","diagnostics":[]}}`, lines[0])
	assert.JSONEq(t, `{"command":"reveal","data":{"file":"m.gms","line":4,"column":2}}`, lines[1])
	assert.JSONEq(t, `{"command":"updateDiagnostics","data":{"document":"m.gms","diagnostics":[
		{"severity":"error","code":140,"message":"Unknown symbol","document":"m.gms","line":5,"column":1}]}}`, lines[2])
}

func TestReadMessages(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		`{"command":"didOpen","data":{"document":"m.gms","text":"x"}}`,
		``,
		`not json`,
		`{"command":"bogus"}`,
		`{"command":"getState"}`,
	}, "\n")

	var got []Command
	err := ReadMessages(context.Background(), strings.NewReader(input), func(msg Message) error {
		got = append(got, msg.Command)
		if msg.Command == "bogus" {
			return ErrUnknownCommand
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []Command{CmdDidOpen, "bogus", CmdGetState}, got)
}

func TestReadMessages_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := ReadMessages(ctx, strings.NewReader(`{"command":"getState"}`), func(Message) error {
		calls++
		return nil
	})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, calls)
}

func TestCommandKnown(t *testing.T) {
	t.Parallel()

	for _, c := range []Command{CmdUpdateSymbol, CmdJumpToPosition, CmdGetState, CmdDidChangeSelection, CmdRunGams, CmdUpdateDiagnostics} {
		assert.True(t, c.Known(), c)
	}
	assert.False(t, Command("openSidebar").Known())
	assert.False(t, Command("").Known())
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
