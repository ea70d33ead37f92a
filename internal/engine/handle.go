package engine

import (
	"context"
	"fmt"

	"github.com/mvp-joe/gams-ide/internal/listing"
	"github.com/mvp-joe/gams-ide/internal/protocol"
	"github.com/mvp-joe/gams-ide/internal/reference"
	"github.com/mvp-joe/gams-ide/internal/session"
)

// maxSuggestions bounds the suggestions sent with symbolNotFound.
const maxSuggestions = 5

// Handle dispatches one incoming message. Commands the engine only sends,
// or does not know, return ErrUnknownCommand; terminal management commands
// return ErrUnsupportedCommand.
func (e *Engine) Handle(ctx context.Context, msg protocol.Message) error {
	switch msg.Command {
	case protocol.CmdUpdateSymbol:
		data, err := protocol.Decode[protocol.UpdateSymbolData](msg)
		if err != nil {
			return err
		}
		return e.updateSymbol(data.Symbol, data.Fuzzy)

	case protocol.CmdJumpToPosition:
		data, err := protocol.Decode[protocol.PositionData](msg)
		if err != nil {
			return err
		}
		if err := data.Validate(); err != nil {
			return err
		}
		return e.sink.Reveal(data.File, data.Line, data.Column)

	case protocol.CmdGetState:
		e.getState()
		return nil

	case protocol.CmdEnableSymbolParsing:
		data, err := protocol.Decode[protocol.SymbolParsingData](msg)
		if err != nil {
			return err
		}
		return e.SetSymbolParsing(data.IsSymbolParsingEnabled)

	case protocol.CmdSearchSymbols:
		data, err := protocol.Decode[protocol.SearchSymbolsData](msg)
		if err != nil {
			return err
		}
		return e.searchSymbols(ctx, data.Query, data.Limit)

	case protocol.CmdDidOpen, protocol.CmdDidChange, protocol.CmdDidSave, protocol.CmdDidChangeActiveEditor:
		data, err := protocol.Decode[protocol.DocumentData](msg)
		if err != nil {
			return err
		}
		switch msg.Command {
		case protocol.CmdDidOpen:
			return e.Open(data.Document, data.Text, data.Version)
		case protocol.CmdDidChange:
			return e.Change(data.Document, data.Text, data.Version)
		case protocol.CmdDidSave:
			return e.Save(data.Document, data.Text, data.Version)
		default:
			return e.Activate(data.Document, data.Text)
		}

	case protocol.CmdDidChangeSelection:
		data, err := protocol.Decode[protocol.SelectionData](msg)
		if err != nil {
			return err
		}
		return e.Cursor(data.Document, data.Text, data.Line, data.Column)

	case protocol.CmdDidChangeConfiguration:
		data, err := protocol.Decode[protocol.ConfigurationData](msg)
		if err != nil {
			return err
		}
		if data.ParseSymbolValues == nil {
			return nil
		}
		return e.SetSymbolParsing(*data.ParseSymbolValues)

	case protocol.CmdRunGams, protocol.CmdStopGams:
		return fmt.Errorf("%w: %s", protocol.ErrUnsupportedCommand, msg.Command)
	}

	return fmt.Errorf("%w: %q", protocol.ErrUnknownCommand, string(msg.Command))
}

// updateSymbol looks up a symbol by name. A hit becomes the current symbol;
// a miss is reported with similar names.
func (e *Engine) updateSymbol(name string, fuzzy bool) error {
	idx := e.sess.ReferenceIndex()

	var sym *reference.Symbol
	if fuzzy {
		sym = idx.LookupFuzzy(name)
	} else {
		sym = idx.LookupExact(name)
	}

	if sym == nil {
		e.post(protocol.CmdSymbolNotFound, protocol.SymbolNotFoundData{
			Symbol:      name,
			Suggestions: idx.Suggest(name, maxSuggestions),
		})
		return nil
	}

	if err := e.sess.Set(session.KeyCurrentSymbol, sym); err != nil {
		return err
	}
	e.post(protocol.CmdUpdateReference, protocol.NewReferenceData(sym, e.lastCursor()))
	return nil
}

// getState replays the panel state: the symbol parsing flag, then the
// listing tree when a listing is active, or the current symbol otherwise.
func (e *Engine) getState() {
	e.post(protocol.CmdIsSymbolParsingEnabled, protocol.SymbolParsingData{
		IsSymbolParsingEnabled: e.settings.ParseSymbolValues(),
	})

	state := e.sess.Snapshot()
	if active := e.Active(); active != "" && listing.IsListing(active) {
		tree, _ := state[session.KeyListingTree].(*listing.Node)
		e.post(protocol.CmdUpdateListing, protocol.ListingData{
			LstTree:   tree.Clone(),
			IsListing: true,
		})
		return
	}

	if sym, _ := state[session.KeyCurrentSymbol].(*reference.Symbol); sym != nil {
		e.post(protocol.CmdUpdateReference, protocol.NewReferenceData(sym, e.lastCursor()))
	}
}

// searchSymbols answers a full-text query over the current reference index.
func (e *Engine) searchSymbols(ctx context.Context, query string, limit int) error {
	e.searchMu.Lock()
	defer e.searchMu.Unlock()

	searcher, err := e.currentSearcher(ctx)
	if err != nil {
		return err
	}

	results := []protocol.ReferenceData{}
	if searcher != nil {
		hits, err := searcher.Search(ctx, query, limit)
		if err != nil {
			return err
		}
		for _, hit := range hits {
			results = append(results, protocol.NewReferenceData(hit.Symbol, nil))
		}
	}

	e.post(protocol.CmdSearchSymbols, protocol.SearchResultsData{Query: query, Results: results})
	return nil
}

// currentSearcher returns a searcher over the session's reference index,
// rebuilding it when the index was replaced. It returns nil when there is
// no index yet. Caller holds e.searchMu.
func (e *Engine) currentSearcher(ctx context.Context) (*reference.Searcher, error) {
	idx := e.sess.ReferenceIndex()
	if idx == nil {
		return nil, nil
	}
	if e.searcher != nil && e.searchIndex == idx {
		return e.searcher, nil
	}

	searcher, err := reference.NewSearcher(ctx, idx)
	if err != nil {
		return nil, fmt.Errorf("failed to build symbol search index: %w", err)
	}
	if e.searcher != nil {
		e.searcher.Close()
	}
	e.searcher = searcher
	e.searchIndex = idx
	return searcher, nil
}
