package engine

import (
	"context"
	"log"
	"strings"

	"github.com/mvp-joe/gams-ide/internal/diagnostics"
	"github.com/mvp-joe/gams-ide/internal/listing"
	"github.com/mvp-joe/gams-ide/internal/protocol"
	"github.com/mvp-joe/gams-ide/internal/reference"
	"github.com/mvp-joe/gams-ide/internal/scheduler"
	"github.com/mvp-joe/gams-ide/internal/session"
)

// pipeline derives session artifacts from one document snapshot. Listings
// are parsed directly; GAMS sources go through the compiler first.
func (e *Engine) pipeline(ctx context.Context, snap scheduler.Snapshot) (*scheduler.Outcome, error) {
	if listing.IsListing(snap.Document) {
		return e.parseListing(snap), nil
	}
	return e.compileSource(ctx, snap)
}

func (e *Engine) listingOptions() listing.Options {
	return listing.Options{ParseValues: e.settings.ParseSymbolValues()}
}

// parseListing parses a listing document. A parse failure is reported as a
// diagnostic and the partial tree is still committed.
func (e *Engine) parseListing(snap scheduler.Snapshot) *scheduler.Outcome {
	tree, err := listing.Parse(snap.Text, e.listingOptions())
	diags := diagnostics.Extract(snap.Text, snap.Document)
	if err != nil {
		log.Printf("Warning: %s: %v", snap.Document, err)
		diags = append(diags, diagnostics.FromParseError(snap.Document, err))
	}

	return &scheduler.Outcome{
		Updates: map[session.Key]any{
			session.KeyListingTree: tree,
			session.KeyDiagnostics: diags,
		},
		Notify: func() {
			e.publish(snap.Document, diags)
			e.post(protocol.CmdUpdateListing, protocol.ListingData{LstTree: tree, IsListing: true})
		},
	}
}

// compileSource compiles a GAMS source and indexes its reference file. When
// the compiler cannot be run, one synthetic diagnostic is published and the
// stored artifacts are left untouched.
func (e *Engine) compileSource(ctx context.Context, snap scheduler.Snapshot) (*scheduler.Outcome, error) {
	out, err := e.compiler.Compile(ctx, snap.Document, snap.Text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("Warning: %v", err)
		diag := diagnostics.Synthetic(snap.Document, err)
		return &scheduler.Outcome{
			Notify: func() {
				e.publish(snap.Document, []diagnostics.Diagnostic{diag})
			},
		}, nil
	}

	diags := diagnostics.Extract(out.Listing, snap.Document)
	if len(diags) == 0 {
		diags = diagnostics.Extract(out.Log, snap.Document)
	}

	symbols, err := reference.ParseRefFile(strings.NewReader(out.Reference))
	if err != nil {
		log.Printf("Warning: failed to read reference file for %s: %v", snap.Document, err)
	}
	idx := reference.NewIndex(symbols)

	// A compiled listing that fails to parse still yields an empty tree.
	tree, _ := listing.Parse(out.Listing, e.listingOptions())

	return &scheduler.Outcome{
		Updates: map[session.Key]any{
			session.KeyListingTree:   tree,
			session.KeyDiagnostics:   diags,
			session.KeyReferenceTree: idx,
		},
		Notify: func() {
			e.publish(snap.Document, diags)
			e.post(protocol.CmdUpdateListing, protocol.ListingData{LstTree: tree, IsListing: false})
		},
	}, nil
}

// publish sends diagnostics grouped by document. The compiled document is
// always published so stale markers are cleared.
func (e *Engine) publish(document string, diags []diagnostics.Diagnostic) {
	groups := map[string][]diagnostics.Diagnostic{document: nil}
	order := []string{document}
	for _, d := range diags {
		if _, ok := groups[d.Document]; !ok {
			order = append(order, d.Document)
		}
		groups[d.Document] = append(groups[d.Document], d)
	}

	for _, doc := range order {
		if err := e.sink.PublishDiagnostics(doc, groups[doc]); err != nil {
			log.Printf("Warning: failed to publish diagnostics for %s: %v", doc, err)
		}
	}
}
