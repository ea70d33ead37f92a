package reference

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// DefaultSearchLimit caps Search results when no limit is given.
const DefaultSearchLimit = 20

// SearchResult is a ranked symbol match.
type SearchResult struct {
	Symbol *Symbol `json:"symbol"`
	Score  float64 `json:"score"`
}

// Searcher provides ranked full-text search over symbol names and
// descriptions. It is independent of LookupFuzzy, which stays first-match.
type Searcher struct {
	index bleve.Index
	idx   *Index
}

// NewSearcher indexes every symbol of idx in an in-memory bleve index.
func NewSearcher(ctx context.Context, idx *Index) (*Searcher, error) {
	indexMapping, err := buildSymbolMapping()
	if err != nil {
		return nil, err
	}
	index, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create symbol index: %w", err)
	}

	batch := index.NewBatch()
	for i, sym := range idx.Symbols() {
		if i%500 == 0 {
			select {
			case <-ctx.Done():
				index.Close()
				return nil, ctx.Err()
			default:
			}
		}
		doc := map[string]interface{}{
			"name":        sym.Name,
			"kind":        sym.Kind,
			"description": sym.Description,
		}
		if err := batch.Index(sym.ID, doc); err != nil {
			index.Close()
			return nil, fmt.Errorf("failed to add symbol %s to batch: %w", sym.ID, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to execute batch: %w", err)
	}

	return &Searcher{index: index, idx: idx}, nil
}

// symbolNameAnalyzer tokenizes names without stop words, so "a" or "in"
// stay searchable symbol names.
const symbolNameAnalyzer = "symbol_name"

// buildSymbolMapping creates the index mapping for symbol documents.
func buildSymbolMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()
	err := indexMapping.AddCustomAnalyzer(symbolNameAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register name analyzer: %w", err)
	}

	nameMapping := bleve.NewTextFieldMapping()
	nameMapping.Analyzer = symbolNameAnalyzer
	nameMapping.Store = false

	kindMapping := bleve.NewTextFieldMapping()
	kindMapping.Analyzer = "keyword"
	kindMapping.Store = false

	descMapping := bleve.NewTextFieldMapping()
	descMapping.Analyzer = "standard"
	descMapping.Store = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("name", nameMapping)
	docMapping.AddFieldMappingsAt("kind", kindMapping)
	docMapping.AddFieldMappingsAt("description", descMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping, nil
}

// Search returns symbols ranked by how well their name or description
// matches text. Names match by prefix and with one edit of fuzziness.
func (s *Searcher) Search(ctx context.Context, text string, limit int) ([]SearchResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	nameMatch := bleve.NewMatchQuery(text)
	nameMatch.SetField("name")
	nameMatch.SetFuzziness(1)
	nameMatch.SetBoost(2)

	namePrefix := bleve.NewPrefixQuery(strings.ToLower(text))
	namePrefix.SetField("name")
	namePrefix.SetBoost(1.5)

	descMatch := bleve.NewMatchQuery(text)
	descMatch.SetField("description")

	q := bleve.NewDisjunctionQuery([]query.Query{nameMatch, namePrefix, descMatch}...)
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("symbol search failed: %w", err)
	}

	results := make([]SearchResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if sym := s.idx.ByID(hit.ID); sym != nil {
			results = append(results, SearchResult{Symbol: sym, Score: hit.Score})
		}
	}
	return results, nil
}

// Close releases the search index.
func (s *Searcher) Close() error {
	return s.index.Close()
}
