package reference

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// DefaultSuggestThreshold is the minimum Jaro-Winkler similarity for Suggest.
const DefaultSuggestThreshold = 0.7

// Index answers symbol lookups over a fixed set of symbols.
// An Index is immutable after NewIndex and safe for concurrent readers.
type Index struct {
	symbols []*Symbol
	byName  map[string][]*Symbol // lower-cased name -> declarations in build order
	byID    map[string]*Symbol
	order   map[string]int // symbol ID -> build position
	deps    *dependencyGraph
}

// NewIndex builds an index. The order of symbols is the build order that
// lookups resolve ties with.
func NewIndex(symbols []*Symbol) *Index {
	idx := &Index{
		symbols: make([]*Symbol, 0, len(symbols)),
		byName:  make(map[string][]*Symbol),
		byID:    make(map[string]*Symbol),
		order:   make(map[string]int),
	}

	for _, sym := range symbols {
		if sym == nil || sym.Name == "" {
			continue
		}
		if sym.ID == "" {
			sym.ID = symbolID(sym.Name, sym.Definition)
		}
		if _, dup := idx.byID[sym.ID]; dup {
			continue
		}
		key := strings.ToLower(sym.Name)
		idx.order[sym.ID] = len(idx.symbols)
		idx.symbols = append(idx.symbols, sym)
		idx.byName[key] = append(idx.byName[key], sym)
		idx.byID[sym.ID] = sym
	}

	idx.deps = buildDependencyGraph(idx.symbols)
	return idx
}

// Len returns the number of indexed symbols.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.symbols)
}

// Symbols returns the indexed symbols in build order.
func (idx *Index) Symbols() []*Symbol {
	if idx == nil {
		return nil
	}
	return append([]*Symbol(nil), idx.symbols...)
}

// ByID returns the symbol with the given ID, or nil.
func (idx *Index) ByID(id string) *Symbol {
	if idx == nil {
		return nil
	}
	return idx.byID[id]
}

// LookupExact returns the first symbol in build order whose name equals name,
// ignoring case, or nil.
func (idx *Index) LookupExact(name string) *Symbol {
	if idx == nil {
		return nil
	}
	if matches := idx.byName[strings.ToLower(name)]; len(matches) > 0 {
		return matches[0]
	}
	return nil
}

// LookupFuzzy returns the first symbol in build order whose name contains
// name, ignoring case, or nil. Matches are not ranked.
func (idx *Index) LookupFuzzy(name string) *Symbol {
	if idx == nil {
		return nil
	}
	needle := strings.ToLower(name)
	for _, sym := range idx.symbols {
		if strings.Contains(strings.ToLower(sym.Name), needle) {
			return sym
		}
	}
	return nil
}

// LookupAll returns every declaration named name, ignoring case.
func (idx *Index) LookupAll(name string) []*Symbol {
	if idx == nil {
		return nil
	}
	return append([]*Symbol(nil), idx.byName[strings.ToLower(name)]...)
}

// Suggest returns up to n distinct symbol names similar to name, most
// similar first. It is meant for lookup misses and never affects lookups.
func (idx *Index) Suggest(name string, n int) []string {
	if idx == nil || name == "" || n <= 0 {
		return nil
	}

	type candidate struct {
		name  string
		score float32
		order int
	}

	needle := strings.ToLower(name)
	seen := make(map[string]bool)
	var candidates []candidate
	for i, sym := range idx.symbols {
		key := strings.ToLower(sym.Name)
		if seen[key] {
			continue
		}
		seen[key] = true

		score, err := edlib.StringsSimilarity(needle, key, edlib.JaroWinkler)
		if err != nil || score < DefaultSuggestThreshold {
			continue
		}
		candidates = append(candidates, candidate{name: sym.Name, score: score, order: i})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].order < candidates[j].order
	})

	if len(candidates) > n {
		candidates = candidates[:n]
	}
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.name
	}
	return names
}

// Dependencies returns the symbols that declarations named name read where
// they are assigned or defined, in build order.
func (idx *Index) Dependencies(name string) []*Symbol {
	if idx == nil {
		return nil
	}
	return idx.related(name, idx.deps.successors)
}

// Dependents returns the symbols whose assignments read a declaration named
// name, in build order.
func (idx *Index) Dependents(name string) []*Symbol {
	if idx == nil {
		return nil
	}
	return idx.related(name, idx.deps.predecessors)
}

func (idx *Index) related(name string, neighbours func(id string) []string) []*Symbol {
	seen := make(map[string]bool)
	var result []*Symbol
	for _, sym := range idx.byName[strings.ToLower(name)] {
		for _, id := range neighbours(sym.ID) {
			if seen[id] {
				continue
			}
			seen[id] = true
			if other := idx.byID[id]; other != nil {
				result = append(result, other)
			}
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return idx.order[result[i].ID] < idx.order[result[j].ID]
	})
	return result
}
