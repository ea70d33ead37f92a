package reference

import (
	"errors"
	"log"

	"github.com/dominikbraun/graph"
)

// dependencyGraph links symbols that are written on a source line to the
// symbols read on that same line.
type dependencyGraph struct {
	out map[string]map[string]graph.Edge[string] // adjacency
	in  map[string]map[string]graph.Edge[string] // predecessors
}

type lineKey struct {
	file string
	line int
}

func buildDependencyGraph(symbols []*Symbol) *dependencyGraph {
	g := graph.New(func(s *Symbol) string { return s.ID }, graph.Directed())

	type lineRefs struct {
		writers []string
		readers []string
	}
	lines := make(map[lineKey]*lineRefs)
	var lineOrder []lineKey

	for _, sym := range symbols {
		if err := g.AddVertex(sym); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
			log.Printf("Warning: failed to add symbol %s to reference graph: %v", sym.ID, err)
			continue
		}
		for _, u := range sym.Usages {
			key := lineKey{file: u.File, line: u.Line}
			refs, ok := lines[key]
			if !ok {
				refs = &lineRefs{}
				lines[key] = refs
				lineOrder = append(lineOrder, key)
			}
			switch {
			case u.Type.writes():
				refs.writers = append(refs.writers, sym.ID)
			case u.Type == RefRef || u.Type == RefControl || u.Type == RefIndex:
				refs.readers = append(refs.readers, sym.ID)
			}
		}
	}

	for _, key := range lineOrder {
		refs := lines[key]
		for _, from := range refs.writers {
			for _, to := range refs.readers {
				if from == to {
					continue
				}
				if err := g.AddEdge(from, to); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
					log.Printf("Warning: failed to link %s -> %s: %v", from, to, err)
				}
			}
		}
	}

	dg := &dependencyGraph{}
	var err error
	if dg.out, err = g.AdjacencyMap(); err != nil {
		log.Printf("Warning: failed to build reference adjacency: %v", err)
	}
	if dg.in, err = g.PredecessorMap(); err != nil {
		log.Printf("Warning: failed to build reference predecessors: %v", err)
	}
	return dg
}

func (d *dependencyGraph) successors(id string) []string {
	return keys(d.out[id])
}

func (d *dependencyGraph) predecessors(id string) []string {
	return keys(d.in[id])
}

func keys(m map[string]graph.Edge[string]) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
