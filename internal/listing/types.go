package listing

import (
	"fmt"
	"path/filepath"
	"strings"
)

// NodeKind represents the type of a listing tree node.
type NodeKind string

const (
	KindRoot         NodeKind = "root"
	KindSection      NodeKind = "section"
	KindSolveSummary NodeKind = "solve-summary"
	KindEquation     NodeKind = "equation"
	KindVariable     NodeKind = "variable"
	KindParameter    NodeKind = "parameter"
	KindSet          NodeKind = "set"
	KindSymbol       NodeKind = "symbol"
	KindStatus       NodeKind = "status"
	KindRecord       NodeKind = "record"
	KindErrorSummary NodeKind = "error-summary"
)

// Node is one entry of the listing tree with its position in the listing text.
type Node struct {
	Kind     NodeKind `json:"kind"`
	Label    string   `json:"label"`
	Value    string   `json:"value,omitempty"` // Only set when symbol value parsing is enabled
	Line     int      `json:"line"`            // 1-indexed, 0 for the root
	Column   int      `json:"column"`          // 1-indexed, 0 for the root
	Children []*Node  `json:"children,omitempty"`
}

// Options controls optional parts of the parse.
type Options struct {
	// ParseValues attaches values and record children to symbol entries.
	ParseValues bool
}

// ParseError reports a listing that yielded no usable structure.
// It is returned together with a (possibly empty) tree and is never fatal.
type ParseError struct {
	Reason  string
	Skipped int // Number of non-blank lines that were not recognised
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("listing parse: %s (%d lines skipped)", e.Reason, e.Skipped)
}

// IsListing reports whether path names a GAMS listing file.
func IsListing(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".lst")
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}

// Walk visits n and its descendants depth-first in appearance order.
// Returning false from fn skips the children of that node.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(node *Node, depth int) bool, depth int) {
	if n == nil || !fn(n, depth) {
		return
	}
	for _, child := range n.Children {
		child.walk(fn, depth+1)
	}
}

// Find returns the first node of the given kind whose label matches
// case-insensitively, or nil.
func (n *Node) Find(kind NodeKind, label string) *Node {
	var found *Node
	n.Walk(func(node *Node, _ int) bool {
		if found != nil {
			return false
		}
		if node.Kind == kind && strings.EqualFold(node.Label, label) {
			found = node
			return false
		}
		return true
	})
	return found
}

// Count returns the number of nodes in the subtree, excluding n itself.
func (n *Node) Count() int {
	if n == nil {
		return 0
	}
	total := -1
	n.Walk(func(*Node, int) bool {
		total++
		return true
	})
	return total
}
