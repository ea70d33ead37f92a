package reference

import (
	"fmt"
	"strings"
)

// RefType is the kind of reference GAMS records for a symbol occurrence.
type RefType string

const (
	RefDeclared RefType = "declared"
	RefDefined  RefType = "defined"
	RefAssigned RefType = "assigned"
	RefImplAsn  RefType = "impl-asn"
	RefControl  RefType = "control"
	RefRef      RefType = "ref"
	RefIndex    RefType = "index"
)

// writes reports whether the reference changes the symbol's data.
func (t RefType) writes() bool {
	return t == RefDefined || t == RefAssigned || t == RefImplAsn
}

// Position is a 1-based location in a source file.
type Position struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Usage is one recorded occurrence of a symbol.
type Usage struct {
	Position
	Type RefType `json:"type"`
}

// Symbol is a declared model entity with every recorded occurrence.
// Two declarations with the same name are separate symbols, told apart by
// their definition position.
type Symbol struct {
	ID          string   `json:"id"`   // name@file:line:column of the definition, lower-cased name
	Name        string   `json:"name"`
	Kind        string   `json:"type"` // SET, PARAM, VAR, EQU, MODEL, ...
	Dimension   int      `json:"dim"`
	Description string   `json:"description,omitempty"`
	Definition  Position `json:"definition"`
	Usages      []Usage  `json:"usages"`
}

func symbolID(name string, pos Position) string {
	return strings.ToLower(name) + "@" + pos.String()
}

// View is the grouped form of a Symbol used by the reference tree UI.
type View struct {
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	Dim         int        `json:"dim"`
	Description string     `json:"description,omitempty"`
	Definition  Position   `json:"definition"`
	Declared    []Position `json:"declared"`
	Defined     []Position `json:"defined"`
	Assigned    []Position `json:"assigned"`
	ImplAsn     []Position `json:"implAsn"`
	Control     []Position `json:"control"`
	Ref         []Position `json:"ref"`
	Index       []Position `json:"index"`
}

// View groups the symbol's usages by reference type.
func (s *Symbol) View() View {
	v := View{
		Name:        s.Name,
		Type:        s.Kind,
		Dim:         s.Dimension,
		Description: s.Description,
		Definition:  s.Definition,
		Declared:    []Position{},
		Defined:     []Position{},
		Assigned:    []Position{},
		ImplAsn:     []Position{},
		Control:     []Position{},
		Ref:         []Position{},
		Index:       []Position{},
	}
	for _, u := range s.Usages {
		switch u.Type {
		case RefDeclared:
			v.Declared = append(v.Declared, u.Position)
		case RefDefined:
			v.Defined = append(v.Defined, u.Position)
		case RefAssigned:
			v.Assigned = append(v.Assigned, u.Position)
		case RefImplAsn:
			v.ImplAsn = append(v.ImplAsn, u.Position)
		case RefControl:
			v.Control = append(v.Control, u.Position)
		case RefIndex:
			v.Index = append(v.Index, u.Position)
		default:
			v.Ref = append(v.Ref, u.Position)
		}
	}
	return v
}

// Clone returns a copy that shares nothing with s.
func (s *Symbol) Clone() *Symbol {
	if s == nil {
		return nil
	}
	c := *s
	c.Usages = append([]Usage(nil), s.Usages...)
	return &c
}
