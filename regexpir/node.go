// Package regexpir implements the reservation regexp intermediate
// representation: the tagged-variant node type, the
// mini-grammar parser for the source-string syntax, and the
// canonicalization rules that rewrite every expression into
// alternation-of-alternatives form.
package regexpir

import (
	"fmt"
	"strings"
)

// Kind identifies the shape of a Node. The set of shapes is closed, so we
// use a tagged variant with exhaustive matching rather than subtype
// polymorphism.
type Kind uint8

const (
	// NameRef is a pre-resolution reference to a name that may turn out to
	// be a unit or a reservation; the checker's reference-resolution pass
	// rewrites every NameRef into Unit or ReservRef.
	NameRef Kind = iota
	Unit
	ReservRef
	Nothing
	Sequence
	Repeat
	AllOf
	OneOf
)

func (k Kind) String() string {
	switch k {
	case NameRef:
		return "NameRef"
	case Unit:
		return "Unit"
	case ReservRef:
		return "ReservRef"
	case Nothing:
		return "Nothing"
	case Sequence:
		return "Sequence"
	case Repeat:
		return "Repeat"
	case AllOf:
		return "AllOf"
	case OneOf:
		return "OneOf"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Node is a regexp IR node. Only the fields relevant to Kind are valid:
//   - NameRef, Unit, ReservRef: Name
//   - Sequence, AllOf, OneOf: Children
//   - Repeat: Children[0] is the repeated child, Count is the repeat count
//   - Nothing: no fields
type Node struct {
	Kind     Kind
	Name     string
	Children []*Node
	Count    int
}

// NewNameRef builds an unresolved name reference node.
func NewNameRef(name string) *Node { return &Node{Kind: NameRef, Name: name} }

// NewUnit builds a resolved unit-reference node.
func NewUnit(name string) *Node { return &Node{Kind: Unit, Name: name} }

// NewNothing builds the empty-reservation leaf.
func NewNothing() *Node { return &Node{Kind: Nothing} }

// NewSequence builds a sequence node from its elements.
func NewSequence(children ...*Node) *Node { return &Node{Kind: Sequence, Children: children} }

// NewRepeat builds Repeat(child, n).
func NewRepeat(child *Node, n int) *Node {
	return &Node{Kind: Repeat, Children: []*Node{child}, Count: n}
}

// NewAllOf builds a parallel-composition node.
func NewAllOf(children ...*Node) *Node { return &Node{Kind: AllOf, Children: children} }

// NewOneOf builds an alternation node.
func NewOneOf(children ...*Node) *Node { return &Node{Kind: OneOf, Children: children} }

// Clone deep-copies a node tree. Used to inline a ReservRef's referenced
// regexp.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Kind: n.Kind, Name: n.Name, Count: n.Count}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return c
}

// String renders a node tree in a debugging-friendly s-expression form. Not
// used by the compressed tables (textual rendering of those is out of
// scope); only for diagnostics and tests.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case NameRef, Unit, ReservRef:
		return n.Name
	case Nothing:
		return "nothing"
	case Repeat:
		return fmt.Sprintf("%s*%d", n.Children[0].String(), n.Count)
	case Sequence:
		return joinChildren(n.Children, ",")
	case AllOf:
		return joinChildren(n.Children, "+")
	case OneOf:
		return joinChildren(n.Children, "|")
	default:
		return "?"
	}
}

func joinChildren(children []*Node, sep string) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// IsCanonicalAlternative reports whether n is a valid alternative body after
// canonicalization: a Sequence whose elements are each Unit, Nothing, or
// AllOf(Unit|Nothing, ...), or a bare element of one of those shapes (a
// one-element sequence collapses to its element during canonicalization).
func IsCanonicalAlternative(n *Node) bool {
	switch n.Kind {
	case Unit, Nothing:
		return true
	case AllOf:
		for _, c := range n.Children {
			if c.Kind != Unit && c.Kind != Nothing {
				return false
			}
		}
		return true
	case Sequence:
		for _, c := range n.Children {
			if !IsCanonicalAlternative(c) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// IsCanonical reports whether n satisfies the post-canonicalization
// invariant: Nothing, or a top-level OneOf whose
// alternatives are each canonical alternative bodies.
func IsCanonical(n *Node) bool {
	if n.Kind == Nothing {
		return true
	}
	if n.Kind != OneOf {
		return false
	}
	for _, alt := range n.Children {
		if !IsCanonicalAlternative(alt) {
			return false
		}
	}
	return true
}
