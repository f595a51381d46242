package regexpir

import "fmt"

// CanonError reports a problem discovered while canonicalizing a regexp,
// specifically an out-of-range repeat count. This is a user error, not an
// internal invariant violation, so it is returned rather than panicked.
type CanonError struct {
	Msg string
}

func (e *CanonError) Error() string { return "regexpir: " + e.Msg }

// maxCanonPasses bounds the fixed-point loop as a defensive guard against a
// non-terminating rewrite (which would indicate a bug in the rules below,
// not a legitimate pathological input); it is far above anything a real
// reservation regexp needs.
const maxCanonPasses = 100000

// Canonicalize rewrites a parsed, name-resolved regexp tree (no NameRef
// nodes remain; the checker has already resolved them to Unit/ReservRef and
// inlined every ReservRef) into the canonical
// alternation-of-alternatives form: the root
// is Nothing, or OneOf whose alternatives are Sequences of Unit, Nothing, or
// AllOf(Unit|Nothing, ...).
//
// Applies the unroll, flatten and distribute rules (including the
// parallel-composition alignment rule) to a fixed point.
func Canonicalize(root *Node) (*Node, error) {
	cur := root
	for i := 0; i < maxCanonPasses; i++ {
		next, changed, err := pass(cur)
		if err != nil {
			return nil, err
		}
		if !changed {
			if next.Kind != OneOf && next.Kind != Nothing {
				// A root that settled as a bare alternative (no "|" ever
				// appeared) still needs the top-level OneOf wrapper the
				// invariant requires.
				next = NewOneOf(next)
			}
			if !IsCanonical(next) {
				panic(fmt.Sprintf("regexpir: internal invariant violated, non-canonical result %s", next))
			}
			return next, nil
		}
		cur = next
	}
	panic("regexpir: canonicalization did not converge")
}

// pass performs one bottom-up rewrite pass and reports whether anything
// changed anywhere in the tree.
func pass(n *Node) (*Node, bool, error) {
	if n.Kind == Unit || n.Kind == Nothing || n.Kind == ReservRef || n.Kind == NameRef {
		return n, false, nil
	}

	changedBelow := false
	newChildren := make([]*Node, len(n.Children))
	for i, c := range n.Children {
		nc, ch, err := pass(c)
		if err != nil {
			return nil, false, err
		}
		newChildren[i] = nc
		changedBelow = changedBelow || ch
	}
	n = &Node{Kind: n.Kind, Name: n.Name, Count: n.Count, Children: newChildren}

	switch n.Kind {
	case Repeat:
		unrolled, err := unroll(n)
		if err != nil {
			return nil, false, err
		}
		return unrolled, true, nil

	case Sequence, AllOf, OneOf:
		if flat, ch := flatten(n); ch {
			return flat, true, nil
		}
		if n.Kind == Sequence {
			if d, ch := distributeSeq(n); ch {
				return d, true, nil
			}
		}
		if n.Kind == AllOf {
			if d, ch := distributeAllOf(n); ch {
				return d, true, nil
			}
			if d, ch := parallelCompose(n); ch {
				return d, true, nil
			}
		}
		return n, changedBelow, nil

	default:
		return n, changedBelow, nil
	}
}

// unroll rewrites Repeat(R, n) -> Sequence(R, R, ..., R), n copies.
// Errors if n <= 1.
func unroll(n *Node) (*Node, error) {
	if n.Count <= 1 {
		return nil, &CanonError{Msg: fmt.Sprintf("repeat count %d out of range (must be > 1)", n.Count)}
	}
	child := n.Children[0]
	copies := make([]*Node, n.Count)
	for i := range copies {
		copies[i] = child.Clone()
	}
	return NewSequence(copies...), nil
}

// flatten merges nested same-kind Sequence/AllOf/OneOf
// children into their parent's child list.
func flatten(n *Node) (*Node, bool) {
	changed := false
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == n.Kind {
			out = append(out, c.Children...)
			changed = true
		} else {
			out = append(out, c)
		}
	}
	if !changed {
		return n, false
	}
	return &Node{Kind: n.Kind, Children: out}, true
}

// distributeSeq lifts the first OneOf
// child of a Sequence to the top, producing a OneOf of Sequences.
func distributeSeq(n *Node) (*Node, bool) {
	for i, c := range n.Children {
		if c.Kind != OneOf {
			continue
		}
		alts := make([]*Node, len(c.Children))
		for j, alt := range c.Children {
			parts := make([]*Node, len(n.Children))
			copy(parts, n.Children)
			parts[i] = alt
			alts[j] = NewSequence(parts...)
		}
		return NewOneOf(alts...), true
	}
	return n, false
}

// distributeAllOf lifts the first OneOf
// child of an AllOf to the top, producing a OneOf of AllOfs.
func distributeAllOf(n *Node) (*Node, bool) {
	for i, c := range n.Children {
		if c.Kind != OneOf {
			continue
		}
		alts := make([]*Node, len(c.Children))
		for j, alt := range c.Children {
			parts := make([]*Node, len(n.Children))
			copy(parts, n.Children)
			parts[i] = alt
			alts[j] = NewAllOf(parts...)
		}
		return NewOneOf(alts...), true
	}
	return n, false
}

// parallelCompose implements the parallel-composition rule:
//
//	AllOf(Seq(a,b,...), Seq(c,d,...), unit, ...)
//	  -> Sequence(AllOf(a,c,unit), AllOf(b,d), ...)
//
// aligning positions across every AllOf operand (a bare, non-Sequence
// operand behaves as a length-1 sequence) and padding short operands with
// Nothing. Only fires when at least one operand is a multi-element
// Sequence; otherwise the AllOf is already in canonical (single-cycle) form.
func parallelCompose(n *Node) (*Node, bool) {
	maxLen := 1
	hasMultiSeq := false
	for _, c := range n.Children {
		if c.Kind == Sequence {
			if len(c.Children) > maxLen {
				maxLen = len(c.Children)
			}
			if len(c.Children) > 1 {
				hasMultiSeq = true
			}
		}
	}
	if !hasMultiSeq {
		return n, false
	}

	positions := make([]*Node, maxLen)
	for j := 0; j < maxLen; j++ {
		elems := make([]*Node, len(n.Children))
		for i, c := range n.Children {
			switch {
			case c.Kind == Sequence && j < len(c.Children):
				elems[i] = c.Children[j]
			case c.Kind == Sequence:
				elems[i] = NewNothing()
			case j == 0:
				elems[i] = c
			default:
				elems[i] = NewNothing()
			}
		}
		positions[j] = NewAllOf(elems...)
	}
	return NewSequence(positions...), true
}
