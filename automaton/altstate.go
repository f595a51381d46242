package automaton

import (
	"github.com/coregx/pipedfa/checker"
	"github.com/coregx/pipedfa/regexpir"
	"github.com/coregx/pipedfa/reservation"
)

// InsnAltStates is the per-instruction result of the alt-state builder:
// the interned alt-state list for one automaton, the
// sorted-unique-Num identity key derived from it, and whether this
// instruction is the first ("chain head") among all instructions sharing
// that key.
type InsnAltStates struct {
	AltStates   []*State
	SortedKey   string
	IsChainHead bool
	HeadIndex   int // global instruction index of the chain head (== own index if IsChainHead)
}

// BuildAltStates runs the alt-state builder for every instruction against
// one automaton's local unit set, interning every resulting reservation-set
// through in. Instructions sharing a sorted alt-state list are chained: only
// the chain head needs to participate in NFA construction.
func BuildAltStates(res *checker.Result, localUnits map[string]int, width reservation.Width, in *interner) []InsnAltStates {
	out := make([]InsnAltStates, len(res.Instructions))
	heads := make(map[string]int)
	for i, ii := range res.Instructions {
		alts := altStatesForInsn(ii, localUnits, width, in)
		key := sortedAltKey(alts)
		if ii.IsAdvanceCycle {
			// The advance-cycle instruction gets its own transition from
			// every state (the shift arc) and must never be folded into a
			// real instruction's chain, even though its empty alt-state key
			// matches any instruction that reserves nothing in this
			// automaton.
			out[i] = InsnAltStates{AltStates: alts, SortedKey: key, IsChainHead: true, HeadIndex: i}
			continue
		}
		head, seen := heads[key]
		if !seen {
			heads[key] = i
			head = i
		}
		out[i] = InsnAltStates{
			AltStates:   alts,
			SortedKey:   key,
			IsChainHead: head == i,
			HeadIndex:   head,
		}
	}
	return out
}

func altStatesForInsn(ii *checker.InsnInfo, localUnits map[string]int, width reservation.Width, in *interner) []*State {
	canon := ii.Canonical
	if canon == nil {
		canon = regexpir.NewNothing()
	}
	var alts []*regexpir.Node
	if canon.Kind == regexpir.Nothing {
		alts = []*regexpir.Node{canon}
	} else {
		alts = canon.Children // canonical root is OneOf; its children are the alternatives
	}

	states := make([]*State, 0, len(alts))
	for _, alt := range alts {
		set := reservation.New(width)
		for cycle, elem := range sequenceElements(alt) {
			markUnits(elem, cycle, localUnits, set)
		}
		s, _ := in.Intern(set)
		states = append(states, s)
	}
	return states
}

// sequenceElements returns n's per-cycle elements: n.Children if n is a
// Sequence, or the single-element slice {n} otherwise (a one-position
// alternative collapses during canonicalization, so a bare Unit/Nothing/
// AllOf root is itself the whole, one-cycle-long, alternative).
func sequenceElements(n *regexpir.Node) []*regexpir.Node {
	if n.Kind == regexpir.Sequence {
		return n.Children
	}
	return []*regexpir.Node{n}
}

func markUnits(elem *regexpir.Node, cycle int, localUnits map[string]int, set *reservation.Set) {
	switch elem.Kind {
	case regexpir.Unit:
		if idx, ok := localUnits[elem.Name]; ok {
			set.SetBit(cycle, idx)
		}
	case regexpir.AllOf:
		for _, c := range elem.Children {
			markUnits(c, cycle, localUnits, set)
		}
	}
}

func sortedAltKey(states []*State) string {
	nums := make([]int, len(states))
	for i, s := range states {
		nums[i] = s.Num
	}
	return encodeInts(sortUniqueInts(nums))
}
