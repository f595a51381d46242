package automaton

import (
	"github.com/coregx/pipedfa/checker"
	"github.com/coregx/pipedfa/internal/arena"
	"github.com/coregx/pipedfa/reservation"
)

// BuildNFA builds the transition graph: starting from the empty
// reservation, explore every chain-head instruction's alt-states from every
// reachable state, adding a single (deterministic) or multiple (ndfa) arcs
// per instruction plus the always-present advance-cycle arc. Returns the
// start state; every reachable state (atomic, pre-subset-construction) is
// available afterwards via in.All().
//
// onProgress, if non-nil, is called with the running count of newly
// interned states every time that count crosses a multiple of 100. Purely
// observational; nothing branches on it.
func BuildNFA(res *checker.Result, insnAlts []InsnAltStates, table *reservation.Table, matters *reservation.Set, width reservation.Width, ndfa bool, in *interner, onProgress func(n int)) *State {
	advanceIdx := AdvanceCycleIndex(res)

	groups := make(map[int][]int, len(insnAlts))
	for i, ia := range insnAlts {
		groups[ia.HeadIndex] = append(groups[ia.HeadIndex], i)
	}

	start, _ := in.Intern(reservation.New(width))
	newCount := 1
	reportProgress := func() {
		if onProgress != nil && newCount%100 == 0 {
			onProgress(newCount)
		}
	}
	reportProgress()

	queued := arena.NewSparseSet(64)
	queued.Insert(uint32(start.Num))
	stack := []*State{start}
	intern := func(set *reservation.Set) (*State, bool) {
		s, isNew := in.Intern(set)
		if isNew {
			newCount++
			reportProgress()
		}
		return s, isNew
	}

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for i := range res.Instructions {
			if i == advanceIdx {
				continue
			}
			ia := insnAlts[i]
			if !ia.IsChainHead {
				continue
			}

			// Always scan every alternative to completion: in DFA mode we
			// still commit to only the first compatible one below, but
			// count must reflect all alternatives that would have been
			// compatible, not just the one chosen.
			var firstCompatible *State
			var compatibleAlts []*State
			count := 0
			for _, alt := range ia.AltStates {
				if !compatible(s.Reserv, alt.Reserv, table) {
					continue
				}
				count++
				if firstCompatible == nil {
					firstCompatible = alt
				}
				if ndfa {
					compatibleAlts = append(compatibleAlts, alt)
				}
			}
			if count == 0 {
				continue
			}

			members := groups[i]
			if !ndfa {
				union := s.Reserv.Or(firstCompatible.Reserv)
				union.MaskInPlace(matters)
				sp, _ := intern(union)
				if !queued.Contains(uint32(sp.Num)) {
					queued.Insert(uint32(sp.Num))
					stack = append(stack, sp)
				}
				for _, m := range members {
					s.Arcs = append(s.Arcs, Arc{Insn: m, To: sp, Alts: count})
				}
			} else {
				// Two alternatives can mask down to the same union state;
				// arcs stay idempotent per (instruction, destination).
				dests := make(map[int]bool, len(compatibleAlts))
				for _, alt := range compatibleAlts {
					union := s.Reserv.Or(alt.Reserv)
					union.MaskInPlace(matters)
					sp, _ := intern(union)
					if dests[sp.Num] {
						continue
					}
					dests[sp.Num] = true
					if !queued.Contains(uint32(sp.Num)) {
						queued.Insert(uint32(sp.Num))
						stack = append(stack, sp)
					}
					for _, m := range members {
						s.Arcs = append(s.Arcs, Arc{Insn: m, To: sp, Alts: count})
					}
				}
			}
		}

		shifted := s.Reserv.Shift()
		shifted.MaskInPlace(matters)
		sp, _ := intern(shifted)
		if !queued.Contains(uint32(sp.Num)) {
			queued.Insert(uint32(sp.Num))
			stack = append(stack, sp)
		}
		s.Arcs = append(s.Arcs, Arc{Insn: advanceIdx, To: sp, Alts: 1})
	}

	return start
}

// compatible reports whether two reservations can coexist: no (cycle,
// unit) bit may be set in both a and b, and
// neither may violate the other's exclusion/presence/absence constraints.
func compatible(a, b *reservation.Set, table *reservation.Table) bool {
	if !a.And(b).Empty() {
		return false
	}
	return !table.Conflicts(a, b)
}
