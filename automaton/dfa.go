package automaton

import "github.com/coregx/pipedfa/internal/arena"

// Subsetify performs the NFA→DFA subset construction.
// Starting from start, every state's out-arcs are regrouped by instruction
// label: a singleton group is left as a direct arc, while a group of two or
// more arcs (only possible when the ndfa option kept multiple alternative
// arcs for one instruction) is replaced by one arc to a compound state whose
// Component is the sorted-unique flattened union of the group's atomic
// destinations, interned by that component list (or, when that union is a
// single atomic state, by one arc to that state). Compound states inherit
// their own out-arcs as the union of their components' out-arcs, so the
// same grouping step naturally reprocesses them when they are later
// dequeued. With the ndfa option off, BuildNFA never produces more than one
// arc per (state, instruction), so this degenerates to a no-op pass.
//
// Returns the (possibly unchanged) start state and every state reachable in
// the resulting, now-deterministic, graph in discovery order.
func Subsetify(start *State, in *interner) (*State, []*State) {
	visited := arena.NewSparseSet(64)
	visited.Insert(uint32(start.Num))
	queue := []*State{start}
	var result []*State

	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		result = append(result, s)

		groups := make(map[int][]Arc)
		var order []int
		for _, a := range s.Arcs {
			if _, ok := groups[a.Insn]; !ok {
				order = append(order, a.Insn)
			}
			groups[a.Insn] = append(groups[a.Insn], a)
		}

		newArcs := make([]Arc, 0, len(order))
		for _, insn := range order {
			arcs := groups[insn]
			if len(arcs) == 1 {
				newArcs = append(newArcs, arcs[0])
				if dest := arcs[0].To; !visited.Contains(uint32(dest.Num)) {
					visited.Insert(uint32(dest.Num))
					queue = append(queue, dest)
				}
				continue
			}

			var comps []int
			for _, a := range arcs {
				if a.To.Component != nil {
					comps = append(comps, a.To.Component...)
				} else {
					comps = append(comps, a.To.Num)
				}
			}
			comps = sortUniqueInts(comps)
			if len(comps) == 1 {
				// Every merged arc reaches the same atomic state; a
				// one-component compound would be indistinguishable from it,
				// so use the atomic destination directly and keep only the
				// merged alternative count.
				dest := in.byNum(comps[0])
				if !visited.Contains(uint32(dest.Num)) {
					visited.Insert(uint32(dest.Num))
					queue = append(queue, dest)
				}
				newArcs = append(newArcs, Arc{Insn: insn, To: dest, Alts: len(arcs)})
				continue
			}

			compound, _ := in.InternCompound(comps, func(s *State) {
				var arcs []Arc
				for _, num := range comps {
					arcs = append(arcs, in.byNum(num).Arcs...)
				}
				s.Component = comps
				s.Arcs = arcs
			})
			if !visited.Contains(uint32(compound.Num)) {
				visited.Insert(uint32(compound.Num))
				queue = append(queue, compound)
			}
			newArcs = append(newArcs, Arc{Insn: insn, To: compound, Alts: len(arcs)})
		}
		s.Arcs = newArcs
	}

	return start, result
}
