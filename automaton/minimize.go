package automaton

import (
	"fmt"
	"sort"
	"strings"

	"github.com/coregx/pipedfa/internal/arena"
	"github.com/coregx/pipedfa/reservation"
)

// Minimize performs Hopcroft-style partition
// refinement. Two additional discriminators seed the initial partition
// (differing out-arc counts; differing queryable-unit cycle-0 observations,
// using the first component for a compound state), then states are
// refined by the sorted triple (destination-class, instruction-equiv-class,
// state-alts) of their out-arcs until the partition stabilizes.
//
// classOf is the instruction equivalence classification, computed
// beforehand: the minimizer's own per-arc triple treats it as fixed
// input.
//
// Returns the new start state and the minimized, live state list, in
// representative discovery order. NewCycleP and DeadLock are set on the
// returned states.
//
// byNum must cover every state a compound's Component list can reference,
// not just the reachable post-determinization states: an atomic alternative
// folded into a compound may itself be unreachable, yet its reservation-set
// is still the observable the queryable-unit discriminator reads.
func Minimize(start *State, states []*State, insnClassOf []int, queryableLocalIdx []int, advanceIdx int, byNum map[int]*State) (*State, []*State) {
	part := initialPartition(states, queryableLocalIdx, byNum)
	for {
		next, split := refine(states, part, insnClassOf)
		part = next
		if !split {
			break
		}
	}

	// Build one representative per final class (lowest Num wins, keeping
	// output deterministic across runs).
	classMembers := make(map[int][]*State)
	for _, s := range states {
		classMembers[part[s.Num]] = append(classMembers[part[s.Num]], s)
	}
	repOfClass := make(map[int]*State, len(classMembers))
	for cls, members := range classMembers {
		sort.Slice(members, func(i, j int) bool { return members[i].Num < members[j].Num })
		rep := members[0]
		var comps []int
		for _, m := range members {
			if m.Component != nil {
				comps = append(comps, m.Component...)
			} else {
				comps = append(comps, m.Num)
			}
		}
		comps = sortUniqueInts(comps)
		if len(comps) > 1 || rep.Component != nil {
			rep.Component = comps
		}
		repOfClass[cls] = rep
	}
	repOfState := make(map[int]*State, len(states))
	for _, s := range states {
		repOfState[s.Num] = repOfClass[part[s.Num]]
	}

	var out []*State
	seenRep := make(map[int]bool)
	for _, s := range states {
		rep := repOfState[s.Num]
		if seenRep[rep.Num] {
			continue
		}
		seenRep[rep.Num] = true
		out = append(out, rep)
	}

	// Redirect every representative's arcs to the representative of their
	// destination's class, and dedupe identical (insn, dest) pairs that
	// collapse together once multiple members merge.
	for _, rep := range out {
		seen := make(map[int]Arc)
		var order []int
		for _, a := range rep.Arcs {
			na := Arc{Insn: a.Insn, To: repOfState[a.To.Num], Alts: a.Alts}
			if _, ok := seen[na.Insn]; !ok {
				order = append(order, na.Insn)
			}
			seen[na.Insn] = na
		}
		sort.Ints(order)
		rep.Arcs = rep.Arcs[:0]
		for _, insn := range order {
			rep.Arcs = append(rep.Arcs, seen[insn])
		}
	}

	markDeadLockAndNewCycle(out, advanceIdx)

	newStart := repOfState[start.Num]
	return newStart, out
}

func initialPartition(states []*State, queryableLocalIdx []int, byNum map[int]*State) map[int]int {
	sigOf := make(map[int]string, len(states))
	for _, s := range states {
		var b strings.Builder
		fmt.Fprintf(&b, "%d|", len(s.Arcs))
		// A compound state has no reservation-set of its own; the
		// discriminator observes its first component's cycle-0 bits instead.
		cur := s
		for cur != nil && cur.Reserv == nil && len(cur.Component) > 0 {
			cur = byNum[cur.Component[0]]
		}
		var reserv *reservation.Set
		if cur != nil {
			reserv = cur.Reserv
		}
		for _, u := range queryableLocalIdx {
			if reserv != nil && reserv.Test(0, u) {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
		sigOf[s.Num] = b.String()
	}
	part := make(map[int]int)
	seen := make(map[string]int)
	for _, s := range states {
		sig := sigOf[s.Num]
		cls, ok := seen[sig]
		if !ok {
			cls = len(seen)
			seen[sig] = cls
		}
		part[s.Num] = cls
	}
	return part
}

// refine performs one round of triple-based splitting, returning the new
// partition and whether anything changed.
func refine(states []*State, part map[int]int, insnClassOf []int) (map[int]int, bool) {
	sigOf := make(map[int]string, len(states))
	for _, s := range states {
		triples := make([]string, 0, len(s.Arcs))
		for _, a := range s.Arcs {
			triples = append(triples, fmt.Sprintf("%d:%d:%d", part[a.To.Num], insnClassOf[a.Insn], a.Alts))
		}
		sort.Strings(triples)
		sigOf[s.Num] = fmt.Sprintf("%d#%s", part[s.Num], strings.Join(triples, ","))
	}

	next := make(map[int]int, len(states))
	seen := make(map[string]int)
	changed := false
	for _, s := range states {
		sig := sigOf[s.Num]
		cls, ok := seen[sig]
		if !ok {
			cls = len(seen)
			seen[sig] = cls
		}
		next[s.Num] = cls
		if cls != part[s.Num] {
			changed = true
		}
	}
	// A refinement can relabel class IDs even when the partition itself
	// didn't actually split (all members moved to a differently-numbered
	// but equally-shaped class); compare by partition shape, not raw IDs.
	if !changed {
		return next, false
	}
	if samePartitionShape(part, next, states) {
		return next, false
	}
	return next, true
}

func samePartitionShape(a, b map[int]int, states []*State) bool {
	groupsA := make(map[int][]int)
	groupsB := make(map[int][]int)
	for _, s := range states {
		groupsA[a[s.Num]] = append(groupsA[a[s.Num]], s.Num)
		groupsB[b[s.Num]] = append(groupsB[b[s.Num]], s.Num)
	}
	if len(groupsA) != len(groupsB) {
		return false
	}
	setsA := make(map[string]bool, len(groupsA))
	for _, members := range groupsA {
		sort.Ints(members)
		setsA[encodeInts(members)] = true
	}
	for _, members := range groupsB {
		sort.Ints(members)
		if !setsA[encodeInts(members)] {
			return false
		}
	}
	return true
}

func markDeadLockAndNewCycle(states []*State, advanceIdx int) {
	incomingNonAdvance := arena.NewSparseSet(len(states))
	incomingAny := arena.NewSparseSet(len(states))
	for _, s := range states {
		for _, a := range s.Arcs {
			incomingAny.Insert(uint32(a.To.Num))
			if a.Insn != advanceIdx {
				incomingNonAdvance.Insert(uint32(a.To.Num))
			}
		}
	}
	for _, s := range states {
		s.DeadLock = len(s.Arcs) == 1 && s.Arcs[0].Insn == advanceIdx
		s.NewCycleP = incomingAny.Contains(uint32(s.Num)) && !incomingNonAdvance.Contains(uint32(s.Num))
	}
}
