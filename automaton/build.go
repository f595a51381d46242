package automaton

import (
	"sort"

	"github.com/coregx/pipedfa/checker"
	"github.com/coregx/pipedfa/reservation"
)

// Build runs every phase of sections 4.3-4.8 for one automaton: local unit
// indexing, the constraint table, the matters-set, the alt-state builder,
// NFA construction, subset-construction determinization, instruction
// equivalence classification and (unless noMinimization is set) Hopcroft
// minimization. localUnitNames is this automaton's unit list in the order
// local indices should be assigned; CanonicalizeAll must already have been
// run over res before calling Build, since every automaton shares one set of
// canonical instruction forms.
func Build(res *checker.Result, name string, localUnitNames []string, ndfa bool, noMinimization bool, onProgress func(int)) *Automaton {
	localUnits := make(map[string]int, len(localUnitNames))
	for i, n := range localUnitNames {
		localUnits[n] = i
	}

	cycles := res.MaxReservLen
	if cycles == 0 {
		cycles = 1
	}
	width := reservation.Width{Units: len(localUnitNames), Cycles: cycles}
	table := BuildTable(res, localUnits)
	matters := BuildMattersSet(res, localUnitNames, width)

	in := newInterner()
	insnAlts := BuildAltStates(res, localUnits, width, in)
	advanceIdx := AdvanceCycleIndex(res)

	start := BuildNFA(res, insnAlts, table, matters, width, ndfa, in, onProgress)
	start, states := Subsetify(start, in)
	classOf, classCount := ClassifyInstructions(res, states)

	allByNum := make(map[int]*State, len(in.All()))
	for _, s := range in.All() {
		allByNum[s.Num] = s
	}

	if !noMinimization {
		queryable := QueryableLocalIndices(res, localUnitNames)
		start, states = Minimize(start, states, classOf, queryable, advanceIdx, allByNum)
	} else {
		markDeadLockAndNewCycle(states, advanceIdx)
	}

	sort.Slice(states, func(i, j int) bool { return states[i].Num < states[j].Num })

	return &Automaton{
		Name:            name,
		Width:           width,
		UnitNames:       localUnitNames,
		Table:           table,
		Start:           start,
		States:          states,
		EquivClass:      classOf,
		EquivClassCount: classCount,
		ImportantInsns:  importantInsns(res, insnAlts, advanceIdx),
		allByNum:        allByNum,
	}
}

// importantInsns computes, for every global instruction index, whether
// issuing it can change this automaton's state: it reserves at least one of this automaton's units
// on some cycle, or it is the synthetic advance-cycle instruction.
func importantInsns(res *checker.Result, insnAlts []InsnAltStates, advanceIdx int) []bool {
	out := make([]bool, len(res.Instructions))
	for i := range res.Instructions {
		if i == advanceIdx {
			out[i] = true
			continue
		}
		for _, alt := range insnAlts[i].AltStates {
			if !alt.Reserv.Empty() {
				out[i] = true
				break
			}
		}
	}
	return out
}

// QueryableLocalIndices returns the local indices (within localUnitNames)
// of every unit marked Queryable, in ascending order — the column order
// both the minimizer's discriminator and the table compressor's
// reserved-units bitmap use.
func QueryableLocalIndices(res *checker.Result, localUnitNames []string) []int {
	queryableByName := make(map[string]bool, len(res.Units))
	for _, u := range res.Units {
		if u.Queryable {
			queryableByName[u.Name] = true
		}
	}
	var out []int
	for i, n := range localUnitNames {
		if queryableByName[n] {
			out = append(out, i)
		}
	}
	return out
}
