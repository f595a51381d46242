package compress

import (
	"github.com/coregx/pipedfa/automaton"
	"github.com/coregx/pipedfa/checker"
	"github.com/coregx/pipedfa/internal/intconv"
)

// Table is one automaton's fully compressed query payload: the transition table, the state-alts table, the min-issue-delay
// table, the dead-lock vector and the reserved-units bitmap, plus the
// instruction→equiv-class Translate vector every lookup goes through first.
// States are addressed by a 0-based compact index (position in
// automaton.Automaton.States), not by the sparser automaton.State.Num.
type Table struct {
	NumStates  int
	NumClasses int

	// Translate maps a global instruction index (checker.Result.Instructions)
	// to its equiv-class column.
	Translate []int

	// Transition[state][class] is the destination compact state index, or
	// NoState.
	Transition *Vector
	// Alts[state][class] is the state_alts count recorded when that arc was
	// built/merged, or 0 if there is no arc.
	Alts *Vector

	MinIssueDelay *DelayTable
	DeadLock      []bool
	Reserved      *ReservedUnits

	// StateOfNum maps an automaton.State.Num to its compact index, and
	// NumOfState is its inverse, for callers that need to cross-reference
	// automaton.Automaton directly (diagnostics, the verbose dump).
	StateOfNum map[int]int
	NumOfState []int

	StartIndex int
}

// Build compresses a.States/a.EquivClass into a Table. a must already be
// fully built: Build only reads
// already-determinized, already-(optionally-)minimized state/arc data.
func Build(res *checker.Result, a *automaton.Automaton) *Table {
	numStates := len(a.States)
	numClasses := a.EquivClassCount
	advanceIdx := automaton.AdvanceCycleIndex(res)

	stateOfNum := make(map[int]int, numStates)
	numOfState := make([]int, numStates)
	for i, s := range a.States {
		stateOfNum[s.Num] = i
		numOfState[i] = s.Num
	}

	destRows := make([][]int32, numStates)
	altsRows := make([][]int32, numStates)
	deadLock := make([]bool, numStates)
	for i, s := range a.States {
		destRow := make([]int32, numClasses)
		altsRow := make([]int32, numClasses)
		for c := range destRow {
			destRow[c] = NoState
		}
		for _, arc := range s.Arcs {
			cls := a.EquivClass[arc.Insn]
			// Every instruction in a class reaches the same destination
			// from a given state,
			// so the first arc observed for a class is authoritative.
			if destRow[cls] == NoState {
				destRow[cls] = intconv.IntToInt32(stateOfNum[arc.To.Num])
				altsRow[cls] = intconv.IntToInt32(arc.Alts)
			}
		}
		destRows[i] = destRow
		altsRows[i] = altsRow
		deadLock[i] = s.DeadLock
	}

	translate := make([]int, len(res.Instructions))
	copy(translate, a.EquivClass)

	queryable := automaton.QueryableLocalIndices(res, a.UnitNames)
	queryableNames := make([]string, len(queryable))
	for i, idx := range queryable {
		queryableNames[i] = a.UnitNames[idx]
	}
	cycle0 := make([][]bool, numStates)
	for i, s := range a.States {
		reserv := a.Reservation(s)
		row := make([]bool, len(queryable))
		for j, idx := range queryable {
			row[j] = reserv != nil && reserv.Test(0, idx)
		}
		cycle0[i] = row
	}

	startIdx := stateOfNum[a.Start.Num]

	return &Table{
		NumStates:     numStates,
		NumClasses:    numClasses,
		Translate:     translate,
		Transition:    buildVector(NoState, destRows),
		Alts:          buildVector(0, altsRows),
		MinIssueDelay: buildDelayTable(a.States, stateOfNum, a.EquivClass, numClasses, advanceIdx),
		DeadLock:      deadLock,
		Reserved:      buildReservedUnits(cycle0, queryableNames),
		StateOfNum:    stateOfNum,
		NumOfState:    numOfState,
		StartIndex:    startIdx,
	}
}
