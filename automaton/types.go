// Package automaton builds, per declared (or distributed) automaton, the
// per-instruction alt-state lists, the nondeterministic transition graph,
// its subset-construction determinization, its Hopcroft-style minimization
// and the instruction equivalence classes compressed tables are built from.
package automaton

import (
	"encoding/binary"
	"sort"

	"github.com/coregx/pipedfa/checker"
	"github.com/coregx/pipedfa/reservation"
)

// Arc is one labeled transition. Insn is the global instruction index (into
// checker.Result.Instructions, which always ends with the synthetic
// advance-cycle instruction). Alts is the number of alternative
// reservations that were compatible when this arc was built or merged —
// the state_alts count exposed at query time.
type Arc struct {
	Insn int
	To   *State
	Alts int
}

// State is both an alt-state and a full NFA/DFA state: the two share identity and interning because an
// NFA/DFA state is always built by unioning alt-states together. Num is
// assigned monotonically at first interning, and is the basis for the
// "sorted alt-state" identity key.
type State struct {
	Num       int
	Reserv    *reservation.Set
	Arcs      []Arc
	Component []int // sorted-unique member Nums for a compound (post-subset-construction) state; nil for atomic
	NewCycleP bool
	DeadLock  bool
}

// Automaton is one fully built, minimized transition graph plus the
// supporting tables the instruction equivalence classifier and table
// compressor consume.
type Automaton struct {
	Name  string
	Width reservation.Width

	// UnitNames is this automaton's local unit list, local index i
	// corresponds to bit index i in every Set built against Width.
	UnitNames []string
	Table     *reservation.Table

	Start *State
	// States lists every live state in Num order after minimization (or,
	// with NoMinimization, every state built during subset construction).
	States []*State

	// EquivClass[insn] is the instruction-equivalence-class column index
	// this automaton assigns to the given global instruction index;
	// EquivClassCount is the number of distinct columns.
	EquivClass      []int
	EquivClassCount int

	// ImportantInsns[insn] reports whether issuing the given global
	// instruction index can change this automaton's state: true when the
	// instruction reserves at least one of this automaton's units on some
	// cycle, or when it is the synthetic advance-cycle instruction (which
	// always shifts every automaton's reservation forward). This is the
	// per-automaton half of the instruction's important-automata set —
	// Generate unions it across every built automaton onto
	// checker.InsnInfo.ImportantAutomata.
	ImportantInsns []bool

	// allByNum holds every state ever interned while building this
	// automaton (atomic and compound, pre- and post-minimization),
	// keyed by Num. Reservation uses it to resolve a post-minimization
	// representative's observable reservation-set even when the
	// representative itself is a bare compound with no Reserv of its own.
	allByNum map[int]*State
}

// Reservation returns s's own reservation-set, or, when s is a compound
// state (nil Reserv), its first component's reservation-set — recursively,
// since a minimized representative's first component may itself be
// compound. This is the "cycle 0 of the first component" observable the
// minimizer's discriminator and the reserved-units table both read.
func (a *Automaton) Reservation(s *State) *reservation.Set {
	for s.Reserv == nil && len(s.Component) > 0 {
		s = a.allByNum[s.Component[0]]
	}
	return s.Reserv
}

// CanEverIssue reports whether some reachable state carries an arc labeled
// with the given global instruction index. An instruction that reserves
// units of this automaton but has no arc anywhere can never be issued
// (typically an unsatisfiable presence/absence constraint).
func (a *Automaton) CanEverIssue(insn int) bool {
	for _, s := range a.States {
		for _, arc := range s.Arcs {
			if arc.Insn == insn {
				return true
			}
		}
	}
	return false
}

// AdvanceCycleIndex returns the global instruction index of the synthetic
// always-last advance-cycle instruction.
func AdvanceCycleIndex(res *checker.Result) int { return len(res.Instructions) - 1 }

func sortUniqueInts(xs []int) []int {
	sort.Ints(xs)
	out := xs[:0]
	for i, x := range xs {
		if i == 0 || x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}

// encodeInts renders a sorted-unique int list into a byte-exact map key,
// used for both the sorted-alt-state identity key and the compound-state
// component identity key.
func encodeInts(nums []int) string {
	buf := make([]byte, 0, len(nums)*4)
	for _, n := range nums {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(n))
	}
	return string(buf)
}
