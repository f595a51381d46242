package checker

import "github.com/coregx/pipedfa/regexpir"

// AutomatonInfo is a checked automaton declaration.
type AutomatonInfo struct {
	Name  string
	Index int
}

// UnitInfo is a checked unit declaration, enriched with the cycle-extent
// bookkeeping of pass 6.
type UnitInfo struct {
	Name       string
	Index      int // global, declaration-order index; stable across automaton assignment
	Automaton  string
	Queryable  bool
	MinCycle   int
	MaxCycle   int
	used       bool
	extentSeen bool
}

// ReservationInfo is a checked named reservation, holding both its
// as-declared regexp and (once pass 2 has run) its name-resolved form.
type ReservationInfo struct {
	Name     string
	Raw      *regexpir.Node
	Resolved *regexpir.Node
	used     bool

	// DFS bookkeeping for cycle detection (pass 3).
	visitedPass int
	onStack     bool
}

// BypassInfo is a resolved bypass edge out of an instruction.
type BypassInfo struct {
	InInsn  string
	Latency int
	Guard   string
}

// InsnInfo is a checked instruction-reservation declaration.
type InsnInfo struct {
	Name           string
	Index          int
	DefaultLatency int
	CondExpr       string
	Raw            *regexpir.Node
	Resolved       *regexpir.Node // after pass 2 (name resolution + reservation inlining)
	Canonical      *regexpir.Node // after canonicalization (driven by the automaton package, not the checker)
	Bypasses       []BypassInfo
	IsAdvanceCycle bool
	used           bool

	// ImportantAutomata is the sorted list of automaton names whose state
	// can change when this instruction issues. Populated by the
	// root pipedfa package once every automaton has been built, since it is
	// a cross-automaton property that cannot be known until then.
	ImportantAutomata []string
}

// NamedPattern is a presence/absence-family pattern, still spelled with
// unit names rather than indices; the automaton package resolves names to
// per-automaton-local indices when it builds a reservation.Table.
type NamedPattern struct {
	Unit    string
	Pattern []string
}

// NamedExclusion is a symmetric exclusion pair after pass 4 normalization.
type NamedExclusion struct {
	A, B string
}

// Options is the resolved, defaulted set of run options,
// scanned out of the decl.Option records.
type Options struct {
	NoMinimization bool
	Time           bool
	Verbose        bool
	Permissive     bool
	NDFA           bool
	Split          int
}

// Result is everything the automaton-construction phases need, handed over
// once checking completes without fatal errors.
type Result struct {
	Automata      []*AutomatonInfo
	Units         []*UnitInfo
	Reservations  []*ReservationInfo
	Instructions  []*InsnInfo // includes the synthetic $advance_cycle, always last
	Exclusions    []NamedExclusion
	Presence      []NamedPattern
	FinalPresence []NamedPattern
	Absence       []NamedPattern
	FinalAbsence  []NamedPattern
	MaxReservLen  int // global max reservation length across all units (pass 6)
	Options       Options
	Diagnostics   Diagnostics
	AutomataNamed bool // true if at least one Automaton decl was present
}

// AdvanceCycleName is the synthetic always-present, always-last instruction
// representing the pure cycle-advance transition.
const AdvanceCycleName = "$advance_cycle"
