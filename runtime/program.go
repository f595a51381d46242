// Package runtime implements the query entry points a generated consumer
// would call — state_size, state_reset, state_transition, state_alts,
// min_issue_delay, min_insn_conflict_delay, state_dead_lock_p,
// insn_latency, cpu_unit_reservation_p, get_cpu_unit_code — directly over
// compress.Table, since textual code generation is out of scope for this
// module. Program is the "generated code" for one checked description;
// State is the opaque per-query mutable state.
package runtime

import (
	"sort"

	"github.com/coregx/pipedfa/checker"
	"github.com/coregx/pipedfa/compress"
)

// Program is every automaton's compressed tables plus the cross-automaton
// bookkeeping (queryable-unit code table, bypass/latency lookups) needed to
// answer every query entry point against the product of all automata's
// states. Construct via NewProgram, or via Generate in the root pipedfa
// package, which runs the full pipeline first.
type Program struct {
	res    *checker.Result
	tables []*compress.Table

	advanceIdx int

	// queryable[code] resolves a global cpu_unit_reservation_p code to the
	// owning automaton and that automaton's local reserved-units column.
	queryable []queryableUnit

	// bypassByOut[outInsn] lists every bypass out of that instruction, in
	// declaration order; insn_latency scans this small per-instruction list
	// rather than building a full (i1,i2) matrix, matching how few
	// instructions actually bypass in practice.
	bypassByOut [][]checker.BypassInfo

	insnIndexByName map[string]int
}

type queryableUnit struct {
	name      string
	automaton int
	col       int
}

// NewProgram assembles a Program from a checked Result and one
// fully-built compress.Table per automaton, in the same automaton order
// throughout (the order distribute.Assignment.AutomataNames and
// automaton.Build were run in).
func NewProgram(res *checker.Result, tables []*compress.Table) *Program {
	p := &Program{
		res:        res,
		tables:     tables,
		advanceIdx: len(res.Instructions) - 1,
	}

	for ai, t := range tables {
		for col, name := range t.Reserved.UnitNames {
			p.queryable = append(p.queryable, queryableUnit{name: name, automaton: ai, col: col})
		}
	}
	sort.Slice(p.queryable, func(i, j int) bool { return p.queryable[i].name < p.queryable[j].name })

	p.bypassByOut = make([][]checker.BypassInfo, len(res.Instructions))
	p.insnIndexByName = make(map[string]int, len(res.Instructions))
	for _, ii := range res.Instructions {
		p.bypassByOut[ii.Index] = ii.Bypasses
		p.insnIndexByName[ii.Name] = ii.Index
	}

	return p
}

// State is the opaque per-query mutable state: one compact state index per
// automaton, addressed in Program.tables order.
type State struct {
	idx []int
}

// StateSize returns the byte size state_size() would report for the
// opaque state struct: one machine word per automaton.
func (p *Program) StateSize() int { return len(p.tables) * 8 }

// NewState allocates a State, reset to the start state of every automaton.
func (p *Program) NewState() *State {
	s := &State{idx: make([]int, len(p.tables))}
	p.Reset(s)
	return s
}

// Reset implements state_reset(s): every automaton returns to its start
// state.
func (p *Program) Reset(s *State) {
	for i, t := range p.tables {
		s.idx[i] = t.StartIndex
	}
}

// classAndDest looks up, for automaton index ai at state s, the
// destination compact state index for insn, if any.
func (p *Program) classAndDest(ai int, stateIdx, insn int) (cls int, dest int32, ok bool) {
	t := p.tables[ai]
	cls = t.Translate[insn]
	dest, ok = t.Transition.Lookup(stateIdx, cls, t.NumClasses)
	return
}

// Transition implements state_transition(s, insn): pass p.AdvanceCycleInsn()
// for insn to advance the cycle, since the synthetic advance-cycle
// instruction already has a normal arc from every reachable state in every
// automaton.
// Returns -1 on success (s is mutated in place); otherwise the minimum
// number of advance-cycles needed before insn can issue (s is unchanged).
func (p *Program) Transition(s *State, insn int) int {
	dests := make([]int32, len(p.tables))
	for ai := range p.tables {
		_, dest, ok := p.classAndDest(ai, s.idx[ai], insn)
		if !ok {
			return p.MinIssueDelay(s, insn)
		}
		dests[ai] = dest
	}
	for ai, d := range dests {
		s.idx[ai] = int(d)
	}
	return -1
}

// AdvanceCycleInsn returns the global instruction index of the synthetic
// always-present, always-last advance-cycle instruction — the value to
// pass to Transition in place of the scheduler's "no instruction, just
// advance" case.
func (p *Program) AdvanceCycleInsn() int { return p.advanceIdx }

// StateAlts implements state_alts(s, insn): the sum, across automata, of
// the alternative-reservation count recorded for insn's arc from s's
// component state in that automaton (0 where no arc exists).
func (p *Program) StateAlts(s *State, insn int) int {
	total := 0
	for ai, t := range p.tables {
		cls, _, ok := p.classAndDest(ai, s.idx[ai], insn)
		if !ok {
			continue
		}
		v, ok := t.Alts.Lookup(s.idx[ai], cls, t.NumClasses)
		if ok {
			total += int(v)
		}
	}
	return total
}

// StateDeadLockP implements state_dead_lock_p(s): true iff every
// automaton's component state is individually dead-locked, which is exactly when no
// instruction but advance-cycle can succeed in any automaton and therefore
// none can succeed in the product state.
func (p *Program) StateDeadLockP(s *State) bool {
	for ai, t := range p.tables {
		if !t.DeadLock[s.idx[ai]] {
			return false
		}
	}
	return true
}
