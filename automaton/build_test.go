package automaton

import (
	"testing"

	"github.com/coregx/pipedfa/checker"
	"github.com/coregx/pipedfa/decl"
	"github.com/coregx/pipedfa/reservation"
)

func checkAndCanonicalize(t *testing.T, decls []decl.Decl) *checker.Result {
	t.Helper()
	res, err := checker.New().Check(decls)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if res.Diagnostics.HasErrors() {
		t.Fatalf("unexpected check errors: %v", res.Diagnostics.All())
	}
	CanonicalizeAll(res)
	if res.Diagnostics.HasErrors() {
		t.Fatalf("unexpected canonicalization errors: %v", res.Diagnostics.All())
	}
	return res
}

func unitNames(res *checker.Result) []string {
	var names []string
	for _, u := range res.Units {
		names = append(names, u.Name)
	}
	return names
}

func TestBuildSimpleSequence(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "issue"},
		decl.Unit{Name: "alu"},
		decl.InsnReservation{Name: "add", DefaultLatency: 1, Regexp: "issue,alu"},
	}
	res := checkAndCanonicalize(t, decls)

	a := Build(res, "default", unitNames(res), false, false, nil)
	if a.Start == nil {
		t.Fatal("expected a start state")
	}
	if len(a.States) == 0 {
		t.Fatal("expected at least one state")
	}
	foundIssue := false
	for _, arc := range a.Start.Arcs {
		if arc.Insn == 0 { // "add"
			foundIssue = true
		}
	}
	if !foundIssue {
		t.Fatal("expected the start state to accept the 'add' instruction")
	}
}

func TestBuildAlternationProducesMultipleAlts(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "p0"},
		decl.Unit{Name: "p1"},
		decl.InsnReservation{Name: "nop", DefaultLatency: 0, Regexp: "p0|p1"},
	}
	res := checkAndCanonicalize(t, decls)
	localUnits := map[string]int{}
	for i, n := range unitNames(res) {
		localUnits[n] = i
	}
	cycles := res.MaxReservLen
	if cycles == 0 {
		cycles = 1
	}
	width := reservation.Width{Units: len(localUnits), Cycles: cycles}
	in := newInterner()
	insnAlts := BuildAltStates(res, localUnits, width, in)
	if len(insnAlts[0].AltStates) != 2 {
		t.Fatalf("expected 2 alt-states for an alternation of 2 units, got %d", len(insnAlts[0].AltStates))
	}
}

func TestBuildDFAModeStateAltsCountsAllCompatibleAlternatives(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "u1"},
		decl.Unit{Name: "u2"},
		decl.InsnReservation{Name: "a", DefaultLatency: 0, Regexp: "u1|u2"},
	}
	res := checkAndCanonicalize(t, decls)
	// DFA (non-ndfa) mode commits to a single arc per (state, insn), but
	// state_alts must still report the count of every alternative that
	// would have been compatible from this state — both u1 and u2 are free
	// from the empty start state.
	a := Build(res, "default", unitNames(res), false, true, nil)

	found := false
	for _, arc := range a.Start.Arcs {
		if res.Instructions[arc.Insn].Name == "a" {
			found = true
			if arc.Alts != 2 {
				t.Fatalf("expected state_alts == 2 for 'a: u1|u2' from the empty start state, got %d", arc.Alts)
			}
		}
	}
	if !found {
		t.Fatal("expected the start state to accept 'a'")
	}
}

func TestBuildExclusionPreventsCompatibility(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "p0"},
		decl.Unit{Name: "p1"},
		decl.Exclusion{NamesA: []string{"p0"}, NamesB: []string{"p1"}},
		decl.InsnReservation{Name: "a", DefaultLatency: 0, Regexp: "p0"},
		decl.InsnReservation{Name: "b", DefaultLatency: 0, Regexp: "p1"},
	}
	res := checkAndCanonicalize(t, decls)
	a := Build(res, "default", unitNames(res), false, true, nil)

	// From the start state, issuing "a" then "b" on the same cycle must not
	// be possible: p0 and p1 exclude each other even though their bits don't
	// literally overlap.
	var afterA *State
	for _, arc := range a.Start.Arcs {
		if res.Instructions[arc.Insn].Name == "a" {
			afterA = arc.To
		}
	}
	if afterA == nil {
		t.Fatal("expected state reachable after issuing 'a'")
	}
	for _, arc := range afterA.Arcs {
		if res.Instructions[arc.Insn].Name == "b" {
			t.Fatal("expected 'b' to be excluded after 'a' due to the p0/p1 exclusion")
		}
	}
}

func TestBuildMinimizationReducesOrPreservesStateCount(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "issue"},
		decl.InsnReservation{Name: "a", DefaultLatency: 0, Regexp: "issue"},
		decl.InsnReservation{Name: "b", DefaultLatency: 0, Regexp: "issue"},
	}
	res := checkAndCanonicalize(t, decls)
	names := unitNames(res)

	unminimized := Build(res, "default", names, false, true, nil)
	minimized := Build(res, "default", names, false, false, nil)

	if len(minimized.States) > len(unminimized.States) {
		t.Fatalf("minimized automaton has more states (%d) than unminimized (%d)", len(minimized.States), len(unminimized.States))
	}
}

func TestBuildDeadLockTagging(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "issue"},
		decl.InsnReservation{Name: "a", DefaultLatency: 0, Regexp: "issue"},
	}
	res := checkAndCanonicalize(t, decls)
	a := Build(res, "default", unitNames(res), false, false, nil)

	sawDeadLock := false
	for _, s := range a.States {
		if s.DeadLock {
			sawDeadLock = true
		}
	}
	if !sawDeadLock {
		t.Fatal("expected at least one dead-lock state (advance-cycle only) to be reachable")
	}
}

func TestBuildNDFAModeKeepsMultipleArcs(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "p0"},
		decl.Unit{Name: "p1"},
		decl.InsnReservation{Name: "nop", DefaultLatency: 0, Regexp: "p0|p1"},
	}
	res := checkAndCanonicalize(t, decls)
	a := Build(res, "default", unitNames(res), true, true, nil)

	// ndfa mode keeps one arc per alternative out of BuildNFA, but Subsetify
	// always regroups same-label arcs into a single arc to a compound
	// state; the two alternatives should survive as that compound state's
	// two-member Component list.
	for _, arc := range a.Start.Arcs {
		if res.Instructions[arc.Insn].Name == "nop" {
			if len(arc.To.Component) < 2 {
				t.Fatalf("expected 'nop's destination to be a compound state merging both alternatives, got Component=%v", arc.To.Component)
			}
			return
		}
	}
	t.Fatal("expected the start state to accept 'nop'")
}

func TestClassifyInstructionsGroupsEquivalentInstructions(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "issue"},
		decl.InsnReservation{Name: "a", DefaultLatency: 0, Regexp: "issue"},
		decl.InsnReservation{Name: "b", DefaultLatency: 0, Regexp: "issue"},
	}
	res := checkAndCanonicalize(t, decls)
	a := Build(res, "default", unitNames(res), false, true, nil)

	var aIdx, bIdx int
	for i, ii := range res.Instructions {
		switch ii.Name {
		case "a":
			aIdx = i
		case "b":
			bIdx = i
		}
	}
	if a.EquivClass[aIdx] != a.EquivClass[bIdx] {
		t.Fatalf("expected 'a' and 'b' (identical reservations) to share an equivalence class, got %d and %d", a.EquivClass[aIdx], a.EquivClass[bIdx])
	}
}

func TestBuildForeignInsnDoesNotChainWithAdvanceCycle(t *testing.T) {
	// "fop" reserves nothing in the "ialu" automaton, so its alt-state list
	// is the same single empty reservation the synthetic advance-cycle
	// instruction has. The two must still stay separate: fop gets an
	// ordinary self-loop arc, and every state keeps exactly one
	// advance-cycle arc.
	decls := []decl.Decl{
		decl.Automaton{Name: "ialu"},
		decl.Automaton{Name: "fpu"},
		decl.Unit{Name: "issue", Automaton: "ialu"},
		decl.Unit{Name: "fadd", Automaton: "fpu"},
		decl.InsnReservation{Name: "add", DefaultLatency: 1, Regexp: "issue"},
		decl.InsnReservation{Name: "fop", DefaultLatency: 2, Regexp: "fadd"},
	}
	res := checkAndCanonicalize(t, decls)
	advanceIdx := AdvanceCycleIndex(res)

	a := Build(res, "ialu", []string{"issue"}, false, true, nil)
	for _, s := range a.States {
		advanceArcs := 0
		for _, arc := range s.Arcs {
			if arc.Insn == advanceIdx {
				advanceArcs++
			}
			if arc.To.Component != nil {
				t.Fatalf("state %d: unexpected compound state %d in DFA mode", s.Num, arc.To.Num)
			}
		}
		if advanceArcs != 1 {
			t.Fatalf("state %d: expected exactly one advance-cycle arc, got %d", s.Num, advanceArcs)
		}
	}
}

func TestBuildProgressCallback(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "issue"},
		decl.InsnReservation{Name: "a", DefaultLatency: 0, Regexp: "issue"},
	}
	res := checkAndCanonicalize(t, decls)
	var calls int
	Build(res, "default", unitNames(res), false, true, func(n int) { calls++ })
	// A tiny automaton never crosses the 100-state reporting threshold, so no
	// callback should fire; this just confirms passing one doesn't panic.
	_ = calls
}
