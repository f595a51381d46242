package compress

import (
	"testing"

	"github.com/coregx/pipedfa/automaton"
	"github.com/coregx/pipedfa/checker"
	"github.com/coregx/pipedfa/decl"
)

func checkAndBuild(t *testing.T, decls []decl.Decl) (*checker.Result, *automaton.Automaton) {
	t.Helper()
	res, err := checker.New().Check(decls)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if res.Diagnostics.HasErrors() {
		t.Fatalf("unexpected check errors: %v", res.Diagnostics.All())
	}
	automaton.CanonicalizeAll(res)
	if res.Diagnostics.HasErrors() {
		t.Fatalf("unexpected canonicalization errors: %v", res.Diagnostics.All())
	}
	var names []string
	for _, u := range res.Units {
		names = append(names, u.Name)
	}
	a := automaton.Build(res, "default", names, false, false, nil)
	return res, a
}

func insnIndex(res *checker.Result, name string) int {
	for i, ii := range res.Instructions {
		if ii.Name == name {
			return i
		}
	}
	return -1
}

// TestSingleUnitSingleInsn: units {u},
// insn a reserving u for one cycle. 2 states; min_issue_delay(start, a)==0;
// after issuing a, min_issue_delay(S1, a)==1; advance_cycle from S1 returns
// to start.
func TestSingleUnitSingleInsn(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "u"},
		decl.InsnReservation{Name: "a", DefaultLatency: 1, Regexp: "u"},
	}
	res, a := checkAndBuild(t, decls)
	table := Build(res, a)

	if table.NumStates != 2 {
		t.Fatalf("expected 2 states, got %d", table.NumStates)
	}

	aIdx := insnIndex(res, "a")
	advanceIdx := insnIndex(res, checker.AdvanceCycleName)
	cls := table.Translate[aIdx]

	if d := table.MinIssueDelay.Get(table.StartIndex, cls); d != 0 {
		t.Fatalf("expected min_issue_delay(start, a) == 0, got %d", d)
	}

	dest, ok := table.Transition.Lookup(table.StartIndex, cls, table.NumClasses)
	if !ok {
		t.Fatal("expected a transition for 'a' from start")
	}
	s1 := int(dest)
	if d := table.MinIssueDelay.Get(s1, cls); d != 1 {
		t.Fatalf("expected min_issue_delay(S1, a) == 1, got %d", d)
	}

	advCls := table.Translate[advanceIdx]
	back, ok := table.Transition.Lookup(s1, advCls, table.NumClasses)
	if !ok || int(back) != table.StartIndex {
		t.Fatalf("expected advance_cycle from S1 to return to start, got %v ok=%v", back, ok)
	}
}

// TestTwoCycleReservation: insn a reserves
// u,u (two cycles). start --a--> S1 --advance_cycle-only--> S2
// --advance_cycle--> start; min_issue_delay(S1, a) == 2.
func TestTwoCycleReservation(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "u"},
		decl.InsnReservation{Name: "a", DefaultLatency: 1, Regexp: "u,u"},
	}
	res, a := checkAndBuild(t, decls)
	table := Build(res, a)

	aIdx := insnIndex(res, "a")
	advanceIdx := insnIndex(res, checker.AdvanceCycleName)
	cls := table.Translate[aIdx]
	advCls := table.Translate[advanceIdx]

	dest, ok := table.Transition.Lookup(table.StartIndex, cls, table.NumClasses)
	if !ok {
		t.Fatal("expected a transition for 'a' from start")
	}
	s1 := int(dest)

	if d := table.MinIssueDelay.Get(s1, cls); d != 2 {
		t.Fatalf("expected min_issue_delay(S1, a) == 2, got %d", d)
	}

	if !table.DeadLock[s1] {
		t.Fatal("expected S1 to be a dead-lock state (only advance_cycle available)")
	}

	s2dest, ok := table.Transition.Lookup(s1, advCls, table.NumClasses)
	if !ok {
		t.Fatal("expected an advance_cycle transition from S1")
	}
	s2 := int(s2dest)

	backDest, ok := table.Transition.Lookup(s2, advCls, table.NumClasses)
	if !ok || int(backDest) != table.StartIndex {
		t.Fatalf("expected advance_cycle from S2 to return to start, got %v ok=%v", backDest, ok)
	}
}

func TestVectorSelectionMatchesSavingsRule(t *testing.T) {
	// A dense table (every slot filled) should never select the comb
	// encoding: it can only grow relative to the full vector.
	rows := [][]int32{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
	}
	v := buildVector(-1, rows)
	if v.Comb {
		t.Fatal("expected a dense table to use the full vector, not comb")
	}
	got, ok := v.Lookup(1, 2, 4)
	if !ok || got != 7 {
		t.Fatalf("Lookup(1,2) = %v, %v; want 7, true", got, ok)
	}
}

func TestVectorSelectionPrefersCombWhenSparse(t *testing.T) {
	const n = 20
	rows := make([][]int32, n)
	for i := range rows {
		row := make([]int32, n)
		for c := range row {
			row[c] = -1
		}
		row[i%n] = int32(i)
		rows[i] = row
	}
	v := buildVector(-1, rows)
	if !v.Comb {
		t.Fatal("expected a very sparse table to select the comb encoding")
	}
	for i, row := range rows {
		for c, want := range row {
			got, ok := v.Lookup(i, c, n)
			if want == -1 {
				if ok {
					t.Fatalf("Lookup(%d,%d) unexpectedly present: %v", i, c, got)
				}
				continue
			}
			if !ok || got != want {
				t.Fatalf("Lookup(%d,%d) = %v, %v; want %v, true", i, c, got, ok, want)
			}
		}
	}
}

func TestDelayTablePacksWithinBounds(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "u"},
		decl.InsnReservation{Name: "a", DefaultLatency: 1, Regexp: "u,u,u"},
	}
	res, a := checkAndBuild(t, decls)
	table := Build(res, a)
	if table.MinIssueDelay.BitsPerEntry == 0 && len(table.MinIssueDelay.Wide) == 0 {
		t.Fatal("expected either a packed or wide delay table")
	}
	for s := 0; s < table.NumStates; s++ {
		for c := 0; c < table.NumClasses; c++ {
			if d := table.MinIssueDelay.Get(s, c); d < 0 {
				t.Fatalf("negative delay at (%d,%d): %d", s, c, d)
			}
		}
	}
}
