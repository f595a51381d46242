package checker

import (
	"testing"

	"github.com/coregx/pipedfa/decl"
)

func TestCheckBasicResolution(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "issue"},
		decl.Unit{Name: "alu"},
		decl.Reservation{Name: "decode", Regexp: "issue"},
		decl.InsnReservation{Name: "add", DefaultLatency: 1, Regexp: "decode,alu"},
	}
	c := New()
	res, err := c.Check(decls)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if res.Diagnostics.HasErrors() {
		t.Fatalf("unexpected errors: %v", res.Diagnostics.All())
	}
	if len(res.Instructions) != 2 { // add + synthetic advance-cycle
		t.Fatalf("expected 2 instructions (including advance-cycle), got %d", len(res.Instructions))
	}
	last := res.Instructions[len(res.Instructions)-1]
	if !last.IsAdvanceCycle || last.Name != AdvanceCycleName {
		t.Fatalf("expected synthetic advance-cycle instruction last, got %+v", last)
	}
	for _, u := range res.Units {
		if !u.used {
			t.Errorf("expected unit %q to be marked used", u.Name)
		}
	}
}

func TestCheckUndefinedNameReported(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "issue"},
		decl.InsnReservation{Name: "nop", DefaultLatency: 1, Regexp: "ghost"},
	}
	c := New()
	res, err := c.Check(decls)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if !res.Diagnostics.HasErrors() {
		t.Fatal("expected an error for undefined name reference")
	}
}

func TestCheckDuplicateDeclaration(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "issue"},
		decl.Unit{Name: "issue"},
		decl.InsnReservation{Name: "nop", DefaultLatency: 0, Regexp: "issue"},
	}
	c := New()
	res, err := c.Check(decls)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if !res.Diagnostics.HasErrors() {
		t.Fatal("expected a duplicate-declaration error")
	}
}

func TestCheckCycleDetected(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "u"},
		decl.Reservation{Name: "a", Regexp: "b"},
		decl.Reservation{Name: "b", Regexp: "a"},
		decl.InsnReservation{Name: "insn", DefaultLatency: 1, Regexp: "a"},
	}
	c := New()
	res, err := c.Check(decls)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if !res.Diagnostics.HasErrors() {
		t.Fatal("expected a cyclic-reservation error")
	}
}

func TestCheckUnusedWarnings(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "issue"},
		decl.Unit{Name: "unused_unit"},
		decl.InsnReservation{Name: "nop", DefaultLatency: 0, Regexp: "issue"},
	}
	c := New()
	res, err := c.Check(decls)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if res.Diagnostics.HasErrors() {
		t.Fatalf("unused unit should warn, not error: %v", res.Diagnostics.All())
	}
	found := false
	for _, d := range res.Diagnostics.All() {
		if d.Severity == SevWarning {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a warning diagnostic for the unused unit")
	}
}

func TestCheckCycleExtents(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "issue"},
		decl.Unit{Name: "alu"},
		decl.InsnReservation{Name: "add", DefaultLatency: 1, Regexp: "issue,alu"},
	}
	c := New()
	res, err := c.Check(decls)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if res.Diagnostics.HasErrors() {
		t.Fatalf("unexpected errors: %v", res.Diagnostics.All())
	}
	if res.MaxReservLen != 2 {
		t.Fatalf("expected max reservation length 2, got %d", res.MaxReservLen)
	}
	var issue, alu *UnitInfo
	for _, u := range res.Units {
		switch u.Name {
		case "issue":
			issue = u
		case "alu":
			alu = u
		}
	}
	if issue.MinCycle != 0 || issue.MaxCycle != 0 {
		t.Fatalf("expected issue on cycle 0, got [%d,%d]", issue.MinCycle, issue.MaxCycle)
	}
	if alu.MinCycle != 1 || alu.MaxCycle != 1 {
		t.Fatalf("expected alu on cycle 1, got [%d,%d]", alu.MinCycle, alu.MaxCycle)
	}
}

func TestCheckBypassResolution(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "issue"},
		decl.InsnReservation{Name: "mul", DefaultLatency: 4, Regexp: "issue"},
		decl.InsnReservation{Name: "add", DefaultLatency: 1, Regexp: "issue"},
		decl.Bypass{Latency: 2, OutInsn: "mul", InInsn: "add"},
	}
	c := New()
	res, err := c.Check(decls)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if res.Diagnostics.HasErrors() {
		t.Fatalf("unexpected errors: %v", res.Diagnostics.All())
	}
	var mul *InsnInfo
	for _, ii := range res.Instructions {
		if ii.Name == "mul" {
			mul = ii
		}
	}
	if mul == nil || len(mul.Bypasses) != 1 || mul.Bypasses[0].InInsn != "add" || mul.Bypasses[0].Latency != 2 {
		t.Fatalf("expected mul to carry a bypass to add with latency 2, got %+v", mul)
	}
}

func TestCheckBypassUndeclaredInsn(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "issue"},
		decl.InsnReservation{Name: "mul", DefaultLatency: 4, Regexp: "issue"},
		decl.Bypass{Latency: 2, OutInsn: "mul", InInsn: "ghost"},
	}
	c := New()
	res, err := c.Check(decls)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if !res.Diagnostics.HasErrors() {
		t.Fatal("expected an error for a bypass referencing an undeclared instruction")
	}
}

func TestCheckBypassDuplicateSameLatencyWarns(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "issue"},
		decl.InsnReservation{Name: "mul", DefaultLatency: 4, Regexp: "issue"},
		decl.InsnReservation{Name: "add", DefaultLatency: 1, Regexp: "issue"},
		decl.Bypass{Latency: 2, OutInsn: "mul", InInsn: "add"},
		decl.Bypass{Latency: 2, OutInsn: "mul", InInsn: "add"},
	}
	c := New()
	res, err := c.Check(decls)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	// Duplicates with identical latency are warnings only — they must not
	// suppress generation.
	if res.Diagnostics.HasErrors() {
		t.Fatalf("identical-latency duplicate bypass must not be an error, got: %v", res.Diagnostics.All())
	}
	foundWarning := false
	for _, d := range res.Diagnostics.All() {
		if d.Severity == SevWarning {
			foundWarning = true
		}
	}
	if !foundWarning {
		t.Fatal("expected a warning for the identical-latency duplicate bypass")
	}
	var mul *InsnInfo
	for _, ii := range res.Instructions {
		if ii.Name == "mul" {
			mul = ii
		}
	}
	if mul == nil || len(mul.Bypasses) != 1 {
		t.Fatalf("expected the duplicate to be recorded only once, got %+v", mul)
	}
}

func TestCheckBypassDuplicateDifferingLatencyErrors(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "issue"},
		decl.InsnReservation{Name: "mul", DefaultLatency: 4, Regexp: "issue"},
		decl.InsnReservation{Name: "add", DefaultLatency: 1, Regexp: "issue"},
		decl.Bypass{Latency: 2, OutInsn: "mul", InInsn: "add"},
		decl.Bypass{Latency: 3, OutInsn: "mul", InInsn: "add"},
	}
	c := New()
	res, err := c.Check(decls)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	// Differing latencies for the same pair are a real conflict — generation
	// must be suppressed rather than silently picking the first-declared
	// latency.
	if !res.Diagnostics.HasErrors() {
		t.Fatal("expected an error for conflicting bypass latencies on the same instruction pair")
	}
}

func TestCheckBypassDuplicateDifferingLatencyPermissiveDowngrades(t *testing.T) {
	decls := []decl.Decl{
		decl.Option{Kind: decl.OptPermissive},
		decl.Unit{Name: "issue"},
		decl.InsnReservation{Name: "mul", DefaultLatency: 4, Regexp: "issue"},
		decl.InsnReservation{Name: "add", DefaultLatency: 1, Regexp: "issue"},
		decl.Bypass{Latency: 2, OutInsn: "mul", InInsn: "add"},
		decl.Bypass{Latency: 3, OutInsn: "mul", InInsn: "add"},
	}
	c := New()
	res, err := c.Check(decls)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if res.Diagnostics.HasErrors() {
		t.Fatalf("conflicting bypass latency should downgrade to a warning under permissive mode, got: %v", res.Diagnostics.All())
	}
}

func TestCheckExclusionConflict(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "p0"},
		decl.Unit{Name: "p1"},
		decl.Exclusion{NamesA: []string{"p0"}, NamesB: []string{"p1"}},
		decl.InsnReservation{Name: "nop", DefaultLatency: 0, Regexp: "p0|p1"},
	}
	c := New()
	res, err := c.Check(decls)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if res.Diagnostics.HasErrors() {
		t.Fatalf("unexpected errors: %v", res.Diagnostics.All())
	}
	if len(res.Exclusions) != 2 { // symmetric closure: (p0,p1) and (p1,p0)
		t.Fatalf("expected symmetric exclusion pair, got %v", res.Exclusions)
	}
}

func TestCheckExclusionSelfReference(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "p0"},
		decl.Exclusion{NamesA: []string{"p0"}, NamesB: []string{"p0"}},
		decl.InsnReservation{Name: "nop", DefaultLatency: 0, Regexp: "p0"},
	}
	c := New()
	res, err := c.Check(decls)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if !res.Diagnostics.HasErrors() {
		t.Fatal("expected a self-exclusion error")
	}
}

func TestCheckExclusionCrossAutomaton(t *testing.T) {
	decls := []decl.Decl{
		decl.Automaton{Name: "a"},
		decl.Automaton{Name: "b"},
		decl.Unit{Name: "p0", Automaton: "a"},
		decl.Unit{Name: "p1", Automaton: "b"},
		decl.Exclusion{NamesA: []string{"p0"}, NamesB: []string{"p1"}},
		decl.InsnReservation{Name: "nop", DefaultLatency: 0, Regexp: "p0|p1"},
	}
	c := New()
	res, err := c.Check(decls)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if !res.Diagnostics.HasErrors() {
		t.Fatal("expected an error for an exclusion pair spanning two automata")
	}
}

func TestCheckUnitRequiresOwnAbsence(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "p0"},
		decl.PresenceConstraint{Kind: decl.Absence, Names: []string{"p0"}, Patterns: [][]string{{"p0"}}},
		decl.InsnReservation{Name: "nop", DefaultLatency: 0, Regexp: "p0"},
	}
	c := New()
	res, err := c.Check(decls)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if !res.Diagnostics.HasErrors() {
		t.Fatal("expected an error for a unit requiring its own absence")
	}
}

func TestCheckExcludesAndRequiresPresence(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "p0"},
		decl.Unit{Name: "p1"},
		decl.Exclusion{NamesA: []string{"p0"}, NamesB: []string{"p1"}},
		decl.PresenceConstraint{Kind: decl.Presence, Names: []string{"p0"}, Patterns: [][]string{{"p1"}}},
		decl.InsnReservation{Name: "nop", DefaultLatency: 0, Regexp: "p0|p1"},
	}
	c := New()
	res, err := c.Check(decls)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if !res.Diagnostics.HasErrors() {
		t.Fatal("expected an error when a unit both excludes and requires presence of the same unit")
	}

	permissive := append([]decl.Decl{decl.Option{Kind: decl.OptPermissive}}, decls...)
	c2 := New()
	res2, err := c2.Check(permissive)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if res2.Diagnostics.HasErrors() {
		t.Fatalf("expected exclusion/presence conflict to downgrade to a warning under permissive mode: %v", res2.Diagnostics.All())
	}
}

func TestCheckRequiresAbsenceAndPresence(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "p0"},
		decl.Unit{Name: "p1"},
		decl.PresenceConstraint{Kind: decl.Presence, Names: []string{"p0"}, Patterns: [][]string{{"p1"}}},
		decl.PresenceConstraint{Kind: decl.Absence, Names: []string{"p0"}, Patterns: [][]string{{"p1"}}},
		decl.InsnReservation{Name: "nop", DefaultLatency: 0, Regexp: "p0|p1"},
	}
	c := New()
	res, err := c.Check(decls)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if !res.Diagnostics.HasErrors() {
		t.Fatal("expected an error when a unit requires both presence and absence of the same unit")
	}
}

func TestCheckPermissiveDowngradesDuplicate(t *testing.T) {
	decls := []decl.Decl{
		decl.Option{Kind: decl.OptPermissive},
		decl.Automaton{Name: "a"},
		decl.Automaton{Name: "a"},
		decl.Unit{Name: "u", Automaton: "a"},
		decl.InsnReservation{Name: "nop", DefaultLatency: 0, Regexp: "u"},
	}
	c := New()
	res, err := c.Check(decls)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if res.Diagnostics.HasErrors() {
		t.Fatalf("duplicate automaton should downgrade to warning under permissive mode: %v", res.Diagnostics.All())
	}
}

func TestCheckUnitWithoutAutomatonWhenAutomataDeclared(t *testing.T) {
	decls := []decl.Decl{
		decl.Automaton{Name: "ialu"},
		decl.Unit{Name: "issue", Automaton: "ialu"},
		decl.Unit{Name: "floating"},
		decl.InsnReservation{Name: "nop", DefaultLatency: 0, Regexp: "issue,floating"},
	}
	c := New()
	res, err := c.Check(decls)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if !res.Diagnostics.HasErrors() {
		t.Fatal("expected an error for a unit declared without an automaton while automata are defined")
	}
}

func TestCheckUnusedAutomatonWarns(t *testing.T) {
	decls := []decl.Decl{
		decl.Automaton{Name: "ialu"},
		decl.Automaton{Name: "idle"},
		decl.Unit{Name: "issue", Automaton: "ialu"},
		decl.InsnReservation{Name: "nop", DefaultLatency: 0, Regexp: "issue"},
	}
	c := New()
	res, err := c.Check(decls)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if res.Diagnostics.HasErrors() {
		t.Fatalf("an automaton with no units should warn, not error: %v", res.Diagnostics.All())
	}
	foundWarning := false
	for _, d := range res.Diagnostics.All() {
		if d.Severity == SevWarning {
			foundWarning = true
		}
	}
	if !foundWarning {
		t.Fatal("expected a warning for the automaton with no units")
	}
}

func TestCheckParseErrorIsFatal(t *testing.T) {
	decls := []decl.Decl{
		decl.Unit{Name: "u"},
		decl.InsnReservation{Name: "bad", DefaultLatency: 0, Regexp: "u,"},
	}
	c := New()
	_, err := c.Check(decls)
	if err == nil {
		t.Fatal("expected a parse error for malformed regexp source")
	}
}
