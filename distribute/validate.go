package distribute

import (
	"github.com/coregx/pipedfa/checker"
	"github.com/coregx/pipedfa/regexpir"
)

// Validate checks the assignment against each instruction's canonical
// regexp, every automaton's unit group must appear on every top-level
// alternative, or that automaton's DFA would over-accept (it would allow
// issuing the instruction along a path the other alternatives forbid).
// Errors accumulate into res.Diagnostics rather than aborting on the first
// violation, matching the checker's accumulate-then-report style.
func Validate(res *checker.Result, assign *Assignment) {
	for _, ii := range res.Instructions {
		if ii.IsAdvanceCycle || ii.Canonical == nil {
			continue
		}
		validateInstruction(res, assign, ii)
	}
}

func validateInstruction(res *checker.Result, assign *Assignment, ii *checker.InsnInfo) {
	alts := alternativesOf(ii.Canonical)
	if len(alts) < 2 {
		return
	}

	// altAutomata[a][cycle] = set of automaton names with a unit reserved at
	// that (alternative, cycle); unitAt[a][cycle][automaton] records one
	// representative offending unit name for error messages.
	altAutomata := make([]map[int]map[string]bool, len(alts))
	unitAt := make([]map[int]map[string]string, len(alts))
	for a, alt := range alts {
		altAutomata[a] = make(map[int]map[string]bool)
		unitAt[a] = make(map[int]map[string]string)
		for cycle, elem := range sequenceElements(alt) {
			collectUnits(elem, cycle, assign, altAutomata[a], unitAt[a])
		}
	}

	for a := range alts {
		for cycle, automata := range altAutomata[a] {
			for auto := range automata {
				for b := range alts {
					if b == a {
						continue
					}
					if !altAutomata[b][cycle][auto] {
						offender := unitAt[a][cycle][auto]
						res.Diagnostics.Errorf(
							"instruction %q: automaton %q unit %q on alternative %d cycle %d has no matching usage on alternative %d (automaton %q would over-accept)",
							ii.Name, auto, offender, a, cycle, b, auto,
						)
					}
				}
			}
		}
	}
}

func alternativesOf(canon *regexpir.Node) []*regexpir.Node {
	if canon == nil || canon.Kind == regexpir.Nothing {
		return []*regexpir.Node{canon}
	}
	if canon.Kind == regexpir.OneOf {
		return canon.Children
	}
	return []*regexpir.Node{canon}
}

func sequenceElements(n *regexpir.Node) []*regexpir.Node {
	if n == nil {
		return nil
	}
	if n.Kind == regexpir.Sequence {
		return n.Children
	}
	return []*regexpir.Node{n}
}

func collectUnits(elem *regexpir.Node, cycle int, assign *Assignment, automata map[int]map[string]bool, units map[int]map[string]string) {
	if elem == nil {
		return
	}
	switch elem.Kind {
	case regexpir.Unit:
		auto, ok := assign.AutomatonOf[elem.Name]
		if !ok {
			return
		}
		if automata[cycle] == nil {
			automata[cycle] = make(map[string]bool)
		}
		automata[cycle][auto] = true
		if units[cycle] == nil {
			units[cycle] = make(map[string]string)
		}
		if _, exists := units[cycle][auto]; !exists {
			units[cycle][auto] = elem.Name
		}
	case regexpir.AllOf:
		for _, c := range elem.Children {
			collectUnits(c, cycle, assign, automata, units)
		}
	}
}
