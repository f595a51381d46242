package automaton

import (
	"github.com/coregx/pipedfa/checker"
	"github.com/coregx/pipedfa/reservation"
)

// BuildTable remaps the checker's name-indexed constraint lists into one
// automaton's local 0-based unit indices, producing the reservation.Table
// that automaton's NFA construction tests "intersected?" against. A
// constraint naming a unit outside this automaton cannot be represented
// locally and is dropped here; cross-automaton constraint violations are
// instead the distribution validator's job.
func BuildTable(res *checker.Result, localUnits map[string]int) *reservation.Table {
	t := reservation.NewTable(len(localUnits))
	for _, ex := range res.Exclusions {
		a, aok := localUnits[ex.A]
		b, bok := localUnits[ex.B]
		if aok && bok {
			t.AddExclusion(a, b)
		}
	}
	addPatterns := func(list []checker.NamedPattern, add func(unit int, pattern []int)) {
		for _, p := range list {
			unit, ok := localUnits[p.Unit]
			if !ok {
				continue
			}
			pattern := make([]int, 0, len(p.Pattern))
			for _, name := range p.Pattern {
				if idx, ok := localUnits[name]; ok {
					pattern = append(pattern, idx)
				}
			}
			add(unit, pattern)
		}
	}
	addPatterns(res.Presence, t.AddPresence)
	addPatterns(res.FinalPresence, t.AddFinalPresence)
	addPatterns(res.Absence, t.AddAbsence)
	addPatterns(res.FinalAbsence, t.AddFinalAbsence)
	return t
}
