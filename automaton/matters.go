package automaton

import (
	"github.com/coregx/pipedfa/checker"
	"github.com/coregx/pipedfa/reservation"
)

// BuildMattersSet builds the matters-set: a bit
// (cycle, unit) matters iff cycle is at or past the unit's global minimum
// occupied cycle, or the unit is queryable, or the unit participates in any
// exclusion/presence/absence-family constraint. All reservation-set unions
// performed while building the NFA are masked through this set, shrinking
// the reachable state space without changing any observable transition.
func BuildMattersSet(res *checker.Result, localUnits []string, width reservation.Width) *reservation.Set {
	unitByName := make(map[string]*checker.UnitInfo, len(res.Units))
	for _, u := range res.Units {
		unitByName[u.Name] = u
	}
	constrained := constrainedUnitSet(res)

	m := reservation.New(width)
	for idx, name := range localUnits {
		u, ok := unitByName[name]
		if !ok {
			continue
		}
		isConstrained := constrained[name]
		for cycle := 0; cycle < width.Cycles; cycle++ {
			if cycle >= u.MinCycle || u.Queryable || isConstrained {
				m.SetBit(cycle, idx)
			}
		}
	}
	return m
}

// constrainedUnitSet returns the set of unit names appearing on either side
// of any exclusion or presence/absence-family pattern.
func constrainedUnitSet(res *checker.Result) map[string]bool {
	out := make(map[string]bool)
	for _, ex := range res.Exclusions {
		out[ex.A] = true
		out[ex.B] = true
	}
	mark := func(list []checker.NamedPattern) {
		for _, p := range list {
			out[p.Unit] = true
			for _, n := range p.Pattern {
				out[n] = true
			}
		}
	}
	mark(res.Presence)
	mark(res.FinalPresence)
	mark(res.Absence)
	mark(res.FinalAbsence)
	return out
}
