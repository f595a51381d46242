package reservation

// Table holds, per unit index, the five constraint lists a unit can
// carry: exclusion, presence, final-presence, absence and
// final-absence. Exclusion is made symmetric by the caller (the checker's
// normalization pass) before being loaded here;
// presence/absence patterns are attached to each unit named on their LHS.
type Table struct {
	units         int
	exclusion     [][]int
	presence      [][][]int
	finalPresence [][][]int
	absence       [][][]int
	finalAbsence  [][][]int
}

// NewTable returns an empty constraint table sized for the given unit
// count.
func NewTable(units int) *Table {
	return &Table{
		units:         units,
		exclusion:     make([][]int, units),
		presence:      make([][][]int, units),
		finalPresence: make([][][]int, units),
		absence:       make([][][]int, units),
		finalAbsence:  make([][][]int, units),
	}
}

// AddExclusion records that unit excludes other. Callers are expected to
// call this for both (unit, other) and (other, unit) to realize the
// symmetric closure the checker establishes; it deduplicates on repeated
// calls.
func (t *Table) AddExclusion(unit, other int) {
	for _, v := range t.exclusion[unit] {
		if v == other {
			return
		}
	}
	t.exclusion[unit] = append(t.exclusion[unit], other)
}

// Excludes reports whether unit excludes other.
func (t *Table) Excludes(unit, other int) bool {
	for _, v := range t.exclusion[unit] {
		if v == other {
			return true
		}
	}
	return false
}

// AddPresence attaches a presence pattern (a group of unit indices) to unit.
func (t *Table) AddPresence(unit int, pattern []int) {
	t.presence[unit] = append(t.presence[unit], pattern)
}

// AddFinalPresence attaches a final-presence pattern to unit.
func (t *Table) AddFinalPresence(unit int, pattern []int) {
	t.finalPresence[unit] = append(t.finalPresence[unit], pattern)
}

// AddAbsence attaches an absence pattern to unit.
func (t *Table) AddAbsence(unit int, pattern []int) {
	t.absence[unit] = append(t.absence[unit], pattern)
}

// AddFinalAbsence attaches a final-absence pattern to unit.
func (t *Table) AddFinalAbsence(unit int, pattern []int) {
	t.finalAbsence[unit] = append(t.finalAbsence[unit], pattern)
}

func subsetOnCycle(pattern []int, s *Set, cycle int) bool {
	for _, u := range pattern {
		if !s.Test(cycle, u) {
			return false
		}
	}
	return true
}

func subsetOnCycleEither(pattern []int, a, b *Set, cycle int) bool {
	for _, u := range pattern {
		if !a.Test(cycle, u) && !b.Test(cycle, u) {
			return false
		}
	}
	return true
}

// Conflicts implements the constraint-aware half of "intersected?": a and
// b conflict if any cycle violates an exclusion,
// presence, final-presence, absence or final-absence pattern for any unit
// mentioned in either operand. The check is evaluated from each operand's
// perspective in turn so Conflicts(a, b) == Conflicts(b, a).
func (t *Table) Conflicts(a, b *Set) bool {
	return t.conflictsFrom(a, b) || t.conflictsFrom(b, a)
}

// conflictsFrom checks constraints for every unit set in x against y as
// "the other reservations on that cycle".
func (t *Table) conflictsFrom(x, y *Set) bool {
	w := x.Width()
	for c := 0; c < w.Cycles; c++ {
		for _, u := range x.UnitsOnCycle(c) {
			for _, v := range t.exclusion[u] {
				if y.Test(c, v) {
					return true
				}
			}
			if pats := t.presence[u]; len(pats) > 0 {
				ok := false
				for _, pat := range pats {
					if subsetOnCycle(pat, y, c) {
						ok = true
						break
					}
				}
				if !ok {
					return true
				}
			}
			if pats := t.finalPresence[u]; len(pats) > 0 {
				ok := false
				for _, pat := range pats {
					if subsetOnCycleEither(pat, x, y, c) {
						ok = true
						break
					}
				}
				if !ok {
					return true
				}
			}
			for _, pat := range t.absence[u] {
				if subsetOnCycle(pat, y, c) {
					return true
				}
			}
			for _, pat := range t.finalAbsence[u] {
				if subsetOnCycleEither(pat, x, y, c) {
					return true
				}
			}
		}
	}
	return false
}
