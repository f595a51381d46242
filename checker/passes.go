package checker

import "github.com/coregx/pipedfa/regexpir"

// resolveReferences is pass 2: rewrite every NameRef node reachable from a
// reservation or instruction regexp into a Unit or ReservRef node, marking
// the referent used. Unknown names are reported and left as NameRef so
// later passes can skip them without panicking on a nil lookup.
func (c *Checker) resolveReferences() {
	if c.automataSeen {
		// Once any automaton is declared, unit-to-automaton assignment is
		// explicit: a unit left unassigned would silently land in automaton 0
		// and change that automaton's state space behind the author's back.
		for _, u := range c.units {
			if u.Automaton == "" {
				c.diags.Errorf("unit %q declared without an automaton while automata are defined", u.Name)
			}
		}
	}
	for _, r := range c.reservs {
		c.resolveNode(r.Raw, "reservation "+r.Name)
	}
	for _, ii := range c.insnsList {
		c.resolveNode(ii.Raw, "instruction "+ii.Name)
	}
}

func (c *Checker) resolveNode(n *regexpir.Node, context string) {
	if n == nil {
		return
	}
	if n.Kind == regexpir.NameRef {
		owner, ok := c.names[n.Name]
		if !ok {
			c.diags.Errorf("%s: undefined name %q", context, n.Name)
			return
		}
		if owner.unit != nil {
			n.Kind = regexpir.Unit
			owner.unit.used = true
		} else {
			n.Kind = regexpir.ReservRef
			owner.reservation.used = true
		}
		return
	}
	for _, ch := range n.Children {
		c.resolveNode(ch, context)
	}
}

// detectCycles is pass 3: a reservation that (transitively, through
// ReservRef edges) refers to itself can never be inlined into a finite
// tree, so it is reported and excluded from inlining.
func (c *Checker) detectCycles() {
	byName := make(map[string]*ReservationInfo, len(c.reservs))
	for _, r := range c.reservs {
		byName[r.Name] = r
	}
	var stack []string
	var visit func(r *ReservationInfo) bool // false once a cycle through r was reported
	visit = func(r *ReservationInfo) bool {
		if r.onStack {
			c.diags.Errorf("cyclic reservation reference: %s -> %s", joinStack(stack), r.Name)
			return false
		}
		if r.visitedPass != 0 {
			return r.visitedPass == 2
		}
		r.visitedPass = 1
		r.onStack = true
		stack = append(stack, r.Name)
		ok := true
		c.forEachReservRef(r.Raw, func(name string) {
			if dep, found := byName[name]; found {
				if !visit(dep) {
					ok = false
				}
			}
		})
		stack = stack[:len(stack)-1]
		r.onStack = false
		if ok {
			r.visitedPass = 2
		}
		return ok
	}
	allOK := true
	for _, r := range c.reservs {
		if r.visitedPass == 0 {
			if !visit(r) {
				allOK = false
			}
		}
	}
	if allOK {
		c.inlineAll()
	}
}

func joinStack(stack []string) string {
	out := ""
	for i, s := range stack {
		if i > 0 {
			out += " -> "
		}
		out += s
	}
	return out
}

func (c *Checker) forEachReservRef(n *regexpir.Node, fn func(name string)) {
	if n == nil {
		return
	}
	if n.Kind == regexpir.ReservRef {
		fn(n.Name)
	}
	for _, ch := range n.Children {
		c.forEachReservRef(ch, fn)
	}
}

// inlineAll expands every ReservRef into a deep copy of its referenced
// tree, producing
// each InsnInfo.Resolved as a self-contained tree of Unit/Nothing/Sequence/
// Repeat/AllOf/OneOf nodes only. Only reached once detectCycles has
// confirmed the reservation graph is acyclic.
func (c *Checker) inlineAll() {
	byName := make(map[string]*ReservationInfo, len(c.reservs))
	for _, r := range c.reservs {
		byName[r.Name] = r
	}
	cache := make(map[string]*regexpir.Node, len(c.reservs))
	var inline func(n *regexpir.Node) *regexpir.Node
	inline = func(n *regexpir.Node) *regexpir.Node {
		if n == nil {
			return nil
		}
		if n.Kind == regexpir.ReservRef {
			if cached, ok := cache[n.Name]; ok {
				return cached.Clone()
			}
			dep, ok := byName[n.Name]
			if !ok {
				return regexpir.NewNothing()
			}
			expanded := inline(dep.Raw)
			cache[n.Name] = expanded
			return expanded.Clone()
		}
		out := &regexpir.Node{Kind: n.Kind, Name: n.Name, Count: n.Count}
		if n.Children != nil {
			out.Children = make([]*regexpir.Node, len(n.Children))
			for i, ch := range n.Children {
				out.Children[i] = inline(ch)
			}
		}
		return out
	}
	for _, r := range c.reservs {
		r.Resolved = inline(r.Raw)
	}
	for _, ii := range c.insnsList {
		ii.Resolved = inline(ii.Raw)
	}
}

// normalizeConstraints is pass 4: validate that every unit named in an
// exclusion or presence/absence-family constraint actually exists, marking
// participants used, and cross-check the exclusion/presence/absence tables
// against each other for the constraint conflicts worth rejecting: a unit
// excluding itself (already caught at collection time), an exclusion pair
// spanning two named automata, a unit requiring its own absence, a unit that
// both excludes and requires the presence of the same unit, and a unit that
// requires both the presence and the absence of the same unit (the latter
// two downgrade to warnings under the permissive option).
func (c *Checker) normalizeConstraints() {
	checkUnit := func(name string) bool {
		owner, ok := c.names[name]
		if !ok || owner.unit == nil {
			c.diags.ErrorfPermissive(c.options.Permissive, "constraint refers to undeclared unit %q", name)
			return false
		}
		owner.unit.used = true
		return true
	}
	for _, ex := range c.exclusions {
		okA := checkUnit(ex.A)
		okB := checkUnit(ex.B)
		if okA && okB {
			a, b := c.names[ex.A].unit, c.names[ex.B].unit
			if a.Automaton != "" && b.Automaton != "" && a.Automaton != b.Automaton {
				c.diags.Errorf("units %q and %q in exclusion set belong to different automata (%q, %q)", a.Name, b.Name, a.Automaton, b.Automaton)
			}
		}
	}
	checkPatterns := func(list []NamedPattern) {
		for _, p := range list {
			checkUnit(p.Unit)
			for _, pat := range p.Pattern {
				checkUnit(pat)
			}
		}
	}
	checkPatterns(c.presence)
	checkPatterns(c.finalPresence)
	checkPatterns(c.absence)
	checkPatterns(c.finalAbsence)

	c.checkConstraintConflicts()
}

// checkConstraintConflicts cross-references the now-fully-collected
// exclusion/presence/absence tables, keyed by the unit each pattern is
// attached to.
func (c *Checker) checkConstraintConflicts() {
	excludes := make(map[string]map[string]bool)
	for _, ex := range c.exclusions {
		if excludes[ex.A] == nil {
			excludes[ex.A] = make(map[string]bool)
		}
		excludes[ex.A][ex.B] = true
	}

	presenceOf := make(map[string]map[string]bool)
	addTo := func(m map[string]map[string]bool, unit, target string) {
		if m[unit] == nil {
			m[unit] = make(map[string]bool)
		}
		m[unit][target] = true
	}
	for _, p := range c.presence {
		for _, t := range p.Pattern {
			addTo(presenceOf, p.Unit, t)
		}
	}
	for _, p := range c.finalPresence {
		for _, t := range p.Pattern {
			addTo(presenceOf, p.Unit, t)
		}
	}

	absenceOf := make(map[string]map[string]bool)
	checkOwnAbsence := func(list []NamedPattern) {
		for _, p := range list {
			for _, t := range p.Pattern {
				addTo(absenceOf, p.Unit, t)
				if t == p.Unit {
					c.diags.Errorf("unit %q requires its own absence", p.Unit)
				}
			}
		}
	}
	checkOwnAbsence(c.absence)
	checkOwnAbsence(c.finalAbsence)

	for unit, targets := range excludes {
		for target := range targets {
			if presenceOf[unit][target] {
				c.diags.ErrorfPermissive(c.options.Permissive, "unit %q excludes and requires presence of %q", unit, target)
			}
		}
	}
	for unit, targets := range presenceOf {
		for target := range targets {
			if absenceOf[unit][target] {
				c.diags.ErrorfPermissive(c.options.Permissive, "unit %q requires absence and presence of %q", unit, target)
			}
		}
	}
}

// auditUsage is pass 5: a declared unit or reservation that nothing ever
// references is almost always a typo in a larger description and is worth
// flagging, but it is never fatal to generation.
func (c *Checker) auditUsage() {
	for _, u := range c.units {
		if !u.used {
			c.diags.Warnf("unit %q is never referenced by any reservation", u.Name)
		}
	}
	for _, r := range c.reservs {
		if !r.used {
			c.diags.Warnf("reservation %q is never referenced by any instruction or reservation", r.Name)
		}
	}
	for _, a := range c.automataList {
		assigned := false
		for _, u := range c.units {
			if u.Automaton == a.Name {
				assigned = true
				break
			}
		}
		if !assigned {
			c.diags.Warnf("automaton %q has no units assigned to it", a.Name)
		}
	}
}

// computeCycleExtents is pass 6: walk every instruction's resolved regexp,
// recording the cycle range ([MinCycle, MaxCycle]) each unit is reserved on,
// and returns the maximum reservation length (in cycles) across all
// instructions - the width later phases size their reservation.Set values
// to.
func (c *Checker) computeCycleExtents() int {
	maxLen := 0
	for _, ii := range c.insnsList {
		span := c.walkExtent(ii.Resolved, 0)
		if span > maxLen {
			maxLen = span
		}
	}
	for _, r := range c.reservs {
		if r.used {
			continue
		}
		// A reservation not reachable from any instruction still contributes
		// no width of its own beyond what inlining already counted; recorded
		// here purely so a freestanding (unused) reservation's extent is
		// visible to diagnostics/tests without double counting via inlining.
		_ = c.walkExtent(r.Resolved, 0)
	}
	return maxLen
}

func (c *Checker) walkExtent(n *regexpir.Node, cycle int) int {
	if n == nil {
		return 0
	}
	switch n.Kind {
	case regexpir.Unit:
		if owner, ok := c.names[n.Name]; ok && owner.unit != nil {
			u := owner.unit
			if !u.extentSeen {
				u.MinCycle, u.MaxCycle = cycle, cycle
				u.extentSeen = true
			} else {
				if cycle < u.MinCycle {
					u.MinCycle = cycle
				}
				if cycle > u.MaxCycle {
					u.MaxCycle = cycle
				}
			}
			u.used = true
		}
		return 1
	case regexpir.Nothing:
		return 1
	case regexpir.Sequence:
		cur := cycle
		for _, ch := range n.Children {
			cur += c.walkExtent(ch, cur)
		}
		return cur - cycle
	case regexpir.Repeat:
		child := n.Children[0]
		total := 0
		cur := cycle
		for i := 0; i < n.Count; i++ {
			s := c.walkExtent(child, cur)
			cur += s
			total += s
		}
		return total
	case regexpir.AllOf, regexpir.OneOf:
		maxSpan := 0
		for _, ch := range n.Children {
			if s := c.walkExtent(ch, cycle); s > maxSpan {
				maxSpan = s
			}
		}
		return maxSpan
	default:
		return 0
	}
}

// resolveBypasses is pass 7: attach each declared bypass to its producing
// instruction, validating both ends exist and flagging conflicting repeated
// declarations for the same (out, in, guard) triple.
func (c *Checker) resolveBypasses() {
	type key struct{ out, in, guard string }
	seen := make(map[key]int) // -> recorded latency

	for _, ii := range c.insnsList {
		for _, b := range c.bypassesByOut[ii.Name] {
			if _, ok := c.insns[b.InInsn]; !ok {
				c.diags.Errorf("bypass %s->%s: undeclared instruction %q", b.OutInsn, b.InInsn, b.InInsn)
				continue
			}
			k := key{b.OutInsn, b.InInsn, b.Guard}
			if prior, dup := seen[k]; dup {
				if prior != b.Latency {
					// Differing latencies for the same (out, in, guard) pair
					// are a genuine conflict: error,
					// downgraded to a warning under the permissive option.
					c.diags.ErrorfPermissive(c.options.Permissive, "conflicting bypass latency for %s -> %s: %d then %d", b.OutInsn, b.InInsn, prior, b.Latency)
				} else {
					// Identical-latency duplicates are always just a
					// warning, not gated behind permissive mode.
					c.diags.Warnf("duplicate bypass %s -> %s with latency %d", b.OutInsn, b.InInsn, b.Latency)
				}
				continue
			}
			seen[k] = b.Latency
			ii.Bypasses = append(ii.Bypasses, BypassInfo{InInsn: b.InInsn, Latency: b.Latency, Guard: b.Guard})
		}
	}
}

// insertAdvanceCycle is pass 8: append the synthetic, always-present
// instruction representing a pure cycle advance with no reservation, used
// by later phases (and by hand-written schedulers) to step an automaton
// forward without issuing a real instruction.
func (c *Checker) insertAdvanceCycle() {
	ii := &InsnInfo{
		Name:           AdvanceCycleName,
		Index:          len(c.insnsList),
		DefaultLatency: 0,
		Raw:            regexpir.NewNothing(),
		Resolved:       regexpir.NewNothing(),
		IsAdvanceCycle: true,
		used:           true,
	}
	c.insnsList = append(c.insnsList, ii)
	c.insns[ii.Name] = ii
}
