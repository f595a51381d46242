package runtime

// MinIssueDelay implements min_issue_delay(s, insn): the minimum number of
// advance-cycle transitions needed before insn can issue from s, across
// every automaton simultaneously. Per automaton this is a direct
// compress.DelayTable lookup; the instruction can issue globally only once
// every automaton is individually ready, so the combined delay is the max
// across automata, not the sum.
func (p *Program) MinIssueDelay(s *State, insn int) int {
	delay := 0
	for ai, t := range p.tables {
		cls := t.Translate[insn]
		d := t.MinIssueDelay.Get(s.idx[ai], cls)
		if d > delay {
			delay = d
		}
	}
	return delay
}

// MinInsnConflictDelay implements min_insn_conflict_delay(s, i1, i2): the
// delay needed between issuing i1 and i2 when s is first reset — i.e. from
// a fresh start state, issue i1, then report the minimum number of
// advance-cycles before i2 becomes issuable. s's current value is
// irrelevant (the contract resets first) and s is left unchanged; the reset
// and the i1 issue happen on a scratch copy.
func (p *Program) MinInsnConflictDelay(s *State, i1, i2 int) int {
	tmp := p.NewState()
	if p.Transition(tmp, i1) != -1 {
		// i1 cannot issue from a cold reset at all; there is no meaningful
		// conflict delay to report beyond "however long issuing i1 itself
		// takes", which min_issue_delay already expresses.
		return p.MinIssueDelay(tmp, i1)
	}
	return p.MinIssueDelay(tmp, i2)
}

// InsnLatency implements insn_latency(i1, i2): the bypass latency from i1
// to i2 if one is wired (optionally restricted to a guard predicate name,
// compared only for equality: guard predicates are opaque identifiers),
// else i1's default latency.
func (p *Program) InsnLatency(i1, i2 int, guard string) int {
	for _, bp := range p.bypassByOut[i1] {
		if p.insnIndexByName[bp.InInsn] != i2 {
			continue
		}
		if bp.Guard == "" || bp.Guard == guard {
			return bp.Latency
		}
	}
	return p.res.Instructions[i1].DefaultLatency
}

// GetCPUUnitCode implements get_cpu_unit_code(name): binary search over
// the sorted union of every automaton's queryable units.
func (p *Program) GetCPUUnitCode(name string) (int, bool) {
	lo, hi := 0, len(p.queryable)
	for lo < hi {
		mid := (lo + hi) / 2
		if p.queryable[mid].name < name {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(p.queryable) && p.queryable[lo].name == name {
		return lo, true
	}
	return -1, false
}

// CPUUnitReservationP implements cpu_unit_reservation_p(s, code): whether
// the queryable unit identified by code is reserved on cycle 0 of s's
// current state in its owning automaton.
func (p *Program) CPUUnitReservationP(s *State, code int) bool {
	if code < 0 || code >= len(p.queryable) {
		return false
	}
	q := p.queryable[code]
	return p.tables[q.automaton].Reserved.Test(s.idx[q.automaton], q.col)
}
