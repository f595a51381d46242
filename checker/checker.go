// Package checker implements the semantic checker over declaration records:
// name interning, reference resolution, cycle detection, constraint
// normalization, usage auditing, cycle-extent computation, bypass
// resolution and advance-cycle insertion. Diagnostics accumulate across all
// eight passes so a single run reports as many problems as possible; only
// once checking completes does the caller decide whether to proceed to
// automaton construction.
package checker

import (
	"fmt"

	"github.com/coregx/pipedfa/decl"
	"github.com/coregx/pipedfa/regexpir"
)

// nameOwner distinguishes what a name in the shared unit/reservation
// namespace refers to.
type nameOwner struct {
	unit        *UnitInfo
	reservation *ReservationInfo
}

// Checker runs the eight-pass semantic check over one ordered sequence of
// declarations. It is constructed fresh per run, so independent runs never interfere.
type Checker struct {
	automata     map[string]*AutomatonInfo
	automataList []*AutomatonInfo
	automataSeen bool

	names   map[string]*nameOwner // shared unit/reservation namespace
	units   []*UnitInfo
	reservs []*ReservationInfo

	insns     map[string]*InsnInfo
	insnsList []*InsnInfo

	exclusions    []NamedExclusion
	exclusionSeen map[[2]string]bool
	presence      []NamedPattern
	finalPresence []NamedPattern
	absence       []NamedPattern
	finalAbsence  []NamedPattern

	bypassesByOut map[string][]*decl.Bypass

	options Options
	diags   Diagnostics

	passCounter int
}

// New constructs an empty Checker.
func New() *Checker {
	return &Checker{
		automata:      make(map[string]*AutomatonInfo),
		names:         make(map[string]*nameOwner),
		insns:         make(map[string]*InsnInfo),
		exclusionSeen: make(map[[2]string]bool),
		bypassesByOut: make(map[string][]*decl.Bypass),
	}
}

// Check runs all eight passes over decls and returns the checked Result.
// The returned error is non-nil only for an Input error:
// a malformed regexp source string, caught while parsing declaration
// regexps, which is fatal at parse time rather than an accumulated user
// error. Accumulated user errors/warnings are reported in Result.Diagnostics;
// the caller must check Result.Diagnostics.HasErrors() before proceeding to
// automaton construction.
func (c *Checker) Check(decls []decl.Decl) (*Result, error) {
	if err := c.collect(decls); err != nil {
		return nil, err
	}
	c.resolveReferences()             // pass 2
	c.detectCycles()                  // pass 3
	c.normalizeConstraints()          // pass 4
	c.auditUsage()                    // pass 5
	maxLen := c.computeCycleExtents() // pass 6
	c.resolveBypasses()               // pass 7
	c.insertAdvanceCycle()            // pass 8

	res := &Result{
		Automata:      c.automataList,
		Units:         c.units,
		Reservations:  c.reservs,
		Instructions:  c.insnsList,
		Exclusions:    c.exclusions,
		Presence:      c.presence,
		FinalPresence: c.finalPresence,
		Absence:       c.absence,
		FinalAbsence:  c.finalAbsence,
		MaxReservLen:  maxLen,
		Options:       c.options,
		Diagnostics:   c.diags,
		AutomataNamed: c.automataSeen,
	}
	return res, nil
}

// collect is pass 1 (declaration interning): walk the ordered declaration
// sequence once, populate the per-kind name spaces, and parse every regexp
// source string. Duplicate names are errors; only a duplicate automaton
// declaration is downgraded to a warning under the permissive option.
func (c *Checker) collect(decls_ []decl.Decl) error {
	// First sweep: options, since Permissive must be known before the
	// duplicate-declaration checks below run.
	for _, d := range decls_ {
		if o, ok := d.(decl.Option); ok {
			c.applyOption(o)
		}
	}

	for _, d := range decls_ {
		switch v := d.(type) {
		case decl.Automaton:
			if _, dup := c.automata[v.Name]; dup {
				c.diags.ErrorfPermissive(c.options.Permissive, "duplicate automaton declaration %q", v.Name)
				continue
			}
			ai := &AutomatonInfo{Name: v.Name, Index: len(c.automataList)}
			c.automata[v.Name] = ai
			c.automataList = append(c.automataList, ai)
			c.automataSeen = true

		case decl.Unit:
			if c.nameTaken(v.Name) {
				c.diags.Errorf("duplicate declaration of name %q", v.Name)
				continue
			}
			ui := &UnitInfo{Name: v.Name, Index: len(c.units), Automaton: v.Automaton, Queryable: v.Queryable}
			c.units = append(c.units, ui)
			c.names[v.Name] = &nameOwner{unit: ui}

		case decl.Reservation:
			if c.nameTaken(v.Name) {
				c.diags.Errorf("duplicate declaration of name %q", v.Name)
				continue
			}
			node, err := regexpir.Parse(v.Regexp)
			if err != nil {
				return err
			}
			ri := &ReservationInfo{Name: v.Name, Raw: node}
			c.reservs = append(c.reservs, ri)
			c.names[v.Name] = &nameOwner{reservation: ri}

		case decl.InsnReservation:
			if _, dup := c.insns[v.Name]; dup {
				c.diags.Errorf("duplicate instruction declaration %q", v.Name)
				continue
			}
			node, err := regexpir.Parse(v.Regexp)
			if err != nil {
				return err
			}
			ii := &InsnInfo{
				Name:           v.Name,
				Index:          len(c.insnsList),
				DefaultLatency: v.DefaultLatency,
				CondExpr:       v.CondExpr,
				Raw:            node,
			}
			if v.DefaultLatency < 0 {
				c.diags.Errorf("instruction %q has negative default latency %d", v.Name, v.DefaultLatency)
			}
			c.insns[v.Name] = ii
			c.insnsList = append(c.insnsList, ii)

		case decl.Bypass:
			c.bypassesByOut[v.OutInsn] = append(c.bypassesByOut[v.OutInsn], &v)

		case decl.Exclusion:
			c.collectExclusion(v)

		case decl.PresenceConstraint:
			c.collectPresence(v)

		case decl.Option:
			// handled in the pre-sweep above

		default:
			return fmt.Errorf("checker: unrecognized declaration type %T", d)
		}
	}
	return nil
}

func (c *Checker) applyOption(o decl.Option) { applyOptionTo(&c.options, o) }

// ScanOptions extracts the resolved Options from a
// declaration sequence without running the rest of the check. Callers that
// need options before checking — e.g. to configure diagnostics so they can
// span the check phase itself — can call this first; Check's own pre-sweep
// repeats the identical scan internally, so the two can never disagree.
func ScanOptions(decls []decl.Decl) Options {
	var o Options
	for _, d := range decls {
		if opt, ok := d.(decl.Option); ok {
			applyOptionTo(&o, opt)
		}
	}
	return o
}

func applyOptionTo(o *Options, opt decl.Option) {
	switch opt.Kind {
	case decl.OptNoMinimization:
		o.NoMinimization = true
	case decl.OptTime:
		o.Time = true
	case decl.OptVerbose:
		o.Verbose = true
	case decl.OptPermissive:
		o.Permissive = true
	case decl.OptNDFA:
		o.NDFA = true
	case decl.OptSplit:
		o.Split = opt.Value
	}
}

func (c *Checker) nameTaken(name string) bool {
	_, ok := c.names[name]
	return ok
}

func (c *Checker) collectExclusion(v decl.Exclusion) {
	for _, a := range v.NamesA {
		for _, b := range v.NamesB {
			if a == b {
				c.diags.Errorf("unit %q excludes itself", a)
				continue
			}
			c.addExclusionPair(a, b)
			c.addExclusionPair(b, a)
		}
	}
}

func (c *Checker) addExclusionPair(a, b string) {
	key := [2]string{a, b}
	if c.exclusionSeen[key] {
		return
	}
	c.exclusionSeen[key] = true
	c.exclusions = append(c.exclusions, NamedExclusion{A: a, B: b})
}

func (c *Checker) collectPresence(v decl.PresenceConstraint) {
	for _, name := range v.Names {
		for _, pat := range v.Patterns {
			np := NamedPattern{Unit: name, Pattern: pat}
			switch v.Kind {
			case decl.Presence:
				c.presence = append(c.presence, np)
			case decl.FinalPresence:
				c.finalPresence = append(c.finalPresence, np)
			case decl.Absence:
				c.absence = append(c.absence, np)
			case decl.FinalAbsence:
				c.finalAbsence = append(c.finalAbsence, np)
			}
		}
	}
}
