// Package pipedfa is the root orchestration package: Generate runs the
// full generation pipeline — declarations → semantic check → canonicalized
// regexps → per-automaton alt-states → NFA → DFA → minimal DFA →
// compressed tables — and returns a Result whose embedded runtime.Program
// answers the scheduling queries. One function threads a fresh, non-global
// pipeline context through every phase, so independent calls to Generate
// never interfere with each other.
package pipedfa

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/coregx/pipedfa/automaton"
	"github.com/coregx/pipedfa/checker"
	"github.com/coregx/pipedfa/compress"
	"github.com/coregx/pipedfa/decl"
	"github.com/coregx/pipedfa/diag"
	"github.com/coregx/pipedfa/distribute"
	"github.com/coregx/pipedfa/runtime"
)

// ErrSemanticErrors is returned when semantic checking accumulated at
// least one error and generation was skipped; the full diagnostic list is
// still available via Result.Check.Diagnostics.
var ErrSemanticErrors = errors.New("pipedfa: semantic errors found; generation skipped")

// Result is everything a single Generate run produced: the checked
// declarations, the unit-to-automaton assignment, every built automaton
// keyed by name, and the runtime.Program spanning all of them.
type Result struct {
	Check      *checker.Result
	Assignment *distribute.Assignment
	Automata   map[string]*automaton.Automaton
	Tables     map[string]*compress.Table
	Program    *runtime.Program
}

// Config configures one Generate run. A zero Config is valid: no log
// handler, so diag emits nothing regardless of the `v`/`time` options.
type Config struct {
	// Log receives the structured progress/timing/verbose diagnostics the
	// `v` and `time` options gate. Nil disables all of it.
	Log slog.Handler
}

// Generate runs the full pipeline over decls. If semantic checking
// accumulates any error, Generate returns
// ErrSemanticErrors and a Result whose Check field still carries every
// diagnostic — callers that want the full error list should range over
// err's companion Result.Check.Diagnostics.All() rather than just the
// sentinel. A non-nil, non-ErrSemanticErrors error comes with a nil Result
// and is either an input error (a malformed regexp source string, fatal at
// parse time) or a distribution error from distribute.Distribute (a
// positive `split N`, or a unit naming an undeclared automaton).
func Generate(decls []decl.Decl, cfg Config) (*Result, error) {
	opts := checker.ScanOptions(decls)
	log := diag.New(cfg.Log, opts.Verbose, opts.Time)

	checkDone := log.Phase("check")
	checkRes, err := checker.New().Check(decls)
	checkDone()
	if err != nil {
		return nil, err
	}
	for _, d := range checkRes.Diagnostics.All() {
		if d.Severity == checker.SevWarning {
			log.Warnf("%s", d.Message)
		}
	}
	if checkRes.Diagnostics.HasErrors() {
		return &Result{Check: checkRes}, ErrSemanticErrors
	}

	canonDone := log.Phase("canonicalize")
	automaton.CanonicalizeAll(checkRes)
	canonDone()
	if checkRes.Diagnostics.HasErrors() {
		return &Result{Check: checkRes}, ErrSemanticErrors
	}

	distDone := log.Phase("distribute")
	assignment, err := distribute.Distribute(checkRes)
	distDone()
	if err != nil {
		return nil, err
	}
	distribute.Validate(checkRes, assignment)
	if checkRes.Diagnostics.HasErrors() {
		return &Result{Check: checkRes, Assignment: assignment}, ErrSemanticErrors
	}

	names := append([]string(nil), assignment.AutomataNames...)
	sort.Strings(names)

	automata := make(map[string]*automaton.Automaton, len(names))
	tables := make(map[string]*compress.Table, len(names))
	var ordered []*compress.Table
	buildDone := log.Phase("build")
	for _, name := range names {
		units := assignment.UnitsOf[name]
		onProgress := func(n int) { log.Progress(name, n) }
		a := automaton.Build(checkRes, name, units, opts.NDFA, opts.NoMinimization, onProgress)
		automata[name] = a
		t := compress.Build(checkRes, a)
		tables[name] = t
		ordered = append(ordered, t)
		log.Verbosef("automaton %q: %d states, %d equivalence classes", name, len(a.States), a.EquivClassCount)
	}
	buildDone()

	markImportantAutomata(checkRes, names, automata)

	// An instruction that reserves units of some automaton but acquired no
	// arc anywhere in it can never be issued — every path is blocked by its
	// own constraints.
	for i, ii := range checkRes.Instructions {
		if ii.IsAdvanceCycle {
			continue
		}
		for _, name := range names {
			a := automata[name]
			if a.ImportantInsns[i] && !a.CanEverIssue(i) {
				checkRes.Diagnostics.Errorf("instruction %q can never be issued in automaton %q", ii.Name, name)
			}
		}
	}
	if checkRes.Diagnostics.HasErrors() {
		return &Result{Check: checkRes, Assignment: assignment, Automata: automata, Tables: tables}, ErrSemanticErrors
	}

	return &Result{
		Check:      checkRes,
		Assignment: assignment,
		Automata:   automata,
		Tables:     tables,
		Program:    runtime.NewProgram(checkRes, ordered),
	}, nil
}

// markImportantAutomata fills in the ImportantAutomata field on every
// checker.InsnInfo: the sorted list of automaton names whose
// state can change when that instruction issues, unioned across every
// automaton built this run. names must already be sorted (it is, by the
// caller, to keep this deterministic across runs).
func markImportantAutomata(checkRes *checker.Result, names []string, automata map[string]*automaton.Automaton) {
	for i, ii := range checkRes.Instructions {
		var important []string
		for _, name := range names {
			if automata[name].ImportantInsns[i] {
				important = append(important, name)
			}
		}
		ii.ImportantAutomata = important
	}
}
