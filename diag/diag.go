// Package diag provides structured, presentation-only diagnostics for the
// generator pipeline: the construction progress marker, phase timings (the
// `time` option), and the verbose per-phase dump (the `v` option). None of
// this feeds back into the generation algorithm; every method here is a
// structured log emission, never a control-flow signal.
package diag

import (
	"log/slog"
	"time"

	"github.com/joeycumines/logiface"
	islog "github.com/joeycumines/logiface-slog"
)

// Logger wraps a logiface.Logger and the Verbose/Time gates that decide
// which of its methods actually emit anything, so callers never need to
// branch on options themselves.
type Logger struct {
	log     *logiface.Logger[*islog.Event]
	verbose bool
	timing  bool
}

// New builds a Logger over the given slog handler. A nil handler yields a
// Logger with no configured writer, so every method below is a safe no-op —
// callers that never set `-v`/`-time` don't need to special-case a nil
// *Logger themselves.
func New(handler slog.Handler, verbose, timing bool) *Logger {
	var opts []logiface.Option[*islog.Event]
	if handler != nil {
		opts = append(opts, islog.WithSlogHandler(handler))
	}
	return &Logger{log: logiface.New[*islog.Event](opts...), verbose: verbose, timing: timing}
}

// Progress reports the "every 100 new states" construction marker.
// Purely observational: callers must never branch on whether this was
// called.
func (l *Logger) Progress(automaton string, count int) {
	if l == nil || l.log == nil {
		return
	}
	l.log.Debug().Str("automaton", automaton).Int("states", count).Log("nfa states interned")
}

// Phase starts a timed phase, returning a function that logs its duration
// when the phase completes. If the `time` option isn't set, the returned
// function is a no-op and no clock is read.
func (l *Logger) Phase(name string) func() {
	if l == nil || l.log == nil || !l.timing {
		return func() {}
	}
	start := time.Now()
	return func() {
		l.log.Info().Str("phase", name).Dur("elapsed", time.Since(start)).Log("phase complete")
	}
}

// Verbosef emits a verbose structured message (the `v` option's
// human-readable `.dfa`-equivalent dump), gated on Verbose.
func (l *Logger) Verbosef(format string, args ...any) {
	if l == nil || l.log == nil || !l.verbose {
		return
	}
	l.log.Debug().Logf(format, args...)
}

// Warnf emits a warning-severity structured message, used to surface
// checker.Diagnostics warnings through the same
// structured pipeline as everything else.
func (l *Logger) Warnf(format string, args ...any) {
	if l == nil || l.log == nil {
		return
	}
	l.log.Warning().Logf(format, args...)
}
