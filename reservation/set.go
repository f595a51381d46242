// Package reservation implements the fixed-width bit-string representation
// of unit usage across cycles and the exclusion/
// presence/absence constraint tables that give "intersected?" its
// domain-specific meaning beyond plain bitwise overlap.
package reservation

import (
	"encoding/binary"
	"math/bits"
)

const wordBits = 64

// Set is a bit string of length Units*Cycles, indexed by
// cycle*Units+unit. All Sets sharing a Width must agree on
// Units and Cycles; operations between Sets of differing Width panic, since
// that can only happen from a bug in the generator (every Set in a single
// automaton run is built against that automaton's Width).
type Set struct {
	w     Width
	words []uint64
}

// Width fixes the dimensions a family of reservation-sets is built against:
// the unit count of the owning automaton and the maximum cycle depth any
// instruction in it reserves across.
type Width struct {
	Units  int
	Cycles int
}

func (w Width) bitLen() int { return w.Units * w.Cycles }
func (w Width) wordLen() int {
	n := w.bitLen()
	return (n + wordBits - 1) / wordBits
}

// New returns an empty reservation-set of the given width.
func New(w Width) *Set {
	return &Set{w: w, words: make([]uint64, w.wordLen())}
}

func (s *Set) bitIndex(cycle, unit int) int { return cycle*s.w.Units + unit }

func (s *Set) checkWidth(o *Set) {
	if s.w != o.w {
		panic("reservation: mismatched Set width")
	}
}

// Width returns the dimensions this set was built against.
func (s *Set) Width() Width { return s.w }

// SetBit marks unit as reserved on the given cycle.
func (s *Set) SetBit(cycle, unit int) {
	idx := s.bitIndex(cycle, unit)
	s.words[idx/wordBits] |= 1 << uint(idx%wordBits)
}

// Test reports whether unit is reserved on the given cycle.
func (s *Set) Test(cycle, unit int) bool {
	idx := s.bitIndex(cycle, unit)
	return s.words[idx/wordBits]&(1<<uint(idx%wordBits)) != 0
}

// Clone returns an independent copy of s.
func (s *Set) Clone() *Set {
	words := make([]uint64, len(s.words))
	copy(words, s.words)
	return &Set{w: s.w, words: words}
}

// Or returns the bitwise union of s and o (neither is modified).
func (s *Set) Or(o *Set) *Set {
	s.checkWidth(o)
	r := s.Clone()
	for i := range r.words {
		r.words[i] |= o.words[i]
	}
	return r
}

// OrInPlace unions o into s.
func (s *Set) OrInPlace(o *Set) {
	s.checkWidth(o)
	for i := range s.words {
		s.words[i] |= o.words[i]
	}
}

// And returns the bitwise intersection of s and o.
func (s *Set) And(o *Set) *Set {
	s.checkWidth(o)
	r := s.Clone()
	for i := range r.words {
		r.words[i] &= o.words[i]
	}
	return r
}

// Shift models advancing one CPU cycle: cycle 0's reservations are
// discarded and every later cycle moves one step closer, with the new
// final cycle zero-filled.
func (s *Set) Shift() *Set {
	r := New(s.w)
	for c := 0; c < s.w.Cycles-1; c++ {
		for u := 0; u < s.w.Units; u++ {
			if s.Test(c+1, u) {
				r.SetBit(c, u)
			}
		}
	}
	return r
}

// Empty reports whether no bit is set.
func (s *Set) Empty() bool {
	for _, w := range s.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// Equal reports plain bitwise equality (not the constraint-aware
// "intersected?" predicate).
func (s *Set) Equal(o *Set) bool {
	s.checkWidth(o)
	for i := range s.words {
		if s.words[i] != o.words[i] {
			return false
		}
	}
	return true
}

// Cmp is a total order over Sets, lexicographic over words. Sorted-unique
// alt-state and component-state lists are ordered by State.Num, not by Cmp.
func (s *Set) Cmp(o *Set) int {
	s.checkWidth(o)
	for i := range s.words {
		if s.words[i] < o.words[i] {
			return -1
		}
		if s.words[i] > o.words[i] {
			return 1
		}
	}
	return 0
}

// Hash mixes the set's words into a single value. State interning keys on
// the byte-exact Key instead.
func (s *Set) Hash() uint64 {
	var h uint64 = 1469598103934665603 // FNV offset basis
	for _, w := range s.words {
		h ^= w
		h *= 1099511628211 // FNV prime
		h = bits.RotateLeft64(h, 13)
	}
	return h
}

// MaskInPlace zeroes every bit not present in mask (used to apply the
// matters-set during automaton construction).
func (s *Set) MaskInPlace(mask *Set) {
	s.checkWidth(mask)
	for i := range s.words {
		s.words[i] &= mask.words[i]
	}
}

// Mask returns s with every bit not present in mask cleared.
func (s *Set) Mask(mask *Set) *Set {
	r := s.Clone()
	r.MaskInPlace(mask)
	return r
}

// Key returns a byte-exact string encoding of s's words, suitable as a Go
// map key for state interning.
func (s *Set) Key() string {
	buf := make([]byte, len(s.words)*8)
	for i, w := range s.words {
		binary.LittleEndian.PutUint64(buf[i*8:], w)
	}
	return string(buf)
}

// UnitsOnCycle returns the sorted unit indices reserved on the given cycle.
func (s *Set) UnitsOnCycle(cycle int) []int {
	var out []int
	for u := 0; u < s.w.Units; u++ {
		if s.Test(cycle, u) {
			out = append(out, u)
		}
	}
	return out
}
