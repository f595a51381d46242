// Package compress implements the transition-table
// compression: full row-major vectors or base/check/next comb vectors,
// selected by the ~60%-savings rule, plus the min-issue-delay table, the
// dead-lock vector and the reserved-units bitmap. Tables are built directly
// over an already-minimized automaton.Automaton, since textual code
// generation is out of scope — these tables are the
// payload the runtime package's query entry points read.
package compress

import (
	"sort"

	"github.com/coregx/pipedfa/internal/intconv"
)

// NoState is the sentinel transition-table value meaning "no arc for this
// (state, class)".
const NoState int32 = -1

// Vector is one logically state×class table, materialized either as a
// flat row-major array or as a comb (base/check/next) encoding. Sentinel
// is the value Lookup returns, and the second
// return is false, when no entry is recorded for (state, class).
type Vector struct {
	Sentinel int32
	Comb     bool

	// Full is populated iff !Comb: row-major, index = state*numClasses+class.
	Full []int32

	// Base/Check/Next are populated iff Comb: a lookup (state, class) is
	// valid iff Check[Base[state]+class] == state, in which case the value
	// is Next[Base[state]+class].
	Base  []int32
	Check []int32
	Next  []int32
}

// Lookup returns the recorded value for (state, class), or (Sentinel,
// false) if none was recorded.
func (v *Vector) Lookup(state, class, numClasses int) (int32, bool) {
	if !v.Comb {
		val := v.Full[state*numClasses+class]
		return val, val != v.Sentinel
	}
	idx := int(v.Base[state]) + class
	if idx < 0 || idx >= len(v.Check) || v.Check[idx] != int32(state) {
		return v.Sentinel, false
	}
	return v.Next[idx], true
}

// buildVector compresses rows (one []int32 of length numClasses per state,
// already filled with sentinel where no entry exists) into a Vector,
// choosing the comb encoding iff it saves at least ~60% over the full
// vector.
func buildVector(sentinel int32, rows [][]int32) *Vector {
	numStates := len(rows)
	numClasses := 0
	if numStates > 0 {
		numClasses = len(rows[0])
	}

	full := make([]int32, numStates*numClasses)
	for i := range rows {
		copy(full[i*numClasses:(i+1)*numClasses], rows[i])
	}

	base, check, next := buildComb(sentinel, rows)

	fullLen := len(full)
	combLen := len(check)
	if combLen > 0 && 2*fullLen > 5*combLen {
		return &Vector{Sentinel: sentinel, Comb: true, Base: base, Check: check, Next: next}
	}
	return &Vector{Sentinel: sentinel, Comb: false, Full: full}
}

// buildComb implements the comb row-placement heuristic: sort
// states by decreasing number of real (non-sentinel) entries, then
// greedily place each row into the lowest base offset where its filled
// columns collide with no already-placed filled column.
func buildComb(sentinel int32, rows [][]int32) (base, check, next []int32) {
	numStates := len(rows)
	numClasses := 0
	if numStates > 0 {
		numClasses = len(rows[0])
	}

	filledOf := make([][]int, numStates)
	for s, row := range rows {
		for c, v := range row {
			if v != sentinel {
				filledOf[s] = append(filledOf[s], c)
			}
		}
	}

	order := make([]int, numStates)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if len(filledOf[a]) != len(filledOf[b]) {
			return len(filledOf[a]) > len(filledOf[b])
		}
		return a < b
	})

	base = make([]int32, numStates)
	var occupied []bool

	ensureLen := func(n int) {
		for len(check) < n {
			check = append(check, -1)
			next = append(next, sentinel)
			occupied = append(occupied, false)
		}
	}

	for _, s := range order {
		filled := filledOf[s]
		if len(filled) == 0 {
			base[s] = 0
			continue
		}
		b := 0
		for {
			ensureLen(b + numClasses)
			ok := true
			for _, c := range filled {
				if occupied[b+c] {
					ok = false
					break
				}
			}
			if ok {
				break
			}
			b++
		}
		ensureLen(b + numClasses)
		for _, c := range filled {
			occupied[b+c] = true
			check[b+c] = intconv.IntToInt32(s)
			next[b+c] = rows[s][c]
		}
		base[s] = intconv.IntToInt32(b)
	}

	// Trim the unused tail left by the last-placed row's widest gap.
	n := 0
	for i := len(occupied) - 1; i >= 0; i-- {
		if occupied[i] {
			n = i + 1
			break
		}
	}
	check = check[:n]
	next = next[:n]
	return base, check, next
}
