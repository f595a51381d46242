package compress

import "github.com/coregx/pipedfa/automaton"

// DelayTable is the min-issue-delay table: for
// every (state, equiv-class), the minimum number of advance-cycle
// transitions needed before an instruction in that class can issue. When
// the maximum recorded value fits in k ∈ {1,2,4,8} bits, entries are
// bit-packed 8/k to a byte; otherwise Wide holds one uint32 per entry.
type DelayTable struct {
	NumStates    int
	NumClasses   int
	BitsPerEntry int // 1, 2, 4, 8, or 0 meaning "unpacked, use Wide"
	Packed       []byte
	Wide         []uint32
}

// Get returns the recorded delay for (state, class).
func (d *DelayTable) Get(state, class int) int {
	idx := state*d.NumClasses + class
	if d.BitsPerEntry == 0 {
		return int(d.Wide[idx])
	}
	perByte := 8 / d.BitsPerEntry
	byteIdx := idx / perByte
	shift := uint(idx%perByte) * uint(d.BitsPerEntry)
	mask := byte((1 << uint(d.BitsPerEntry)) - 1)
	return int((d.Packed[byteIdx] >> shift) & mask)
}

// buildDelayTable runs, for every state, a 0-1 BFS (advance-cycle arcs cost
// 1, every other instruction's arc costs 0) to find the minimum number of
// cycle advances before each equivalence class becomes issuable — halting
// as soon as the first state in the frontier offers that class.
// unreachable is recorded as numStates (strictly
// larger than any real shortest-path length over a numStates-state graph),
// giving buildDelayTable a genuine upper bound to size the packing off of.
func buildDelayTable(states []*automaton.State, stateIdx map[int]int, classOf []int, numClasses, advanceIdx int) *DelayTable {
	numStates := len(states)
	unreachable := int32(numStates)

	rows := make([][]int32, numStates)
	for i := range rows {
		rows[i] = zeroUnissueableDelayRow(numStates, numClasses, states, stateIdx, classOf, advanceIdx, i, unreachable)
	}

	maxVal := int32(0)
	for _, row := range rows {
		for _, v := range row {
			if v > maxVal {
				maxVal = v
			}
		}
	}

	bits := bitsNeeded(maxVal)
	dt := &DelayTable{NumStates: numStates, NumClasses: numClasses, BitsPerEntry: bits}
	if bits == 0 {
		dt.Wide = make([]uint32, numStates*numClasses)
		for s, row := range rows {
			for c, v := range row {
				dt.Wide[s*numClasses+c] = uint32(v)
			}
		}
		return dt
	}

	perByte := 8 / bits
	dt.Packed = make([]byte, (numStates*numClasses+perByte-1)/perByte)
	for s, row := range rows {
		for c, v := range row {
			idx := s*numClasses + c
			byteIdx := idx / perByte
			shift := uint(idx%perByte) * uint(bits)
			dt.Packed[byteIdx] |= byte(v) << shift
		}
	}
	return dt
}

func bitsNeeded(maxVal int32) int {
	for _, k := range []int{1, 2, 4, 8} {
		if (int32(1)<<uint(k))-1 >= maxVal {
			return k
		}
	}
	return 0
}

// zeroUnissueableDelayRow computes, for the single origin state, the
// min-issue-delay row across every equivalence class with a bucket queue
// (Dial's algorithm, exact for {0,1} edge
// weights): bucket d holds every state whose tentative distance is
// currently d, buckets are drained in increasing order, and a state is
// settled (its distance finalized, its out-arcs observed for not-yet-found
// classes) the first time it is popped — which, since buckets only ever
// receive a state at its current distance or one more, is always its true
// shortest distance from origin.
func zeroUnissueableDelayRow(numStates, numClasses int, states []*automaton.State, stateIdx map[int]int, classOf []int, advanceIdx int, origin int, unreachable int32) []int32 {
	row := make([]int32, numClasses)
	for c := range row {
		row[c] = unreachable
	}
	found := make([]bool, numClasses)
	remaining := numClasses

	dist := make([]int32, numStates)
	settled := make([]bool, numStates)
	for i := range dist {
		dist[i] = -1
	}
	dist[origin] = 0

	maxDist := int32(numStates)
	buckets := make([][]int, maxDist+2)
	buckets[0] = append(buckets[0], origin)

	observe := func(s int) {
		for _, a := range states[s].Arcs {
			cls := classOf[a.Insn]
			if found[cls] {
				continue
			}
			found[cls] = true
			row[cls] = dist[s]
			remaining--
		}
	}

	for d := int32(0); d <= maxDist && remaining > 0; d++ {
		// Indexed, not range, loop: a weight-0 edge discovered while
		// draining bucket d can append another state into this very
		// bucket, and it must still be visited in this pass.
		for i := 0; i < len(buckets[d]); i++ {
			s := buckets[d][i]
			if settled[s] {
				continue
			}
			settled[s] = true
			observe(s)
			if remaining == 0 {
				break
			}
			for _, a := range states[s].Arcs {
				to := stateIdx[a.To.Num]
				if settled[to] {
					continue
				}
				weight := int32(0)
				if a.Insn == advanceIdx {
					weight = 1
				}
				nd := d + weight
				if dist[to] == -1 || nd < dist[to] {
					dist[to] = nd
					buckets[nd] = append(buckets[nd], to)
				}
			}
		}
	}

	return row
}
