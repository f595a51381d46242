package automaton

import (
	"fmt"
	"sort"
	"strings"

	"github.com/coregx/pipedfa/checker"
)

// ClassifyInstructions partitions instructions by behavior: two are
// equivalent in this automaton iff, for every reachable state, issuing
// either leads to the same destination. Run on the determinized (post
// Subsetify) graph, so "destination" below is already a single state rather
// than an alternative set.
//
// This is computed directly as a signature comparison (the full per-state
// destination mapping, including "no arc from this state" as a distinct
// signature value) rather than Moore-style iterative refinement: since the
// signature only references raw destination state identity, not other
// instructions' classes, one walk over every state's arcs is already exact.
// Returns classOf (indexed by the global instruction index used throughout
// checker.Result.Instructions) and the number of distinct classes.
func ClassifyInstructions(res *checker.Result, states []*State) (classOf []int, numClasses int) {
	n := len(res.Instructions)
	sigs := make([][]string, n)
	for _, s := range states {
		for _, a := range s.Arcs {
			sigs[a.Insn] = append(sigs[a.Insn], fmt.Sprintf("%d:%d", s.Num, a.To.Num))
		}
	}

	classOf = make([]int, n)
	seen := make(map[string]int)
	for i := 0; i < n; i++ {
		sort.Strings(sigs[i])
		key := strings.Join(sigs[i], ",")
		cls, ok := seen[key]
		if !ok {
			cls = len(seen)
			seen[key] = cls
		}
		classOf[i] = cls
	}
	return classOf, len(seen)
}
