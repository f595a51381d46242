package automaton

import (
	"github.com/coregx/pipedfa/checker"
	"github.com/coregx/pipedfa/regexpir"
)

// CanonicalizeAll canonicalizes every checked instruction's resolved
// regexp, populating InsnInfo.Canonical. This is the automaton package's
// responsibility, not the checker's: canonicalization is a regexp-IR
// transform independent of name resolution, and only matters once
// alt-state construction is about to walk the tree.
//
// An out-of-range repeat count is a user error, so it is accumulated into
// res.Diagnostics rather than returned; the caller must still check
// res.Diagnostics.HasErrors() before proceeding to build any automaton.
func CanonicalizeAll(res *checker.Result) {
	for _, ii := range res.Instructions {
		canon, err := regexpir.Canonicalize(ii.Resolved)
		if err != nil {
			res.Diagnostics.Errorf("instruction %q: %v", ii.Name, err)
			continue
		}
		ii.Canonical = canon
	}
}
