package runtime

// InsnCodeCache memoizes the mapping from an external instruction identity
// (whatever comparable key the host scheduler uses, e.g. its own rtx/insn
// pointer) to this generator's internal instruction index — the
// dfa_insn_code auxiliary cache. Code is otherwise a name
// lookup against p.insnIndexByName; the cache exists purely so a caller
// re-querying the same external identity many times (as a scheduler does,
// once per instruction per candidate issue slot) doesn't repeat that
// lookup.
type InsnCodeCache struct {
	p       *Program
	entries map[any]int
}

// StartInsnCache implements dfa_start: allocate a fresh cache bound to p.
func (p *Program) StartInsnCache() *InsnCodeCache {
	return &InsnCodeCache{p: p, entries: make(map[any]int)}
}

// Finish implements dfa_finish: release the cache. The cache holds no
// resources beyond the map itself, so this simply drops the reference;
// it exists so callers have a symmetric allocate/free pair to call,
// mirroring the dfa_start/dfa_finish lifecycle of the generated consumers
// this package stands in for.
func (c *InsnCodeCache) Finish() {
	c.entries = nil
}

// Clean implements dfa_clean_insn_cache: invalidate every memoized entry
// without releasing the cache itself, so a caller can keep issuing Code
// calls afterwards (each one simply misses and re-resolves by name).
func (c *InsnCodeCache) Clean() {
	c.entries = make(map[any]int)
}

// Code implements dfa_insn_code: resolve key's instruction index, consulting
// the memo table first and falling back to a name lookup (caching the
// result) on a miss. Returns false if name does not match a known
// instruction.
func (c *InsnCodeCache) Code(key any, name string) (int, bool) {
	if idx, ok := c.entries[key]; ok {
		return idx, true
	}
	idx, ok := c.p.insnIndexByName[name]
	if !ok {
		return 0, false
	}
	c.entries[key] = idx
	return idx, true
}
