package automaton

import (
	"github.com/coregx/pipedfa/internal/arena"
	"github.com/coregx/pipedfa/reservation"
)

// interner assigns each distinct state identity a single *State, keyed by
// exact content. Num is assigned monotonically at first interning from one
// shared counter spanning both atomic (reservation-set-keyed) and compound
// (component-list-keyed) states: there is one state universe, not two.
// States themselves are
// carved from a single arena.Pool rather than individually heap-allocated,
// so Num doubles as that pool's stable handle.
type interner struct {
	byKey map[string]*State
	pool  *arena.Pool[State]
}

func newInterner() *interner {
	return &interner{byKey: make(map[string]*State), pool: arena.NewPool[State](64)}
}

// Intern returns the canonical atomic *State for set, creating one if this
// exact content has not been seen before. Reports whether it was newly
// created.
func (in *interner) Intern(set *reservation.Set) (*State, bool) {
	return in.intern(atomicKey(set), func(s *State) { s.Reserv = set })
}

// InternCompound returns the canonical compound *State for the given
// sorted-unique member Nums, building it via build
// only on first occurrence.
func (in *interner) InternCompound(componentNums []int, build func(*State)) (*State, bool) {
	return in.intern(compoundKey(componentNums), build)
}

// atomicKey and compoundKey prefix a kind tag so a reservation-set's raw
// word bytes can never alias a component-Num-list encoding of the same
// length in the shared key map.
func atomicKey(set *reservation.Set) string  { return "a" + set.Key() }
func compoundKey(componentNums []int) string { return "c" + encodeInts(componentNums) }

func (in *interner) intern(key string, build func(*State)) (*State, bool) {
	if s, ok := in.byKey[key]; ok {
		return s, false
	}
	num, s := in.pool.Alloc()
	s.Num = num
	build(s)
	in.byKey[key] = s
	return s, true
}

// Lookup returns the interned atomic state for set without creating one.
func (in *interner) Lookup(set *reservation.Set) (*State, bool) {
	s, ok := in.byKey[atomicKey(set)]
	return s, ok
}

// All returns every interned state (atomic and compound) in Num order.
func (in *interner) All() []*State {
	out := make([]*State, in.pool.Len())
	for i := range out {
		out[i] = in.pool.Get(i)
	}
	return out
}

// byNum returns the interned state with the given Num, for callers (e.g.
// compound-state construction) that need direct arena access.
func (in *interner) byNum(num int) *State { return in.pool.Get(num) }
