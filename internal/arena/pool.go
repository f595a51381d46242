package arena

// Pool is an append-only arena for values of type T, indexed by a stable,
// monotonically increasing integer handle assigned at allocation time.
// Nothing is ever freed to the system allocator mid-run; the whole Pool is
// dropped at the end of a generator run. Storage is carved from fixed-size
// chunks rather than one growable slice, so a pointer returned by Alloc
// stays valid for the Pool's entire lifetime: callers (the automaton
// interner, chiefly) keep *T around indefinitely as graph edges, and a
// reallocating append would silently dangle every one of them.
type Pool[T any] struct {
	chunks [][]T
	count  int
}

const poolChunkSize = 256

// NewPool creates an empty arena. capacityHint is accepted for call-site
// symmetry with other constructors but otherwise unused: chunk sizing is
// fixed, since the whole point is that growth never moves existing items.
func NewPool[T any](capacityHint int) *Pool[T] {
	return &Pool[T]{}
}

// Alloc appends a zero-value T and returns its handle and a pointer to it.
// The pointer remains valid for the lifetime of the Pool.
func (p *Pool[T]) Alloc() (int, *T) {
	chunkIdx := p.count / poolChunkSize
	within := p.count % poolChunkSize
	if within == 0 {
		p.chunks = append(p.chunks, make([]T, poolChunkSize))
	}
	handle := p.count
	p.count++
	return handle, &p.chunks[chunkIdx][within]
}

// Get returns a pointer to the item with the given handle.
func (p *Pool[T]) Get(handle int) *T {
	return &p.chunks[handle/poolChunkSize][handle%poolChunkSize]
}

// Len returns the number of items allocated so far.
func (p *Pool[T]) Len() int {
	return p.count
}
