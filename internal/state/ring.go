package state

// ring is a fixed-capacity stack. Pushing onto a full ring silently drops
// the oldest entry.
type ring[T any] struct {
	buf  []T
	head int // index of the oldest entry
	size int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &ring[T]{buf: make([]T, capacity)}
}

// push adds v as the newest entry and reports whether the oldest was evicted.
func (r *ring[T]) push(v T) bool {
	if r.size == len(r.buf) {
		r.buf[r.head] = v
		r.head = (r.head + 1) % len(r.buf)
		return true
	}
	r.buf[(r.head+r.size)%len(r.buf)] = v
	r.size++
	return false
}

// pop removes and returns the newest entry.
func (r *ring[T]) pop() (T, bool) {
	var zero T
	if r.size == 0 {
		return zero, false
	}
	i := (r.head + r.size - 1) % len(r.buf)
	v := r.buf[i]
	r.buf[i] = zero
	r.size--
	return v, true
}

func (r *ring[T]) clear() {
	clear(r.buf)
	r.head, r.size = 0, 0
}

func (r *ring[T]) len() int { return r.size }
