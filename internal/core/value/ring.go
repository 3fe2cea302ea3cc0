package value

// Ring is a bounded FIFO. Pushing onto a full ring evicts the oldest item.
// Not safe for concurrent use.
type Ring[T any] struct {
	buf   []T
	head  int // index of the oldest item
	count int
}

// NewRing returns a ring holding at most capacity items. Capacities below 1
// are raised to 1.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

func (r *Ring[T]) Cap() int { return len(r.buf) }
func (r *Ring[T]) Len() int { return r.count }

// Push appends v and reports whether an older item was evicted.
func (r *Ring[T]) Push(v T) bool {
	if r.count == len(r.buf) {
		r.buf[r.head] = v
		r.head = (r.head + 1) % len(r.buf)
		return true
	}
	r.buf[(r.head+r.count)%len(r.buf)] = v
	r.count++
	return false
}

// PopBack removes and returns the newest item.
func (r *Ring[T]) PopBack() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	idx := (r.head + r.count - 1) % len(r.buf)
	v := r.buf[idx]
	r.buf[idx] = zero
	r.count--
	return v, true
}

// Items returns the contents oldest first. The slice is a copy.
func (r *Ring[T]) Items() []T {
	out := make([]T, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

// Drain returns the contents oldest first and empties the ring.
func (r *Ring[T]) Drain() []T {
	out := r.Items()
	r.Clear()
	return out
}

func (r *Ring[T]) Clear() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.head = 0
	r.count = 0
}
