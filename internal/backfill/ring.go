package backfill

// ring is a fixed-capacity buffer that retains the most recent items by
// insertion order, overwriting the oldest once full. It bounds the memory
// held by a job that returns collected rows to the caller: the job may walk
// millions of rows, but only the newest capacity rows stay resident.
//
// A ring is owned by a single orchestrator goroutine, so it carries no lock.
type ring[T any] struct {
	buf      []T
	head     int // next write position
	count    int
	overflow int64 // items evicted after the ring filled
}

func newRing[T any](capacity int) *ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &ring[T]{buf: make([]T, capacity)}
}

// push appends an item, evicting the oldest when the ring is full.
func (r *ring[T]) push(item T) {
	if r.count == len(r.buf) {
		r.overflow++
	} else {
		r.count++
	}
	r.buf[r.head] = item
	r.head = (r.head + 1) % len(r.buf)
}

func (r *ring[T]) len() int { return r.count }

// snapshot copies out the retained items, oldest first.
func (r *ring[T]) snapshot() []T {
	out := make([]T, 0, r.count)
	start := r.head - r.count
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}
