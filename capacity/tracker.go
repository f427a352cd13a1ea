// Package capacity manufactures a deterministic, testable analogue of
// LMDB/MDBX's mapped-region ceiling on top of storage engines (like bbolt)
// that have no native fixed mmap size. Every write reserves its byte cost
// against a logical ceiling before touching the underlying engine; when the
// ceiling would be exceeded, callers see CapacityExhausted and are expected
// to grow the ceiling and retry, exactly as the reference implementation
// doubles an LMDB environment's map_size on MDBX_MAP_FULL.
package capacity

import (
	"sync"

	"github.com/holochain/holo-persist/kverr"
)

// Tracker tracks logical bytes-used against a logical capacity ceiling.
type Tracker struct {
	mu       sync.Mutex
	used     uint64
	capacity uint64
	growth   float64
}

// NewTracker constructs a Tracker with the given initial capacity (bytes)
// and growth factor (multiplied into the capacity each time Grow is
// called). A growth factor <= 1 is treated as 2.0.
func NewTracker(initialCapacity uint64, growth float64) *Tracker {
	if growth <= 1.0 {
		growth = 2.0
	}
	return &Tracker{capacity: initialCapacity, growth: growth}
}

// Reserve accounts for n additional bytes of use. If the reservation would
// exceed the current capacity, it is rejected (no state is mutated) and a
// CapacityExhausted error is returned.
func (t *Tracker) Reserve(n uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.used+n > t.capacity {
		return kverr.New(kverr.CapacityExhausted, "logical capacity exhausted")
	}
	t.used += n
	return nil
}

// Release gives back n bytes of a reservation that will never be durably
// committed (the write transaction that reserved it was rolled back).
func (t *Tracker) Release(n uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n > t.used {
		n = t.used
	}
	t.used -= n
}

// Grow multiplies the capacity ceiling by the configured growth factor and
// returns the new ceiling.
func (t *Tracker) Grow() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	next := uint64(float64(t.capacity) * t.growth)
	if next <= t.capacity {
		next = t.capacity + 1
	}
	t.capacity = next
	return t.capacity
}

// Info returns the current (used, capacity) byte counts.
func (t *Tracker) Info() (used uint64, capacity uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.used, t.capacity
}
