// Package memstore implements the CAS and EAV backend contracts purely in
// memory, guarded by a capacity.Tracker so it can exercise the same
// capacity-exhaustion/retry contract as the bbolt-backed implementation.
// This is the default staging backend (fast, no filesystem I/O per cursor)
// and doubles as the trivial in-memory backend the specification names as
// plumbing for tests and simple demos.
package memstore

import (
	"sync"

	"github.com/google/uuid"
	"github.com/holochain/holo-persist/address"
	"github.com/holochain/holo-persist/capacity"
	"github.com/holochain/holo-persist/kverr"
	"github.com/holochain/holo-persist/storage"
)

// Cas is an in-memory CAS backend.
type Cas struct {
	mu      sync.RWMutex
	data    map[string][]byte
	tracker *capacity.Tracker
	id      uuid.UUID
}

// NewCas constructs an empty in-memory CAS with the given logical capacity
// and growth factor.
func NewCas(initialCapacity uint64, growth float64) *Cas {
	return &Cas{
		data:    make(map[string][]byte),
		tracker: capacity.NewTracker(initialCapacity, growth),
		id:      uuid.New(),
	}
}

func (c *Cas) ID() uuid.UUID { return c.id }

func (c *Cas) Add(content []byte) error {
	addr, err := address.Compute(content, address.SHA256)
	if err != nil {
		return err
	}
	key := string(addr.Bytes())

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.data[key]; ok {
		if string(existing) == string(content) {
			return nil
		}
	}
	for {
		if err := c.tracker.Reserve(uint64(len(key) + len(content))); err != nil {
			if kverr.Is(err, kverr.CapacityExhausted) {
				c.tracker.Grow()
				continue
			}
			return err
		}
		break
	}
	c.data[key] = append([]byte(nil), content...)
	return nil
}

func (c *Cas) Fetch(addr address.Address) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[string(addr.Bytes())]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (c *Cas) Contains(addr address.Address) (bool, error) {
	_, ok, err := c.Fetch(addr)
	return ok, err
}

func (c *Cas) Iter(fn func(address.Address, []byte) error) error {
	c.mu.RLock()
	type kv struct {
		a address.Address
		v []byte
	}
	items := make([]kv, 0, len(c.data))
	for k, v := range c.data {
		a, err := address.FromBytes([]byte(k))
		if err != nil {
			c.mu.RUnlock()
			return kverr.Wrap(kverr.Corruption, err, "decoding in-memory cas key")
		}
		items = append(items, kv{a: a, v: v})
	}
	c.mu.RUnlock()

	for _, it := range items {
		if err := fn(it.a, it.v); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cas) Report() (storage.Report, error) {
	used, cap := c.tracker.Info()
	return storage.Report{UsedBytes: used, CapacityBytes: cap}, nil
}

var _ storage.CAS = (*Cas)(nil)
