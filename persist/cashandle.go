package persist

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/google/uuid"
	"github.com/holochain/holo-persist/address"
	"github.com/holochain/holo-persist/storage"
)

// CasHandle is a non-transactional view onto the primary CAS: it bypasses
// staging and commit, reading and writing the primary directly. Since it
// gets none of a Cursor's own read-your-writes staging cache, it layers a
// bounded hashicorp/golang-lru read cache in front of the primary instead.
type CasHandle struct {
	primary storage.CAS
	cache   *lru.Cache
}

func newCasHandle(primary storage.CAS, cacheSize int) *CasHandle {
	cache, err := lru.New(cacheSize)
	if err != nil {
		// Only returned by golang-lru for a non-positive size, which
		// Config.casCacheSize already rules out.
		panic(err)
	}
	return &CasHandle{primary: primary, cache: cache}
}

// ID is the underlying primary CAS backend's stable identity.
func (h *CasHandle) ID() uuid.UUID { return h.primary.ID() }

// Add writes content straight to the primary. CAS content is immutable
// once stored, so there is nothing in the cache to invalidate; the next
// Fetch populates it.
func (h *CasHandle) Add(content []byte) error { return h.primary.Add(content) }

// Fetch checks the LRU cache before falling through to the primary,
// caching the result on a primary hit.
func (h *CasHandle) Fetch(addr address.Address) ([]byte, bool, error) {
	key := string(addr.Bytes())
	if v, ok := h.cache.Get(key); ok {
		return v.([]byte), true, nil
	}
	v, ok, err := h.primary.Fetch(addr)
	if err != nil || !ok {
		return v, ok, err
	}
	h.cache.Add(key, v)
	return v, true, nil
}

// Contains reports whether addr is present, per Fetch(...).ok.
func (h *CasHandle) Contains(addr address.Address) (bool, error) {
	_, ok, err := h.Fetch(addr)
	return ok, err
}

// Iter visits every (address, content) pair stored in the primary.
func (h *CasHandle) Iter(fn func(address.Address, []byte) error) error { return h.primary.Iter(fn) }

// Report returns the primary CAS backend's current logical usage.
func (h *CasHandle) Report() (storage.Report, error) { return h.primary.Report() }

var _ storage.CAS = (*CasHandle)(nil)
