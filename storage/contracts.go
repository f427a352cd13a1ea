// Package storage defines the backend contracts the cursor and manager
// layers are built against: a content-addressable store (CAS) and an
// entity-attribute-value-index store (EAV). Concrete implementations live in
// the memstore (in-memory) and boltstore (bbolt-backed) subpackages.
package storage

import (
	"github.com/google/uuid"
	"github.com/holochain/holo-persist/address"
	"github.com/holochain/holo-persist/eav"
)

// Report describes a backend's current logical usage, used by the CLI's
// stats subcommand and by tests asserting capacity-growth behavior.
type Report struct {
	UsedBytes     uint64
	CapacityBytes uint64
}

// CAS is the content-addressable store contract: a write-once-per-address
// map from address to blob.
type CAS interface {
	// Add writes content, keyed by its computed address. Adding identical
	// content at an address that already holds it is a no-op success.
	Add(content []byte) error
	// Fetch returns the content at addr, and whether it was found.
	Fetch(addr address.Address) (content []byte, ok bool, err error)
	// Contains reports whether addr is present.
	Contains(addr address.Address) (bool, error)
	// Iter visits every (address, content) pair. fn's error aborts the
	// iteration and is returned as-is.
	Iter(fn func(address.Address, []byte) error) error
	// ID is a stable identity for this backend instance.
	ID() uuid.UUID
	// Report returns the backend's current logical usage.
	Report() (Report, error)
}

// EAV is the entity-attribute-value-index store contract, generic over the
// application's attribute type.
type EAV[A eav.Attribute] interface {
	// AddEAVI writes record, returning the prior record for the same
	// (entity, attribute, value) triple if one existed. EAV records are
	// never deleted or mutated by a backend; re-asserting a triple adds a
	// new, later-indexed record alongside the old one.
	AddEAVI(record eav.Record[A]) (*eav.Record[A], error)
	// FetchEAVI evaluates query against every stored record and returns the
	// matching set in the record total order.
	FetchEAVI(query eav.Query[A]) ([]eav.Record[A], error)
	// Iter visits every stored record in storage order (not necessarily the
	// record total order; callers needing that order should go through
	// FetchEAVI).
	Iter(fn func(eav.Record[A]) error) error
	// ID is a stable identity for this backend instance.
	ID() uuid.UUID
	// Report returns the backend's current logical usage.
	Report() (Report, error)
}
