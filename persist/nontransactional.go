package persist

import (
	"github.com/google/uuid"

	"github.com/holochain/holo-persist/address"
	"github.com/holochain/holo-persist/eav"
	"github.com/holochain/holo-persist/storage"
)

// TransactionalCursor is the surface both Cursor and NonTransactionalCursor
// implement, named so callers can accept either without caring which
// transactional model backs a given store.
type TransactionalCursor[A eav.Attribute] interface {
	ID() uuid.UUID
	Add(content []byte) error
	Fetch(addr address.Address) ([]byte, bool, error)
	Contains(addr address.Address) (bool, error)
	AddEAVI(record eav.Record[A]) (*eav.Record[A], error)
	FetchEAVI(query eav.Query[A]) ([]eav.Record[A], error)
	Commit() error
	Close() error
}

// NonTransactionalCursor talks directly to a single CAS+EAV pair with no
// staging pair and a no-op Commit/Close: every write is already durable the
// moment it returns. Ported from holochain_persistence_api's
// txn.rs NonTransactionalCursor/NoopWriter, useful for backends or tests
// that do not need transactional isolation.
type NonTransactionalCursor[A eav.Attribute] struct {
	cas storage.CAS
	eav storage.EAV[A]
	id  uuid.UUID
}

// NewNonTransactionalCursor wraps cas and eavStore directly, with no
// staging pair.
func NewNonTransactionalCursor[A eav.Attribute](cas storage.CAS, eavStore storage.EAV[A]) *NonTransactionalCursor[A] {
	return &NonTransactionalCursor[A]{cas: cas, eav: eavStore, id: uuid.New()}
}

// ID is this cursor's stable identity.
func (c *NonTransactionalCursor[A]) ID() uuid.UUID { return c.id }

// Add writes straight through to the wrapped CAS.
func (c *NonTransactionalCursor[A]) Add(content []byte) error { return c.cas.Add(content) }

// Fetch reads straight through from the wrapped CAS.
func (c *NonTransactionalCursor[A]) Fetch(addr address.Address) ([]byte, bool, error) {
	return c.cas.Fetch(addr)
}

// Contains reads straight through from the wrapped CAS.
func (c *NonTransactionalCursor[A]) Contains(addr address.Address) (bool, error) {
	return c.cas.Contains(addr)
}

// AddEAVI writes straight through to the wrapped EAV store.
func (c *NonTransactionalCursor[A]) AddEAVI(record eav.Record[A]) (*eav.Record[A], error) {
	return c.eav.AddEAVI(record)
}

// FetchEAVI reads straight through from the wrapped EAV store.
func (c *NonTransactionalCursor[A]) FetchEAVI(query eav.Query[A]) ([]eav.Record[A], error) {
	return c.eav.FetchEAVI(query)
}

// Commit is a no-op: there is no staging pair to drain, every write already
// landed in the wrapped backends.
func (c *NonTransactionalCursor[A]) Commit() error { return nil }

// Close is a no-op: there is no staging pair to discard.
func (c *NonTransactionalCursor[A]) Close() error { return nil }

var _ TransactionalCursor[eav.DemoAttribute] = (*NonTransactionalCursor[eav.DemoAttribute])(nil)
