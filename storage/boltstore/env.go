// Package boltstore implements the CAS and EAV backend contracts on top of
// go.etcd.io/bbolt, used for the primary environment and for disk-backed
// staging. bbolt has no native fixed mmap ceiling the way LMDB/MDBX does, so
// this package layers a capacity.Tracker over the database to manufacture a
// deterministic, testable CapacityExhausted signal (see SPEC_FULL.md §10.1).
package boltstore

import (
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/holochain/holo-persist/capacity"
	"github.com/holochain/holo-persist/kverr"
)

// Flags are opaque, backend-specific environment flags, mapped onto the
// closest matching bbolt.Options field.
type Flags uint8

const (
	// FlagNone requests default behavior.
	FlagNone Flags = 0
	// FlagNoSync disables fsync after every commit, trading durability for
	// throughput (maps to bbolt.DB.NoSync).
	FlagNoSync Flags = 1 << iota
	// FlagNoFreelistSync skips persisting the freelist, rebuilt on open
	// instead (maps to bbolt.Options.NoFreelistSync).
	FlagNoFreelistSync
)

var (
	casBucket       = []byte("cas")
	eavBucket       = []byte("eav")
	eavTripleBucket = []byte("eav_triple")
)

// Env is a single bbolt-backed environment holding the cas/eav buckets (or
// their staging counterparts, which live in their own Env with the same
// bucket names on a different file) plus its logical capacity tracker.
type Env struct {
	db      *bolt.DB
	tracker *capacity.Tracker
	id      uuid.UUID
	path    string
}

// OpenEnv opens (creating if absent) a bbolt environment at path with the
// given initial logical capacity and growth factor.
func OpenEnv(path string, initialMapSize uint64, growth float64, flags Flags) (*Env, error) {
	opts := &bolt.Options{Timeout: 5 * time.Second}
	if flags&FlagNoFreelistSync != 0 {
		opts.NoFreelistSync = true
	}
	db, err := bolt.Open(path, 0o600, opts)
	if err != nil {
		return nil, kverr.Wrap(kverr.BackendIO, err, "opening bbolt environment")
	}
	if flags&FlagNoSync != 0 {
		db.NoSync = true
	}
	return &Env{
		db:      db,
		tracker: capacity.NewTracker(initialMapSize, growth),
		id:      uuid.New(),
		path:    path,
	}, nil
}

// Close releases the underlying database file handle.
func (e *Env) Close() error {
	if err := e.db.Close(); err != nil {
		return kverr.Wrap(kverr.BackendIO, err, "closing bbolt environment")
	}
	return nil
}

// Info returns the environment's current (used, capacity) logical byte
// counts.
func (e *Env) Info() (used uint64, capacity uint64) { return e.tracker.Info() }

// Grow doubles (or multiplies by the configured growth factor) the
// environment's logical capacity ceiling and returns the new ceiling.
func (e *Env) Grow() uint64 { return e.tracker.Grow() }

// ID is a stable identity for this environment.
func (e *Env) ID() uuid.UUID { return e.id }

// Path returns the filesystem path backing this environment.
func (e *Env) Path() string { return e.path }

// BeginWrite opens a single read-write transaction spanning every bucket in
// this environment. Cursor.Commit relies on this to bracket CAS and EAV
// writes from one staging pair inside one atomic bbolt transaction.
func (e *Env) BeginWrite() (*Writer, error) {
	tx, err := e.db.Begin(true)
	if err != nil {
		return nil, kverr.Wrap(kverr.BackendIO, err, "beginning bbolt write transaction")
	}
	return &Writer{tx: tx, env: e}, nil
}

// View runs fn inside a read-only bbolt transaction.
func (e *Env) View(fn func(*bolt.Tx) error) error {
	return e.db.View(fn)
}
