// Package persist implements the Persistence Manager and Cursor: the
// cursor-based transactional overlay that unifies a CAS and EAV backend
// pair under a single atomic commit, grounded on
// holochain_persistence_lmdb's txn/lmdb.rs (the commit-retry algorithm) and
// txn/txn.rs (the manager/cursor-provider split), reworked around
// go.etcd.io/bbolt the way prysm's beacon-chain/db/kv package wraps it.
package persist

import (
	"github.com/holochain/holo-persist/eav"
	"github.com/holochain/holo-persist/metrics"
	"github.com/holochain/holo-persist/storage/boltstore"
	"github.com/sirupsen/logrus"
)

// StagingMode selects where a Cursor's ephemeral staging pair lives.
type StagingMode int

const (
	// StagingInMemory backs staging with plain Go maps (storage/memstore).
	// This is the default: no filesystem I/O per cursor, preferable for
	// small working sets.
	StagingInMemory StagingMode = iota
	// StagingOnDisk backs staging with a scratch bbolt environment under a
	// UUID-named subdirectory of Config.StagingPrefix, for cursors whose
	// staged writes may exceed available memory.
	StagingOnDisk
)

// Config configures a Manager[A]. Parse is required: the manager is
// generic over the application's attribute type A, and backends need a
// string -> A reconstructor wherever they decode stored records.
type Config[A eav.Attribute] struct {
	// PrimaryPath is the bbolt file backing the primary environment.
	PrimaryPath string
	// PrimaryInitialMapSize is the primary environment's starting logical
	// capacity ceiling, in bytes.
	PrimaryInitialMapSize uint64
	// PrimaryFlags are opaque environment flags applied to the primary
	// bbolt database.
	PrimaryFlags boltstore.Flags

	// GrowthFactor multiplies a capacity ceiling on every grow-and-retry.
	// Values <= 1 are treated as 2.0.
	GrowthFactor float64

	// StagingMode selects the staging backend kind. The zero value is
	// StagingInMemory.
	StagingMode StagingMode
	// StagingPrefix is the directory under which on-disk staging
	// environments are created, one UUID-named subdirectory per cursor.
	// Required when StagingMode is StagingOnDisk; purged of any leftover
	// subdirectories from a prior crashed run on NewManager.
	StagingPrefix string
	// StagingInitialMapSize is each staging pair's starting logical
	// capacity ceiling, in bytes.
	StagingInitialMapSize uint64
	// StagingFlags are opaque environment flags applied to on-disk staging
	// environments.
	StagingFlags boltstore.Flags

	// Parse reconstructs an attribute value from its String() form; every
	// backend that decodes stored EAV records needs it.
	Parse eav.ParseFunc[A]

	// CasCacheSize bounds the LRU read cache layered in front of the
	// non-transactional CAS handle returned by Manager.Cas(). Defaults to
	// 1024 entries if <= 0.
	CasCacheSize int

	// Metrics, if set, receives commit/retry/grow observations from every
	// cursor this manager mints. Left nil, metrics are simply not recorded.
	Metrics *metrics.Recorder

	// Logger is the base logrus entry components log under. Defaults to
	// logrus.WithField("prefix", "persist") if nil.
	Logger *logrus.Entry
}

func (c Config[A]) growthFactor() float64 {
	if c.GrowthFactor <= 1.0 {
		return 2.0
	}
	return c.GrowthFactor
}

func (c Config[A]) casCacheSize() int {
	if c.CasCacheSize <= 0 {
		return 1024
	}
	return c.CasCacheSize
}

func (c Config[A]) logger() *logrus.Entry {
	if c.Logger != nil {
		return c.Logger
	}
	return logrus.WithField("prefix", "persist")
}
