package persist

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/holochain/holo-persist/eav"
	"github.com/holochain/holo-persist/internal/clock"
	"github.com/holochain/holo-persist/kverr"
	"github.com/holochain/holo-persist/storage"
	"github.com/holochain/holo-persist/storage/boltstore"
	"github.com/holochain/holo-persist/storage/memstore"
)

// Manager owns the primary CAS and EAV environment and mints cursors over
// it. A Manager is safe to share across goroutines for the purpose of
// minting cursors; the cursors it mints are not.
type Manager[A eav.Attribute] struct {
	cfg        Config[A]
	primaryEnv *boltstore.Env
	primaryCAS *boltstore.Cas
	primaryEAV *boltstore.Eav[A]
	casHandle  *CasHandle
	clock      *clock.Clock
	log        *logrus.Entry
}

// NewManager opens (creating if absent) the primary environment at
// cfg.PrimaryPath and returns a Manager ready to mint cursors. When
// cfg.StagingMode is StagingOnDisk, any leftover staging subdirectories
// under cfg.StagingPrefix from a prior crashed process are purged first.
func NewManager[A eav.Attribute](cfg Config[A]) (*Manager[A], error) {
	if cfg.Parse == nil {
		return nil, kverr.New(kverr.InvalidArgument, "Config.Parse is required")
	}
	cfg.GrowthFactor = cfg.growthFactor()

	if cfg.StagingMode == StagingOnDisk {
		if cfg.StagingPrefix == "" {
			return nil, kverr.New(kverr.InvalidArgument, "Config.StagingPrefix is required for StagingOnDisk")
		}
		if err := os.RemoveAll(cfg.StagingPrefix); err != nil {
			return nil, kverr.Wrap(kverr.BackendIO, err, "purging stale staging directories")
		}
		if err := os.MkdirAll(cfg.StagingPrefix, 0o755); err != nil {
			return nil, kverr.Wrap(kverr.BackendIO, err, "creating staging prefix directory")
		}
	}

	env, err := boltstore.OpenEnv(cfg.PrimaryPath, cfg.PrimaryInitialMapSize, cfg.GrowthFactor, cfg.PrimaryFlags)
	if err != nil {
		return nil, err
	}
	primaryCAS := boltstore.NewCas(env)
	primaryEAV := boltstore.NewEav[A](env, cfg.Parse)

	log := cfg.logger()
	log.WithField("path", cfg.PrimaryPath).Debug("opened primary environment")

	return &Manager[A]{
		cfg:        cfg,
		primaryEnv: env,
		primaryCAS: primaryCAS,
		primaryEAV: primaryEAV,
		casHandle:  newCasHandle(primaryCAS, cfg.casCacheSize()),
		clock:      clock.New(),
		log:        log,
	}, nil
}

// Clock returns the manager's monotonic EAV index source, for callers
// constructing records with eav.New outside of a cursor's own convenience
// methods.
func (m *Manager[A]) Clock() *clock.Clock { return m.clock }

// Cas returns a non-transactional handle onto the primary CAS: it bypasses
// staging and commit entirely, writing/reading the primary directly, with a
// bounded LRU cache standing in for the read-your-writes cache a Cursor
// gets for free.
func (m *Manager[A]) Cas() *CasHandle { return m.casHandle }

// Eav returns a non-transactional handle onto the primary EAV store,
// bypassing staging and commit.
func (m *Manager[A]) Eav() storage.EAV[A] { return m.primaryEAV }

// CreateCursor mints a fresh Cursor over (primary, staging), where staging
// is a brand-new, isolated CAS+EAV pair named by a freshly drawn UUID (on
// disk, under Config.StagingPrefix, for StagingOnDisk).
func (m *Manager[A]) CreateCursor() (*Cursor[A], error) {
	id := uuid.New()
	cur := &Cursor[A]{
		id:         id,
		mgr:        m,
		primaryEnv: m.primaryEnv,
		primaryCAS: m.primaryCAS,
		primaryEAV: m.primaryEAV,
		parse:      m.cfg.Parse,
		log:        m.log.WithField("cursor", id.String()),
	}

	switch m.cfg.StagingMode {
	case StagingOnDisk:
		dir := filepath.Join(m.cfg.StagingPrefix, id.String())
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, kverr.Wrap(kverr.BackendIO, err, "creating staging directory")
		}
		env, err := boltstore.OpenEnv(filepath.Join(dir, "staging.db"), m.cfg.StagingInitialMapSize, m.cfg.GrowthFactor, m.cfg.StagingFlags)
		if err != nil {
			return nil, err
		}
		cur.stagingEnv = env
		cur.stagingDir = dir
		cur.stagingCAS = boltstore.NewCas(env)
		cur.stagingEAV = boltstore.NewEav[A](env, m.cfg.Parse)
	default:
		cur.stagingCAS = memstore.NewCas(m.cfg.StagingInitialMapSize, m.cfg.GrowthFactor)
		cur.stagingEAV = memstore.NewEav[A](m.cfg.StagingInitialMapSize, m.cfg.GrowthFactor)
	}

	cur.setState(stateOpen)
	cur.log.Trace("cursor opened")
	return cur, nil
}

// Close releases the primary environment's file handle. Cursors minted
// from this manager must be closed or committed first.
func (m *Manager[A]) Close() error { return m.primaryEnv.Close() }
