package persist

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/holochain/holo-persist/address"
	"github.com/holochain/holo-persist/eav"
	"github.com/holochain/holo-persist/kverr"
	"github.com/holochain/holo-persist/storage"
	"github.com/holochain/holo-persist/storage/boltstore"
)

// cursorState is a Cursor's position in its Open -> Committing ->
// {Committed | Aborted} state machine. Reads and writes are legal only in
// stateOpen.
type cursorState int32

const (
	stateOpen cursorState = iota
	stateCommitting
	stateCommitted
	stateAborted
)

// Cursor is a transactional façade unifying a primary CAS+EAV pair with a
// private staging CAS+EAV pair scoped to this cursor's lifetime. It holds
// references to four backends and implements read-your-writes, write
// buffering, and capacity-retry commit, grounded on
// holochain_persistence_lmdb's txn/lmdb.rs EnvCursor.
//
// A Cursor is not safe for concurrent use by multiple goroutines; mint one
// per goroutine from Manager.CreateCursor.
type Cursor[A eav.Attribute] struct {
	id  uuid.UUID
	mgr *Manager[A]

	primaryEnv *boltstore.Env
	primaryCAS storage.CAS
	primaryEAV storage.EAV[A]

	stagingCAS storage.CAS
	stagingEAV storage.EAV[A]
	stagingEnv *boltstore.Env // non-nil only for on-disk staging
	stagingDir string         // non-empty only for on-disk staging

	parse eav.ParseFunc[A]
	log   *logrus.Entry

	state int32
}

func (c *Cursor[A]) setState(s cursorState) { atomic.StoreInt32(&c.state, int32(s)) }
func (c *Cursor[A]) getState() cursorState  { return cursorState(atomic.LoadInt32(&c.state)) }

func (c *Cursor[A]) requireOpen() error {
	if c.getState() != stateOpen {
		return kverr.New(kverr.Internal, "cursor is not open")
	}
	return nil
}

// ID is this cursor's stable identity, also the name of its on-disk
// staging directory when staging is disk-backed.
func (c *Cursor[A]) ID() uuid.UUID { return c.id }

// Add writes content to this cursor's staging CAS only; it becomes visible
// to the primary only once Commit succeeds.
func (c *Cursor[A]) Add(content []byte) error {
	if err := c.requireOpen(); err != nil {
		return err
	}
	return c.stagingCAS.Add(content)
}

// Fetch looks up addr in staging first, then falls back to the primary,
// caching a primary hit into staging so a later Fetch in the same cursor
// is served locally. Read failures never mutate staging.
func (c *Cursor[A]) Fetch(addr address.Address) ([]byte, bool, error) {
	if err := c.requireOpen(); err != nil {
		return nil, false, err
	}
	if v, ok, err := c.stagingCAS.Fetch(addr); err != nil {
		return nil, false, err
	} else if ok {
		return v, true, nil
	}
	v, ok, err := c.primaryCAS.Fetch(addr)
	if err != nil || !ok {
		return nil, false, err
	}
	if err := c.stagingCAS.Add(v); err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Contains reports whether addr is present, per Fetch(...).ok — a value
// added earlier in this same open cursor but not yet committed is visible.
func (c *Cursor[A]) Contains(addr address.Address) (bool, error) {
	if err := c.requireOpen(); err != nil {
		return false, err
	}
	_, ok, err := c.Fetch(addr)
	return ok, err
}

// AddEAVI writes record to staging only, returning the prior record from
// staging for the same (entity, attribute, value) triple, if any.
func (c *Cursor[A]) AddEAVI(record eav.Record[A]) (*eav.Record[A], error) {
	if err := c.requireOpen(); err != nil {
		return nil, err
	}
	return c.stagingEAV.AddEAVI(record)
}

// AddEAVIValue constructs a Record from (entity, attribute, value), drawing
// its index from the manager's clock, and writes it exactly as AddEAVI
// would. A convenience over constructing the Record with eav.New yourself.
func (c *Cursor[A]) AddEAVIValue(entity address.Address, attribute A, value address.Address) (*eav.Record[A], error) {
	if err := c.requireOpen(); err != nil {
		return nil, err
	}
	return c.stagingEAV.AddEAVI(eav.New(entity, attribute, value, c.mgr.Clock()))
}

// FetchEAVI evaluates query against staging; if staging yields any match it
// is returned as-is. Otherwise the primary is evaluated and, on a non-empty
// result, every matching record is cached into staging before being
// returned. Staging always has precedence, per the store's fetch_eavi
// invariant: a later write that supersedes a cached primary record (e.g.
// under a LatestByAttribute query) is resolved from staging, never masked
// by the cache. Because a non-empty staging result is returned without
// consulting the primary, records staged or cached earlier in this cursor
// can shadow primary records that also match query but were never brought
// into staging.
func (c *Cursor[A]) FetchEAVI(query eav.Query[A]) ([]eav.Record[A], error) {
	if err := c.requireOpen(); err != nil {
		return nil, err
	}
	staged, err := c.stagingEAV.FetchEAVI(query)
	if err != nil {
		return nil, err
	}
	if len(staged) > 0 {
		return staged, nil
	}
	fromPrimary, err := c.primaryEAV.FetchEAVI(query)
	if err != nil {
		return nil, err
	}
	for _, r := range fromPrimary {
		if _, err := c.stagingEAV.AddEAVI(r); err != nil {
			return nil, err
		}
	}
	return fromPrimary, nil
}

type casEntry struct {
	addr    address.Address
	content []byte
}

func (c *Cursor[A]) snapshotStaging() ([]casEntry, []eav.Record[A], error) {
	var casEntries []casEntry
	if err := c.stagingCAS.Iter(func(a address.Address, content []byte) error {
		casEntries = append(casEntries, casEntry{addr: a, content: content})
		return nil
	}); err != nil {
		return nil, nil, err
	}

	var eavEntries []eav.Record[A]
	if err := c.stagingEAV.Iter(func(r eav.Record[A]) error {
		eavEntries = append(eavEntries, r)
		return nil
	}); err != nil {
		return nil, nil, err
	}

	return casEntries, eavEntries, nil
}

// Commit consumes the cursor, durably merging every staged write into the
// primary inside a single bbolt transaction. On CapacityExhausted from any
// staged write or from the final transaction commit, the transaction is
// rolled back, the primary environment's logical capacity ceiling is
// grown, and the whole attempt restarts from the first staged entry — the
// prior, uncommitted attempt carries nothing forward. The loop has no fixed
// bound but is guaranteed to terminate: each retry strictly grows capacity
// against a finite staged working set.
//
// Any other failure is fatal: the cursor is consumed and the primary is
// left unchanged.
func (c *Cursor[A]) Commit() error {
	if !atomic.CompareAndSwapInt32(&c.state, int32(stateOpen), int32(stateCommitting)) {
		return kverr.New(kverr.Internal, "cursor is not open")
	}

	start := time.Now()
	casEntries, eavEntries, err := c.snapshotStaging()
	if err != nil {
		c.setState(stateAborted)
		return err
	}
	c.log.WithField("cas_entries", len(casEntries)).WithField("eav_entries", len(eavEntries)).Trace("commit: staging snapshot taken")

	for {
		w, err := c.primaryEnv.BeginWrite()
		if err != nil {
			c.setState(stateAborted)
			return err
		}

		retry, err := c.writeCAS(w, casEntries)
		if err != nil {
			_ = w.Rollback()
			c.setState(stateAborted)
			return err
		}
		if retry {
			_ = w.Rollback()
			c.growAndRetry()
			continue
		}

		retry, err = c.writeEAV(w, eavEntries)
		if err != nil {
			_ = w.Rollback()
			c.setState(stateAborted)
			return err
		}
		if retry {
			_ = w.Rollback()
			c.growAndRetry()
			continue
		}

		if err := w.Commit(); err != nil {
			_ = w.Rollback()
			if kverr.Is(err, kverr.CapacityExhausted) {
				c.growAndRetry()
				continue
			}
			c.setState(stateAborted)
			return err
		}
		break
	}

	c.mgr.cfg.Metrics.CommitSucceeded(time.Since(start))
	c.setState(stateCommitted)
	c.log.WithField("duration", time.Since(start)).Trace("commit: succeeded")
	return c.cleanupStaging()
}

func (c *Cursor[A]) growAndRetry() {
	newCap := c.primaryEnv.Grow()
	c.mgr.cfg.Metrics.CommitRetried()
	c.mgr.cfg.Metrics.CapacityGrew()
	c.log.WithField("new_capacity", newCap).Trace("commit: capacity exhausted, growing and retrying")
}

func (c *Cursor[A]) writeCAS(w *boltstore.Writer, entries []casEntry) (retry bool, err error) {
	for _, e := range entries {
		if err := w.PutCAS(e.addr.Bytes(), e.content); err != nil {
			if kverr.Is(err, kverr.CapacityExhausted) {
				return true, nil
			}
			return false, err
		}
	}
	return false, nil
}

func (c *Cursor[A]) writeEAV(w *boltstore.Writer, entries []eav.Record[A]) (retry bool, err error) {
	for _, r := range entries {
		if _, err := boltstore.WriteEAVRecord(w, c.parse, r); err != nil {
			if kverr.Is(err, kverr.CapacityExhausted) {
				return true, nil
			}
			return false, err
		}
	}
	return false, nil
}

func (c *Cursor[A]) cleanupStaging() error {
	if c.stagingEnv == nil {
		return nil
	}
	if err := c.stagingEnv.Close(); err != nil {
		return err
	}
	if err := os.RemoveAll(c.stagingDir); err != nil {
		return kverr.Wrap(kverr.BackendIO, err, "removing staging directory")
	}
	return nil
}

// Close drops an open cursor: staging is discarded and the primary is left
// untouched. Go has no destructors, so callers are expected to defer this
// immediately after CreateCursor, mirroring the defer tx.Rollback() idiom
// used throughout the teacher's own transaction call sites. Closing a
// cursor that has already been committed or closed is a no-op.
func (c *Cursor[A]) Close() error {
	if !atomic.CompareAndSwapInt32(&c.state, int32(stateOpen), int32(stateAborted)) {
		return nil
	}
	c.log.Trace("cursor aborted")
	return c.cleanupStaging()
}

var _ TransactionalCursor[eav.DemoAttribute] = (*Cursor[eav.DemoAttribute])(nil)
