package boltstore

import (
	"encoding/binary"

	bolt "go.etcd.io/bbolt"

	"github.com/google/uuid"
	"github.com/holochain/holo-persist/eav"
	"github.com/holochain/holo-persist/kverr"
	"github.com/holochain/holo-persist/storage"
)

// WriteEAVRecord performs the add_eavi algorithm against an already-open
// Writer: it looks up the secondary triple bucket for a prior record
// sharing (entity, attribute, value), returns that prior record if found,
// then inserts r into the primary ordered bucket and repoints the triple
// bucket at r's index. It never deletes the prior primary-bucket entry —
// EAV records are never deleted by this store; re-asserting a triple simply
// adds a later-indexed record alongside the old one (see the storage.EAV
// contract).
//
// Exported so Cursor.Commit can call it against the primary environment's
// shared Writer, the same Writer also used for staged CAS entries in the
// same attempt.
func WriteEAVRecord[A eav.Attribute](w *Writer, parse eav.ParseFunc[A], r eav.Record[A]) (*eav.Record[A], error) {
	tb, err := w.tx.CreateBucketIfNotExists(eavTripleBucket)
	if err != nil {
		return nil, kverr.Wrap(kverr.BackendIO, err, "creating eav triple bucket")
	}

	tk := tripleKey(r.Entity, r.Attribute, r.Value)
	var prior *eav.Record[A]
	if existing := tb.Get(tk); existing != nil && len(existing) == 8 {
		oldIdx := int64(binary.BigEndian.Uint64(existing))
		oldKey := primaryKey(eav.NewWithIndex(r.Entity, r.Attribute, r.Value, oldIdx))
		pb0, err := w.tx.CreateBucketIfNotExists(eavBucket)
		if err != nil {
			return nil, kverr.Wrap(kverr.BackendIO, err, "creating eav bucket")
		}
		if raw := pb0.Get(oldKey); raw != nil {
			decoded, err := decodeRecord(raw, parse)
			if err != nil {
				return nil, err
			}
			prior = &decoded
		}
	}

	key := primaryKey(r)
	val := encodeRecord(r)
	idxBuf := appendUint64(nil, uint64(r.Index))

	if err := w.reserve(uint64(len(key) + len(val) + len(tk) + len(idxBuf))); err != nil {
		return nil, err
	}

	pb, err := w.tx.CreateBucketIfNotExists(eavBucket)
	if err != nil {
		return nil, kverr.Wrap(kverr.BackendIO, err, "creating eav bucket")
	}
	if err := pb.Put(key, val); err != nil {
		return nil, kverr.Wrap(kverr.BackendIO, err, "putting eav record")
	}
	if err := tb.Put(tk, idxBuf); err != nil {
		return nil, kverr.Wrap(kverr.BackendIO, err, "updating eav triple index")
	}

	return prior, nil
}

// Eav is the bbolt-backed EAV backend.
type Eav[A eav.Attribute] struct {
	env   *Env
	parse eav.ParseFunc[A]
	id    uuid.UUID
}

// NewEav constructs an Eav backend over env. parse reconstructs an attribute
// value from its stored string form.
func NewEav[A eav.Attribute](env *Env, parse eav.ParseFunc[A]) *Eav[A] {
	return &Eav[A]{env: env, parse: parse, id: uuid.New()}
}

func (e *Eav[A]) ID() uuid.UUID { return e.id }

// AddEAVI opens its own writer and retries on capacity exhaustion. Used by
// non-transactional callers (Manager.Eav()); Cursor.Commit instead drives
// WriteEAVRecord directly against a shared Writer so it can bracket CAS and
// EAV writes in one transaction.
func (e *Eav[A]) AddEAVI(r eav.Record[A]) (*eav.Record[A], error) {
	for {
		w, err := e.env.BeginWrite()
		if err != nil {
			return nil, err
		}
		prior, err := WriteEAVRecord(w, e.parse, r)
		if err != nil {
			_ = w.Rollback()
			if kverr.Is(err, kverr.CapacityExhausted) {
				e.env.Grow()
				continue
			}
			return nil, err
		}
		if err := w.Commit(); err != nil {
			_ = w.Rollback()
			if kverr.Is(err, kverr.CapacityExhausted) {
				e.env.Grow()
				continue
			}
			return nil, err
		}
		return prior, nil
	}
}

func (e *Eav[A]) Iter(fn func(eav.Record[A]) error) error {
	return e.env.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(eavBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			r, err := decodeRecord(v, e.parse)
			if err != nil {
				return err
			}
			return fn(r)
		})
	})
}

func (e *Eav[A]) FetchEAVI(q eav.Query[A]) ([]eav.Record[A], error) {
	var all []eav.Record[A]
	if err := e.Iter(func(r eav.Record[A]) error {
		all = append(all, r)
		return nil
	}); err != nil {
		return nil, err
	}
	return eav.Evaluate(all, q), nil
}

func (e *Eav[A]) Report() (storage.Report, error) {
	used, cap := e.env.Info()
	return storage.Report{UsedBytes: used, CapacityBytes: cap}, nil
}

var _ storage.EAV[eav.DemoAttribute] = (*Eav[eav.DemoAttribute])(nil)
