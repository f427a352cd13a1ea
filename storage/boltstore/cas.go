package boltstore

import (
	bolt "go.etcd.io/bbolt"

	"github.com/google/uuid"
	"github.com/holochain/holo-persist/address"
	"github.com/holochain/holo-persist/kverr"
	"github.com/holochain/holo-persist/storage"
)

// Cas is the bbolt-backed CAS backend.
type Cas struct {
	env *Env
	id  uuid.UUID
}

// NewCas constructs a Cas backend over env.
func NewCas(env *Env) *Cas {
	return &Cas{env: env, id: uuid.New()}
}

func (c *Cas) ID() uuid.UUID { return c.id }

// Add retries the whole single-key write on capacity exhaustion, growing the
// environment's logical capacity each time. Used by non-transactional
// callers (Manager.Cas()); Cursor.Commit instead drives Writer.PutCAS
// directly against a shared Writer so it can bracket CAS and EAV writes in
// one transaction.
func (c *Cas) Add(content []byte) error {
	addr, err := address.Compute(content, address.SHA256)
	if err != nil {
		return err
	}
	key := addr.Bytes()

	for {
		w, err := c.env.BeginWrite()
		if err != nil {
			return err
		}
		if err := w.PutCAS(key, content); err != nil {
			_ = w.Rollback()
			if kverr.Is(err, kverr.CapacityExhausted) {
				c.env.Grow()
				continue
			}
			return err
		}
		if err := w.Commit(); err != nil {
			_ = w.Rollback()
			if kverr.Is(err, kverr.CapacityExhausted) {
				c.env.Grow()
				continue
			}
			return err
		}
		return nil
	}
}

func (c *Cas) Fetch(addr address.Address) ([]byte, bool, error) {
	var out []byte
	err := c.env.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(casBucket)
		if b == nil {
			return nil
		}
		v := b.Get(addr.Bytes())
		if v == nil {
			return nil
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, false, kverr.Wrap(kverr.BackendIO, err, "fetching cas entry")
	}
	return out, out != nil, nil
}

func (c *Cas) Contains(addr address.Address) (bool, error) {
	_, ok, err := c.Fetch(addr)
	return ok, err
}

func (c *Cas) Iter(fn func(address.Address, []byte) error) error {
	return c.env.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(casBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			a, err := address.FromBytes(k)
			if err != nil {
				return kverr.Wrap(kverr.Corruption, err, "decoding cas key")
			}
			return fn(a, v)
		})
	})
}

func (c *Cas) Report() (storage.Report, error) {
	used, cap := c.env.Info()
	return storage.Report{UsedBytes: used, CapacityBytes: cap}, nil
}

var _ storage.CAS = (*Cas)(nil)
