package boltstore

import (
	bolt "go.etcd.io/bbolt"

	"github.com/holochain/holo-persist/kverr"
)

// Writer is a single bbolt write transaction plus the environment's capacity
// tracker, used to gate every Put against the logical capacity ceiling
// before any bytes reach bbolt. A Writer spans every bucket in its
// environment, which is what lets Cursor.Commit write staged CAS and staged
// EAV entries into one atomic transaction.
type Writer struct {
	tx       *bolt.Tx
	env      *Env
	reserved uint64
}

// reserve accounts for n bytes against the environment's capacity tracker.
// On failure, nothing is written to bbolt and the reservation is not
// retained (the caller is expected to roll back the whole Writer).
func (w *Writer) reserve(n uint64) error {
	if err := w.env.tracker.Reserve(n); err != nil {
		return err
	}
	w.reserved += n
	return nil
}

// PutCAS writes content at addrBytes into the cas bucket.
func (w *Writer) PutCAS(addrBytes, content []byte) error {
	if err := w.reserve(uint64(len(addrBytes) + len(content))); err != nil {
		return err
	}
	b, err := w.tx.CreateBucketIfNotExists(casBucket)
	if err != nil {
		return kverr.Wrap(kverr.BackendIO, err, "creating cas bucket")
	}
	if err := b.Put(addrBytes, content); err != nil {
		return kverr.Wrap(kverr.BackendIO, err, "putting cas entry")
	}
	return nil
}

// Commit finalizes the transaction. On success, every reservation made
// through this Writer becomes permanent usage; on failure the caller should
// still call Rollback to release the reservations (bbolt transactions
// cannot be retried after a failed Commit).
func (w *Writer) Commit() error {
	if err := w.tx.Commit(); err != nil {
		return kverr.Wrap(kverr.BackendIO, err, "committing bbolt transaction")
	}
	return nil
}

// Rollback aborts the transaction and releases every reservation made
// through this Writer.
func (w *Writer) Rollback() error {
	w.env.tracker.Release(w.reserved)
	if err := w.tx.Rollback(); err != nil {
		return kverr.Wrap(kverr.BackendIO, err, "rolling back bbolt transaction")
	}
	return nil
}
