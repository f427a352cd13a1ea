package memstore

import (
	"sync"

	"github.com/google/uuid"
	"github.com/holochain/holo-persist/capacity"
	"github.com/holochain/holo-persist/eav"
	"github.com/holochain/holo-persist/kverr"
	"github.com/holochain/holo-persist/storage"
)

// Eav is an in-memory EAV backend, generic over the application's attribute
// type.
type Eav[A eav.Attribute] struct {
	mu       sync.RWMutex
	records  []eav.Record[A]
	latestBy map[string]int // triple key -> index into records of the latest record for that triple
	tracker  *capacity.Tracker
	id       uuid.UUID
}

// NewEav constructs an empty in-memory EAV backend.
func NewEav[A eav.Attribute](initialCapacity uint64, growth float64) *Eav[A] {
	return &Eav[A]{
		latestBy: make(map[string]int),
		tracker:  capacity.NewTracker(initialCapacity, growth),
		id:       uuid.New(),
	}
}

func (e *Eav[A]) ID() uuid.UUID { return e.id }

func (e *Eav[A]) AddEAVI(r eav.Record[A]) (*eav.Record[A], error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tk := r.TripleKey()
	var prior *eav.Record[A]
	if idx, ok := e.latestBy[tk]; ok {
		p := e.records[idx]
		prior = &p
	}

	cost := uint64(len(tk)) + 64
	for {
		if err := e.tracker.Reserve(cost); err != nil {
			if kverr.Is(err, kverr.CapacityExhausted) {
				e.tracker.Grow()
				continue
			}
			return nil, err
		}
		break
	}

	e.records = append(e.records, r)
	e.latestBy[tk] = len(e.records) - 1
	return prior, nil
}

func (e *Eav[A]) Iter(fn func(eav.Record[A]) error) error {
	e.mu.RLock()
	snapshot := append([]eav.Record[A](nil), e.records...)
	e.mu.RUnlock()

	for _, r := range snapshot {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (e *Eav[A]) FetchEAVI(q eav.Query[A]) ([]eav.Record[A], error) {
	e.mu.RLock()
	snapshot := append([]eav.Record[A](nil), e.records...)
	e.mu.RUnlock()
	return eav.Evaluate(snapshot, q), nil
}

func (e *Eav[A]) Report() (storage.Report, error) {
	used, cap := e.tracker.Info()
	return storage.Report{UsedBytes: used, CapacityBytes: cap}, nil
}

var _ storage.EAV[eav.DemoAttribute] = (*Eav[eav.DemoAttribute])(nil)
