// Package metrics registers the prometheus/client_golang collectors the
// cursor commit loop reports through, modeled on erigon-lib's
// kv_interface.go commit-phase metrics (db_commit_seconds{phase="..."},
// db_pgops{phase="..."}) adapted to this store's much smaller surface.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder reports cursor commit outcomes. A nil *Recorder is a valid,
// inert zero value: every method tolerates a nil receiver, so callers that
// don't want Prometheus wired in (most unit tests) can simply leave a
// Config's Metrics field unset.
type Recorder struct {
	commitsTotal          prometheus.Counter
	commitRetriesTotal    prometheus.Counter
	capacityGrowsTotal    prometheus.Counter
	commitDurationSeconds prometheus.Histogram
}

var (
	once   sync.Once
	shared *Recorder
)

// NewRecorder returns the process-wide commit-metrics recorder, registering
// its collectors with the default Prometheus registry on first call. Later
// calls return the same instance, so it's safe to call from every Manager a
// process constructs.
func NewRecorder() *Recorder {
	once.Do(func() {
		shared = &Recorder{
			commitsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "persist_commits_total",
				Help: "Total number of cursor commits that completed successfully.",
			}),
			commitRetriesTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "persist_commit_retries_total",
				Help: "Total number of commit attempts restarted after a capacity-exhausted signal.",
			}),
			capacityGrowsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "persist_capacity_grows_total",
				Help: "Total number of times a primary environment's logical capacity ceiling was grown.",
			}),
			commitDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "persist_commit_duration_seconds",
				Help:    "Wall-clock duration of Cursor.Commit, including any capacity-retry attempts.",
				Buckets: prometheus.DefBuckets,
			}),
		}
	})
	return shared
}

// CommitSucceeded records a successful commit's end-to-end duration.
func (r *Recorder) CommitSucceeded(d time.Duration) {
	if r == nil {
		return
	}
	r.commitsTotal.Inc()
	r.commitDurationSeconds.Observe(d.Seconds())
}

// CommitRetried records a single capacity-exhausted retry of a commit attempt.
func (r *Recorder) CommitRetried() {
	if r == nil {
		return
	}
	r.commitRetriesTotal.Inc()
}

// CapacityGrew records a single growth of a primary environment's ceiling.
func (r *Recorder) CapacityGrew() {
	if r == nil {
		return
	}
	r.capacityGrowsTotal.Inc()
}
