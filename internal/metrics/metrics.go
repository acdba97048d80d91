// Package metrics exports Prometheus instruments for store operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeOK           = "ok"
	OutcomeNotFound     = "not_found"
	OutcomeInvalid      = "invalid"
	OutcomeStorageError = "storage_error"
)

// Recorder counts and times store operations. A nil *Recorder is valid and
// records nothing, so stores can be built without metrics.
type Recorder struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewRecorder creates the store instruments and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cookbook",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by entity, operation and outcome.",
		}, []string{"entity", "operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cookbook",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store operation latency including transaction commit.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"entity", "operation"}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{r.operations, r.duration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

// Observe records one finished operation.
func (r *Recorder) Observe(entity, operation, outcome string, started time.Time) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(entity, operation, outcome).Inc()
	r.duration.WithLabelValues(entity, operation).Observe(time.Since(started).Seconds())
}

// Operations exposes the counter vector for tests and custom exporters.
func (r *Recorder) Operations() *prometheus.CounterVec {
	if r == nil {
		return nil
	}
	return r.operations
}
