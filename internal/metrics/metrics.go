// Package metrics holds the Prometheus collectors for dispatched actions and
// store lock contention.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	actions  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lockWait *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer to
// expose them on the default /metrics handler.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "schooldesk",
			Name:      "actions_total",
			Help:      "Dispatched actions by name and envelope status.",
		}, []string{"action", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "schooldesk",
			Name:      "action_duration_seconds",
			Help:      "Time spent handling one action.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		lockWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "schooldesk",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for the store lock.",
			Buckets:   []float64{.001, .01, .05, .1, .5, 1, 5, 15, 20},
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{m.actions, m.duration, m.lockWait} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordAction counts one dispatched action.
func (m *Metrics) RecordAction(action, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action, status).Inc()
	m.duration.WithLabelValues(action).Observe(elapsed.Seconds())
}

// RecordLockWait observes one lock acquisition. Its signature matches
// lock.Observer.
func (m *Metrics) RecordLockWait(wait time.Duration, err error) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(lockOutcome(err)).Observe(wait.Seconds())
}

func lockOutcome(err error) string {
	switch {
	case err == nil:
		return "acquired"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "timeout"
	}
}
