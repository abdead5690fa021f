package scheduler

import (
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Metrics records per-cycle scheduler activity as Prometheus metrics,
// grounded on docbuilder's metrics.PrometheusRecorder: idempotent
// registration via sync.Once, nil-receiver-safe observer methods so a nil
// *Metrics (no registry wired) is always safe to call.
type Metrics struct {
	once      sync.Once
	attempts  *prom.CounterVec
	prsOpened *prom.CounterVec
	stopped   *prom.CounterVec
}

// NewMetrics constructs and registers the scheduler's metrics against reg
// (a fresh registry is created if reg is nil).
func NewMetrics(reg *prom.Registry) *Metrics {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	m := &Metrics{}
	m.once.Do(func() {
		m.attempts = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "feedbot",
			Name:      "migration_attempts_total",
			Help:      "Migration attempts by migrator and outcome",
		}, []string{"migrator", "outcome"})
		m.prsOpened = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "feedbot",
			Name:      "prs_opened_total",
			Help:      "Pull requests opened by migrator",
		}, []string{"migrator"})
		m.stopped = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "feedbot",
			Name:      "migrator_walk_stopped_total",
			Help:      "Migrator walks stopped early, by reason",
		}, []string{"migrator", "reason"})
		reg.MustRegister(m.attempts, m.prsOpened, m.stopped)
	})
	return m
}

// ObserveAttempt records one (migrator, outcome) attempt.
func (m *Metrics) ObserveAttempt(migratorKey, outcome string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(migratorKey, outcome).Inc()
	if outcome == "opened" {
		m.prsOpened.WithLabelValues(migratorKey).Inc()
	}
}

// ObserveStop records a migrator's walk ending for reason.
func (m *Metrics) ObserveStop(migratorKey string, reason StopReason) {
	if m == nil || m.stopped == nil || reason == StopExhausted {
		return
	}
	m.stopped.WithLabelValues(migratorKey, string(reason)).Inc()
}
