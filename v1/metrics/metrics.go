package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// BreakerOpenTotal counts CLOSED to OPEN transitions per breaker.
	BreakerOpenTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "syncgate_breaker_open_total",
		Help: "Total number of circuit breaker open transitions",
	}, []string{"breaker"})
	// BreakerStateGauge reports the current circuit state (0 closed, 1 open).
	BreakerStateGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "syncgate_breaker_state",
		Help: "Current circuit breaker state (0 closed, 1 open)",
	}, []string{"breaker"})
	// BreakerProbesTotal counts half-open probes that were allowed through.
	BreakerProbesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "syncgate_breaker_probes_total",
		Help: "Total number of half-open probes permitted",
	})
	// JobsEnqueuedTotal counts jobs enqueued, labelled by direction.
	JobsEnqueuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "syncgate_jobs_enqueued_total",
		Help: "Total number of sync jobs enqueued",
	}, []string{"direction"})
	// JobsCancelledTotal counts pending jobs removed via cancel.
	JobsCancelledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "syncgate_jobs_cancelled_total",
		Help: "Total number of pending sync jobs cancelled",
	})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterCoreMetrics registers syncgate core metrics on the provided registry.
func RegisterCoreMetrics(reg prometheus.Registerer) {
	reg.MustRegister(BreakerOpenTotal, BreakerStateGauge, BreakerProbesTotal, JobsEnqueuedTotal, JobsCancelledTotal)
}
