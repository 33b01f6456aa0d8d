package metrics

import (
	// Go Internal Packages
	"time"

	// External Packages
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder publishes one event per gateway attempt: a counter keyed by
// gateway, operation and outcome, plus a response-time histogram.
type Recorder struct {
	attempts *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payflow",
			Name:      "gateway_attempts_total",
			Help:      "Gateway attempts by gateway, operation and outcome.",
		}, []string{"gateway", "operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "payflow",
			Name:      "gateway_response_seconds",
			Help:      "Gateway attempt response time.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"gateway", "operation"}),
	}
	reg.MustRegister(r.attempts, r.latency)
	return r
}

// Attempt records a single gateway attempt, success or failure.
func (r *Recorder) Attempt(gatewayID, operation string, success bool, elapsed time.Duration) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	r.attempts.WithLabelValues(gatewayID, operation, outcome).Inc()
	r.latency.WithLabelValues(gatewayID, operation).Observe(elapsed.Seconds())
}
