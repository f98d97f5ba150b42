package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "payrouter"

// Recorder owns a private registry. A nil *Recorder is a valid no-op.
type Recorder struct {
	registry      *prometheus.Registry
	attempts      *prometheus.CounterVec
	skips         *prometheus.CounterVec
	transactions  *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	circuitState  *prometheus.GaugeVec
	eventsPending prometheus.Gauge
	notifications *prometheus.CounterVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquirer_attempts_total",
			Help:      "Adapter calls by acquirer and outcome.",
		}, []string{"acquirer", "outcome"}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquirer_skips_total",
			Help:      "Chain steps skipped without an adapter call.",
		}, []string{"acquirer", "reason"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Submitted transactions by final result.",
		}, []string{"result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "acquirer_latency_seconds",
			Help:      "Adapter call latency.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"acquirer"}),
		circuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_state",
			Help:      "0=closed 1=half_open 2=open.",
		}, []string{"acquirer"}),
		eventsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_log_pending",
			Help:      "Events buffered and not yet persisted.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification dispatches by kind and result.",
		}, []string{"kind", "result"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.attempts, r.skips, r.transactions, r.latency, r.circuitState, r.eventsPending, r.notifications,
	)
	return r
}

// Registry exposes the underlying registry for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) ObserveAttempt(acquirer, outcome string, latency time.Duration) {
	if r == nil {
		return
	}
	r.attempts.WithLabelValues(acquirer, outcome).Inc()
	r.latency.WithLabelValues(acquirer).Observe(latency.Seconds())
}

func (r *Recorder) IncSkip(acquirer, reason string) {
	if r == nil {
		return
	}
	r.skips.WithLabelValues(acquirer, reason).Inc()
}

func (r *Recorder) IncTransaction(result string) {
	if r == nil {
		return
	}
	r.transactions.WithLabelValues(result).Inc()
}

func (r *Recorder) SetCircuitState(acquirer string, value float64) {
	if r == nil {
		return
	}
	r.circuitState.WithLabelValues(acquirer).Set(value)
}

func (r *Recorder) SetEventsPending(n int) {
	if r == nil {
		return
	}
	r.eventsPending.Set(float64(n))
}

func (r *Recorder) IncNotification(kind, result string) {
	if r == nil {
		return
	}
	r.notifications.WithLabelValues(kind, result).Inc()
}
