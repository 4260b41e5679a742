package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics exposes the engine's Prometheus collectors.
type Metrics struct {
	Evaluations   prometheus.Counter
	Transitions   *prometheus.CounterVec
	AlertsEmitted *prometheus.CounterVec
	Escalations   prometheus.Counter
	SweepRuns     prometheus.Counter
	SweepDuration prometheus.Histogram

	httpRequests *prometheus.CounterVec
	httpErrors   *prometheus.CounterVec
}

// NewMetrics registers all collectors with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Evaluations: factory.NewCounter(prometheus.CounterOpts{
			Name: "sla_evaluations_total",
			Help: "Number of ticket SLA evaluations run.",
		}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_status_transitions_total",
			Help: "Compliance record transitions out of PENDING.",
		}, []string{"dimension", "status"}),
		AlertsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_alerts_emitted_total",
			Help: "Breach alerts persisted, by dimension and level.",
		}, []string{"dimension", "level"}),
		Escalations: factory.NewCounter(prometheus.CounterOpts{
			Name: "sla_escalations_total",
			Help: "Tickets escalated after a critical breach.",
		}),
		SweepRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "sla_sweep_runs_total",
			Help: "Completed periodic sweep runs.",
		}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sla_sweep_duration_seconds",
			Help:    "Duration of periodic sweep runs.",
			Buckets: prometheus.DefBuckets,
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served, by path, method and status.",
		}, []string{"path", "method", "status"}),
		httpErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_request_errors_total",
			Help: "HTTP requests answered with a domain error.",
		}, []string{"path", "method", "code"}),
	}
}

// RecordRequest increments the request counter. Nil-safe.
func (m *Metrics) RecordRequest(path, method string, status int, _ time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
}

// RecordError increments the error counter. Nil-safe.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(path, method, code).Inc()
}

// RecordTransition counts a PENDING -> terminal transition. Nil-safe.
func (m *Metrics) RecordTransition(dimension, status string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(dimension, status).Inc()
}

// RecordAlert counts a persisted alert. Nil-safe.
func (m *Metrics) RecordAlert(dimension, level string) {
	if m == nil {
		return
	}
	m.AlertsEmitted.WithLabelValues(dimension, level).Inc()
}

// RecordEvaluation counts one pipeline run. Nil-safe.
func (m *Metrics) RecordEvaluation() {
	if m == nil {
		return
	}
	m.Evaluations.Inc()
}

// RecordEscalation counts one applied escalation. Nil-safe.
func (m *Metrics) RecordEscalation() {
	if m == nil {
		return
	}
	m.Escalations.Inc()
}

// RecordSweep counts a completed sweep and its duration. Nil-safe.
func (m *Metrics) RecordSweep(duration time.Duration) {
	if m == nil {
		return
	}
	m.SweepRuns.Inc()
	m.SweepDuration.Observe(duration.Seconds())
}

// ServeMetrics runs the Prometheus scrape endpoint on its own listener.
func ServeMetrics(addr string, gatherer prometheus.Gatherer, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics listener failed", zap.Error(err))
		}
	}()
	return server
}

// ShutdownMetrics stops the metrics listener.
func ShutdownMetrics(ctx context.Context, server *http.Server) {
	if server == nil {
		return
	}
	_ = server.Shutdown(ctx)
}
