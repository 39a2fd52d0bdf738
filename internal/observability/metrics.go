// Package observability wires gocrowd's runtime counters and gauges
// into prometheus/client_golang, replacing a hand-rolled exposition
// format with the library's own registry and HTTP handler.
package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector gocrowd exposes, fed from
// the pipeline's iteration loop and from each cursor's event emission
// point.
type Metrics struct {
	logger *slog.Logger

	FetchTotal         *prometheus.CounterVec
	FetchErrorsTotal   *prometheus.CounterVec
	CursorEventsTotal  *prometheus.CounterVec
	PipelineIterations prometheus.Counter
	CursorLagSeconds   *prometheus.GaugeVec

	registry *prometheus.Registry
}

// NewMetrics registers gocrowd's collectors against a fresh registry.
func NewMetrics(logger *slog.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		logger:   logger.With("component", "metrics"),
		registry: reg,

		FetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gocrowd_fetch_total",
			Help: "Total fetch calls issued against the remote platform, by collection.",
		}, []string{"collection"}),

		FetchErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gocrowd_fetch_errors_total",
			Help: "Total fetch calls that returned an error, by collection.",
		}, []string{"collection"}),

		CursorEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gocrowd_cursor_events_total",
			Help: "Total events emitted by a cursor, by collection and event type.",
		}, []string{"collection", "event_type"}),

		PipelineIterations: factory.NewCounter(prometheus.CounterOpts{
			Name: "gocrowd_pipeline_iterations_total",
			Help: "Total scheduler iterations run.",
		}),

		CursorLagSeconds: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gocrowd_cursor_lag_seconds",
			Help: "Seconds between now and the last event_time a cursor emitted, by collection.",
		}, []string{"collection"}),
	}
}

// ObserveEvent records one emitted event and updates lag for collection.
func (m *Metrics) ObserveEvent(collection, eventType string, eventTime time.Time) {
	m.CursorEventsTotal.WithLabelValues(collection, eventType).Inc()
	if !eventTime.IsZero() {
		m.CursorLagSeconds.WithLabelValues(collection).Set(time.Since(eventTime).Seconds())
	}
}

// ObserveFetch records one fetch call against collection, successful
// or not.
func (m *Metrics) ObserveFetch(collection string, err error) {
	m.FetchTotal.WithLabelValues(collection).Inc()
	if err != nil {
		m.FetchErrorsTotal.WithLabelValues(collection).Inc()
	}
}

// ObserveIteration records one scheduler iteration.
func (m *Metrics) ObserveIteration() {
	m.PipelineIterations.Inc()
}

// StartServer serves the registry's exposition format at path on port,
// alongside a bare liveness endpoint at /health.
func (m *Metrics) StartServer(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}
