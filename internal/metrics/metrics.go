// Package metrics exposes Prometheus instrumentation for ontoreg operations.
//
// All Record methods are safe on a nil *Metrics, so components take a
// *Metrics without caring whether metrics are enabled.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ontoreg"

// Metrics holds every ontoreg collector and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	Operations         *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	ReasoningDuration  *prometheus.HistogramVec
	VersionsPublished  *prometheus.CounterVec
	InferredStatements prometheus.Counter
	IdentitiesRemoved  *prometheus.CounterVec
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "lifecycle",
				Name:      "operations_total",
				Help:      "Lifecycle operations by outcome code (ok on success)",
			},
			[]string{"op", "code"},
		),

		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "lifecycle",
				Name:      "duration_seconds",
				Help:      "Lifecycle operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),

		ReasoningDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gate",
				Name:      "call_duration_seconds",
				Help:      "Duration of profile-checker and reasoner calls in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"call", "outcome"},
		),

		VersionsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "register",
				Name:      "versions_published_total",
				Help:      "Versions made current, by identity kind",
			},
			[]string{"kind"},
		),

		InferredStatements: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "infer",
				Name:      "statements_total",
				Help:      "Entailed statements written to inferred contexts",
			},
		),

		IdentitiesRemoved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "register",
				Name:      "identities_removed_total",
				Help:      "Identities moved to REMOVED, by kind",
			},
			[]string{"kind"},
		),
	}

	m.registry.MustRegister(
		m.Operations,
		m.OperationDuration,
		m.ReasoningDuration,
		m.VersionsPublished,
		m.InferredStatements,
		m.IdentitiesRemoved,
	)
	return m
}

// Registry returns the Prometheus registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordOperation counts one lifecycle operation and its duration.
// code is empty on success.
func (m *Metrics) RecordOperation(op, code string, d time.Duration) {
	if m == nil {
		return
	}
	if code == "" {
		code = "ok"
	}
	m.Operations.WithLabelValues(op, code).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(d.Seconds())
}

// RecordReasoning records one external gate call.
func (m *Metrics) RecordReasoning(call, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ReasoningDuration.WithLabelValues(call, outcome).Observe(d.Seconds())
}

// RecordPublish counts a version made current.
func (m *Metrics) RecordPublish(kind string) {
	if m == nil {
		return
	}
	m.VersionsPublished.WithLabelValues(kind).Inc()
}

// RecordInferred counts statements written by materialization.
func (m *Metrics) RecordInferred(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.InferredStatements.Add(float64(n))
}

// RecordRemoval counts an identity removal.
func (m *Metrics) RecordRemoval(kind string) {
	if m == nil {
		return
	}
	m.IdentitiesRemoved.WithLabelValues(kind).Inc()
}

// Handler returns an HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Serve exposes /metrics and /health on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
