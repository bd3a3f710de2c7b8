// Package metrics exposes Prometheus counters for route generation and map redraws.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unklstewy/flightarcs/pkg/routing"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	RoutesGenerated    *prometheus.CounterVec
	CandidatesSampled  prometheus.Counter
	CandidatesRejected prometheus.Counter
	GenerationTime     prometheus.Histogram
	Redraws            prometheus.Counter
	ArcsDrawn          prometheus.Gauge
	ErrorsCount        *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates metrics registered with reg. A nil reg uses a fresh
// registry so repeated construction never collides.
func NewMetrics(namespace string, reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		RoutesGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routes_generated_total",
			Help:      "The total number of generated routes",
		}, []string{"kind"}),
		CandidatesSampled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "waypoints_sampled_total",
			Help:      "The total number of pool airports evaluated as waypoints",
		}),
		CandidatesRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "waypoints_rejected_total",
			Help:      "The total number of sampled waypoints failing the distance rule",
		}),
		GenerationTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "route_generation_seconds",
			Help:      "Time taken to generate routes",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		Redraws: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "arc_redraws_total",
			Help:      "The total number of arc layer generations drawn",
		}),
		ArcsDrawn: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "arcs_drawn",
			Help:      "Number of arcs in the current generation",
		}),
		ErrorsCount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
		gatherer: reg,
	}
}

// ObserveGeneration implements routing.Observer.
func (m *Metrics) ObserveGeneration(r routing.Result) {
	for _, route := range r.Routes {
		if route.IsDirect() {
			m.RoutesGenerated.WithLabelValues("direct").Inc()
		} else {
			m.RoutesGenerated.WithLabelValues("one_stop").Inc()
		}
	}
	m.CandidatesSampled.Add(float64(r.Sampled))
	m.CandidatesRejected.Add(float64(r.Rejected))
	m.GenerationTime.Observe(r.Duration.Seconds())
}

// ObserveRedraw records a new arc generation.
func (m *Metrics) ObserveRedraw(generation, arcs int) {
	m.Redraws.Inc()
	m.ArcsDrawn.Set(float64(arcs))
}

// ObserveError counts a failed operation.
func (m *Metrics) ObserveError(operation string) {
	m.ErrorsCount.WithLabelValues(operation).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
