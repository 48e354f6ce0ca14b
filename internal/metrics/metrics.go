// Package metrics exposes engine counters on a private Prometheus registry.
package metrics

import (
	"context"  // Server shutdown
	"net/http" // Metrics server
	"time"     // Operation durations

	"github.com/prometheus/client_golang/prometheus"          // Prometheus collectors
	"github.com/prometheus/client_golang/prometheus/promauto" // Registered collector constructors
	"github.com/prometheus/client_golang/prometheus/promhttp" // Scrape handler
	"github.com/sirupsen/logrus"                              // Logging library
)

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

type Collector struct {
	registry       *prometheus.Registry
	operations     *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	retries        *prometheus.CounterVec
	projectsClosed prometheus.Counter
}

func New() *Collector {
	registry := prometheus.NewRegistry()
	return &Collector{
		registry: registry,
		operations: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "invest_operations_total",
			Help: "Engine operations by action and outcome",
		}, []string{"action", "outcome"}),
		duration: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "invest_operation_duration_seconds",
			Help:    "Time spent in an engine operation, including lock waits and retries",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),
		retries: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "invest_operation_retries_total",
			Help: "Attempts repeated after a concurrency conflict",
		}, []string{"action"}),
		projectsClosed: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "invest_projects_closed_total",
			Help: "Projects closed because their end date passed",
		}),
	}
}

func (c *Collector) ObserveOperation(action, outcome string, d time.Duration) {
	c.operations.WithLabelValues(action, outcome).Inc()
	c.duration.WithLabelValues(action).Observe(d.Seconds())
}

func (c *Collector) ObserveRetry(action string) {
	c.retries.WithLabelValues(action).Inc()
}

func (c *Collector) ProjectsClosed(n int) {
	c.projectsClosed.Add(float64(n))
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on addr until ctx is cancelled.
func (c *Collector) StartServer(ctx context.Context, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logrus.WithField("addr", addr).Info("Starting metrics server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("Metrics server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	return server
}
