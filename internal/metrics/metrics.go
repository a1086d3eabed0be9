// Package metrics exposes Prometheus collectors for the monitor loop and
// the HTTP surface. A nil *Collectors is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "autoclave"

type Collectors struct {
	registry *prometheus.Registry

	ticks          *prometheus.CounterVec
	fetchErrors    *prometheus.CounterVec
	temperature    prometheus.Gauge
	pressure       prometheus.Gauge
	killPercentage prometheus.Gauge
	cycles         *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	httpRequests   *prometheus.CounterVec
	publishErrors  *prometheus.CounterVec
}

// New creates collectors registered on a private registry.
func New() *Collectors {
	m := &Collectors{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Monitor ticks processed, by sample source.",
		}, []string{"source"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Sample reads that failed and fell back to the previous reading.",
		}, []string{"source"}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature_celsius",
			Help:      "Latest chamber temperature.",
		}),
		pressure: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pressure_kpa",
			Help:      "Latest chamber pressure.",
		}),
		killPercentage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "kill_percentage",
			Help:      "Sterilization progress of the open cycle (0-100).",
		}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Finalized cycles, by status.",
		}, []string{"status"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of finalized cycles.",
			Buckets:   prometheus.ExponentialBuckets(30, 2, 8),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests processed, by route and status.",
		}, []string{"route", "status"}),
		publishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed cycle publishes, by sink.",
		}, []string{"sink"}),
	}

	m.registry.MustRegister(
		m.ticks,
		m.fetchErrors,
		m.temperature,
		m.pressure,
		m.killPercentage,
		m.cycles,
		m.cycleDuration,
		m.httpRequests,
		m.publishErrors,
		prometheus.NewGoCollector(),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Collectors) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Collectors) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTick records one processed tick.
func (m *Collectors) ObserveTick(source string, temperature, pressure, killPct float64) {
	if m == nil {
		return
	}
	m.ticks.WithLabelValues(source).Inc()
	m.temperature.Set(temperature)
	m.pressure.Set(pressure)
	m.killPercentage.Set(killPct)
}

// FetchError records a failed sample read.
func (m *Collectors) FetchError(source string) {
	if m == nil {
		return
	}
	m.fetchErrors.WithLabelValues(source).Inc()
}

// ObserveCycle records a finalized cycle.
func (m *Collectors) ObserveCycle(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(status).Inc()
	m.cycleDuration.Observe(d.Seconds())
}

// PublishError records a failed cycle publish to sink.
func (m *Collectors) PublishError(sink string) {
	if m == nil {
		return
	}
	m.publishErrors.WithLabelValues(sink).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler counts requests to route by response status.
func (m *Collectors) WrapHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.httpRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}
