// Registers:
//
//	#ecomdash_aggregation_duration_seconds{operation}
//	#ecomdash_dataset_rows{dataset}
//	#ecomdash_dataset_load_errors_total{dataset}
//	#ecomdash_http_requests_total{route,code}
//	#go_* and process_* system metrics
//
// Exposed through Handler, mounted by the server on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry    *prometheus.Registry
	aggregation *prometheus.HistogramVec
	rows        *prometheus.GaugeVec
	loadErrors  *prometheus.CounterVec
	requests    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		aggregation: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ecomdash_aggregation_duration_seconds",
				Help:    "Time spent computing one dashboard table",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
			[]string{"operation"},
		),
		rows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ecomdash_dataset_rows",
				Help: "Rows held in memory per dataset",
			},
			[]string{"dataset"},
		),
		loadErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ecomdash_dataset_load_errors_total",
				Help: "Failed dataset or resource loads",
			},
			[]string{"dataset"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ecomdash_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
	}
	m.registry.MustRegister(
		m.aggregation,
		m.rows,
		m.loadErrors,
		m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveAggregation is safe on a nil receiver so callers can run without metrics.
func (m *Metrics) ObserveAggregation(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.aggregation.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) SetRows(dataset string, n int) {
	if m == nil {
		return
	}
	m.rows.WithLabelValues(dataset).Set(float64(n))
}

func (m *Metrics) IncLoadError(dataset string) {
	if m == nil {
		return
	}
	m.loadErrors.WithLabelValues(dataset).Inc()
}

func (m *Metrics) IncRequest(route string, code int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
