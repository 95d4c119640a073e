// Package metrics exposes prometheus collectors for the server and loader.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meshgeo",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "meshgeo",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "route"})

	// TilesProcessed counts tile downloads by region and outcome.
	TilesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meshgeo",
		Subsystem: "tiles",
		Name:      "processed_total",
		Help:      "Map tiles processed by outcome (downloaded, cached, missing, failed)",
	}, []string{"region", "outcome"})

	// NodesKnown is the number of nodes in the store.
	NodesKnown = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "meshgeo",
		Subsystem: "nodes",
		Name:      "known",
		Help:      "Number of mesh nodes currently known",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one finished HTTP request.
func ObserveRequest(method, route string, status int, took time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(took.Seconds())
}
