// Package metrics holds the Prometheus collectors shared by the story engine,
// the oracle backends and the HTTP server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "adaptive_story"

var (
	// Registry keeps our collectors out of prometheus.DefaultRegistry so tests
	// and multiple binaries in one process do not collide.
	Registry = prometheus.NewRegistry()

	OracleRequests = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_requests_total",
			Help:      "Text oracle calls, partitioned by backend and status.",
		},
		[]string{"backend", "status"},
	)
	OracleDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_request_duration_seconds",
			Help:      "Latency of text oracle calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend"},
	)
	OracleOutputChars = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_output_chars",
			Help:      "Length of raw oracle output in characters.",
			Buckets:   prometheus.LinearBuckets(100, 100, 10),
		},
		[]string{"backend"},
	)

	Turns = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Story turns, partitioned by validation status.",
		},
		[]string{"status", "severity"},
	)
	GenreViolations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "genre_violations_total",
			Help:      "Generated segments that used a forbidden keyword.",
		},
		[]string{"genre"},
	)
	TreeNodes = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tree_nodes_generated_total",
			Help:      "Story tree nodes built, partitioned by genre.",
		},
		[]string{"genre"},
	)
	TreeChoices = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tree_choices_total",
			Help:      "Story tree player choices, partitioned by response type.",
		},
		[]string{"type"},
	)
	ActiveSessions = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory.",
		},
	)
	HTTPRequests = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, partitioned by route and status code.",
		},
		[]string{"route", "code"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
