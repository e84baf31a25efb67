// Package metrics provides Prometheus metrics for the semantic matching core.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	embeddingRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orbitview",
			Subsystem: "embedding",
			Name:      "requests_total",
			Help:      "Embedding API calls by model and outcome.",
		},
		[]string{"model", "outcome"},
	)

	embeddingLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "orbitview",
			Subsystem: "embedding",
			Name:      "request_duration_seconds",
			Help:      "Embedding API call latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"model"},
	)

	vectorSearches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orbitview",
			Subsystem: "vector",
			Name:      "searches_total",
			Help:      "Vector index searches by outcome.",
		},
		[]string{"outcome"},
	)

	matchScores = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "orbitview",
			Subsystem: "matching",
			Name:      "score",
			Help:      "Distribution of computed skill-match scores.",
			Buckets:   []float64{-1, -0.5, 0, 0.3, 0.5, 0.7, 0.8, 0.9, 1},
		},
	)
)

func init() {
	registry.MustRegister(embeddingRequests, embeddingLatency, vectorSearches, matchScores)
}

// ObserveEmbedding records one embedding API call.
func ObserveEmbedding(model string, duration time.Duration, err error) {
	embeddingRequests.WithLabelValues(model, outcome(err)).Inc()
	embeddingLatency.WithLabelValues(model).Observe(duration.Seconds())
}

// ObserveVectorSearch records one vector index search.
func ObserveVectorSearch(err error) {
	vectorSearches.WithLabelValues(outcome(err)).Inc()
}

// ObserveMatchScore records one computed skill-match score.
func ObserveMatchScore(score float32) {
	matchScores.Observe(float64(score))
}

// Handler exposes the registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
