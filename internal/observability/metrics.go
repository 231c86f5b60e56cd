package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketbot"

// Metrics holds the Prometheus collectors for retrieval and chat.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	EmbeddingRequests  *prometheus.CounterVec
	EmbeddingDuration  prometheus.Histogram
	EmbeddingCacheHits prometheus.Counter
	EmbeddingInits     *prometheus.CounterVec

	SearchRequests    *prometheus.CounterVec
	SearchDuration    prometheus.Histogram
	SearchResultCount prometheus.Histogram

	ChatRequests *prometheus.CounterVec
	ChatDuration prometheus.Histogram

	PassagesIngested prometheus.Counter
}

// NewMetrics creates all collectors on a fresh registry, along with the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		EmbeddingRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_requests_total",
			Help:      "Embedding backend calls by status",
		}, []string{"status"}),
		EmbeddingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_duration_seconds",
			Help:      "Duration of embedding backend calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		}),
		EmbeddingCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_hits_total",
			Help:      "Query embeddings served from the cache",
		}),
		EmbeddingInits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_initializations_total",
			Help:      "Embedding model initialization attempts by status",
		}, []string{"status"}),

		SearchRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Similarity searches by outcome",
		}, []string{"outcome"}),
		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of similarity searches in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		SearchResultCount: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_result_count",
			Help:      "Number of passages returned per search",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 50},
		}),

		ChatRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat turns by status",
		}, []string{"status"}),
		ChatDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_duration_seconds",
			Help:      "Duration of streamed chat turns in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),

		PassagesIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passages_ingested_total",
			Help:      "Passages embedded and stored by ingestion",
		}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordEmbedding records one embedding backend call.
func (m *Metrics) RecordEmbedding(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.EmbeddingRequests.WithLabelValues(statusLabel(err)).Inc()
	m.EmbeddingDuration.Observe(d.Seconds())
}

// RecordEmbeddingCacheHit records an embedding served from the cache.
func (m *Metrics) RecordEmbeddingCacheHit() {
	if m == nil {
		return
	}
	m.EmbeddingCacheHits.Inc()
}

// RecordInit records one model initialization attempt.
func (m *Metrics) RecordInit(err error) {
	if m == nil {
		return
	}
	m.EmbeddingInits.WithLabelValues(statusLabel(err)).Inc()
}

// RecordSearch records a similarity search by outcome.
func (m *Metrics) RecordSearch(outcome string, results int, d time.Duration) {
	if m == nil {
		return
	}
	m.SearchRequests.WithLabelValues(outcome).Inc()
	m.SearchDuration.Observe(d.Seconds())
	m.SearchResultCount.Observe(float64(results))
}

// RecordChat records a chat turn.
func (m *Metrics) RecordChat(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.ChatRequests.WithLabelValues(statusLabel(err)).Inc()
	m.ChatDuration.Observe(d.Seconds())
}

// RecordIngested adds n to the ingested passage counter.
func (m *Metrics) RecordIngested(n int) {
	if m == nil {
		return
	}
	m.PassagesIngested.Add(float64(n))
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
