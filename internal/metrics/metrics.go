package metrics

import "github.com/prometheus/client_golang/prometheus"

// Embedding and search Prometheus metrics.
var (
	EmbedRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sonar",
			Name:      "embed_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"op", "status"},
	)

	EmbedDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sonar",
			Name:      "embed_duration_seconds",
			Help:      "Embedding duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"op"},
	)

	TokenizerTruncationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sonar",
			Name:      "tokenizer_truncations_total",
			Help:      "Inputs truncated to the maximum sequence length",
		},
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sonar",
			Name:      "search_duration_seconds",
			Help:      "Full-scan similarity search duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	SearchDocumentsScanned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sonar",
			Name:      "search_documents_scanned",
			Help:      "Documents scored per search call",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		},
	)
)

var registered bool

// Register registers the sonar metrics. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(EmbedRequestsTotal)
	prometheus.MustRegister(EmbedDuration)
	prometheus.MustRegister(TokenizerTruncationsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchDocumentsScanned)
	registered = true
}
