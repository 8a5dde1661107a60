// Package metrics exposes Prometheus counters for compression activity.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the process-wide collectors.
type Metrics struct {
	CompressionsTotal   prometheus.Counter
	PlaceholdersTotal   *prometheus.CounterVec
	TokensSavedTotal    prometheus.Counter
	RestorationsTotal   *prometheus.CounterVec
	CompressionDuration prometheus.Histogram
}

// Get returns the process metrics, registering them with the default
// registry on first use. Registering twice would panic, so every caller
// shares one instance.
//
// Metrics:
//   - pith_compressions_total
//   - pith_placeholders_total{content_type}
//   - pith_tokens_saved_total
//   - pith_restorations_total{result}
//   - pith_compression_duration_seconds
func Get() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			CompressionsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "pith_compressions_total",
				Help: "Total number of texts compressed",
			}),
			PlaceholdersTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "pith_placeholders_total",
				Help: "Total number of placeholders issued",
			}, []string{"content_type"}),
			TokensSavedTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "pith_tokens_saved_total",
				Help: "Estimated tokens removed by compression",
			}),
			RestorationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "pith_restorations_total",
				Help: "Total number of restorations by integrity outcome",
			}, []string{"result"}), // "passed" or "failed"
			CompressionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "pith_compression_duration_seconds",
				Help:    "Time spent detecting and replacing spans",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			}),
		}
	})
	return globalMetrics
}

// ObserveCompression records one compression.
func (m *Metrics) ObserveCompression(typeCounts map[string]int, originalTokens, compressedTokens int, elapsed time.Duration) {
	m.CompressionsTotal.Inc()
	for name, n := range typeCounts {
		m.PlaceholdersTotal.WithLabelValues(name).Add(float64(n))
	}
	if saved := originalTokens - compressedTokens; saved > 0 {
		m.TokensSavedTotal.Add(float64(saved))
	}
	m.CompressionDuration.Observe(elapsed.Seconds())
}

// ObserveRestoration records one restoration outcome.
func (m *Metrics) ObserveRestoration(passed bool) {
	result := "failed"
	if passed {
		result = "passed"
	}
	m.RestorationsTotal.WithLabelValues(result).Inc()
}
