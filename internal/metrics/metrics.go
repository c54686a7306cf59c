// Package metrics exposes Prometheus collectors for the pipeline's own
// phases and resources: phase durations, pages processed, model load
// time, sub-batch sizes, and optional run-coordination queue depth.
// Adapted from the teacher's internal/metrics/metrics.go collector
// definitions, renamed from AI-provider dispatch metrics to OCR pipeline
// metrics under a new namespace.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hybridocr"

var (
	phaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Duration of each pipeline phase by phase name",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"phase"},
	)

	pagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_processed_total",
			Help:      "Total pages processed, labeled by final status and engine",
		},
		[]string{"status", "engine"},
	)

	filesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Total files processed, labeled by success/failure",
		},
		[]string{"result"},
	)

	modelLoadSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_load_duration_seconds",
			Help:      "Duration of neural model cold-start loads",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		},
	)

	batchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size_pages",
			Help:      "Number of pages in each Phase 2 sub-batch",
			Buckets:   []float64{1, 4, 8, 16, 32, 64},
		},
	)

	struggleCategories = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "struggle_categories_total",
			Help:      "Pages flagged per struggle category",
		},
		[]string{"category"},
	)

	runCoordQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runcoord_queue_depth",
			Help:      "Depth of the optional Redis-backed run coordination queue",
		},
		[]string{"type"},
	)
)

// Init registers every collector with the default Prometheus registry.
func Init() {
	prometheus.MustRegister(
		phaseDuration, pagesProcessed, filesProcessed,
		modelLoadSeconds, batchSize, struggleCategories, runCoordQueueDepth,
	)
}

// Handler returns the http.Handler serving /metrics.
func Handler() http.Handler { return promhttp.Handler() }

func ObservePhase(phase string, dur time.Duration) {
	phaseDuration.WithLabelValues(phase).Observe(dur.Seconds())
}

func IncPageProcessed(status, engine string) {
	pagesProcessed.WithLabelValues(status, engine).Inc()
}

func IncFileProcessed(result string) {
	filesProcessed.WithLabelValues(result).Inc()
}

func ObserveModelLoad(dur time.Duration) {
	modelLoadSeconds.Observe(dur.Seconds())
}

func ObserveBatchSize(pages int) {
	batchSize.Observe(float64(pages))
}

func IncStruggleCategory(category string) {
	struggleCategories.WithLabelValues(category).Inc()
}

func SetRunCoordQueueDepth(kind string, depth int64) {
	runCoordQueueDepth.WithLabelValues(kind).Set(float64(depth))
}
