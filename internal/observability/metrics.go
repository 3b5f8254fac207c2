package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// consolidation pipeline.
type Metrics struct {
	RecordsExtracted prometheus.Counter
	RecordsCommitted prometheus.Counter
	ChunksCompleted  prometheus.Counter
	ChunkFailures    *prometheus.CounterVec // label: kind={source_unavailable,field_missing,read,classify,commit}
	FieldReadErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	PhaseProgress *prometheus.GaugeVec // label: phase={validation,extraction,classification}

	ChunkExtractDuration  prometheus.Histogram
	ChunkClassifyDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RecordsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "forest_etl",
			Name:      "records_extracted_total",
			Help:      "Total consolidated records assembled from source layers.",
		}),
		RecordsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "forest_etl",
			Name:      "records_committed_total",
			Help:      "Total classified records committed to the output sink.",
		}),
		ChunksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "forest_etl",
			Name:      "chunks_completed_total",
			Help:      "Total chunks processed to completion.",
		}),
		ChunkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forest_etl",
			Name:      "chunk_failures_total",
			Help:      "Chunk-local failures by kind.",
		}, []string{"kind"}),
		FieldReadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "forest_etl",
			Name:      "field_read_errors_total",
			Help:      "Per-field source read failures during extraction.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "forest_etl",
			Name:      "pipeline_running",
			Help:      "1 while a consolidation run is active, 0 otherwise.",
		}),
		PhaseProgress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "forest_etl",
			Name:      "phase_progress_percent",
			Help:      "Monotonic progress percentage per pipeline phase.",
		}, []string{"phase"}),
		ChunkExtractDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "forest_etl",
			Name:      "chunk_extract_duration_seconds",
			Help:      "Duration of field-major extraction for one chunk.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ChunkClassifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "forest_etl",
			Name:      "chunk_classify_duration_seconds",
			Help:      "Duration of rule evaluation for one chunk.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
	}

	prometheus.MustRegister(
		m.RecordsExtracted,
		m.RecordsCommitted,
		m.ChunksCompleted,
		m.ChunkFailures,
		m.FieldReadErrors,
		m.PipelineRunning,
		m.PhaseProgress,
		m.ChunkExtractDuration,
		m.ChunkClassifyDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RecordsExtracted:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "forest_etl", Name: "records_extracted_total"}),
		RecordsCommitted:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "forest_etl", Name: "records_committed_total"}),
		ChunksCompleted:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "forest_etl", Name: "chunks_completed_total"}),
		ChunkFailures:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "forest_etl", Name: "chunk_failures_total"}, []string{"kind"}),
		FieldReadErrors:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "forest_etl", Name: "field_read_errors_total"}),
		PipelineRunning:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "forest_etl", Name: "pipeline_running"}),
		PhaseProgress:         prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "forest_etl", Name: "phase_progress_percent"}, []string{"phase"}),
		ChunkExtractDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "forest_etl", Name: "chunk_extract_duration_seconds"}),
		ChunkClassifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "forest_etl", Name: "chunk_classify_duration_seconds"}),
	}
}
