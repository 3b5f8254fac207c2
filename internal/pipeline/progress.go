package pipeline

import (
	"log/slog"
	"sync"

	"github.com/skogdata/forest-etl/internal/observability"
)

// Phase names used for progress reporting and the phase_progress metric.
const (
	PhaseValidation     = "validation"
	PhaseExtraction     = "extraction"
	PhaseClassification = "classification"
)

// ProgressSink receives progress updates for interactive callers. It must
// not block; slow consumers would stall pipeline workers.
type ProgressSink func(phase string, percent int, message string)

// Tracker reports per-phase progress. Reported percentages are monotonic
// within a phase: concurrent chunk completions may arrive out of order, and
// a progress bar that moves backwards reads as a malfunction.
type Tracker struct {
	mu      sync.Mutex
	percent map[string]int

	sink    ProgressSink
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewTracker creates a Tracker. A nil sink disables interactive reporting;
// metrics and logs are still emitted.
func NewTracker(sink ProgressSink, metrics *observability.Metrics, logger *slog.Logger) *Tracker {
	if sink == nil {
		sink = func(string, int, string) {}
	}
	return &Tracker{
		percent: make(map[string]int),
		sink:    sink,
		metrics: metrics,
		logger:  logger,
	}
}

// Step reports that done of total units finished in a phase. Any nonzero
// completion reports at least 1%, so runs with more chunks than percentage
// points still show movement on the very first completion.
func (t *Tracker) Step(phase string, done, total int) {
	if total <= 0 {
		return
	}
	pct := done * 100 / total
	if done > 0 && pct == 0 {
		pct = 1
	}
	t.Set(phase, pct, "")
}

// Set reports an absolute percentage for a phase. Regressions are dropped.
func (t *Tracker) Set(phase string, percent int, message string) {
	if percent > 100 {
		percent = 100
	}

	t.mu.Lock()
	if percent <= t.percent[phase] {
		t.mu.Unlock()
		return
	}
	t.percent[phase] = percent
	t.mu.Unlock()

	t.metrics.PhaseProgress.WithLabelValues(phase).Set(float64(percent))
	t.logger.Debug("progress", "phase", phase, "percent", percent)
	t.sink(phase, percent, message)
}

// Percent returns the last reported percentage for a phase.
func (t *Tracker) Percent(phase string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.percent[phase]
}
