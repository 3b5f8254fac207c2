package pipeline_test

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/skogdata/forest-etl/internal/observability"
	"github.com/skogdata/forest-etl/internal/pipeline"
	"github.com/stretchr/testify/assert"
)

func newTracker(sink pipeline.ProgressSink) *pipeline.Tracker {
	return pipeline.NewTracker(sink, observability.NewMetricsForTesting(), slog.Default())
}

func TestTracker_MonotonicWithinPhase(t *testing.T) {
	var mu sync.Mutex
	var reported []int
	tr := newTracker(func(_ string, pct int, _ string) {
		mu.Lock()
		reported = append(reported, pct)
		mu.Unlock()
	})

	tr.Set(pipeline.PhaseExtraction, 10, "")
	tr.Set(pipeline.PhaseExtraction, 40, "")
	tr.Set(pipeline.PhaseExtraction, 25, "") // out-of-order completion
	tr.Set(pipeline.PhaseExtraction, 40, "") // duplicate
	tr.Set(pipeline.PhaseExtraction, 60, "")

	assert.Equal(t, []int{10, 40, 60}, reported)
	assert.Equal(t, 60, tr.Percent(pipeline.PhaseExtraction))
}

func TestTracker_PhasesAreIndependent(t *testing.T) {
	tr := newTracker(nil)

	tr.Set(pipeline.PhaseValidation, 100, "")
	tr.Set(pipeline.PhaseExtraction, 5, "")

	assert.Equal(t, 100, tr.Percent(pipeline.PhaseValidation))
	assert.Equal(t, 5, tr.Percent(pipeline.PhaseExtraction))
	assert.Equal(t, 0, tr.Percent(pipeline.PhaseClassification))
}

func TestTracker_FirstStepReportsAtLeastOnePercent(t *testing.T) {
	tr := newTracker(nil)

	// 1 of 500 chunks is 0.2%; it must still show as 1%.
	tr.Step(pipeline.PhaseExtraction, 1, 500)
	assert.Equal(t, 1, tr.Percent(pipeline.PhaseExtraction))

	tr.Step(pipeline.PhaseExtraction, 500, 500)
	assert.Equal(t, 100, tr.Percent(pipeline.PhaseExtraction))
}

func TestTracker_StepClampsAndIgnoresEmptyPhase(t *testing.T) {
	tr := newTracker(nil)

	tr.Step(pipeline.PhaseExtraction, 0, 0) // no work, no report
	assert.Equal(t, 0, tr.Percent(pipeline.PhaseExtraction))

	tr.Set(pipeline.PhaseExtraction, 250, "")
	assert.Equal(t, 100, tr.Percent(pipeline.PhaseExtraction))
}
