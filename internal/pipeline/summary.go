package pipeline

import (
	"sync"
	"time"

	"github.com/skogdata/forest-etl/internal/domain"
)

// maxSampleFailures caps the per-run failure sample kept in memory. The
// full tally survives in FailuresByKind; the sample exists so operators can
// see concrete failing join identifiers and errors without holding every
// failure of a multi-million-record run.
const maxSampleFailures = 10

// RunSummary is the outcome of one consolidation run. A run that partially
// failed always says so here; there is no silent partial success.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	TotalRecords     int   `json:"total_records"`
	ChunksTotal      int   `json:"chunks_total"`
	ChunksSucceeded  int   `json:"chunks_succeeded"`
	ChunksFailed     int   `json:"chunks_failed"`
	RecordsCommitted int64 `json:"records_committed"`

	FailuresByKind map[domain.FailureKind]int `json:"failures_by_kind,omitempty"`
	SampleFailures []string                   `json:"sample_failures,omitempty"`

	// ThresholdStopped is set when accumulated chunk failures crossed the
	// configured maximum and the run stopped scheduling new chunks.
	ThresholdStopped bool `json:"threshold_stopped"`
}

// Clean reports whether every chunk completed without failure.
func (s *RunSummary) Clean() bool {
	return !s.ThresholdStopped && s.ChunksFailed == 0 && s.ChunksSucceeded == s.ChunksTotal
}

// failureLog accumulates chunk failures from concurrent workers.
type failureLog struct {
	mu      sync.Mutex
	byKind  map[domain.FailureKind]int
	samples []string
	chunks  map[int]struct{}
}

func newFailureLog() *failureLog {
	return &failureLog{
		byKind: make(map[domain.FailureKind]int),
		chunks: make(map[int]struct{}),
	}
}

// record tallies one failure and returns the number of distinct failed
// chunks so far, which drives the failure threshold.
func (l *failureLog) record(f *domain.ChunkFailure) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.byKind[f.Kind]++
	if len(l.samples) < maxSampleFailures {
		l.samples = append(l.samples, f.Error())
	}
	l.chunks[f.ChunkIndex] = struct{}{}
	return len(l.chunks)
}

func (l *failureLog) failedChunks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.chunks)
}

func (l *failureLog) snapshot() (map[domain.FailureKind]int, []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	byKind := make(map[domain.FailureKind]int, len(l.byKind))
	for k, n := range l.byKind {
		byKind[k] = n
	}
	return byKind, append([]string(nil), l.samples...)
}
