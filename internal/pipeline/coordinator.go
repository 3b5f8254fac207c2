// Package pipeline orchestrates a consolidation run: pre-flight mapping
// validation, deterministic chunk partitioning, bounded-concurrency
// extraction and classification, batched commits to the output sink, and
// the end-of-run summary.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/skogdata/forest-etl/internal/domain"
	"github.com/skogdata/forest-etl/internal/extract"
	"github.com/skogdata/forest-etl/internal/mapping"
	"github.com/skogdata/forest-etl/internal/observability"
)

// ChunkExtractor assembles consolidated records for one chunk.
type ChunkExtractor interface {
	ExtractChunk(ctx context.Context, chunk domain.Chunk) ([]*domain.Record, []extract.FieldFailure)
}

// Classifier derives classification attributes on one extracted record.
type Classifier interface {
	Classify(rec *domain.Record)
}

// RecordSink commits classified record batches to the output destination.
// A batch either commits whole or fails whole.
type RecordSink interface {
	CommitBatch(ctx context.Context, runID string, records []*domain.Record) error
}

// Coordinator drives one consolidation run end to end.
type Coordinator struct {
	table     *mapping.Table
	validator *mapping.Validator
	extractor ChunkExtractor
	engine    Classifier
	sink      RecordSink
	catalog   domain.SourceCatalog

	baseLayer   string
	chunkSize   int
	workers     int
	maxFailures int

	tracker   *Tracker
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	activeRun atomic.Value // run ID string
}

// Options fixes the run parameters of a Coordinator.
type Options struct {
	// BaseLayer is the source layer whose join identifiers define the
	// record universe of the run.
	BaseLayer string

	// ChunkSize is the number of join identifiers per chunk.
	ChunkSize int

	// Workers bounds concurrent chunk processing.
	Workers int

	// MaxFailures is the number of distinct failed chunks tolerated before
	// the run stops scheduling new chunks. In-flight chunks always finish.
	// Negative disables the threshold.
	MaxFailures int
}

// New creates a Coordinator.
func New(
	table *mapping.Table,
	validator *mapping.Validator,
	extractor ChunkExtractor,
	engine Classifier,
	sink RecordSink,
	catalog domain.SourceCatalog,
	opts Options,
	tracker *Tracker,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Coordinator {
	return &Coordinator{
		table:       table,
		validator:   validator,
		extractor:   extractor,
		engine:      engine,
		sink:        sink,
		catalog:     catalog,
		baseLayer:   opts.BaseLayer,
		chunkSize:   opts.ChunkSize,
		workers:     opts.Workers,
		maxFailures: opts.MaxFailures,
		tracker:     tracker,
		logger:      logger,
		metrics:     metrics,
	}
}

// CheckReadiness returns nil once at least one chunk has been committed to
// the sink, which proves the full source-to-sink path works.
func (c *Coordinator) CheckReadiness(_ context.Context) error {
	if !c.ready.Load() {
		return errors.New("no chunk committed yet")
	}
	return nil
}

// ActiveRunID returns the identifier of the in-flight or most recently
// started run, or the empty string before the first run.
func (c *Coordinator) ActiveRunID() string {
	id, _ := c.activeRun.Load().(string)
	return id
}

// Run executes one consolidation run: validate the mapping, partition the
// identifier universe, process chunks with bounded concurrency, and report
// the summary.
//
// Run returns an error only for run-fatal conditions: a failed pre-flight
// validation, an unreadable base layer, context cancellation, or the chunk
// failure threshold. Chunk-local failures never abort the run; they are
// tallied in the returned summary, which is non-nil whenever any chunk was
// scheduled.
func (c *Coordinator) Run(ctx context.Context) (*RunSummary, error) {
	runID := uuid.NewString()
	c.activeRun.Store(runID)
	logger := c.logger.With("run_id", runID)

	logger.Info("consolidation run starting",
		"base_layer", c.baseLayer,
		"chunk_size", c.chunkSize,
		"workers", c.workers,
		"max_failures", c.maxFailures,
	)
	c.metrics.PipelineRunning.Set(1)
	defer c.metrics.PipelineRunning.Set(0)

	if err := c.validator.Validate(ctx, c.table, func(pct int, msg string) {
		c.tracker.Set(PhaseValidation, pct, msg)
	}); err != nil {
		return nil, err
	}

	ids, err := c.catalog.JoinIDs(ctx, c.baseLayer)
	if err != nil {
		return nil, err
	}
	chunks := domain.PartitionIDs(ids, c.chunkSize)

	summary := &RunSummary{
		RunID:        runID,
		StartedAt:    domain.Now(),
		TotalRecords: len(ids),
		ChunksTotal:  len(chunks),
	}
	if len(chunks) == 0 {
		summary.FinishedAt = domain.Now()
		logger.Info("base layer has no join identifiers, nothing to do")
		return summary, nil
	}

	failures := newFailureLog()
	var extracted, classified, committed atomic.Int64
	stop := make(chan struct{})
	var stopOnce sync.Once

	work := make(chan domain.Chunk)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(work)
		for _, chunk := range chunks {
			select {
			case work <- chunk:
			case <-stop:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for range c.workers {
		g.Go(func() error {
			for chunk := range work {
				c.processChunk(gctx, runID, logger, chunk, failures, &extracted, &classified, &committed, len(chunks))
				if c.maxFailures >= 0 && failures.failedChunks() > c.maxFailures {
					logger.Error("chunk failure threshold exceeded, stopping run",
						"failed_chunks", failures.failedChunks(),
						"max_failures", c.maxFailures,
					)
					stopOnce.Do(func() { close(stop) })
				}
			}
			return nil
		})
	}

	runErr := g.Wait()

	summary.FinishedAt = domain.Now()
	summary.ChunksFailed = failures.failedChunks()
	summary.RecordsCommitted = committed.Load()
	summary.ChunksSucceeded = int(extracted.Load()) - summary.ChunksFailed
	if summary.ChunksSucceeded < 0 {
		summary.ChunksSucceeded = 0
	}
	summary.FailuresByKind, summary.SampleFailures = failures.snapshot()

	select {
	case <-stop:
		summary.ThresholdStopped = true
	default:
	}

	logger.Info("consolidation run finished",
		"chunks_total", summary.ChunksTotal,
		"chunks_succeeded", summary.ChunksSucceeded,
		"chunks_failed", summary.ChunksFailed,
		"records_committed", summary.RecordsCommitted,
		"threshold_stopped", summary.ThresholdStopped,
		"duration", summary.FinishedAt.Sub(summary.StartedAt),
	)

	if runErr != nil {
		return summary, runErr
	}
	if summary.ThresholdStopped {
		return summary, domain.ErrThresholdExceeded
	}
	return summary, nil
}

// processChunk runs one chunk through extract, classify, and commit. Every
// failure is chunk-local: it is recorded and the worker moves on.
func (c *Coordinator) processChunk(
	ctx context.Context,
	runID string,
	logger *slog.Logger,
	chunk domain.Chunk,
	failures *failureLog,
	extracted, classified, committed *atomic.Int64,
	totalChunks int,
) {
	// Chunks are never empty, so the identifier range is always defined.
	firstID := chunk.JoinIDs[0]
	lastID := chunk.JoinIDs[len(chunk.JoinIDs)-1]

	start := time.Now()
	records, fieldFailures := c.extractor.ExtractChunk(ctx, chunk)
	c.metrics.ChunkExtractDuration.Observe(time.Since(start).Seconds())

	for _, ff := range fieldFailures {
		cf := &domain.ChunkFailure{
			ChunkIndex:  chunk.Index,
			FirstJoinID: firstID,
			LastJoinID:  lastID,
			Kind:        ff.Kind,
			TargetField: ff.TargetField,
			Err:         ff.Err,
		}
		c.metrics.ChunkFailures.WithLabelValues(string(cf.Kind)).Inc()
		failures.record(cf)
	}
	c.tracker.Step(PhaseExtraction, int(extracted.Add(1)), totalChunks)

	start = time.Now()
	for _, rec := range records {
		c.engine.Classify(rec)
	}
	c.metrics.ChunkClassifyDuration.Observe(time.Since(start).Seconds())
	c.tracker.Step(PhaseClassification, int(classified.Add(1)), totalChunks)

	if err := c.sink.CommitBatch(ctx, runID, records); err != nil {
		logger.Error("chunk commit failed", "chunk", chunk.Index, "error", err)
		cf := &domain.ChunkFailure{
			ChunkIndex:  chunk.Index,
			FirstJoinID: firstID,
			LastJoinID:  lastID,
			Kind:        domain.FailureCommit,
			Err:         err,
		}
		c.metrics.ChunkFailures.WithLabelValues(string(cf.Kind)).Inc()
		failures.record(cf)
		return
	}

	committed.Add(int64(len(records)))
	c.metrics.RecordsCommitted.Add(float64(len(records)))
	c.metrics.ChunksCompleted.Inc()
	c.ready.Store(true)
}
