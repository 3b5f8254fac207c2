// Package extract assembles consolidated records from declared source
// layers, one chunk of join identifiers at a time.
package extract

import (
	"context"
	"log/slog"

	"github.com/skogdata/forest-etl/internal/domain"
	"github.com/skogdata/forest-etl/internal/mapping"
	"github.com/skogdata/forest-etl/internal/observability"
)

// FieldFailure records a chunk-local extraction failure for one target
// field. The chunk's other fields and sibling chunks continue unaffected;
// the failure is surfaced in the end-of-run summary.
type FieldFailure struct {
	TargetField string
	LayerPath   string
	Kind        domain.FailureKind
	Err         error
}

// Extractor populates records from source layers following the validated
// field mapping.
type Extractor struct {
	table   *mapping.Table
	catalog domain.SourceCatalog
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates an Extractor over a validated mapping table.
func New(table *mapping.Table, catalog domain.SourceCatalog, logger *slog.Logger, metrics *observability.Metrics) *Extractor {
	return &Extractor{
		table:   table,
		catalog: catalog,
		logger:  logger,
		metrics: metrics,
	}
}

// ExtractChunk produces one record per identifier in the chunk, every
// target field either populated from its declared source or explicitly
// absent.
//
// Extraction is field-major, not record-major: all identifiers are
// processed for one field before moving to the next, so each source layer
// handle is opened once per (field, chunk) instead of once per
// field-record pair. Sources can live in different datasets with very
// different access costs, which makes per-record handle churn the dominant
// cost in the record-major ordering.
//
// A layer that became unreachable after validation, or a read that fails
// mid-chunk, fails that field for this chunk only: the field reads as
// absent, a FieldFailure is recorded, and extraction continues with the
// remaining fields. Aborting a multi-hour run over one transient field
// read would be disproportionate once pre-flight validation has passed.
func (e *Extractor) ExtractChunk(ctx context.Context, chunk domain.Chunk) ([]*domain.Record, []FieldFailure) {
	records := make([]*domain.Record, len(chunk.JoinIDs))
	for i, id := range chunk.JoinIDs {
		records[i] = domain.NewRecord(id)
	}

	var failures []FieldFailure
	for _, fm := range e.table.Fields() {
		if failure := e.extractField(ctx, fm, chunk, records); failure != nil {
			failures = append(failures, *failure)
		}
	}

	for _, rec := range records {
		rec.Stamp()
	}
	e.metrics.RecordsExtracted.Add(float64(len(records)))
	return records, failures
}

// extractField copies one target field into every record of the chunk.
// Returns nil on success, or the field's failure with all unread slots
// left explicitly absent.
func (e *Extractor) extractField(ctx context.Context, fm domain.FieldMapping, chunk domain.Chunk, records []*domain.Record) *FieldFailure {
	reader, err := e.catalog.Open(ctx, fm.LayerPath)
	if err != nil {
		e.logger.Warn("source layer unavailable during extraction",
			"layer", fm.LayerPath, "field", fm.Target, "chunk", chunk.Index, "error", err)
		markAbsent(records, fm.Target)
		return &FieldFailure{
			TargetField: fm.Target,
			LayerPath:   fm.LayerPath,
			Kind:        domain.FailureSourceUnavailable,
			Err:         err,
		}
	}
	defer reader.Close() //nolint:errcheck // read-only handle

	for i, id := range chunk.JoinIDs {
		v, err := reader.ReadField(ctx, fm.SourceField, id)
		if err != nil {
			e.logger.Warn("field read failed, marking field absent for chunk",
				"layer", fm.LayerPath, "field", fm.Target, "chunk", chunk.Index, "join_id", id, "error", err)
			e.metrics.FieldReadErrors.Inc()
			for _, rec := range records[i:] {
				rec.SetField(fm.Target, domain.NoValue())
			}
			return &FieldFailure{
				TargetField: fm.Target,
				LayerPath:   fm.LayerPath,
				Kind:        domain.FailureRead,
				Err:         err,
			}
		}
		records[i].SetField(fm.Target, v)
	}
	return nil
}

func markAbsent(records []*domain.Record, target string) {
	for _, rec := range records {
		rec.SetField(target, domain.NoValue())
	}
}
