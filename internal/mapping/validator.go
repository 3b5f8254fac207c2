package mapping

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/skogdata/forest-etl/internal/domain"
)

// ProgressFunc receives validation progress as a 0-100 percentage within
// the validation phase. Implementations must not block.
type ProgressFunc func(percent int, message string)

// Validator confirms every declared source layer and field is reachable
// before any extraction begins. Validation is stop-on-first-error: a
// partially validated mapping would make downstream extraction silently
// lossy, so the first failure aborts the whole run.
type Validator struct {
	catalog domain.SourceCatalog
	logger  *slog.Logger
}

// NewValidator creates a Validator over the given source catalog.
func NewValidator(catalog domain.SourceCatalog, logger *slog.Logger) *Validator {
	return &Validator{catalog: catalog, logger: logger}
}

// Validate runs both pre-flight checks in order: (a) every distinct source
// layer is reachable, (b) every declared source field exists on its
// already-validated layer. Progress is reported in two sub-phases, layers
// then fields, each capped at half the band so the percentage never
// regresses even when layers carry unequal field counts. The validator
// never mutates a source.
func (v *Validator) Validate(ctx context.Context, table *Table, progress ProgressFunc) error {
	if progress == nil {
		progress = func(int, string) {}
	}

	layers := table.Layers()
	for i, path := range layers {
		exists, err := v.catalog.Exists(ctx, path)
		if err != nil {
			return fmt.Errorf("check source layer %s: %w", path, err)
		}
		if !exists {
			return &domain.SourceLayerNotFoundError{Path: path}
		}
		pct := (i + 1) * 50 / len(layers)
		progress(min(pct, 50), fmt.Sprintf("validated source layer %s", path))
	}

	fieldsByLayer := make(map[string][]string, len(layers))
	declared := table.Fields()
	for i, fm := range declared {
		names, cached := fieldsByLayer[fm.LayerPath]
		if !cached {
			listed, err := v.catalog.Fields(ctx, fm.LayerPath)
			if err != nil {
				return fmt.Errorf("list fields of source layer %s: %w", fm.LayerPath, err)
			}
			fieldsByLayer[fm.LayerPath] = listed
			names = listed
		}

		if !slices.Contains(names, fm.SourceField) {
			return &domain.FieldNotFoundError{
				TargetField: fm.Target,
				LayerPath:   fm.LayerPath,
				SourceField: fm.SourceField,
			}
		}
		pct := 50 + (i+1)*50/len(declared)
		progress(min(pct, 100), fmt.Sprintf("validated field %s", fm.Target))
	}

	v.logger.Info("mapping validated",
		"layers", len(layers),
		"fields", len(declared),
	)
	return nil
}
