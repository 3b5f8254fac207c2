package mapping_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/skogdata/forest-etl/internal/domain"
	"github.com/skogdata/forest-etl/internal/mapping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog is an in-memory SourceCatalog for validator tests.
type fakeCatalog struct {
	layers      map[string][]string // layer path -> field names
	fieldsCalls int
}

func (f *fakeCatalog) Exists(_ context.Context, path string) (bool, error) {
	_, ok := f.layers[path]
	return ok, nil
}

func (f *fakeCatalog) Fields(_ context.Context, path string) ([]string, error) {
	f.fieldsCalls++
	return f.layers[path], nil
}

func (f *fakeCatalog) Open(context.Context, string) (domain.LayerReader, error) {
	panic("validator must never open a layer for extraction")
}

func (f *fakeCatalog) JoinIDs(context.Context, string) ([]int64, error) {
	panic("validator must never enumerate join identifiers")
}

const scenarioDoc = `
fields:
  - {target: speciesRaw, layer: LayerA, sourceField: dom_species, kind: categorical}
  - {target: ageEstimate, layer: LayerB, sourceField: age, kind: point}
  - {target: ageLower, layer: LayerB, sourceField: age_low, kind: lowerBound, estimate: ageEstimate}
`

func loadScenario(t *testing.T) *mapping.Table {
	t.Helper()
	table, err := mapping.Load([]byte(scenarioDoc))
	require.NoError(t, err)
	return table
}

func TestValidate_HappyPath(t *testing.T) {
	catalog := &fakeCatalog{layers: map[string][]string{
		"LayerA": {"fid", "dom_species"},
		"LayerB": {"fid", "age", "age_low"},
	}}
	v := mapping.NewValidator(catalog, slog.Default())

	err := v.Validate(context.Background(), loadScenario(t), nil)
	require.NoError(t, err)
	// Field listing is cached per layer, not re-read per field.
	assert.Equal(t, 2, catalog.fieldsCalls)
}

func TestValidate_SourceLayerNotFound(t *testing.T) {
	catalog := &fakeCatalog{layers: map[string][]string{
		"LayerA": {"fid", "dom_species"},
		// LayerB is unreachable.
	}}
	v := mapping.NewValidator(catalog, slog.Default())

	err := v.Validate(context.Background(), loadScenario(t), nil)

	var notFound *domain.SourceLayerNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "LayerB", notFound.Path)
	// Stop-on-first-error: no field listing happened.
	assert.Zero(t, catalog.fieldsCalls)
}

func TestValidate_FieldNotFound(t *testing.T) {
	// LayerB is reachable but lacks age_low.
	catalog := &fakeCatalog{layers: map[string][]string{
		"LayerA": {"fid", "dom_species"},
		"LayerB": {"fid", "age"},
	}}
	v := mapping.NewValidator(catalog, slog.Default())

	err := v.Validate(context.Background(), loadScenario(t), nil)

	var notFound *domain.FieldNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ageLower", notFound.TargetField)
	assert.Equal(t, "LayerB", notFound.LayerPath)
	assert.Equal(t, "age_low", notFound.SourceField)
}

func TestValidate_ProgressMonotonicAndComplete(t *testing.T) {
	catalog := &fakeCatalog{layers: map[string][]string{
		"LayerA": {"fid", "dom_species"},
		"LayerB": {"fid", "age", "age_low"},
	}}
	v := mapping.NewValidator(catalog, slog.Default())

	var percents []int
	progress := func(pct int, _ string) { percents = append(percents, pct) }

	require.NoError(t, v.Validate(context.Background(), loadScenario(t), progress))
	require.NotEmpty(t, percents)

	last := 0
	for _, pct := range percents {
		assert.GreaterOrEqual(t, pct, last, "progress must never regress")
		assert.LessOrEqual(t, pct, 100)
		last = pct
	}
	assert.Equal(t, 100, percents[len(percents)-1])
}
