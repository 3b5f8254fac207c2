package extract_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/skogdata/forest-etl/internal/domain"
	"github.com/skogdata/forest-etl/internal/extract"
	"github.com/skogdata/forest-etl/internal/mapping"
	"github.com/skogdata/forest-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const extractMappingDoc = `
fields:
  - {target: age, layer: LayerA, sourceField: srrtrealder, kind: point}
  - {target: species, layer: LayerB, sourceField: srrtreslag, kind: categorical}
  - {target: volume, layer: LayerC, sourceField: srrvolmb, kind: point}
`

// memCatalog serves values from in-memory layers and counts Open calls so
// tests can assert the one-handle-per-field-per-chunk property.
type memCatalog struct {
	// layers[path][field][joinID]
	layers    map[string]map[string]map[int64]domain.Value
	openErr   map[string]error
	readErr   map[string]map[int64]error // path -> joinID -> error
	openCalls []string
}

func (c *memCatalog) Exists(_ context.Context, path string) (bool, error) {
	_, ok := c.layers[path]
	return ok, nil
}

func (c *memCatalog) Fields(_ context.Context, path string) ([]string, error) {
	layer, ok := c.layers[path]
	if !ok {
		return nil, fmt.Errorf("no layer %s", path)
	}
	var names []string
	for name := range layer {
		names = append(names, name)
	}
	return names, nil
}

func (c *memCatalog) Open(_ context.Context, path string) (domain.LayerReader, error) {
	c.openCalls = append(c.openCalls, path)
	if err := c.openErr[path]; err != nil {
		return nil, err
	}
	layer, ok := c.layers[path]
	if !ok {
		return nil, &domain.SourceLayerNotFoundError{Path: path}
	}
	return &memReader{fields: layer, readErr: c.readErr[path]}, nil
}

func (c *memCatalog) JoinIDs(_ context.Context, path string) ([]int64, error) {
	return nil, errors.New("not used in extraction tests")
}

type memReader struct {
	fields  map[string]map[int64]domain.Value
	readErr map[int64]error
	closed  bool
}

func (r *memReader) ReadField(_ context.Context, fieldName string, joinID int64) (domain.Value, error) {
	if err := r.readErr[joinID]; err != nil {
		return domain.NoValue(), err
	}
	v, ok := r.fields[fieldName][joinID]
	if !ok {
		return domain.NoValue(), nil
	}
	return v, nil
}

func (r *memReader) Close() error {
	r.closed = true
	return nil
}

func newTestCatalog() *memCatalog {
	return &memCatalog{
		layers: map[string]map[string]map[int64]domain.Value{
			"LayerA": {"srrtrealder": {
				1: domain.FloatValue(45),
				2: domain.FloatValue(12),
				// 3 has no row: age must come back absent, not zero.
			}},
			"LayerB": {"srrtreslag": {
				1: domain.IntValue(1),
				2: domain.IntValue(2),
				3: domain.IntValue(3),
			}},
			"LayerC": {"srrvolmb": {
				1: domain.FloatValue(210.5),
				2: domain.FloatValue(33.1),
				3: domain.FloatValue(0), // a real measured zero, distinct from absent
			}},
		},
		openErr: map[string]error{},
		readErr: map[string]map[int64]error{},
	}
}

func newExtractor(t *testing.T, catalog domain.SourceCatalog) *extract.Extractor {
	t.Helper()
	table, err := mapping.Load([]byte(extractMappingDoc))
	require.NoError(t, err)
	return extract.New(table, catalog, slog.Default(), observability.NewMetricsForTesting())
}

func TestExtractChunk_PopulatesAllFields(t *testing.T) {
	catalog := newTestCatalog()
	e := newExtractor(t, catalog)

	records, failures := e.ExtractChunk(context.Background(), domain.Chunk{Index: 0, JoinIDs: []int64{1, 2, 3}})
	require.Empty(t, failures)
	require.Len(t, records, 3)

	age, ok := records[0].Field("age").Float()
	require.True(t, ok)
	assert.Equal(t, 45.0, age)

	species, ok := records[1].Field("species").Text()
	require.True(t, ok)
	assert.Equal(t, "2", species)
	assert.False(t, records[0].ProcessedAt.IsZero())
}

func TestExtractChunk_AbsentStaysAbsentNotZero(t *testing.T) {
	catalog := newTestCatalog()
	e := newExtractor(t, catalog)

	records, failures := e.ExtractChunk(context.Background(), domain.Chunk{Index: 0, JoinIDs: []int64{3}})
	require.Empty(t, failures)

	assert.True(t, records[0].Field("age").IsAbsent(), "missing source row must stay absent")

	// Identifier 3 has a genuine measured zero volume; that must survive as
	// a present value.
	vol := records[0].Field("volume")
	assert.True(t, vol.Present())
	f, ok := vol.Float()
	require.True(t, ok)
	assert.Equal(t, 0.0, f)
}

func TestExtractChunk_OneOpenPerFieldPerChunk(t *testing.T) {
	catalog := newTestCatalog()
	e := newExtractor(t, catalog)

	e.ExtractChunk(context.Background(), domain.Chunk{Index: 0, JoinIDs: []int64{1, 2, 3}})

	// Three declared fields, three identifiers: exactly three opens, in
	// declaration order.
	assert.Equal(t, []string{"LayerA", "LayerB", "LayerC"}, catalog.openCalls)
}

func TestExtractChunk_OpenFailureIsolatedToField(t *testing.T) {
	catalog := newTestCatalog()
	catalog.openErr["LayerB"] = errors.New("dataset locked")
	e := newExtractor(t, catalog)

	records, failures := e.ExtractChunk(context.Background(), domain.Chunk{Index: 2, JoinIDs: []int64{1, 2}})

	require.Len(t, failures, 1)
	assert.Equal(t, "species", failures[0].TargetField)
	assert.Equal(t, domain.FailureSourceUnavailable, failures[0].Kind)

	// The failed field is explicitly absent on every record; the other
	// fields extracted normally.
	for _, rec := range records {
		assert.True(t, rec.Field("species").IsAbsent())
		assert.True(t, rec.Field("age").Present())
		assert.True(t, rec.Field("volume").Present())
	}
}

func TestExtractChunk_ReadFailureMarksRestOfChunkAbsent(t *testing.T) {
	catalog := newTestCatalog()
	catalog.readErr["LayerA"] = map[int64]error{2: errors.New("corrupt cell")}
	e := newExtractor(t, catalog)

	records, failures := e.ExtractChunk(context.Background(), domain.Chunk{Index: 1, JoinIDs: []int64{1, 2, 3}})

	require.Len(t, failures, 1)
	assert.Equal(t, "age", failures[0].TargetField)
	assert.Equal(t, domain.FailureRead, failures[0].Kind)

	// Values read before the failure are kept; the failing identifier and
	// everything after it read as absent.
	assert.True(t, records[0].Field("age").Present())
	assert.True(t, records[1].Field("age").IsAbsent())
	assert.True(t, records[2].Field("age").IsAbsent())

	// Other fields are untouched by the failure.
	for _, rec := range records {
		assert.True(t, rec.Field("species").Present())
	}
}
