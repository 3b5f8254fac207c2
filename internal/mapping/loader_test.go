package mapping_test

import (
	"testing"

	"github.com/skogdata/forest-etl/internal/domain"
	"github.com/skogdata/forest-etl/internal/mapping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDoc = `
fields:
  - target: speciesRaw
    layer: Grid_8m_SR16_Dataset/Grid_8m_SR16_srrtreslag
    sourceField: srrtreslag
    kind: categorical
  - target: ageEstimate
    layer: Grid_8m_SR16_Dataset/Grid_8m_SR16_srrtrealder
    sourceField: srrtrealder
    kind: point
  - target: ageLower
    layer: Grid_8m_SR16_Dataset/Grid_8m_SR16_srrtrealder_l
    sourceField: srrtrealder_l
    kind: lowerBound
    estimate: ageEstimate
`

func TestLoad_Valid(t *testing.T) {
	table, err := mapping.Load([]byte(validDoc))
	require.NoError(t, err)

	assert.Equal(t, 3, table.Len())
	assert.Len(t, table.Layers(), 3)

	fm, ok := table.ByTarget("ageLower")
	require.True(t, ok)
	assert.Equal(t, domain.KindLowerBound, fm.Kind)
	assert.Equal(t, "srrtrealder_l", fm.SourceField)

	sibling, ok := table.EstimateFor("ageLower")
	require.True(t, ok)
	assert.Equal(t, "ageEstimate", sibling)

	// A non-bound field is its own estimate.
	sibling, ok = table.EstimateFor("ageEstimate")
	require.True(t, ok)
	assert.Equal(t, "ageEstimate", sibling)
}

func TestLoad_PreservesDeclarationOrder(t *testing.T) {
	table, err := mapping.Load([]byte(validDoc))
	require.NoError(t, err)

	var targets []string
	for _, fm := range table.Fields() {
		targets = append(targets, fm.Target)
	}
	assert.Equal(t, []string{"speciesRaw", "ageEstimate", "ageLower"}, targets)
}

func TestLoad_DuplicateTarget(t *testing.T) {
	doc := `
fields:
  - {target: a, layer: L, sourceField: f, kind: point}
  - {target: a, layer: L2, sourceField: g, kind: point}
`
	_, err := mapping.Load([]byte(doc))
	requireConfigError(t, err, "declared more than once")
}

func TestLoad_UnknownKind(t *testing.T) {
	doc := `
fields:
  - {target: a, layer: L, sourceField: f, kind: interval}
`
	_, err := mapping.Load([]byte(doc))
	requireConfigError(t, err, "unknown value kind")
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	doc := `
fields:
  - {target: a, layer: L, sourceField: f, kind: point, srcField: oops}
`
	_, err := mapping.Load([]byte(doc))
	requireConfigError(t, err, "")
}

func TestLoad_MissingRequiredKey(t *testing.T) {
	doc := `
fields:
  - {target: a, kind: point}
`
	_, err := mapping.Load([]byte(doc))
	requireConfigError(t, err, "required")
}

func TestLoad_BoundWithoutEstimate(t *testing.T) {
	doc := `
fields:
  - {target: ageLower, layer: L, sourceField: f, kind: lowerBound}
`
	_, err := mapping.Load([]byte(doc))
	requireConfigError(t, err, "point-estimate sibling")
}

func TestLoad_BoundReferencesUndeclaredEstimate(t *testing.T) {
	doc := `
fields:
  - {target: ageLower, layer: L, sourceField: f, kind: lowerBound, estimate: ageEstimate}
`
	_, err := mapping.Load([]byte(doc))
	requireConfigError(t, err, "undeclared estimate")
}

func TestLoad_BoundReferencesNonPointEstimate(t *testing.T) {
	doc := `
fields:
  - {target: species, layer: L, sourceField: s, kind: categorical}
  - {target: ageLower, layer: L2, sourceField: f, kind: lowerBound, estimate: species}
`
	_, err := mapping.Load([]byte(doc))
	requireConfigError(t, err, "not a point estimate")
}

func TestLoad_EmptyDocument(t *testing.T) {
	_, err := mapping.Load([]byte("fields: []"))
	requireConfigError(t, err, "no fields")
}

func requireConfigError(t *testing.T, err error, contains string) {
	t.Helper()
	require.Error(t, err)
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	if contains != "" {
		assert.Contains(t, err.Error(), contains)
	}
}
