package rules_test

import (
	"log/slog"
	"testing"

	"github.com/skogdata/forest-etl/internal/domain"
	"github.com/skogdata/forest-etl/internal/mapping"
	"github.com/skogdata/forest-etl/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const evalMappingDoc = `
fields:
  - {target: speciesRaw, layer: LayerA, sourceField: dom_species, kind: categorical}
  - {target: ageEstimate, layer: LayerB, sourceField: age, kind: point}
  - {target: ageLower, layer: LayerB, sourceField: age_low, kind: lowerBound, estimate: ageEstimate}
  - {target: siteIndex, layer: LayerC, sourceField: srrbonitet, kind: categorical}
`

const evalRulesDoc = `
attributes:
  - attribute: species
    fallback: unknown
    rules:
      - {priority: 1, result: gran, when: [{field: speciesRaw, op: eq, value: 1}]}
      - {priority: 2, result: furu, when: [{field: speciesRaw, op: eq, value: 2}]}
      - {priority: 3, result: lauv, when: [{field: speciesRaw, op: eq, value: 3}]}
  - attribute: maturity
    fallback: unclassified
    rules:
      - {priority: 1, result: mature, when: [{field: ageEstimate, op: ge, value: 40}]}
      - {priority: 2, result: young, when: [{field: ageEstimate, op: ge, value: 0}]}
  - attribute: conservativeMaturity
    fallback: unclassified
    rules:
      - {priority: 1, result: mature, when: [{field: ageLower, op: ge, value: 30}]}
  - attribute: forestClass
    dependsOn: [species, maturity]
    fallback: unclassified
    rules:
      - priority: 1
        result: productive-conifer
        when:
          - {attr: species, op: in, values: [gran, furu]}
          - {attr: maturity, op: eq, value: mature}
          - {field: siteIndex, op: ge, value: 11}
`

func newEvalEngine(t *testing.T) *rules.Engine {
	t.Helper()
	table, err := mapping.Load([]byte(evalMappingDoc))
	require.NoError(t, err)
	cfg, err := rules.Load([]byte(evalRulesDoc))
	require.NoError(t, err)
	engine, err := rules.NewEngine(cfg, table, slog.Default())
	require.NoError(t, err)
	return engine
}

func TestEngine_FirstMatchWins(t *testing.T) {
	engine := newEvalEngine(t)

	rec := domain.NewRecord(1)
	rec.SetField("ageEstimate", domain.FloatValue(45))

	// Both maturity rules match at 45; priority 1 wins.
	engine.Classify(rec)
	got, _ := rec.Classification("maturity")
	assert.Equal(t, "mature", got)
}

func TestEngine_FallbackOnExhaustion(t *testing.T) {
	engine := newEvalEngine(t)

	rec := domain.NewRecord(2)
	rec.SetField("speciesRaw", domain.IntValue(9)) // no rule for code 9

	engine.Classify(rec)
	got, _ := rec.Classification("species")
	assert.Equal(t, "unknown", got)
}

func TestEngine_MissingFieldIsFalseNotError(t *testing.T) {
	engine := newEvalEngine(t)

	rec := domain.NewRecord(3) // nothing populated
	engine.Classify(rec)

	got, _ := rec.Classification("maturity")
	assert.Equal(t, "unclassified", got)
}

func TestEngine_BoundNeverFiresWithoutEstimate(t *testing.T) {
	engine := newEvalEngine(t)

	rec := domain.NewRecord(4)
	rec.SetField("ageEstimate", domain.NoValue())
	rec.SetField("ageLower", domain.FloatValue(30))

	engine.Classify(rec)
	got, _ := rec.Classification("conservativeMaturity")
	assert.Equal(t, "unclassified", got, "a bound alone must not satisfy a rule")

	// With the sibling estimate present the same bound rule fires.
	rec2 := domain.NewRecord(5)
	rec2.SetField("ageEstimate", domain.FloatValue(35))
	rec2.SetField("ageLower", domain.FloatValue(30))

	engine.Classify(rec2)
	got, _ = rec2.Classification("conservativeMaturity")
	assert.Equal(t, "mature", got)
}

func TestEngine_DependentAttributeSeesUpstreamResult(t *testing.T) {
	engine := newEvalEngine(t)

	rec := domain.NewRecord(6)
	rec.SetField("speciesRaw", domain.IntValue(1))
	rec.SetField("ageEstimate", domain.FloatValue(80))
	rec.SetField("siteIndex", domain.IntValue(14))

	engine.Classify(rec)

	species, _ := rec.Classification("species")
	forestClass, _ := rec.Classification("forestClass")
	assert.Equal(t, "gran", species)
	assert.Equal(t, "productive-conifer", forestClass)
}

func TestEngine_DeterministicAgainstSequentialReimplementation(t *testing.T) {
	engine := newEvalEngine(t)

	rec := domain.NewRecord(7)
	rec.SetField("speciesRaw", domain.IntValue(2))
	rec.SetField("ageEstimate", domain.FloatValue(12))
	rec.SetField("siteIndex", domain.IntValue(8))

	// Independent sequential walk of the same rule table.
	expectSpecies := "furu"    // code 2
	expectMaturity := "young"  // 12 < 40, >= 0
	expectClass := "unclassified"

	for range 5 {
		engine.Classify(rec)
		species, _ := rec.Classification("species")
		maturity, _ := rec.Classification("maturity")
		forestClass, _ := rec.Classification("forestClass")
		assert.Equal(t, expectSpecies, species)
		assert.Equal(t, expectMaturity, maturity)
		assert.Equal(t, expectClass, forestClass)
	}
}

func TestEngine_CategoricalCodeMatchesNumericOrText(t *testing.T) {
	engine := newEvalEngine(t)

	// Source stores the species code as text.
	rec := domain.NewRecord(8)
	rec.SetField("speciesRaw", domain.StringValue("1"))

	engine.Classify(rec)
	got, _ := rec.Classification("species")
	assert.Equal(t, "gran", got)
}

func TestNewEngine_UnmappedFieldRejected(t *testing.T) {
	table, err := mapping.Load([]byte(evalMappingDoc))
	require.NoError(t, err)

	cfg, err := rules.Load([]byte(`
attributes:
  - attribute: a
    fallback: x
    rules:
      - {priority: 1, result: r, when: [{field: notMapped, op: eq, value: 1}]}
`))
	require.NoError(t, err)

	_, err = rules.NewEngine(cfg, table, slog.Default())
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "unmapped field")
}
