// Package mapping loads and validates the field-mapping configuration that
// declares, for every consolidated target field, which source layer and
// source field supply its value.
package mapping

import "github.com/skogdata/forest-etl/internal/domain"

// Table is the validated, immutable field-mapping table. It preserves
// declaration order, which fixes the field-major extraction order.
type Table struct {
	fields   []domain.FieldMapping
	byTarget map[string]domain.FieldMapping
	layers   []string
}

// Fields returns all mappings in declaration order. Callers must not
// modify the returned slice.
func (t *Table) Fields() []domain.FieldMapping {
	return t.fields
}

// ByTarget looks up the mapping for one target field.
func (t *Table) ByTarget(target string) (domain.FieldMapping, bool) {
	fm, ok := t.byTarget[target]
	return fm, ok
}

// Layers returns the distinct source layer paths in first-appearance order.
func (t *Table) Layers() []string {
	return t.layers
}

// Len returns the number of declared target fields.
func (t *Table) Len() int {
	return len(t.fields)
}

// EstimateFor resolves the point-estimate sibling for a bound target
// field. For non-bound fields it returns the field itself.
func (t *Table) EstimateFor(target string) (string, bool) {
	fm, ok := t.byTarget[target]
	if !ok {
		return "", false
	}
	if fm.Kind.IsBound() {
		return fm.Estimate, true
	}
	return target, true
}
