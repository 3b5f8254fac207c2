package mapping

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/skogdata/forest-etl/internal/domain"
)

// mappingDoc mirrors the YAML mapping document. Unknown keys and duplicate
// YAML keys are rejected by strict decoding so a typo fails at startup, not
// mid-run.
type mappingDoc struct {
	Fields []fieldDoc `yaml:"fields"`
}

type fieldDoc struct {
	Target      string `yaml:"target"`
	Layer       string `yaml:"layer"`
	SourceField string `yaml:"sourceField"`
	Kind        string `yaml:"kind"`
	Estimate    string `yaml:"estimate,omitempty"`
}

// LoadFile reads and validates a field-mapping document from disk.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping file: %w", err)
	}
	table, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("mapping file %s: %w", path, err)
	}
	return table, nil
}

// Load parses a field-mapping document into an immutable Table. All schema
// violations are startup-fatal ConfigErrors: empty keys, unknown value
// kinds, duplicate targets, and bound fields without a resolvable
// point-estimate sibling.
func Load(data []byte) (*Table, error) {
	var doc mappingDoc
	if err := yaml.UnmarshalWithOptions(data, &doc, yaml.Strict()); err != nil {
		return nil, domain.Configf("parse mapping document: %v", err)
	}
	if len(doc.Fields) == 0 {
		return nil, domain.Configf("mapping document declares no fields")
	}

	t := &Table{
		fields:   make([]domain.FieldMapping, 0, len(doc.Fields)),
		byTarget: make(map[string]domain.FieldMapping, len(doc.Fields)),
	}
	seenLayers := make(map[string]bool)

	for i, f := range doc.Fields {
		if f.Target == "" || f.Layer == "" || f.SourceField == "" {
			return nil, domain.Configf("field %d: target, layer, and sourceField are required", i)
		}
		if _, dup := t.byTarget[f.Target]; dup {
			return nil, domain.Configf("target field %q declared more than once", f.Target)
		}

		kind, err := domain.ParseValueKind(f.Kind)
		if err != nil {
			return nil, domain.Configf("target field %q: %v", f.Target, err)
		}
		if kind.IsBound() && f.Estimate == "" {
			return nil, domain.Configf("bound field %q must declare its point-estimate sibling", f.Target)
		}
		if !kind.IsBound() && f.Estimate != "" {
			return nil, domain.Configf("field %q of kind %s must not declare an estimate sibling", f.Target, kind)
		}

		fm := domain.FieldMapping{
			Target:      f.Target,
			LayerPath:   f.Layer,
			SourceField: f.SourceField,
			Kind:        kind,
			Estimate:    f.Estimate,
		}
		t.fields = append(t.fields, fm)
		t.byTarget[f.Target] = fm
		if !seenLayers[f.Layer] {
			seenLayers[f.Layer] = true
			t.layers = append(t.layers, f.Layer)
		}
	}

	// Bound siblings must resolve to a declared point estimate; a bound is
	// never classified independently of its estimate.
	for _, fm := range t.fields {
		if !fm.Kind.IsBound() {
			continue
		}
		sibling, ok := t.byTarget[fm.Estimate]
		if !ok {
			return nil, domain.Configf("bound field %q references undeclared estimate %q", fm.Target, fm.Estimate)
		}
		if sibling.Kind != domain.KindPoint {
			return nil, domain.Configf("bound field %q references %q, which is %s, not a point estimate",
				fm.Target, fm.Estimate, sibling.Kind)
		}
	}

	return t, nil
}
