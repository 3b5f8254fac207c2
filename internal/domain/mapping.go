package domain

import "fmt"

// ValueKind describes what role a target field plays in a measurement.
type ValueKind string

const (
	// KindPoint is the primary measured or modeled estimate of a quantity.
	KindPoint ValueKind = "point"
	// KindLowerBound is the lower confidence bound of a point estimate.
	KindLowerBound ValueKind = "lowerBound"
	// KindUpperBound is the upper confidence bound of a point estimate.
	KindUpperBound ValueKind = "upperBound"
	// KindCategorical is a coded class value (species code, soil class).
	KindCategorical ValueKind = "categorical"
	// KindCoordinate is a location component (latitude, longitude, elevation).
	KindCoordinate ValueKind = "coordinate"
)

// ParseValueKind converts a configuration string into a ValueKind.
func ParseValueKind(s string) (ValueKind, error) {
	switch ValueKind(s) {
	case KindPoint, KindLowerBound, KindUpperBound, KindCategorical, KindCoordinate:
		return ValueKind(s), nil
	default:
		return "", fmt.Errorf("unknown value kind %q", s)
	}
}

// IsBound reports whether the kind is a lower or upper confidence bound.
func (k ValueKind) IsBound() bool {
	return k == KindLowerBound || k == KindUpperBound
}

// FieldMapping declares where one target field's value comes from.
// Mappings are immutable after load; one source field may feed several
// target fields, but only through explicit declarations, never implicitly.
type FieldMapping struct {
	// Target is the consolidated record field populated by this mapping.
	Target string
	// LayerPath addresses the source layer, e.g.
	// "Grid_8m_SR16_Dataset/Grid_8m_SR16_srrtrealder".
	LayerPath string
	// SourceField is the field read from the source layer.
	SourceField string
	// Kind classifies the value (point estimate, bound, categorical,
	// coordinate).
	Kind ValueKind
	// Estimate names the point-estimate sibling target for bound kinds.
	// Empty for non-bound kinds.
	Estimate string
}
