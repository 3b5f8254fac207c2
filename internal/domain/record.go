package domain

import "time"

// Record is one consolidated output unit keyed by its join identifier.
// It is created empty, populated field by field during extraction, and
// treated as immutable once handed to the classification engine.
type Record struct {
	JoinID          int64             `json:"join_id"`
	Fields          map[string]Value  `json:"fields"`
	Classifications map[string]string `json:"classifications,omitempty"`
	ProcessedAt     time.Time         `json:"processed_at"`
}

// NewRecord creates an empty record for the given join identifier.
func NewRecord(joinID int64) *Record {
	return &Record{
		JoinID: joinID,
		Fields: make(map[string]Value),
	}
}

// SetField stores a target field's value, absent values included.
func (r *Record) SetField(target string, v Value) {
	r.Fields[target] = v
}

// Field returns the value for a target field. An unpopulated field reads
// as the explicit absent marker, never as a zero default.
func (r *Record) Field(target string) Value {
	return r.Fields[target]
}

// SetClassification records a derived attribute result.
func (r *Record) SetClassification(attribute, result string) {
	if r.Classifications == nil {
		r.Classifications = make(map[string]string)
	}
	r.Classifications[attribute] = result
}

// Classification returns an already-derived attribute result, if any.
func (r *Record) Classification(attribute string) (string, bool) {
	result, ok := r.Classifications[attribute]
	return result, ok
}

// Stamp marks the record as fully processed at the current clock time.
func (r *Record) Stamp() {
	r.ProcessedAt = clock.Now()
}
