package domain

import (
	"errors"
	"fmt"
)

// ErrThresholdExceeded is returned by the coordinator when accumulated
// chunk failures pass the configured maximum. It triggers a graceful stop:
// in-flight chunks finish, no new chunks are scheduled.
var ErrThresholdExceeded = errors.New("chunk failure threshold exceeded")

// ConfigError reports a malformed mapping or rule configuration. It is
// always fatal and always surfaces before any record is processed.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Reason
}

// Configf builds a ConfigError with a formatted reason.
func Configf(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// SourceLayerNotFoundError signals that a declared source layer is
// unreachable. Fatal during validation, chunk-local during extraction.
type SourceLayerNotFoundError struct {
	Path string
}

func (e *SourceLayerNotFoundError) Error() string {
	return fmt.Sprintf("source layer not found: %s", e.Path)
}

// FieldNotFoundError signals that a declared source field does not exist
// on its (already reachable) source layer.
type FieldNotFoundError struct {
	TargetField string
	LayerPath   string
	SourceField string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("field %s (source %s) not found on layer %s",
		e.TargetField, e.SourceField, e.LayerPath)
}

// FailureKind buckets chunk-local failures for the end-of-run summary.
type FailureKind string

const (
	FailureSourceUnavailable FailureKind = "source_unavailable"
	FailureFieldMissing      FailureKind = "field_missing"
	FailureRead              FailureKind = "read"
	FailureClassify          FailureKind = "classify"
	FailureCommit            FailureKind = "commit"
)

// ChunkFailure wraps any extraction, classification, or commit error for
// one chunk. It is recorded and surfaced in the run summary; it never
// propagates and never aborts sibling chunks. FirstJoinID and LastJoinID
// bound the affected identifiers so operators can requery the failing
// cells from the summary alone.
type ChunkFailure struct {
	ChunkIndex  int
	FirstJoinID int64
	LastJoinID  int64
	Kind        FailureKind
	TargetField string // set for per-field extraction failures
	Err         error
}

func (e *ChunkFailure) Error() string {
	if e.TargetField != "" {
		return fmt.Sprintf("chunk %d (ids %d-%d): %s failure on field %s: %v",
			e.ChunkIndex, e.FirstJoinID, e.LastJoinID, e.Kind, e.TargetField, e.Err)
	}
	return fmt.Sprintf("chunk %d (ids %d-%d): %s failure: %v",
		e.ChunkIndex, e.FirstJoinID, e.LastJoinID, e.Kind, e.Err)
}

func (e *ChunkFailure) Unwrap() error { return e.Err }
