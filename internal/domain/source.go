package domain

import "context"

// SourceCatalog is the read-only capability over externally owned source
// layers. The core never writes to a source layer.
type SourceCatalog interface {
	// Exists reports whether the layer at path is reachable.
	Exists(ctx context.Context, path string) (bool, error)

	// Fields returns the field names the layer at path exposes.
	Fields(ctx context.Context, path string) ([]string, error)

	// Open returns a reader over one layer. The caller closes it; readers
	// are reused across all identifiers of a chunk so each layer handle is
	// opened once per (field, chunk) rather than once per record.
	Open(ctx context.Context, path string) (LayerReader, error)

	// JoinIDs lists the join identifier universe of the layer at path.
	JoinIDs(ctx context.Context, path string) ([]int64, error)
}

// LayerReader reads individual field values from one open source layer.
type LayerReader interface {
	// ReadField returns the value of fieldName for one join identifier.
	// A missing row or NULL cell returns the explicit absent Value with a
	// nil error; errors are reserved for I/O failures.
	ReadField(ctx context.Context, fieldName string, joinID int64) (Value, error)

	Close() error
}
