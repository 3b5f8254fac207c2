// Package gpkg reads source layers from a GeoPackage file. A GeoPackage is
// a SQLite database; each layer maps to one table, and the join identifier
// is the standard fid primary key.
package gpkg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/skogdata/forest-etl/internal/domain"
)

// joinColumn is the GeoPackage feature identifier column.
const joinColumn = "fid"

// identPattern accepts the table and column names this adapter will splice
// into SQL. Quoting alone is not enough: names arrive from user-editable
// mapping files, so anything outside this set is rejected outright.
var identPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Catalog implements domain.SourceCatalog over one GeoPackage file.
type Catalog struct {
	db     *sql.DB
	stmts  *stmtCache
	logger *slog.Logger
}

// Open opens the GeoPackage at path read-only.
func Open(path string, logger *slog.Logger) (*Catalog, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=query_only(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open geopackage %s: %w", path, err)
	}
	return &Catalog{
		db:     db,
		stmts:  newStmtCache(db, 64),
		logger: logger,
	}, nil
}

// Close releases the database handle and all cached statements.
func (c *Catalog) Close() error {
	c.stmts.close()
	return c.db.Close()
}

// tableFor resolves a source layer path to its backing table. Layer paths
// follow the dataset/table convention of the source inventories, e.g.
// "Grid_8m_SR16_Dataset/Grid_8m_SR16_srrtrealder"; only the final segment
// names a table inside the GeoPackage.
func tableFor(path string) (string, error) {
	segments := strings.Split(path, "/")
	table := segments[len(segments)-1]
	if !identPattern.MatchString(table) {
		return "", fmt.Errorf("invalid layer table name %q", table)
	}
	return table, nil
}

// Exists reports whether the layer's backing table is present.
func (c *Catalog) Exists(ctx context.Context, path string) (bool, error) {
	table, err := tableFor(path)
	if err != nil {
		return false, err
	}

	var n int
	err = c.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("probe layer %s: %w", path, err)
	}
	return n > 0, nil
}

// Fields lists the column names of the layer's backing table.
func (c *Catalog) Fields(ctx context.Context, path string) ([]string, error) {
	table, err := tableFor(path)
	if err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return nil, fmt.Errorf("list fields of layer %s: %w", path, err)
	}
	defer rows.Close() //nolint:errcheck

	var names []string
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("scan column of layer %s: %w", path, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list fields of layer %s: %w", path, err)
	}
	if len(names) == 0 {
		return nil, &domain.SourceLayerNotFoundError{Path: path}
	}
	return names, nil
}

// Open returns a reader over one layer. Prepared statements are cached on
// the catalog, so reopening the same layer across chunks stays cheap.
func (c *Catalog) Open(ctx context.Context, path string) (domain.LayerReader, error) {
	table, err := tableFor(path)
	if err != nil {
		return nil, err
	}
	exists, err := c.Exists(ctx, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &domain.SourceLayerNotFoundError{Path: path}
	}
	return &layerReader{catalog: c, table: table, path: path}, nil
}

// JoinIDs lists the fid universe of the layer in ascending order.
func (c *Catalog) JoinIDs(ctx context.Context, path string) ([]int64, error) {
	table, err := tableFor(path)
	if err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %q FROM %q ORDER BY %q`, joinColumn, table, joinColumn))
	if err != nil {
		return nil, fmt.Errorf("list join identifiers of layer %s: %w", path, err)
	}
	defer rows.Close() //nolint:errcheck

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan join identifier of layer %s: %w", path, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list join identifiers of layer %s: %w", path, err)
	}
	return ids, nil
}

// layerReader reads single field values by fid. Statements are borrowed
// from the catalog cache; Close does not invalidate them.
type layerReader struct {
	catalog *Catalog
	table   string
	path    string
}

func (r *layerReader) ReadField(ctx context.Context, fieldName string, joinID int64) (domain.Value, error) {
	if !identPattern.MatchString(fieldName) {
		return domain.NoValue(), fmt.Errorf("invalid field name %q on layer %s", fieldName, r.path)
	}

	stmt, err := r.catalog.stmts.get(ctx, r.table, fieldName)
	if err != nil {
		return domain.NoValue(), fmt.Errorf("prepare read of %s.%s: %w", r.table, fieldName, err)
	}

	var raw any
	err = stmt.QueryRowContext(ctx, joinID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NoValue(), nil
	}
	if err != nil {
		return domain.NoValue(), fmt.Errorf("read %s.%s for fid %d: %w", r.table, fieldName, joinID, err)
	}
	return valueOf(raw), nil
}

func (r *layerReader) Close() error { return nil }

// valueOf maps a SQLite scan result onto the domain value types. NULL cells
// become the explicit absent marker, never a zero.
func valueOf(raw any) domain.Value {
	switch v := raw.(type) {
	case nil:
		return domain.NoValue()
	case int64:
		return domain.IntValue(v)
	case float64:
		return domain.FloatValue(v)
	case string:
		return domain.StringValue(v)
	case []byte:
		return domain.StringValue(string(v))
	default:
		return domain.StringValue(fmt.Sprintf("%v", v))
	}
}
