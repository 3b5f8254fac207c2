// Command genmock generates a seeded mock forest-inventory GeoPackage for
// local runs and demos. The layout mirrors the production SR16/AR5 grids:
// one table per source layer, keyed by fid, with realistic value ranges and
// a share of NULL cells so absent-value handling gets exercised end to end.
//
// Usage:
//
//	go run ./cmd/genmock -out data/forest_inventory.gpkg -cells 5000 -seed 42
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// layerDef describes one mock source layer: its table, value column, value
// range, and how often a cell is NULL.
type layerDef struct {
	table    string
	column   string
	kind     string // real, int, text
	min, max float64
	choices  []string
	nullRate float64
}

var layers = []layerDef{
	{table: "Grid_8m_SR16_srrtrealder", column: "srrtrealder", kind: "real", min: 5, max: 160, nullRate: 0.08},
	{table: "Grid_8m_SR16_srrtreslag", column: "srrtreslag", kind: "int", min: 1, max: 3, nullRate: 0.05},
	{table: "Grid_8m_SR16_srrbmo", column: "srrbmo", kind: "real", min: 0, max: 250, nullRate: 0.10},
	{table: "Grid_8m_SR16_srrvolmb", column: "srrvolmb", kind: "real", min: 0, max: 450, nullRate: 0.10},
	{table: "Grid_8m_SR16_srrmhoyde", column: "srrmhoyde", kind: "real", min: 10, max: 320, nullRate: 0.08},
	{table: "Grid_8m_SR16_srrbonitet", column: "srrbonitet", kind: "int", min: 6, max: 26, nullRate: 0.06},
	{table: "Grid_8m_SR16_srrkronedek", column: "srrkronedek", kind: "real", min: 0, max: 100, nullRate: 0.12},
	{table: "Grid_8m_AR5_artype", column: "artype", kind: "int", min: 30, max: 30, nullRate: 0.02},
	{table: "Grid_8m_AR5_argrunnf", column: "argrunnf", kind: "int", min: 41, max: 45, nullRate: 0.04},
	{table: "Grid_8m_AR5_markfukt", column: "markfukt", kind: "text",
		choices: []string{"tørr", "frisk", "fuktig"}, nullRate: 0.15},
	{table: "Grid_8m_DTM_elev_mean", column: "elev_mean", kind: "real", min: 0, max: 1200, nullRate: 0.01},
	{table: "Grid_8m_DTM_elev_min", column: "elev_min", kind: "real", min: 0, max: 1150, nullRate: 0.01},
	{table: "Grid_8m_DTM_elev_max", column: "elev_max", kind: "real", min: 0, max: 1250, nullRate: 0.01},
	{table: "Grid_8m_loc_lat", column: "loc_lat", kind: "real", min: 58.0, max: 70.5, nullRate: 0},
	{table: "Grid_8m_loc_lon", column: "loc_lon", kind: "real", min: 4.5, max: 31.0, nullRate: 0},
}

// Bound layers carry the same value range as their point estimate; the
// generator writes estimate-width/2 on each side.
var boundLayers = []struct {
	table, column, estimateTable string
	spread                       float64
}{
	{"Grid_8m_SR16_srrtrealder_l", "srrtrealder_l", "Grid_8m_SR16_srrtrealder", 10},
	{"Grid_8m_SR16_srrtrealder_u", "srrtrealder_u", "Grid_8m_SR16_srrtrealder", 10},
}

func main() {
	out := flag.String("out", "data/forest_inventory.gpkg", "output GeoPackage path")
	cells := flag.Int("cells", 5000, "number of grid cells (fids)")
	seed := flag.Int64("seed", 1, "PRNG seed for reproducible fixtures")
	flag.Parse()

	if err := run(*out, *cells, *seed); err != nil {
		log.Fatal(err)
	}
}

func run(out string, cells int, seed int64) error {
	if cells <= 0 {
		return fmt.Errorf("-cells must be positive, got %d", cells)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
		return err
	}

	db, err := sql.Open("sqlite", out)
	if err != nil {
		return fmt.Errorf("create geopackage: %w", err)
	}
	defer db.Close()

	rng := rand.New(rand.NewSource(seed))

	estimates := make(map[string][]sql.NullFloat64, len(layers))
	for _, def := range layers {
		values, err := writeLayer(db, rng, def, cells)
		if err != nil {
			return fmt.Errorf("layer %s: %w", def.table, err)
		}
		estimates[def.table] = values
		log.Printf("%s: %d cells", def.table, cells)
	}

	for _, b := range boundLayers {
		sign := -1.0
		if b.column[len(b.column)-1] == 'u' {
			sign = 1.0
		}
		if err := writeBoundLayer(db, b.table, b.column, estimates[b.estimateTable], sign*b.spread/2); err != nil {
			return fmt.Errorf("layer %s: %w", b.table, err)
		}
		log.Printf("%s: %d cells", b.table, cells)
	}

	log.Printf("wrote %s (%d cells, seed %d)", out, cells, seed)
	return nil
}

func writeLayer(db *sql.DB, rng *rand.Rand, def layerDef, cells int) ([]sql.NullFloat64, error) {
	colType := map[string]string{"real": "REAL", "int": "INTEGER", "text": "TEXT"}[def.kind]
	_, err := db.Exec(fmt.Sprintf(
		`CREATE TABLE %q (fid INTEGER PRIMARY KEY, %q %s)`, def.table, def.column, colType))
	if err != nil {
		return nil, err
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	stmt, err := tx.Prepare(fmt.Sprintf(`INSERT INTO %q (fid, %q) VALUES (?, ?)`, def.table, def.column))
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, err
	}
	defer stmt.Close() //nolint:errcheck

	values := make([]sql.NullFloat64, cells+1)
	for fid := 1; fid <= cells; fid++ {
		if rng.Float64() < def.nullRate {
			if _, err := stmt.Exec(fid, nil); err != nil {
				tx.Rollback() //nolint:errcheck
				return nil, err
			}
			continue
		}

		var cell any
		switch def.kind {
		case "real":
			f := def.min + rng.Float64()*(def.max-def.min)
			values[fid] = sql.NullFloat64{Float64: f, Valid: true}
			cell = f
		case "int":
			n := int64(def.min) + rng.Int63n(int64(def.max-def.min)+1)
			values[fid] = sql.NullFloat64{Float64: float64(n), Valid: true}
			cell = n
		case "text":
			cell = def.choices[rng.Intn(len(def.choices))]
		}
		if _, err := stmt.Exec(fid, cell); err != nil {
			tx.Rollback() //nolint:errcheck
			return nil, err
		}
	}
	return values, tx.Commit()
}

func writeBoundLayer(db *sql.DB, table, column string, estimates []sql.NullFloat64, offset float64) error {
	_, err := db.Exec(fmt.Sprintf(
		`CREATE TABLE %q (fid INTEGER PRIMARY KEY, %q REAL)`, table, column))
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(fmt.Sprintf(`INSERT INTO %q (fid, %q) VALUES (?, ?)`, table, column))
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	defer stmt.Close() //nolint:errcheck

	for fid := 1; fid < len(estimates); fid++ {
		var cell any
		if e := estimates[fid]; e.Valid {
			cell = e.Float64 + offset
		}
		if _, err := stmt.Exec(fid, cell); err != nil {
			tx.Rollback() //nolint:errcheck
			return err
		}
	}
	return tx.Commit()
}
