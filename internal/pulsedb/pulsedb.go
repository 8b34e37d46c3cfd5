// Package pulsedb stores pulse and point records in SQLite, one
// database holding any number of datasets. Each dataset row pins the
// grid frame its spatial index bins on; DatasetStore exposes the
// dataset's records through the pointstore interfaces.
package pulsedb

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/pulsegrid/internal/gridindex"
	"github.com/banshee-data/pulsegrid/internal/spatialindex"
)

// ErrDatasetNotFound is returned when a dataset id has no registry row.
var ErrDatasetNotFound = errors.New("dataset not found")

type DB struct {
	*sql.DB
}

// schema.sql contains the SQL statements for creating the pulse
// database schema. It defines tables for the dataset registry, pulse
// and point records, and serialized index snapshots.
//
//go:embed schema.sql
var schemaSQL string

// Open opens (creating if needed) the pulse database at path and
// applies the embedded schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, err
	}

	log.Println("initialized pulse database schema")

	return &DB{db}, nil
}

// OpenForMigrations opens the database without applying the embedded
// schema, leaving schema management to the migration runner.
func OpenForMigrations(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

// Dataset is a dataset registry row: one indexed point cloud and the
// grid frame its spatial index bins on.
type Dataset struct {
	DatasetID        string
	Name             string
	Kind             spatialindex.IndexKind
	BinSize          float64
	XMin             float64
	YMax             float64
	Rows             int
	Cols             int
	CreatedUnixNanos int64
}

// Grid returns the registered grid frame.
func (d *Dataset) Grid() gridindex.Grid {
	return gridindex.Grid{
		BinSize: d.BinSize,
		XMin:    d.XMin,
		YMax:    d.YMax,
		Rows:    d.Rows,
		Cols:    d.Cols,
	}
}

// CreateDataset registers a new dataset over the given grid frame and
// returns its row. The index kind is persisted numerically, keeping
// the SPD heritage numbering.
func (db *DB) CreateDataset(ctx context.Context, name string, kind spatialindex.IndexKind, g gridindex.Grid) (*Dataset, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if _, _, err := kind.CoordColumns(); err != nil {
		return nil, err
	}

	d := &Dataset{
		DatasetID:        uuid.NewString(),
		Name:             name,
		Kind:             kind,
		BinSize:          g.BinSize,
		XMin:             g.XMin,
		YMax:             g.YMax,
		Rows:             g.Rows,
		Cols:             g.Cols,
		CreatedUnixNanos: time.Now().UnixNano(),
	}

	stmt := `INSERT INTO datasets (dataset_id, name, index_kind, bin_size, x_min, y_max, grid_rows, grid_cols, created_unix_nanos)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, stmt,
		d.DatasetID, d.Name, int(d.Kind),
		d.BinSize, d.XMin, d.YMax, d.Rows, d.Cols,
		d.CreatedUnixNanos,
	)
	if err != nil {
		return nil, fmt.Errorf("insert dataset: %w", err)
	}

	log.Printf("[pulsedb] created dataset %s (%s, %s index, %dx%d bins)", d.DatasetID, d.Name, d.Kind, d.Rows, d.Cols)

	return d, nil
}

// GetDataset loads a dataset registry row by id.
func (db *DB) GetDataset(ctx context.Context, datasetID string) (*Dataset, error) {
	stmt := `SELECT dataset_id, name, index_kind, bin_size, x_min, y_max, grid_rows, grid_cols, created_unix_nanos
			 FROM datasets WHERE dataset_id = ?`
	d := &Dataset{}
	var kind int
	err := db.QueryRowContext(ctx, stmt, datasetID).Scan(
		&d.DatasetID, &d.Name, &kind,
		&d.BinSize, &d.XMin, &d.YMax, &d.Rows, &d.Cols,
		&d.CreatedUnixNanos,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, datasetID)
	}
	if err != nil {
		return nil, fmt.Errorf("select dataset: %w", err)
	}
	d.Kind = spatialindex.IndexKind(kind)
	return d, nil
}

// ListDatasets returns all registered datasets, oldest first.
func (db *DB) ListDatasets(ctx context.Context) ([]*Dataset, error) {
	stmt := `SELECT dataset_id, name, index_kind, bin_size, x_min, y_max, grid_rows, grid_cols, created_unix_nanos
			 FROM datasets ORDER BY created_unix_nanos, dataset_id`
	rows, err := db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var out []*Dataset
	for rows.Next() {
		d := &Dataset{}
		var kind int
		if err := rows.Scan(
			&d.DatasetID, &d.Name, &kind,
			&d.BinSize, &d.XMin, &d.YMax, &d.Rows, &d.Cols,
			&d.CreatedUnixNanos,
		); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		d.Kind = spatialindex.IndexKind(kind)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Store returns the record store bound to the given dataset.
func (db *DB) Store(d *Dataset) *DatasetStore {
	return &DatasetStore{
		db:              db,
		datasetID:       d.DatasetID,
		ReadConcurrency: defaultReadConcurrency,
	}
}
