package pulsedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/pulsegrid/internal/pointstore"
	"github.com/banshee-data/pulsegrid/internal/spatialindex"
)

// defaultReadConcurrency caps the parallel range scans a masked read
// issues against the connection pool.
const defaultReadConcurrency = 4

// DatasetStore binds the pulse, point, and snapshot tables to one
// dataset row. Records append in seq order, so the dense record
// positions the spatial index hands out double as the seq keys; a
// masked read collapses its selection into runs and range-scans each
// run in one query.
type DatasetStore struct {
	db        *DB
	datasetID string

	// ReadConcurrency is the number of range scans a masked read may
	// run in parallel.
	ReadConcurrency int
}

var _ pointstore.Store = (*DatasetStore)(nil)

// DatasetID returns the dataset this store is bound to.
func (s *DatasetStore) DatasetID() string { return s.datasetID }

// AppendPulses appends a batch to the dataset's pulse table, assigning
// seq values that continue the dense record numbering.
func (s *DatasetStore) AppendPulses(ctx context.Context, cols *pointstore.PulseColumns) error {
	if err := cols.Validate(); err != nil {
		return err
	}
	n := cols.Len()
	if n == 0 {
		return nil
	}
	cols.Fill(n)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin pulse append tx: %w", err)
	}

	var base int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM pulses WHERE dataset_id = ?`, s.datasetID).Scan(&base); err != nil {
		tx.Rollback()
		return fmt.Errorf("count pulses: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pulses (dataset_id, seq, pulse_id, timestamp_ns, x_idx, y_idx, azimuth, zenith, scanline, scanline_idx, pts_start, pts_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare pulse insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		_, err := stmt.ExecContext(ctx,
			s.datasetID, base+i,
			cols.ID[i], cols.Timestamp[i],
			cols.XIdx[i], cols.YIdx[i],
			cols.Azimuth[i], cols.Zenith[i],
			cols.Scanline[i], cols.ScanlineIdx[i],
			cols.PointStart[i], cols.PointCount[i],
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert pulse seq %d: %w", base+i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit pulse append tx: %w", err)
	}
	return nil
}

// ReadPulses returns the selected pulse records in ascending record
// order, fetching each selection run with one range scan.
func (s *DatasetStore) ReadPulses(ctx context.Context, sel []bool) (*pointstore.PulseColumns, error) {
	stored, err := s.PulseCount(ctx)
	if err != nil {
		return nil, err
	}
	if len(sel) != stored {
		return nil, fmt.Errorf("selection covers %d records, store holds %d pulses", len(sel), stored)
	}

	runs := pointstore.SelectionRuns(sel)
	off := pointstore.RunOffsets(runs)
	out := &pointstore.PulseColumns{}
	out.Fill(off[len(runs)])

	const q = `
		SELECT pulse_id, timestamp_ns, x_idx, y_idx, azimuth, zenith, scanline, scanline_idx, pts_start, pts_count
		FROM pulses WHERE dataset_id = ? AND seq >= ? AND seq < ? ORDER BY seq`

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.readLimit())
	for i, r := range runs {
		g.Go(func() error {
			rows, err := s.db.QueryContext(ctx, q, s.datasetID, r.Start, r.End)
			if err != nil {
				return fmt.Errorf("scan pulse run [%d,%d): %w", r.Start, r.End, err)
			}
			defer rows.Close()

			k := off[i]
			for rows.Next() {
				if err := rows.Scan(
					&out.ID[k], &out.Timestamp[k],
					&out.XIdx[k], &out.YIdx[k],
					&out.Azimuth[k], &out.Zenith[k],
					&out.Scanline[k], &out.ScanlineIdx[k],
					&out.PointStart[k], &out.PointCount[k],
				); err != nil {
					return fmt.Errorf("scan pulse row: %w", err)
				}
				k++
			}
			if err := rows.Err(); err != nil {
				return err
			}
			if k != off[i]+r.Len() {
				return fmt.Errorf("pulse run [%d,%d) returned %d records, expected %d", r.Start, r.End, k-off[i], r.Len())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadPointRanges returns the pts_start and pts_count columns of the
// selected pulses.
func (s *DatasetStore) ReadPointRanges(ctx context.Context, sel []bool) ([]uint64, []uint32, error) {
	stored, err := s.PulseCount(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(sel) != stored {
		return nil, nil, fmt.Errorf("selection covers %d records, store holds %d pulses", len(sel), stored)
	}

	runs := pointstore.SelectionRuns(sel)
	off := pointstore.RunOffsets(runs)
	n := off[len(runs)]
	start := make([]uint64, n)
	count := make([]uint32, n)

	const q = `
		SELECT pts_start, pts_count
		FROM pulses WHERE dataset_id = ? AND seq >= ? AND seq < ? ORDER BY seq`

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.readLimit())
	for i, r := range runs {
		g.Go(func() error {
			rows, err := s.db.QueryContext(ctx, q, s.datasetID, r.Start, r.End)
			if err != nil {
				return fmt.Errorf("scan point range run [%d,%d): %w", r.Start, r.End, err)
			}
			defer rows.Close()

			k := off[i]
			for rows.Next() {
				if err := rows.Scan(&start[k], &count[k]); err != nil {
					return fmt.Errorf("scan point range row: %w", err)
				}
				k++
			}
			if err := rows.Err(); err != nil {
				return err
			}
			if k != off[i]+r.Len() {
				return fmt.Errorf("point range run [%d,%d) returned %d records, expected %d", r.Start, r.End, k-off[i], r.Len())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return start, count, nil
}

// PulseCount returns the number of stored pulse records.
func (s *DatasetStore) PulseCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pulses WHERE dataset_id = ?`, s.datasetID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pulses: %w", err)
	}
	return n, nil
}

// AppendPoints appends a batch to the dataset's point table.
func (s *DatasetStore) AppendPoints(ctx context.Context, cols *pointstore.PointColumns) error {
	if err := cols.Validate(); err != nil {
		return err
	}
	n := cols.Len()
	if n == 0 {
		return nil
	}
	cols.Fill(n)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin point append tx: %w", err)
	}

	var base int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM points WHERE dataset_id = ?`, s.datasetID).Scan(&base); err != nil {
		tx.Rollback()
		return fmt.Errorf("count points: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO points (dataset_id, seq, x, y, z, intensity, classification, return_number)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare point insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		_, err := stmt.ExecContext(ctx,
			s.datasetID, base+i,
			cols.X[i], cols.Y[i], cols.Z[i],
			cols.Intensity[i], cols.Classification[i], cols.ReturnNumber[i],
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert point seq %d: %w", base+i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit point append tx: %w", err)
	}
	return nil
}

// ReadPoints returns the selected point records in ascending record
// order.
func (s *DatasetStore) ReadPoints(ctx context.Context, sel []bool) (*pointstore.PointColumns, error) {
	stored, err := s.PointCount(ctx)
	if err != nil {
		return nil, err
	}
	if len(sel) != stored {
		return nil, fmt.Errorf("selection covers %d records, store holds %d points", len(sel), stored)
	}

	runs := pointstore.SelectionRuns(sel)
	off := pointstore.RunOffsets(runs)
	out := &pointstore.PointColumns{}
	out.Fill(off[len(runs)])

	const q = `
		SELECT x, y, z, intensity, classification, return_number
		FROM points WHERE dataset_id = ? AND seq >= ? AND seq < ? ORDER BY seq`

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.readLimit())
	for i, r := range runs {
		g.Go(func() error {
			rows, err := s.db.QueryContext(ctx, q, s.datasetID, r.Start, r.End)
			if err != nil {
				return fmt.Errorf("scan point run [%d,%d): %w", r.Start, r.End, err)
			}
			defer rows.Close()

			k := off[i]
			for rows.Next() {
				if err := rows.Scan(
					&out.X[k], &out.Y[k], &out.Z[k],
					&out.Intensity[k], &out.Classification[k], &out.ReturnNumber[k],
				); err != nil {
					return fmt.Errorf("scan point row: %w", err)
				}
				k++
			}
			if err := rows.Err(); err != nil {
				return err
			}
			if k != off[i]+r.Len() {
				return fmt.Errorf("point run [%d,%d) returned %d records, expected %d", r.Start, r.End, k-off[i], r.Len())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePoints overwrites the selected point records with cols, one row
// per selected record in ascending record order. The batch must
// populate every column; an update writes whole records.
func (s *DatasetStore) UpdatePoints(ctx context.Context, sel []bool, cols *pointstore.PointColumns) error {
	if err := cols.Validate(); err != nil {
		return err
	}
	if err := cols.Complete(); err != nil {
		return err
	}

	stored, err := s.PointCount(ctx)
	if err != nil {
		return err
	}
	if len(sel) != stored {
		return fmt.Errorf("selection covers %d records, store holds %d points", len(sel), stored)
	}
	runs := pointstore.SelectionRuns(sel)
	off := pointstore.RunOffsets(runs)
	if n := off[len(runs)]; n != cols.Len() {
		return fmt.Errorf("selection picks %d records, batch has %d", n, cols.Len())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin point update tx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE points SET x = ?, y = ?, z = ?, intensity = ?, classification = ?, return_number = ?
		WHERE dataset_id = ? AND seq = ?`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare point update: %w", err)
	}
	defer stmt.Close()

	for i, r := range runs {
		k := off[i]
		for seq := r.Start; seq < r.End; seq++ {
			_, err := stmt.ExecContext(ctx,
				cols.X[k], cols.Y[k], cols.Z[k],
				cols.Intensity[k], cols.Classification[k], cols.ReturnNumber[k],
				s.datasetID, seq,
			)
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("update point seq %d: %w", seq, err)
			}
			k++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit point update tx: %w", err)
	}
	return nil
}

// PointCount returns the number of stored point records.
func (s *DatasetStore) PointCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM points WHERE dataset_id = ?`, s.datasetID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return n, nil
}

// SaveIndexSnapshot persists snap into the index_snapshots table and
// returns the new snapshot_id.
func (s *DatasetStore) SaveIndexSnapshot(ctx context.Context, snap *pointstore.IndexSnapshot) (int64, error) {
	stmt := `INSERT INTO index_snapshots (dataset_id, taken_unix_nanos, snapshot_reason, index_kind, bin_size, x_min, y_max, grid_rows, grid_cols, pulse_count, point_count, index_blob)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, stmt,
		s.datasetID, snap.TakenUnixNanos, snap.Reason, int(snap.Kind),
		snap.BinSize, snap.XMin, snap.YMax, snap.Rows, snap.Cols,
		snap.PulseCount, snap.PointCount, snap.IndexBlob,
	)
	if err != nil {
		return 0, fmt.Errorf("insert index snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	snap.SnapshotID = id
	return id, nil
}

// LatestIndexSnapshot returns the dataset's most recent snapshot, or
// pointstore.ErrNoSnapshot when none is stored.
func (s *DatasetStore) LatestIndexSnapshot(ctx context.Context) (*pointstore.IndexSnapshot, error) {
	stmt := `SELECT snapshot_id, taken_unix_nanos, snapshot_reason, index_kind, bin_size, x_min, y_max, grid_rows, grid_cols, pulse_count, point_count, index_blob
			 FROM index_snapshots WHERE dataset_id = ?
			 ORDER BY taken_unix_nanos DESC, snapshot_id DESC LIMIT 1`
	snap := &pointstore.IndexSnapshot{}
	var kind int
	err := s.db.QueryRowContext(ctx, stmt, s.datasetID).Scan(
		&snap.SnapshotID, &snap.TakenUnixNanos, &snap.Reason, &kind,
		&snap.BinSize, &snap.XMin, &snap.YMax, &snap.Rows, &snap.Cols,
		&snap.PulseCount, &snap.PointCount, &snap.IndexBlob,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pointstore.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("select index snapshot: %w", err)
	}
	snap.Kind = spatialindex.IndexKind(kind)
	return snap, nil
}

func (s *DatasetStore) readLimit() int {
	if s.ReadConcurrency > 0 {
		return s.ReadConcurrency
	}
	return defaultReadConcurrency
}
