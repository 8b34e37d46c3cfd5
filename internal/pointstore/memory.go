package pointstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps all records and snapshots in process memory. It is
// the reference Store implementation: small ingests, tests, and tools
// that never need a file on disk. A mutex guards the columns so a
// dataset and a background persister can share one store.
type MemoryStore struct {
	mu     sync.Mutex
	pulses PulseColumns
	points PointColumns
	snaps  []*IndexSnapshot
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// AppendPulses appends a batch to the stored pulse columns.
func (s *MemoryStore) AppendPulses(ctx context.Context, cols *PulseColumns) error {
	if err := cols.Validate(); err != nil {
		return err
	}
	cols.Fill(cols.Len())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pulses.ID = append(s.pulses.ID, cols.ID...)
	s.pulses.Timestamp = append(s.pulses.Timestamp, cols.Timestamp...)
	s.pulses.XIdx = append(s.pulses.XIdx, cols.XIdx...)
	s.pulses.YIdx = append(s.pulses.YIdx, cols.YIdx...)
	s.pulses.Azimuth = append(s.pulses.Azimuth, cols.Azimuth...)
	s.pulses.Zenith = append(s.pulses.Zenith, cols.Zenith...)
	s.pulses.Scanline = append(s.pulses.Scanline, cols.Scanline...)
	s.pulses.ScanlineIdx = append(s.pulses.ScanlineIdx, cols.ScanlineIdx...)
	s.pulses.PointStart = append(s.pulses.PointStart, cols.PointStart...)
	s.pulses.PointCount = append(s.pulses.PointCount, cols.PointCount...)
	return nil
}

// ReadPulses returns the selected pulse records in ascending record
// order.
func (s *MemoryStore) ReadPulses(ctx context.Context, sel []bool) (*PulseColumns, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sel) != len(s.pulses.ID) {
		return nil, fmt.Errorf("selection covers %d records, store holds %d pulses", len(sel), len(s.pulses.ID))
	}

	runs := SelectionRuns(sel)
	off := RunOffsets(runs)
	n := off[len(runs)]
	out := &PulseColumns{}
	out.Fill(n)
	for i, r := range runs {
		copy(out.ID[off[i]:], s.pulses.ID[r.Start:r.End])
		copy(out.Timestamp[off[i]:], s.pulses.Timestamp[r.Start:r.End])
		copy(out.XIdx[off[i]:], s.pulses.XIdx[r.Start:r.End])
		copy(out.YIdx[off[i]:], s.pulses.YIdx[r.Start:r.End])
		copy(out.Azimuth[off[i]:], s.pulses.Azimuth[r.Start:r.End])
		copy(out.Zenith[off[i]:], s.pulses.Zenith[r.Start:r.End])
		copy(out.Scanline[off[i]:], s.pulses.Scanline[r.Start:r.End])
		copy(out.ScanlineIdx[off[i]:], s.pulses.ScanlineIdx[r.Start:r.End])
		copy(out.PointStart[off[i]:], s.pulses.PointStart[r.Start:r.End])
		copy(out.PointCount[off[i]:], s.pulses.PointCount[r.Start:r.End])
	}
	return out, nil
}

// ReadPointRanges returns the PointStart and PointCount columns of the
// selected pulses.
func (s *MemoryStore) ReadPointRanges(ctx context.Context, sel []bool) ([]uint64, []uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sel) != len(s.pulses.ID) {
		return nil, nil, fmt.Errorf("selection covers %d records, store holds %d pulses", len(sel), len(s.pulses.ID))
	}

	runs := SelectionRuns(sel)
	off := RunOffsets(runs)
	n := off[len(runs)]
	start := make([]uint64, n)
	count := make([]uint32, n)
	for i, r := range runs {
		copy(start[off[i]:], s.pulses.PointStart[r.Start:r.End])
		copy(count[off[i]:], s.pulses.PointCount[r.Start:r.End])
	}
	return start, count, nil
}

// PulseCount returns the number of stored pulse records.
func (s *MemoryStore) PulseCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pulses.ID), nil
}

// AppendPoints appends a batch to the stored point columns.
func (s *MemoryStore) AppendPoints(ctx context.Context, cols *PointColumns) error {
	if err := cols.Validate(); err != nil {
		return err
	}
	cols.Fill(cols.Len())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.points.X = append(s.points.X, cols.X...)
	s.points.Y = append(s.points.Y, cols.Y...)
	s.points.Z = append(s.points.Z, cols.Z...)
	s.points.Intensity = append(s.points.Intensity, cols.Intensity...)
	s.points.Classification = append(s.points.Classification, cols.Classification...)
	s.points.ReturnNumber = append(s.points.ReturnNumber, cols.ReturnNumber...)
	return nil
}

// ReadPoints returns the selected point records in ascending record
// order.
func (s *MemoryStore) ReadPoints(ctx context.Context, sel []bool) (*PointColumns, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sel) != len(s.points.X) {
		return nil, fmt.Errorf("selection covers %d records, store holds %d points", len(sel), len(s.points.X))
	}

	runs := SelectionRuns(sel)
	off := RunOffsets(runs)
	n := off[len(runs)]
	out := &PointColumns{}
	out.Fill(n)
	for i, r := range runs {
		copy(out.X[off[i]:], s.points.X[r.Start:r.End])
		copy(out.Y[off[i]:], s.points.Y[r.Start:r.End])
		copy(out.Z[off[i]:], s.points.Z[r.Start:r.End])
		copy(out.Intensity[off[i]:], s.points.Intensity[r.Start:r.End])
		copy(out.Classification[off[i]:], s.points.Classification[r.Start:r.End])
		copy(out.ReturnNumber[off[i]:], s.points.ReturnNumber[r.Start:r.End])
	}
	return out, nil
}

// UpdatePoints overwrites the selected point records with cols, one
// row per selected record in ascending record order.
func (s *MemoryStore) UpdatePoints(ctx context.Context, sel []bool, cols *PointColumns) error {
	if err := cols.Validate(); err != nil {
		return err
	}
	if err := cols.Complete(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sel) != len(s.points.X) {
		return fmt.Errorf("selection covers %d records, store holds %d points", len(sel), len(s.points.X))
	}
	runs := SelectionRuns(sel)
	off := RunOffsets(runs)
	if n := off[len(runs)]; n != cols.Len() {
		return fmt.Errorf("selection picks %d records, batch has %d", n, cols.Len())
	}

	for i, r := range runs {
		copy(s.points.X[r.Start:r.End], cols.X[off[i]:])
		copy(s.points.Y[r.Start:r.End], cols.Y[off[i]:])
		copy(s.points.Z[r.Start:r.End], cols.Z[off[i]:])
		copy(s.points.Intensity[r.Start:r.End], cols.Intensity[off[i]:])
		copy(s.points.Classification[r.Start:r.End], cols.Classification[off[i]:])
		copy(s.points.ReturnNumber[r.Start:r.End], cols.ReturnNumber[off[i]:])
	}
	return nil
}

// PointCount returns the number of stored point records.
func (s *MemoryStore) PointCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.points.X), nil
}

// SaveIndexSnapshot stores snap and returns its assigned id.
func (s *MemoryStore) SaveIndexSnapshot(ctx context.Context, snap *IndexSnapshot) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := int64(len(s.snaps) + 1)
	snap.SnapshotID = id
	s.snaps = append(s.snaps, snap)
	return id, nil
}

// LatestIndexSnapshot returns the most recently saved snapshot, or
// ErrNoSnapshot when none exists.
func (s *MemoryStore) LatestIndexSnapshot(ctx context.Context) (*IndexSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snaps) == 0 {
		return nil, ErrNoSnapshot
	}
	return s.snaps[len(s.snaps)-1], nil
}
