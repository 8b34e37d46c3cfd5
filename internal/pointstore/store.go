package pointstore

import (
	"context"
	"errors"
)

// ErrNoSnapshot is returned by LatestIndexSnapshot when the store
// holds no snapshot for the dataset.
var ErrNoSnapshot = errors.New("no index snapshot stored")

// PulseStore persists pulse records in append order. Selection masks
// have one entry per stored record; reads return the selected records
// in ascending record order, which is the order query plans number
// them in.
type PulseStore interface {
	AppendPulses(ctx context.Context, cols *PulseColumns) error
	ReadPulses(ctx context.Context, sel []bool) (*PulseColumns, error)
	// ReadPointRanges fetches only the PointStart and PointCount
	// columns of the selected pulses, the two the index needs to
	// compose a point-level plan.
	ReadPointRanges(ctx context.Context, sel []bool) (start []uint64, count []uint32, err error)
	PulseCount(ctx context.Context) (int, error)
}

// PointStore persists point records pulse-major, in the order the
// owning pulses were appended.
type PointStore interface {
	AppendPoints(ctx context.Context, cols *PointColumns) error
	ReadPoints(ctx context.Context, sel []bool) (*PointColumns, error)
	// UpdatePoints overwrites the selected records with cols, which
	// holds one row per selected record in ascending record order.
	UpdatePoints(ctx context.Context, sel []bool, cols *PointColumns) error
	PointCount(ctx context.Context) (int, error)
}

// SnapshotStore persists index snapshots alongside the records they
// cover.
type SnapshotStore interface {
	SaveIndexSnapshot(ctx context.Context, snap *IndexSnapshot) (int64, error)
	LatestIndexSnapshot(ctx context.Context) (*IndexSnapshot, error)
}

// Store is the full storage surface a Dataset drives.
type Store interface {
	PulseStore
	PointStore
	SnapshotStore
}
