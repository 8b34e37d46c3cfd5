package pointstore

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/banshee-data/pulsegrid/internal/gridindex"
	"github.com/banshee-data/pulsegrid/internal/spatialindex"
)

// ErrStaleSnapshot is returned by Restore when the stored record
// counts no longer match the latest snapshot, meaning records were
// appended after the snapshot was taken and the index would miss them.
var ErrStaleSnapshot = errors.New("index snapshot is stale")

// Dataset ties a spatial index to the store holding the records it
// indexes. All pulse identity and point placement is assigned here:
// tiles enter in caller order and are persisted grid-sorted, so the
// index's bin runs always line up with record positions in the store.
//
// Records whose bins fall inside the written tile but outside the
// persisted grid are stored yet never reachable through an extent
// query; callers that need full coverage must create the grid over the
// whole collect area up front.
type Dataset struct {
	ix     *spatialindex.Index
	store  Store
	pulses uint64 // records persisted so far, the next global offset
	points uint64
}

// New wraps a fresh index and an empty store into a dataset.
func New(ix *spatialindex.Index, store Store) *Dataset {
	return &Dataset{ix: ix, store: store}
}

// Restore reopens a dataset from the store's latest index snapshot.
// It fails with ErrStaleSnapshot when records were appended after the
// snapshot, and with ErrNoSnapshot when the store holds none.
func Restore(ctx context.Context, store Store) (*Dataset, error) {
	snap, err := store.LatestIndexSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	ix, err := RestoreIndex(snap)
	if err != nil {
		return nil, err
	}

	pc, err := store.PulseCount(ctx)
	if err != nil {
		return nil, err
	}
	ptc, err := store.PointCount(ctx)
	if err != nil {
		return nil, err
	}
	if uint64(pc) != snap.PulseCount || uint64(ptc) != snap.PointCount {
		return nil, fmt.Errorf("%w: snapshot covers %d pulses / %d points, store holds %d / %d",
			ErrStaleSnapshot, snap.PulseCount, snap.PointCount, pc, ptc)
	}

	log.Printf("[Dataset] restored index from snapshot: id=%d kind=%s pulses=%d points=%d",
		snap.SnapshotID, snap.Kind, snap.PulseCount, snap.PointCount)
	return &Dataset{ix: ix, store: store, pulses: snap.PulseCount, points: snap.PointCount}, nil
}

// Index exposes the dataset's spatial index.
func (d *Dataset) Index() *spatialindex.Index { return d.ix }

// Counts returns the number of pulse and point records persisted so
// far.
func (d *Dataset) Counts() (pulses, points uint64) { return d.pulses, d.points }

// TileWrite reports what one AppendTile call persisted.
type TileWrite struct {
	Pulses  int // pulse records persisted after grid filtering
	Points  int // point records persisted with them
	Dropped int // input pulses outside the tile extent
}

// AppendTile bins one tile of pulses into the index and persists the
// surviving records. pulses carries the coordinate columns for the
// index kind plus PointCount; points carries each pulse's returns
// pulse-major in the same order. Pulses binned outside the tile are
// dropped along with their points. The kept records are written
// bin-sorted, with IDs and point placement assigned from the dataset's
// running counts.
//
// Tiles are expected to partition the grid during an ingest: writing
// an area twice replaces its bin runs and orphans the earlier records.
func (d *Dataset) AppendTile(ctx context.Context, e gridindex.Extent, pulses *PulseColumns, points *PointColumns) (*TileWrite, error) {
	if err := pulses.Validate(); err != nil {
		return nil, err
	}
	if err := points.Validate(); err != nil {
		return nil, err
	}
	n := pulses.Len()
	pulses.Fill(n)
	points.Fill(points.Len())

	off := groupOffsets(pulses.PointCount)
	if points.Len() != off[n] {
		return nil, fmt.Errorf("points batch has %d records, pulse counts sum to %d", points.Len(), off[n])
	}

	y, x, err := pulses.Coords(d.ix.Kind())
	if err != nil {
		return nil, err
	}

	b := d.ix.AppendTile(e, y, x, d.pulses)
	m := b.InGrid()
	if m == 0 {
		return &TileWrite{Dropped: n}, nil
	}

	// Final record order: the tile-valid pulses, bin-sorted. Order
	// permutes the filtered subset, so map back through the positions
	// that survived the filter.
	valid := make([]int, 0, m)
	for i, ok := range b.Valid {
		if ok {
			valid = append(valid, i)
		}
	}
	final := make([]int, m)
	for k, j := range b.Order {
		final[k] = valid[j]
	}

	out := pulses.pick(final)
	kept := 0
	for k := range final {
		out.ID[k] = d.pulses + uint64(k)
		out.PointStart[k] = d.points + uint64(kept)
		kept += int(out.PointCount[k])
	}
	outPoints := points.pickGroups(off, pulses.PointCount, final, kept)

	if err := d.store.AppendPulses(ctx, out); err != nil {
		return nil, fmt.Errorf("append pulses: %w", err)
	}
	if err := d.store.AppendPoints(ctx, outPoints); err != nil {
		return nil, fmt.Errorf("append points: %w", err)
	}

	d.pulses += uint64(m)
	d.points += uint64(kept)
	return &TileWrite{Pulses: m, Points: kept, Dropped: n - m}, nil
}

// QueryPulses plans and fetches the pulse records of an extent window.
// The returned plan arranges the fetched batch into per-bin ragged
// form (gridindex.Gather) and carries the mask for write-backs.
func (d *Dataset) QueryPulses(ctx context.Context, e gridindex.Extent, margin int) (*PulseColumns, *gridindex.ReadPlan, error) {
	pc, err := d.store.PulseCount(ctx)
	if err != nil {
		return nil, nil, err
	}
	plan, err := d.ix.PulsesForExtent(e, margin, pc)
	if err != nil {
		return nil, nil, err
	}
	cols, err := d.store.ReadPulses(ctx, plan.Mask)
	if err != nil {
		return nil, nil, err
	}
	return cols, plan, nil
}

// rangeSource adapts the store's point-range lookup to the index's
// PointRangeSource. Scoped to a single query so the caller's context
// rides along.
type rangeSource struct {
	ctx   context.Context
	store PulseStore
}

func (r rangeSource) PointRanges(sel []bool) ([]uint64, []uint32, error) {
	return r.store.ReadPointRanges(r.ctx, sel)
}

// QueryPoints plans and fetches the point records of an extent window,
// composing through the pulse level.
func (d *Dataset) QueryPoints(ctx context.Context, e gridindex.Extent, margin int) (*PointColumns, *gridindex.ReadPlan, error) {
	pc, err := d.store.PulseCount(ctx)
	if err != nil {
		return nil, nil, err
	}
	ptc, err := d.store.PointCount(ctx)
	if err != nil {
		return nil, nil, err
	}
	plan, err := d.ix.PointsForExtent(e, margin, pc, ptc, rangeSource{ctx: ctx, store: d.store})
	if err != nil {
		return nil, nil, err
	}
	cols, err := d.store.ReadPoints(ctx, plan.Mask)
	if err != nil {
		return nil, nil, err
	}
	return cols, plan, nil
}

// UpdatePoints writes refined point values back to the records a plan
// selected. cols holds one row per selected record in ascending record
// order, the layout gridindex.Flatten produces.
func (d *Dataset) UpdatePoints(ctx context.Context, plan *gridindex.ReadPlan, cols *PointColumns) error {
	if err := cols.Validate(); err != nil {
		return err
	}
	if got, want := cols.Len(), plan.Selected(); got != want {
		return fmt.Errorf("update batch has %d records, plan selects %d", got, want)
	}
	return d.store.UpdatePoints(ctx, plan.Mask, cols)
}

// Persist snapshots the index into the store and returns the snapshot
// id.
func (d *Dataset) Persist(ctx context.Context, reason string) (int64, error) {
	snap, err := SnapshotIndex(d.ix, d.pulses, d.points, reason)
	if err != nil {
		return 0, err
	}
	id, err := d.store.SaveIndexSnapshot(ctx, snap)
	if err != nil {
		return 0, err
	}
	log.Printf("[Dataset] persisted index snapshot: id=%d reason=%s pulses=%d points=%d blob=%dB",
		id, reason, d.pulses, d.points, len(snap.IndexBlob))
	return id, nil
}
