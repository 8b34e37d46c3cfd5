package spatialindex

import (
	"fmt"

	"github.com/banshee-data/pulsegrid/internal/gridindex"
)

// PointRangeSource supplies the per-pulse point ranges needed to extend
// a pulse-level query down to points. Implementations fetch the
// point-start and point-count columns for exactly the pulses sel
// selects, in ascending pulse order.
type PointRangeSource interface {
	PointRanges(sel []bool) (start []uint64, count []uint32, err error)
}

// Index is the grid spatial index over one pulse dataset: the persisted
// full-grid start/count arrays plus the geometry needed to window them.
// The index does array arithmetic only; fetching records with the plans
// it produces is the store's job.
type Index struct {
	grid gridindex.Grid
	kind IndexKind

	start []uint64
	count []uint32

	// One-entry read cache, keyed by the exact snapped extent. Owned
	// by the index and overwritten on the next distinct query or
	// append; callers needing a plan beyond that must copy it.
	lastExtent gridindex.Extent
	lastPlan   *gridindex.ReadPlan
	hasLast    bool
}

// New creates an empty index over g with zeroed start/count arrays.
func New(g gridindex.Grid, kind IndexKind) *Index {
	Diagf("new %s index %dx%d bins of %g", kind, g.Rows, g.Cols, g.BinSize)
	return &Index{
		grid:  g,
		kind:  kind,
		start: make([]uint64, g.NumBins()),
		count: make([]uint32, g.NumBins()),
	}
}

// Load wraps persisted start/count arrays. The arrays must match the
// grid shape; the index takes ownership of the slices.
func Load(g gridindex.Grid, kind IndexKind, start []uint64, count []uint32) (*Index, error) {
	if len(start) != g.NumBins() || len(count) != g.NumBins() {
		return nil, fmt.Errorf("index arrays of %d/%d entries do not match grid of %d bins",
			len(start), len(count), g.NumBins())
	}
	return &Index{grid: g, kind: kind, start: start, count: count}, nil
}

// Grid returns the index geometry.
func (ix *Index) Grid() gridindex.Grid { return ix.grid }

// Kind returns which coordinate pair the index is built over.
func (ix *Index) Kind() IndexKind { return ix.kind }

// Start exposes the persisted start array for the store layer to write
// verbatim. Callers must not mutate it.
func (ix *Index) Start() []uint64 { return ix.start }

// Count exposes the persisted count array for the store layer to write
// verbatim. Callers must not mutate it.
func (ix *Index) Count() []uint32 { return ix.count }

// tileForExtent builds the working start/count tile for a snapped
// extent: a zeroed block of (window+2*margin) bins per axis with the
// on-grid region copied in. Block cells the grid cannot supply stay
// zero, which downstream reads as empty bins.
func (ix *Index) tileForExtent(e gridindex.Extent, margin int) (start []uint64, count []uint32, rows, cols int) {
	rows, cols = e.Span(ix.grid.BinSize)
	rows += 2 * margin
	cols += 2 * margin

	start = make([]uint64, rows*cols)
	count = make([]uint32, rows*cols)

	dst, src, ok := gridindex.SliceForExtent(ix.grid, margin, e)
	if ok {
		gridindex.CopyRegion(start, cols, dst, ix.start, ix.grid.Cols, src)
		gridindex.CopyRegion(count, cols, dst, ix.count, ix.grid.Cols, src)
	}
	return start, count, rows, cols
}

// PulsesForExtent resolves the read plan for all pulses whose bin falls
// inside e expanded by margin bins per side, against a pulse dataset of
// pulseCount records. The extent snaps to the grid first and the
// snapped value keys the one-entry cache: repeating a query returns the
// identical cached plan without recomputation. A window off the grid
// yields an all-empty plan, not an error.
func (ix *Index) PulsesForExtent(e gridindex.Extent, margin, pulseCount int) (*gridindex.ReadPlan, error) {
	snapped := ix.grid.SnapExtent(e)
	if ix.hasLast && snapped == ix.lastExtent {
		Tracef("pulse plan cache hit x=[%g,%g) y=[%g,%g)",
			snapped.XMin, snapped.XMax, snapped.YMin, snapped.YMax)
		return ix.lastPlan, nil
	}

	start, count, rows, cols := ix.tileForExtent(snapped, margin)
	plan, err := gridindex.Convert(start, count, []int{rows, cols}, pulseCount)
	if err != nil {
		return nil, fmt.Errorf("convert pulse tile: %w", err)
	}

	ix.lastExtent = snapped
	ix.lastPlan = plan
	ix.hasLast = true

	Diagf("pulse plan x=[%g,%g) y=[%g,%g) margin=%d tile=%dx%d selected=%d/%d",
		snapped.XMin, snapped.XMax, snapped.YMin, snapped.YMax,
		margin, rows, cols, plan.Selected(), pulseCount)
	return plan, nil
}

// PointsForExtent composes a point-level plan on top of the pulse-level
// plan for e: resolve the pulses, fetch each selected pulse's point
// range from src, then convert those ranges as a 1D index against a
// point dataset of pointCount records. Points carry no grid bins of
// their own — they are reached only through their parent pulse.
//
// TODO: cache the point-level plan alongside the pulse plan.
func (ix *Index) PointsForExtent(e gridindex.Extent, margin, pulseCount, pointCount int, src PointRangeSource) (*gridindex.ReadPlan, error) {
	pulses, err := ix.PulsesForExtent(e, margin, pulseCount)
	if err != nil {
		return nil, err
	}

	start, count, err := src.PointRanges(pulses.Mask)
	if err != nil {
		return nil, fmt.Errorf("fetch point ranges: %w", err)
	}

	plan, err := gridindex.Convert(start, count, []int{len(count)}, pointCount)
	if err != nil {
		return nil, fmt.Errorf("convert point index: %w", err)
	}
	Diagf("point plan pulses=%d selected=%d/%d", len(count), plan.Selected(), pointCount)
	return plan, nil
}

// AppendTile bins a batch of pulse coordinates into the tile covering
// e, builds the batch's run-length index, offsets every non-empty
// bin's start by globalOffset (the number of records already written)
// so starts stay globally unique across sequentially appended tiles,
// and overwrites the matching region of the persisted arrays with the
// tile. Margin is always zero here: binning already excluded anything
// outside the window. A tile that misses the grid writes nothing but
// still returns the binning. Empty bins keep the zero start sentinel.
//
// Callers must reorder the batch to match the written index: apply
// Valid, then Order, to the coordinate columns and to every parallel
// record column (points, waveforms) before appending them to the
// store.
func (ix *Index) AppendTile(e gridindex.Extent, y, x []float64, globalOffset uint64) *gridindex.Binning {
	snapped := ix.grid.SnapExtent(e)
	rows, cols := snapped.Span(ix.grid.BinSize)
	tile := gridindex.Grid{
		BinSize: ix.grid.BinSize,
		YMax:    snapped.YMax,
		XMin:    snapped.XMin,
		Rows:    rows,
		Cols:    cols,
	}

	b, start, count := gridindex.BuildIndex(y, x, tile)
	for i, c := range count {
		if c != 0 {
			start[i] += globalOffset
		}
	}

	dst, src, ok := gridindex.SliceForExtent(ix.grid, 0, snapped)
	if ok {
		gridindex.CopyRegion(ix.start, ix.grid.Cols, src, start, cols, dst)
		gridindex.CopyRegion(ix.count, ix.grid.Cols, src, count, cols, dst)
	} else {
		Opsf("append tile x=[%g,%g) y=[%g,%g) lies off the %dx%d grid, index unchanged",
			snapped.XMin, snapped.XMax, snapped.YMin, snapped.YMax, ix.grid.Rows, ix.grid.Cols)
	}

	// The persisted arrays changed under any cached plan.
	ix.hasLast = false
	ix.lastPlan = nil

	Diagf("appended tile %dx%d at x=[%g,%g) y=[%g,%g): %d of %d pulses in grid, offset=%d",
		rows, cols, snapped.XMin, snapped.XMax, snapped.YMin, snapped.YMax,
		b.InGrid(), len(y), globalOffset)
	return b
}
