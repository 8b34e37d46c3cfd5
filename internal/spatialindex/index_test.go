package spatialindex

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pulsegrid/internal/gridindex"
	"github.com/banshee-data/pulsegrid/internal/testutil"
)

// fourByFour is the grid used across these tests: 4x4 unit bins,
// top-left world corner at (y=4, x=0).
func fourByFour() gridindex.Grid {
	return testutil.SquareGrid(4)
}

// appendTwoTiles writes two adjacent tiles into ix the way a driver
// would: tile one holds three pulses (records 0..2), tile two holds two
// (records 3..4). Returns the total pulse count.
func appendTwoTiles(t *testing.T, ix *Index) int {
	t.Helper()

	// Tile one: window rows [0,2) cols [0,2).
	e1 := gridindex.Extent{XMin: 0, XMax: 2, YMin: 2, YMax: 4}
	y1 := []float64{3.5, 2.5, 3.5}
	x1 := []float64{0.5, 1.5, 1.5}
	b1 := ix.AppendTile(e1, y1, x1, 0)
	require.Equal(t, 3, b1.InGrid())

	// Tile two: window rows [0,2) cols [2,4), starts offset by the
	// three records already written.
	e2 := gridindex.Extent{XMin: 2, XMax: 4, YMin: 2, YMax: 4}
	y2 := []float64{3.5, 2.5}
	x2 := []float64{2.5, 3.5}
	b2 := ix.AppendTile(e2, y2, x2, 3)
	require.Equal(t, 2, b2.InGrid())

	return 5
}

// ---------------------------------------------------------------------------
// AppendTile (write path)
// ---------------------------------------------------------------------------

func TestAppendTile_BuildsGloballyUniqueStarts(t *testing.T) {
	t.Parallel()
	ix := New(fourByFour(), KindCartesian)
	appendTwoTiles(t, ix)

	g := ix.Grid()
	count := ix.Count()
	start := ix.Start()

	// Tile one landed in rows 0-1, cols 0-1.
	assert.Equal(t, uint32(1), count[g.Idx(0, 0)])
	assert.Equal(t, uint32(1), count[g.Idx(0, 1)])
	assert.Equal(t, uint32(1), count[g.Idx(1, 1)])
	assert.Equal(t, uint64(0), start[g.Idx(0, 0)])
	assert.Equal(t, uint64(1), start[g.Idx(0, 1)])
	assert.Equal(t, uint64(2), start[g.Idx(1, 1)])

	// Tile two landed in cols 2-3 with starts continuing at 3.
	assert.Equal(t, uint32(1), count[g.Idx(0, 2)])
	assert.Equal(t, uint32(1), count[g.Idx(1, 3)])
	assert.Equal(t, uint64(3), start[g.Idx(0, 2)])
	assert.Equal(t, uint64(4), start[g.Idx(1, 3)])

	// Untouched bins keep the zero sentinel.
	assert.Equal(t, uint32(0), count[g.Idx(3, 3)])
	assert.Equal(t, uint64(0), start[g.Idx(3, 3)])
}

func TestAppendTile_ReturnsBinSortOrder(t *testing.T) {
	t.Parallel()
	ix := New(fourByFour(), KindCartesian)

	// Third pulse falls outside the tile window and must be dropped;
	// the two in-window pulses arrive in reverse bin order.
	e := gridindex.Extent{XMin: 0, XMax: 2, YMin: 2, YMax: 4}
	y := []float64{2.5, 3.5, 0.5}
	x := []float64{1.5, 0.5, 3.5}

	b := ix.AppendTile(e, y, x, 0)

	assert.Equal(t, []bool{true, true, false}, b.Valid)
	// Filtered elements: 0 -> bin 3, 1 -> bin 0. Sorted: 1, 0.
	assert.Equal(t, []int{1, 0}, b.Order)
}

func TestAppendTile_OffGridLeavesIndexUnchanged(t *testing.T) {
	t.Parallel()
	ix := New(fourByFour(), KindCartesian)

	e := gridindex.Extent{XMin: 10, XMax: 12, YMin: 2, YMax: 4}
	b := ix.AppendTile(e, []float64{3.5}, []float64{10.5}, 0)

	// The pulse binned fine within its tile, but the tile missed the
	// persisted grid, so nothing was written.
	assert.Equal(t, 1, b.InGrid())
	for _, c := range ix.Count() {
		assert.Equal(t, uint32(0), c)
	}
}

// ---------------------------------------------------------------------------
// PulsesForExtent (read path)
// ---------------------------------------------------------------------------

func TestPulsesForExtent_SelectsWindowRecords(t *testing.T) {
	t.Parallel()
	ix := New(fourByFour(), KindCartesian)
	total := appendTwoTiles(t, ix)

	e := gridindex.Extent{XMin: 0, XMax: 2, YMin: 2, YMax: 4}
	plan, err := ix.PulsesForExtent(e, 0, total)
	require.NoError(t, err)

	// Only tile one's three records are in the window.
	assert.Equal(t, []bool{true, true, true, false, false}, plan.Mask)
	assert.Equal(t, []int{2, 2}, plan.Dims)
	assert.Equal(t, 1, plan.MaxCount)

	v, valid := plan.At(0, 0) // tile bin (0,0)
	assert.True(t, valid)
	assert.Equal(t, uint32(0), v)
	v, valid = plan.At(0, 1)
	assert.True(t, valid)
	assert.Equal(t, uint32(1), v)
	_, valid = plan.At(0, 2) // tile bin (1,0) is empty
	assert.False(t, valid)
	v, valid = plan.At(0, 3)
	assert.True(t, valid)
	assert.Equal(t, uint32(2), v)
}

func TestPulsesForExtent_MarginPullsNeighborBins(t *testing.T) {
	t.Parallel()
	ix := New(fourByFour(), KindCartesian)
	total := appendTwoTiles(t, ix)

	e := gridindex.Extent{XMin: 0, XMax: 2, YMin: 2, YMax: 4}
	plan, err := ix.PulsesForExtent(e, 1, total)
	require.NoError(t, err)

	// The margin reaches col 2 and picks up record 3; record 4 at
	// (1,3) stays outside. The block's off-grid margin is padding.
	assert.Equal(t, []bool{true, true, true, true, false}, plan.Mask)
	assert.Equal(t, []int{4, 4}, plan.Dims)
	assert.Equal(t, 4, plan.Selected())

	// Window bins sit at block offset (1,1); the extra record at
	// block cell (1,3).
	v, valid := plan.At(0, 1*4+1)
	assert.True(t, valid)
	assert.Equal(t, uint32(0), v)
	v, valid = plan.At(0, 1*4+3)
	assert.True(t, valid)
	assert.Equal(t, uint32(3), v)

	// Padding row 0 of the block is entirely invalid.
	for col := 0; col < 4; col++ {
		_, valid := plan.At(0, col)
		assert.False(t, valid, "block cell (0,%d)", col)
	}
}

func TestPulsesForExtent_OffGridWindowGivesEmptyPlan(t *testing.T) {
	t.Parallel()
	ix := New(fourByFour(), KindCartesian)
	total := appendTwoTiles(t, ix)

	e := gridindex.Extent{XMin: 20, XMax: 22, YMin: 2, YMax: 4}
	plan, err := ix.PulsesForExtent(e, 0, total)
	require.NoError(t, err)

	assert.Equal(t, 0, plan.Selected())
	assert.Equal(t, 0, plan.MaxCount)
	assert.Len(t, plan.Mask, total)
}

// ---------------------------------------------------------------------------
// Cache
// ---------------------------------------------------------------------------

func TestPulsesForExtent_CacheServesIdenticalExtent(t *testing.T) {
	t.Parallel()
	ix := New(fourByFour(), KindCartesian)
	total := appendTwoTiles(t, ix)

	e := gridindex.Extent{XMin: 0, XMax: 2, YMin: 2, YMax: 4}
	first, err := ix.PulsesForExtent(e, 0, total)
	require.NoError(t, err)

	again, err := ix.PulsesForExtent(e, 0, total)
	require.NoError(t, err)
	assert.Same(t, first, again)

	// A raw extent that snaps to the same window hits the same entry.
	raw := gridindex.Extent{XMin: 0.1, XMax: 1.9, YMin: 2.2, YMax: 3.8}
	snapped, err := ix.PulsesForExtent(raw, 0, total)
	require.NoError(t, err)
	assert.Same(t, first, snapped)

	// A different extent replaces the entry.
	other, err := ix.PulsesForExtent(gridindex.Extent{XMin: 2, XMax: 4, YMin: 2, YMax: 4}, 0, total)
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestAppendTile_InvalidatesCache(t *testing.T) {
	t.Parallel()
	ix := New(fourByFour(), KindCartesian)

	e := gridindex.Extent{XMin: 0, XMax: 2, YMin: 2, YMax: 4}
	before, err := ix.PulsesForExtent(e, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, before.Selected())

	ix.AppendTile(e, []float64{3.5}, []float64{0.5}, 0)

	after, err := ix.PulsesForExtent(e, 0, 1)
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.Equal(t, 1, after.Selected())
}

// ---------------------------------------------------------------------------
// PointsForExtent
// ---------------------------------------------------------------------------

// mockRanges hands back fixed point ranges and records the selection it
// was asked for.
type mockRanges struct {
	start  []uint64
	count  []uint32
	err    error
	gotSel []bool
}

func (m *mockRanges) PointRanges(sel []bool) ([]uint64, []uint32, error) {
	m.gotSel = append([]bool(nil), sel...)
	if m.err != nil {
		return nil, nil, m.err
	}
	return m.start, m.count, nil
}

func TestPointsForExtent_ComposesThroughPulses(t *testing.T) {
	t.Parallel()
	ix := New(fourByFour(), KindCartesian)

	e := gridindex.Extent{XMin: 0, XMax: 2, YMin: 2, YMax: 4}
	y := []float64{3.5, 2.5, 3.5}
	x := []float64{0.5, 1.5, 1.5}
	ix.AppendTile(e, y, x, 0)

	// Pulses 0..2 carry 2, 0 and 1 points into a 3-point dataset.
	src := &mockRanges{start: []uint64{0, 0, 2}, count: []uint32{2, 0, 1}}

	plan, err := ix.PointsForExtent(e, 0, 3, 3, src)
	require.NoError(t, err)

	// The source was asked for exactly the selected pulses.
	assert.Equal(t, []bool{true, true, true}, src.gotSel)

	assert.Equal(t, []bool{true, true, true}, plan.Mask)
	assert.Equal(t, []int{3}, plan.Dims)
	assert.Equal(t, 2, plan.MaxCount)

	v, valid := plan.At(0, 0)
	assert.True(t, valid)
	assert.Equal(t, uint32(0), v)
	v, valid = plan.At(1, 0)
	assert.True(t, valid)
	assert.Equal(t, uint32(1), v)
	_, valid = plan.At(0, 1)
	assert.False(t, valid)
	v, valid = plan.At(0, 2)
	assert.True(t, valid)
	assert.Equal(t, uint32(2), v)
}

func TestPointsForExtent_PropagatesSourceError(t *testing.T) {
	t.Parallel()
	ix := New(fourByFour(), KindCartesian)

	srcErr := errors.New("column fetch failed")
	_, err := ix.PointsForExtent(gridindex.Extent{XMin: 0, XMax: 2, YMin: 2, YMax: 4},
		0, 0, 0, &mockRanges{err: srcErr})
	require.Error(t, err)
	assert.ErrorIs(t, err, srcErr)
}

// ---------------------------------------------------------------------------
// Load / Stats
// ---------------------------------------------------------------------------

func TestLoad_RejectsMismatchedArrays(t *testing.T) {
	t.Parallel()

	_, err := Load(fourByFour(), KindCartesian, make([]uint64, 4), make([]uint32, 16))
	require.Error(t, err)

	ix, err := Load(fourByFour(), KindCartesian, make([]uint64, 16), make([]uint32, 16))
	require.NoError(t, err)
	assert.Equal(t, KindCartesian, ix.Kind())
}

func TestLoad_RoundTripThroughPersistedArrays(t *testing.T) {
	t.Parallel()
	built := New(fourByFour(), KindSpherical)
	total := appendTwoTiles(t, built)

	loaded, err := Load(built.Grid(), built.Kind(), built.Start(), built.Count())
	require.NoError(t, err)

	e := gridindex.Extent{XMin: 0, XMax: 2, YMin: 2, YMax: 4}
	want, err := built.PulsesForExtent(e, 0, total)
	require.NoError(t, err)
	got, err := loaded.PulsesForExtent(e, 0, total)
	require.NoError(t, err)

	assert.Equal(t, want.Mask, got.Mask)
	assert.Equal(t, want.Index, got.Index)
	assert.Equal(t, want.Invalid, got.Invalid)
}

func TestStats(t *testing.T) {
	t.Parallel()
	ix := New(fourByFour(), KindCartesian)

	empty := ix.Stats()
	assert.Equal(t, 16, empty.Bins)
	assert.Equal(t, 0, empty.Occupied)
	assert.Equal(t, uint64(0), empty.Pulses)

	appendTwoTiles(t, ix)
	s := ix.Stats()
	assert.Equal(t, 16, s.Bins)
	assert.Equal(t, 5, s.Occupied)
	assert.Equal(t, uint64(5), s.Pulses)
	assert.Equal(t, uint32(1), s.MaxPerBin)
	assert.InDelta(t, 1.0, s.MeanPerBin, 1e-12)
	assert.InDelta(t, 1.0, s.P50PerBin, 1e-12)
	assert.InDelta(t, 1.0, s.P95PerBin, 1e-12)
}
