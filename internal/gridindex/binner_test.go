package gridindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoByTwo is the reference grid used across these tests: 2x2 bins of
// size 1.0 with the top-left world corner at (y=2, x=0).
func twoByTwo() Grid {
	return Grid{BinSize: 1.0, YMax: 2.0, XMin: 0.0, Rows: 2, Cols: 2}
}

// ---------------------------------------------------------------------------
// Bin
// ---------------------------------------------------------------------------

func TestBin_ThreePointsOnTwoByTwo(t *testing.T) {
	t.Parallel()
	g := twoByTwo()

	// (1.5,0.5) -> bin (0,0); (0.5,0.5) -> (1,0); (0.5,1.5) -> (1,1)
	y := []float64{1.5, 0.5, 0.5}
	x := []float64{0.5, 0.5, 1.5}

	b := Bin(y, x, g)

	assert.Equal(t, []bool{true, true, true}, b.Valid)
	assert.Equal(t, []uint32{0, 1, 1}, b.Rows)
	assert.Equal(t, []uint32{0, 0, 1}, b.Cols)
	assert.Equal(t, []uint64{0, 2, 3}, b.Bins)
	assert.Equal(t, []int{0, 1, 2}, b.Order)
	assert.Equal(t, 3, b.InGrid())
}

func TestBin_OutOfGridExcludedNotError(t *testing.T) {
	t.Parallel()
	g := twoByTwo()

	tests := []struct {
		name string
		y, x float64
		want bool
	}{
		{"inside", 1.5, 0.5, true},
		{"top edge is row 0", 2.0, 0.5, true},
		{"above top", 2.5, 0.5, false},
		{"bottom edge excluded", 0.0, 0.5, false},
		{"left edge is col 0", 1.5, 0.0, true},
		{"right edge excluded", 1.5, 2.0, false},
		{"left of grid", 1.5, -0.1, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			b := Bin([]float64{tc.y}, []float64{tc.x}, g)
			assert.Equal(t, tc.want, b.Valid[0])
			if tc.want {
				assert.Equal(t, 1, b.InGrid())
			} else {
				assert.Equal(t, 0, b.InGrid())
			}
		})
	}
}

func TestBin_OrderSortsByBinKeepingInputOrder(t *testing.T) {
	t.Parallel()
	g := Grid{BinSize: 1.0, YMax: 3.0, XMin: 0.0, Rows: 3, Cols: 3}

	// Bins: 8, 0, 8, 4 — the two elements of bin 8 must keep input order.
	y := []float64{0.5, 2.5, 0.5, 1.5}
	x := []float64{2.5, 0.5, 2.5, 1.5}

	b := Bin(y, x, g)
	require.Equal(t, []uint64{8, 0, 8, 4}, b.Bins)
	assert.Equal(t, []int{1, 3, 0, 2}, b.Order)
}

func TestBin_EmptyInput(t *testing.T) {
	t.Parallel()
	b := Bin(nil, nil, twoByTwo())
	assert.Empty(t, b.Valid)
	assert.Empty(t, b.Bins)
	assert.Empty(t, b.Order)
	assert.Equal(t, 0, b.InGrid())
}

// ---------------------------------------------------------------------------
// FillRunLength / BuildIndex
// ---------------------------------------------------------------------------

func TestBuildIndex_ReferenceScenario(t *testing.T) {
	t.Parallel()
	g := twoByTwo()
	y := []float64{1.5, 0.5, 0.5}
	x := []float64{0.5, 0.5, 1.5}

	b, start, count := BuildIndex(y, x, g)

	require.Equal(t, 3, b.InGrid())
	// count = [[1,0],[1,1]], start = [[0,_],[1,2]] row-major.
	assert.Equal(t, []uint32{1, 0, 1, 1}, count)
	assert.Equal(t, uint64(0), start[0])
	assert.Equal(t, uint64(1), start[2])
	assert.Equal(t, uint64(2), start[3])
	// Empty bin keeps the zero sentinel.
	assert.Equal(t, uint64(0), start[1])
}

func TestBuildIndex_RunsCoverSortedOrderExactly(t *testing.T) {
	t.Parallel()
	g := Grid{BinSize: 2.0, YMax: 8.0, XMin: 0.0, Rows: 4, Cols: 4}

	// A mix of duplicates, edge bins and two out-of-grid elements.
	y := []float64{7.5, 7.5, 0.5, 3.3, 3.3, 3.3, 6.0, 9.0, 7.5}
	x := []float64{0.5, 0.5, 7.5, 4.4, 4.4, 5.9, 6.0, 1.0, -1.0}

	b, start, count := BuildIndex(y, x, g)

	total := 0
	for _, c := range count {
		total += int(c)
	}
	require.Equal(t, b.InGrid(), total)

	// Walking bins in flat order, the non-empty runs must tile
	// [0, InGrid) with no gap and no overlap.
	next := uint64(0)
	for bn, c := range count {
		if c == 0 {
			continue
		}
		assert.Equal(t, next, start[bn], "bin %d start", bn)
		next += uint64(c)
	}
	assert.Equal(t, uint64(b.InGrid()), next)

	// Every element lands inside its own bin's run.
	pos := make([]int, len(b.Order)) // filtered index -> sorted position
	for p, o := range b.Order {
		pos[o] = p
	}
	for i, bn := range b.Bins {
		p := uint64(pos[i])
		if !assert.True(t, p >= start[bn] && p < start[bn]+uint64(count[bn]),
			"element %d at sorted pos %d outside run of bin %d", i, p, bn) {
			break
		}
	}
}

func TestFillRunLength_EmptyBatch(t *testing.T) {
	t.Parallel()
	start := make([]uint64, 4)
	count := make([]uint32, 4)
	FillRunLength(nil, nil, start, count)
	assert.Equal(t, []uint64{0, 0, 0, 0}, start)
	assert.Equal(t, []uint32{0, 0, 0, 0}, count)
}
