package gridindex

import (
	"math"
	"sort"
)

// Binning is the result of mapping a coordinate batch onto a grid.
//
// Valid has one entry per input element; false marks elements whose bin
// fell outside the grid. Those elements are excluded from every other
// field. Rows, Cols and Bins hold the surviving elements in input
// order; Order is the permutation that visits them in ascending bin
// order, ties keeping input order, so results are deterministic.
//
// A caller reordering parallel record columns must apply Valid first
// (drop excluded elements) and then Order, in that sequence.
type Binning struct {
	Valid []bool
	Rows  []uint32
	Cols  []uint32
	Bins  []uint64
	Order []int
}

// InGrid returns the number of elements that landed on the grid.
func (b *Binning) InGrid() int { return len(b.Bins) }

// Bin maps parallel row-axis (y) and column-axis (x) coordinates onto
// g: row = floor((YMax-y)/BinSize), col = floor((x-XMin)/BinSize), with
// the combined bin number row*Cols+col imposing a total order over the
// grid. Out-of-grid elements are excluded via Valid; exclusion is
// policy, not an error.
func Bin(y, x []float64, g Grid) *Binning {
	n := len(y)
	b := &Binning{
		Valid: make([]bool, n),
		Rows:  make([]uint32, 0, n),
		Cols:  make([]uint32, 0, n),
		Bins:  make([]uint64, 0, n),
	}
	for i := 0; i < n; i++ {
		row := int(math.Floor((g.YMax - y[i]) / g.BinSize))
		col := int(math.Floor((x[i] - g.XMin) / g.BinSize))
		if row < 0 || col < 0 || row >= g.Rows || col >= g.Cols {
			continue
		}
		b.Valid[i] = true
		b.Rows = append(b.Rows, uint32(row))
		b.Cols = append(b.Cols, uint32(col))
		b.Bins = append(b.Bins, uint64(row)*uint64(g.Cols)+uint64(col))
	}
	b.Order = make([]int, len(b.Bins))
	for i := range b.Order {
		b.Order[i] = i
	}
	sort.Slice(b.Order, func(i, j int) bool {
		bi, bj := b.Bins[b.Order[i]], b.Bins[b.Order[j]]
		if bi != bj {
			return bi < bj
		}
		return b.Order[i] < b.Order[j]
	})
	return b
}
