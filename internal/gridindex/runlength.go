package gridindex

// FillRunLength fills the run-length (start/count) index from a binning.
// bins holds combined bin numbers, order the permutation sorting them;
// start and count must be pre-zeroed and sized to the grid, row-major.
//
// Walking elements once in sorted order: the first element seen for a
// bin (count still zero) records the current sorted position as the
// bin's start; every element increments its count. The single pass is
// correct only because elements arrive sorted — one bin's elements form
// exactly one contiguous run. With row-major storage the combined bin
// number is the slice index, so no row/col decode is needed, and no
// bounds are re-checked here: Bin already excluded everything off-grid.
//
// Bins never touched keep start == 0 and count == 0. The zero start is
// a sentinel, not a position: readers must consult count before start.
func FillRunLength(bins []uint64, order []int, start []uint64, count []uint32) {
	for i, o := range order {
		bn := bins[o]
		if count[bn] == 0 {
			start[bn] = uint64(i)
		}
		count[bn]++
	}
}

// BuildIndex bins a coordinate batch and builds its run-length index in
// one call, returning the binning plus freshly allocated start/count
// arrays sized to g.
func BuildIndex(y, x []float64, g Grid) (*Binning, []uint64, []uint32) {
	b := Bin(y, x, g)
	start := make([]uint64, g.NumBins())
	count := make([]uint32, g.NumBins())
	FillRunLength(b.Bins, b.Order, start, count)
	return b, start, count
}
