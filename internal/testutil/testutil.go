// Package testutil provides shared test fixtures for grid index tests.
//
// This package centralises common test grids and selection masks to
// reduce code duplication across test files.
package testutil

import "github.com/banshee-data/pulsegrid/internal/gridindex"

// Grid2x2 returns a two-by-two grid of 2-unit bins covering x in
// [0, 4) and y in (0, 4].
func Grid2x2() gridindex.Grid {
	return gridindex.Grid{BinSize: 2.0, YMax: 4.0, XMin: 0.0, Rows: 2, Cols: 2}
}

// SquareGrid returns an n-by-n grid of unit bins anchored at the origin.
func SquareGrid(n int) gridindex.Grid {
	return gridindex.Grid{BinSize: 1.0, YMax: float64(n), XMin: 0.0, Rows: n, Cols: n}
}

// BinCenters returns the x and y centre coordinates of every bin of g
// in row-major order. Placing one pulse at each centre fills the grid
// exactly once.
func BinCenters(g gridindex.Grid) (x, y []float64) {
	x = make([]float64, 0, g.NumBins())
	y = make([]float64, 0, g.NumBins())
	for r := 0; r < g.Rows; r++ {
		cy := g.YMax - (float64(r)+0.5)*g.BinSize
		for c := 0; c < g.Cols; c++ {
			x = append(x, g.XMin+(float64(c)+0.5)*g.BinSize)
			y = append(y, cy)
		}
	}
	return x, y
}

// AllSelected returns a selection mask covering all n records.
func AllSelected(n int) []bool {
	sel := make([]bool, n)
	for i := range sel {
		sel[i] = true
	}
	return sel
}

// Mask returns an n-record selection mask with the given indexes set.
func Mask(n int, idx ...int) []bool {
	sel := make([]bool, n)
	for _, i := range idx {
		sel[i] = true
	}
	return sel
}
