package gridindex

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Grid describes the geometry of a spatial index: square bins of
// BinSize laid out row-major from the top-left world coordinate
// (YMax, XMin). The row axis is inverted — larger y means a smaller row
// number — matching north-up rasters even when the axes are angles
// (zenith, scanline) rather than metres.
type Grid struct {
	BinSize float64 // world units per bin, > 0
	YMax    float64 // row-axis coordinate of the top edge
	XMin    float64 // column-axis coordinate of the left edge
	Rows    int
	Cols    int
}

// Validate checks the geometry is usable: a positive bin size and at
// least one bin per axis.
func (g Grid) Validate() error {
	if g.BinSize <= 0 || math.IsNaN(g.BinSize) || math.IsInf(g.BinSize, 0) {
		return fmt.Errorf("bin size %g must be a positive finite number", g.BinSize)
	}
	if g.Rows <= 0 || g.Cols <= 0 {
		return fmt.Errorf("grid of %dx%d bins must have at least one bin per axis", g.Rows, g.Cols)
	}
	return nil
}

// XMax returns the world coordinate of the grid's right edge.
func (g Grid) XMax() float64 { return g.XMin + float64(g.Cols)*g.BinSize }

// YMin returns the world coordinate of the grid's bottom edge.
func (g Grid) YMin() float64 { return g.YMax - float64(g.Rows)*g.BinSize }

// NumBins returns Rows*Cols, the length of the grid's flat start/count arrays.
func (g Grid) NumBins() int { return g.Rows * g.Cols }

// Idx returns the flat array index of bin (row, col).
func (g Grid) Idx(row, col int) int { return row*g.Cols + col }

// RowCol maps one world coordinate pair to its bin. The result may lie
// outside the grid; see Contains.
func (g Grid) RowCol(y, x float64) (row, col int) {
	row = int(math.Floor((g.YMax - y) / g.BinSize))
	col = int(math.Floor((x - g.XMin) / g.BinSize))
	return row, col
}

// Contains reports whether bin (row, col) lies on the grid.
func (g Grid) Contains(row, col int) bool {
	return row >= 0 && col >= 0 && row < g.Rows && col < g.Cols
}

// SnapToGrid returns the value nearest v that is a whole multiple of
// res away from origin, where origin is a coordinate already on the
// grid lattice. Exact half-bin offsets round to the even multiple.
func SnapToGrid(v, origin, res float64) float64 {
	return origin + math.RoundToEven((v-origin)/res)*res
}

// SnapExtent snaps all four edges of e to this grid's bin boundaries,
// each against its matching grid edge. Window arithmetic elsewhere in
// this package assumes snapped extents, so every entry point that takes
// a raw extent snaps first.
func (g Grid) SnapExtent(e Extent) Extent {
	return Extent{
		XMin: SnapToGrid(e.XMin, g.XMin, g.BinSize),
		XMax: SnapToGrid(e.XMax, g.XMax(), g.BinSize),
		YMin: SnapToGrid(e.YMin, g.YMin(), g.BinSize),
		YMax: SnapToGrid(e.YMax, g.YMax, g.BinSize),
	}
}

// Extent is a query window in world coordinates. Extents are comparable
// with ==; the spatial index keys its one-entry cache on the snapped
// extent value.
type Extent struct {
	XMin, XMax float64
	YMin, YMax float64
}

// Span returns the window size in whole bins of the given size, far
// edges rounded up.
func (e Extent) Span(binSize float64) (rows, cols int) {
	rows = int(math.Ceil((e.YMax - e.YMin) / binSize))
	cols = int(math.Ceil((e.XMax - e.XMin) / binSize))
	return rows, cols
}

// Bounds returns the tight extent of a coordinate batch, typically used
// to choose a tile extent before an append. Empty input yields the zero
// Extent.
func Bounds(y, x []float64) Extent {
	if len(y) == 0 || len(x) == 0 {
		return Extent{}
	}
	return Extent{
		XMin: floats.Min(x),
		XMax: floats.Max(x),
		YMin: floats.Min(y),
		YMax: floats.Max(y),
	}
}
