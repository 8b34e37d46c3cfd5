package gridindex

import "math"

// Region is a half-open rectangle of grid bins: rows [Row0,Row1),
// cols [Col0,Col1).
type Region struct {
	Row0, Row1 int
	Col0, Col1 int
}

// Rows returns the region's height in bins.
func (r Region) Rows() int { return r.Row1 - r.Row0 }

// Cols returns the region's width in bins.
func (r Region) Cols() int { return r.Col1 - r.Col0 }

// Empty reports whether the region has zero area.
func (r Region) Empty() bool { return r.Row1 <= r.Row0 || r.Col1 <= r.Col0 }

// SliceForExtent locates a snapped query window on the grid and returns
// the matching region pair: dst within a working block of
// (windowRows+2*margin, windowCols+2*margin) bins, and src within the
// grid's own arrays. The two regions always have equal dimensions.
//
// Margin that runs past a grid edge becomes padding: dst shrinks away
// from the affected side by the number of bins the grid could not
// supply, and the caller leaves those block cells at their zero value
// (empty bins). ok is false when the clamped source has zero area in
// either dimension — a window entirely off the grid is "nothing to
// copy", not an error.
//
// Offsets truncate and far edges round up, so a snapped window always
// covers whole bins.
func SliceForExtent(g Grid, margin int, e Extent) (dst, src Region, ok bool) {
	// Window position on the full grid before the margin is applied.
	xoff := int((e.XMin - g.XMin) / g.BinSize)
	yoff := int((g.YMax - e.YMax) / g.BinSize)
	xright := int(math.Ceil((e.XMax - g.XMin) / g.BinSize))
	ybottom := int(math.Ceil((g.YMax - e.YMin) / g.BinSize))
	xsize := xright - xoff
	ysize := ybottom - yoff

	xoffMargin := xoff - margin
	yoffMargin := yoff - margin
	xsizeMargin := xsize + 2*margin
	ysizeMargin := ysize + 2*margin

	// Clamp the margin-expanded window to what the grid can supply.
	xoffGrid := min(max(xoffMargin, 0), g.Cols)
	xrightGrid := min(xoffMargin+xsizeMargin, g.Cols)
	xsizeGrid := xrightGrid - xoffGrid

	yoffGrid := min(max(yoffMargin, 0), g.Rows)
	ybottomGrid := min(yoffMargin+ysizeMargin, g.Rows)
	ysizeGrid := ybottomGrid - yoffGrid

	// Bins on each side of the block the grid cannot supply.
	notLeft := xoffGrid - xoffMargin
	notRight := xsizeMargin - (notLeft + xsizeGrid)
	notTop := yoffGrid - yoffMargin
	notBottom := ysizeMargin - (notTop + ysizeGrid)

	if xsizeGrid <= 0 || ysizeGrid <= 0 {
		return Region{}, Region{}, false
	}

	dst = Region{
		Row0: notTop,
		Row1: ysizeMargin - notBottom,
		Col0: notLeft,
		Col1: xsizeMargin - notRight,
	}
	src = Region{
		Row0: yoffGrid,
		Row1: yoffGrid + ysizeGrid,
		Col0: xoffGrid,
		Col1: xoffGrid + xsizeGrid,
	}
	return dst, src, true
}

// CopyRegion copies the src region of one row-major grid array into the
// dst region of another. The regions must have equal dimensions, as
// produced by SliceForExtent.
func CopyRegion[T any](dstArr []T, dstCols int, dst Region, srcArr []T, srcCols int, src Region) {
	w := dst.Cols()
	for r := 0; r < dst.Rows(); r++ {
		d := (dst.Row0+r)*dstCols + dst.Col0
		s := (src.Row0+r)*srcCols + src.Col0
		copy(dstArr[d:d+w], srcArr[s:s+w])
	}
}
