package pointstore

import (
	"fmt"

	"github.com/banshee-data/pulsegrid/internal/spatialindex"
)

// PulseColumns carries a batch of pulse records as parallel column
// slices. Every populated column has one entry per pulse. A producer
// may leave columns it has no data for as nil; stores zero-fill them
// on append so reads always return fully populated batches.
//
// ID and PointStart are assigned by the dataset during an append and
// should be left nil by callers.
type PulseColumns struct {
	ID          []uint64  // record identity, dense in write order
	Timestamp   []uint64  // acquisition time in nanoseconds
	XIdx        []float64 // cartesian index coordinates
	YIdx        []float64
	Azimuth     []float64 // spherical index coordinates
	Zenith      []float64
	Scanline    []uint32 // scan index coordinates
	ScanlineIdx []uint16
	PointStart  []uint64 // first point record of this pulse
	PointCount  []uint32 // number of point records (returns)
}

// Len returns the batch length, the longest populated column.
func (p *PulseColumns) Len() int {
	n := 0
	for _, l := range []int{
		len(p.ID), len(p.Timestamp),
		len(p.XIdx), len(p.YIdx),
		len(p.Azimuth), len(p.Zenith),
		len(p.Scanline), len(p.ScanlineIdx),
		len(p.PointStart), len(p.PointCount),
	} {
		if l > n {
			n = l
		}
	}
	return n
}

// Validate verifies every populated column matches the batch length.
func (p *PulseColumns) Validate() error {
	n := p.Len()
	cols := map[string]int{
		"ID": len(p.ID), "Timestamp": len(p.Timestamp),
		"XIdx": len(p.XIdx), "YIdx": len(p.YIdx),
		"Azimuth": len(p.Azimuth), "Zenith": len(p.Zenith),
		"Scanline": len(p.Scanline), "ScanlineIdx": len(p.ScanlineIdx),
		"PointStart": len(p.PointStart), "PointCount": len(p.PointCount),
	}
	for name, l := range cols {
		if l != 0 && l != n {
			return fmt.Errorf("pulse column %s has %d entries, batch has %d", name, l, n)
		}
	}
	return nil
}

// Fill zero-fills any nil column to length n.
func (p *PulseColumns) Fill(n int) {
	if p.ID == nil {
		p.ID = make([]uint64, n)
	}
	if p.Timestamp == nil {
		p.Timestamp = make([]uint64, n)
	}
	if p.XIdx == nil {
		p.XIdx = make([]float64, n)
	}
	if p.YIdx == nil {
		p.YIdx = make([]float64, n)
	}
	if p.Azimuth == nil {
		p.Azimuth = make([]float64, n)
	}
	if p.Zenith == nil {
		p.Zenith = make([]float64, n)
	}
	if p.Scanline == nil {
		p.Scanline = make([]uint32, n)
	}
	if p.ScanlineIdx == nil {
		p.ScanlineIdx = make([]uint16, n)
	}
	if p.PointStart == nil {
		p.PointStart = make([]uint64, n)
	}
	if p.PointCount == nil {
		p.PointCount = make([]uint32, n)
	}
}

// Coords returns the row and column coordinate slices the given index
// kind bins on. Scan coordinates are integer columns and are widened
// into fresh float64 slices.
func (p *PulseColumns) Coords(kind spatialindex.IndexKind) (y, x []float64, err error) {
	switch kind {
	case spatialindex.KindCartesian:
		return p.YIdx, p.XIdx, nil
	case spatialindex.KindSpherical:
		return p.Zenith, p.Azimuth, nil
	case spatialindex.KindScan:
		y = make([]float64, len(p.Scanline))
		for i, v := range p.Scanline {
			y[i] = float64(v)
		}
		x = make([]float64, len(p.ScanlineIdx))
		for i, v := range p.ScanlineIdx {
			x[i] = float64(v)
		}
		return y, x, nil
	default:
		_, _, err = kind.CoordColumns()
		return nil, nil, err
	}
}

// pick gathers the rows named by idx into a new batch, in idx order.
// All columns must be populated (see Fill).
func (p *PulseColumns) pick(idx []int) *PulseColumns {
	return &PulseColumns{
		ID:          pickRows(p.ID, idx),
		Timestamp:   pickRows(p.Timestamp, idx),
		XIdx:        pickRows(p.XIdx, idx),
		YIdx:        pickRows(p.YIdx, idx),
		Azimuth:     pickRows(p.Azimuth, idx),
		Zenith:      pickRows(p.Zenith, idx),
		Scanline:    pickRows(p.Scanline, idx),
		ScanlineIdx: pickRows(p.ScanlineIdx, idx),
		PointStart:  pickRows(p.PointStart, idx),
		PointCount:  pickRows(p.PointCount, idx),
	}
}

// PointColumns carries a batch of point (return) records as parallel
// column slices. Points are stored pulse-major: each pulse's returns
// are contiguous, located by the pulse's PointStart and PointCount.
type PointColumns struct {
	X              []float64
	Y              []float64
	Z              []float64
	Intensity      []uint16
	Classification []uint8
	ReturnNumber   []uint8
}

// Len returns the batch length, the longest populated column.
func (p *PointColumns) Len() int {
	n := 0
	for _, l := range []int{
		len(p.X), len(p.Y), len(p.Z),
		len(p.Intensity), len(p.Classification), len(p.ReturnNumber),
	} {
		if l > n {
			n = l
		}
	}
	return n
}

func (p *PointColumns) Validate() error {
	n := p.Len()
	cols := map[string]int{
		"X": len(p.X), "Y": len(p.Y), "Z": len(p.Z),
		"Intensity":      len(p.Intensity),
		"Classification": len(p.Classification),
		"ReturnNumber":   len(p.ReturnNumber),
	}
	for name, l := range cols {
		if l != 0 && l != n {
			return fmt.Errorf("point column %s has %d entries, batch has %d", name, l, n)
		}
	}
	return nil
}

// Complete verifies every column is populated to the batch length, the
// shape record updates require: an update overwrites whole records, so
// a missing column would zero live data.
func (p *PointColumns) Complete() error {
	n := p.Len()
	if len(p.X) != n || len(p.Y) != n || len(p.Z) != n ||
		len(p.Intensity) != n || len(p.Classification) != n || len(p.ReturnNumber) != n {
		return fmt.Errorf("update batch must populate every point column")
	}
	return nil
}

func (p *PointColumns) Fill(n int) {
	if p.X == nil {
		p.X = make([]float64, n)
	}
	if p.Y == nil {
		p.Y = make([]float64, n)
	}
	if p.Z == nil {
		p.Z = make([]float64, n)
	}
	if p.Intensity == nil {
		p.Intensity = make([]uint16, n)
	}
	if p.Classification == nil {
		p.Classification = make([]uint8, n)
	}
	if p.ReturnNumber == nil {
		p.ReturnNumber = make([]uint8, n)
	}
}

// pickGroups gathers whole per-pulse groups in idx order. off holds
// the group offsets in the source batch (one per pulse, from
// groupOffsets), count the group lengths, and total the summed length
// of the picked groups.
func (p *PointColumns) pickGroups(off []int, count []uint32, idx []int, total int) *PointColumns {
	return &PointColumns{
		X:              pickGroupRows(p.X, off, count, idx, total),
		Y:              pickGroupRows(p.Y, off, count, idx, total),
		Z:              pickGroupRows(p.Z, off, count, idx, total),
		Intensity:      pickGroupRows(p.Intensity, off, count, idx, total),
		Classification: pickGroupRows(p.Classification, off, count, idx, total),
		ReturnNumber:   pickGroupRows(p.ReturnNumber, off, count, idx, total),
	}
}

func pickRows[T any](src []T, idx []int) []T {
	out := make([]T, len(idx))
	for k, i := range idx {
		out[k] = src[i]
	}
	return out
}

func pickGroupRows[T any](src []T, off []int, count []uint32, idx []int, total int) []T {
	out := make([]T, 0, total)
	for _, i := range idx {
		out = append(out, src[off[i]:off[i]+int(count[i])]...)
	}
	return out
}

// groupOffsets returns the prefix sums of count: element i is the
// offset of pulse i's point group in a pulse-major point batch, and
// the final element is the total point count.
func groupOffsets(count []uint32) []int {
	off := make([]int, len(count)+1)
	for i, c := range count {
		off[i+1] = off[i] + int(c)
	}
	return off
}
