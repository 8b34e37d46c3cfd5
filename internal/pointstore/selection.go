package pointstore

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// Run is a half-open [Start, End) range of record positions.
type Run struct {
	Start, End uint32
}

// Len returns the number of records in the run.
func (r Run) Len() int { return int(r.End - r.Start) }

// SelectionRuns collapses a selection mask into sorted, disjoint runs
// of selected record positions. Plans select whole bin runs, so masks
// are long with dense clusters; backends turn each run into one range
// scan instead of touching records one at a time.
func SelectionRuns(sel []bool) []Run {
	rb := roaring.New()
	for i, s := range sel {
		if s {
			rb.Add(uint32(i))
		}
	}

	runs := make([]Run, 0, 8)
	it := rb.Iterator()
	for it.HasNext() {
		v := it.Next()
		if n := len(runs); n > 0 && runs[n-1].End == v {
			runs[n-1].End = v + 1
		} else {
			runs = append(runs, Run{Start: v, End: v + 1})
		}
	}
	return runs
}

// RunOffsets returns the prefix sums of the run lengths: element i is
// the position of run i's first record within the selected subset.
func RunOffsets(runs []Run) []int {
	off := make([]int, len(runs)+1)
	for i, r := range runs {
		off[i+1] = off[i] + r.Len()
	}
	return off
}
