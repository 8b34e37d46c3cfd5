package gridindex

import (
	"errors"
	"fmt"
)

// ErrIndexRank is returned by Convert when the index shape has a rank
// other than 1 or 2. This is a programming error in the calling layer,
// not a data condition.
var ErrIndexRank = errors.New("only 1 or 2 dimensional indexing is supported")

// ReadPlan is the dense read structure for one query: which records to
// fetch out of the backing dataset, and how to reshape the fetched
// buffer into per-bin ragged form.
//
// Mask has one entry per record of the full dataset. Index and Invalid
// are flat slot-major arrays of logical shape (MaxCount, Dims...):
// Index[slot*binsLen+bin] is the position of that bin's slot-th record
// within the fetched (selected) subset, and Invalid is true where the
// slot is padding (slot >= count for that bin). Padding cells keep
// Index == 0; Invalid is the authority on which cells carry data.
type ReadPlan struct {
	Mask     []bool
	Index    []uint32
	Invalid  []bool
	MaxCount int
	Dims     []int
}

// BinsLen returns the number of bins in one ragged slot layer, the
// product of Dims.
func (p *ReadPlan) BinsLen() int {
	n := 1
	for _, d := range p.Dims {
		n *= d
	}
	return n
}

// At returns the subset position recorded for (slot, bin) and whether
// that cell holds real data.
func (p *ReadPlan) At(slot, bin int) (uint32, bool) {
	i := slot*p.BinsLen() + bin
	return p.Index[i], !p.Invalid[i]
}

// Selected returns the number of records the plan's mask selects.
func (p *ReadPlan) Selected() int {
	n := 0
	for _, s := range p.Mask {
		if s {
			n++
		}
	}
	return n
}

// Convert turns a sparse start/count index into a ReadPlan against a
// dataset of datasetSize records. dims is the logical shape of the
// index: [rows, cols] for a grid tile, or [n] for a per-pulse index
// (pulse to points, pulse to waveforms). Any other rank fails with
// ErrIndexRank. An index with no bins, or all counts zero, produces a
// plan with an all-false Mask and empty ragged arrays — not an error.
//
// Two explicit passes, never fused: slot numbering must follow
// ascending absolute dataset order, while storage follows bin order.
func Convert(start []uint64, count []uint32, dims []int, datasetSize int) (*ReadPlan, error) {
	switch len(dims) {
	case 1, 2:
	default:
		return nil, fmt.Errorf("%w: got rank %d", ErrIndexRank, len(dims))
	}

	binsLen := 1
	for _, d := range dims {
		binsLen *= d
	}

	maxCount := 0
	for _, c := range count {
		if int(c) > maxCount {
			maxCount = int(c)
		}
	}

	p := &ReadPlan{
		Mask:     make([]bool, datasetSize),
		Index:    make([]uint32, maxCount*binsLen),
		Invalid:  make([]bool, maxCount*binsLen),
		MaxCount: maxCount,
		Dims:     append([]int(nil), dims...),
	}
	for i := range p.Invalid {
		p.Invalid[i] = true
	}

	// Pass one: mark every absolute index in every bin's run, and
	// record which bin each one belongs to. The absolute-position to
	// bin mapping is lost once the runs are flattened into the mask,
	// so it has to be captured here.
	binOf := make([]int, datasetSize)
	for bn := 0; bn < binsLen; bn++ {
		s := start[bn]
		for i := uint32(0); i < count[bn]; i++ {
			ndx := s + uint64(i)
			p.Mask[ndx] = true
			binOf[ndx] = bn
		}
	}

	// Pass two: walk the mask in ascending absolute order. counter
	// numbers the selected subset; slot tracks each bin's next free
	// ragged layer.
	slot := make([]uint32, binsLen)
	counter := uint32(0)
	for j := 0; j < datasetSize; j++ {
		if !p.Mask[j] {
			continue
		}
		bn := binOf[j]
		cell := int(slot[bn])*binsLen + bn
		p.Index[cell] = counter
		p.Invalid[cell] = false
		slot[bn]++
		counter++
	}

	return p, nil
}
