package gridindex

// RefineMask narrows an existing selection in place: for each true
// entry of sel, in ascending order, the next entry of keep decides
// whether it stays selected. keep therefore has one entry per selected
// record, in subset order. Drivers use this to drop fetched records
// again (outside the exact window, filtered by attribute) before a
// write-back.
func RefineMask(sel []bool, keep []bool) {
	k := 0
	for i, s := range sel {
		if s {
			sel[i] = keep[k]
			k++
		}
	}
}

// Gather arranges a fetched subset buffer into the plan's slot-major
// ragged form. flat holds the selected records in ascending record
// order, exactly as a masked read returns them; ragged must be sized
// len(p.Index) and receives one value per (slot, bin...) cell. Padding
// cells are left untouched, so a zeroed ragged buffer reads as zero
// there.
func Gather[T any](p *ReadPlan, flat []T, ragged []T) {
	for i, inv := range p.Invalid {
		if !inv {
			ragged[i] = flat[p.Index[i]]
		}
	}
}

// Flatten scatters the valid cells of a slot-major ragged buffer back
// into subset record order, the write-side inverse of Gather. ragged
// holds one value per (slot, bin...) cell of the plan; flat receives
// the value of every non-padding cell at the subset position the plan
// recorded for it. flat must be sized to the selected subset. Padding
// cells are skipped, so untouched entries of flat keep their prior
// values.
func Flatten[T any](p *ReadPlan, ragged []T, flat []T) {
	for i, inv := range p.Invalid {
		if !inv {
			flat[p.Index[i]] = ragged[i]
		}
	}
}
