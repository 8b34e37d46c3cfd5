package spatialindex

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// OccupancyStats summarizes how pulses are spread over the bins of an
// index.
type OccupancyStats struct {
	Bins       int    // total bins in the grid
	Occupied   int    // bins holding at least one pulse
	Pulses     uint64 // total indexed pulses
	MaxPerBin  uint32
	MeanPerBin float64 // mean over occupied bins
	P50PerBin  float64 // median over occupied bins
	P95PerBin  float64
}

// Stats computes occupancy statistics from the persisted count array.
// Mean and quantiles consider occupied bins only; an empty index
// returns the zero value with Bins set.
func (ix *Index) Stats() OccupancyStats {
	s := OccupancyStats{Bins: ix.grid.NumBins()}

	occupied := make([]float64, 0, 256)
	for _, c := range ix.count {
		if c == 0 {
			continue
		}
		s.Occupied++
		s.Pulses += uint64(c)
		if c > s.MaxPerBin {
			s.MaxPerBin = c
		}
		occupied = append(occupied, float64(c))
	}
	if len(occupied) == 0 {
		return s
	}

	sort.Float64s(occupied)
	s.MeanPerBin = stat.Mean(occupied, nil)
	s.P50PerBin = stat.Quantile(0.5, stat.Empirical, occupied, nil)
	s.P95PerBin = stat.Quantile(0.95, stat.Empirical, occupied, nil)
	return s
}
