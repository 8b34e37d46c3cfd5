// Package gridindex owns the core spatial-index arithmetic.
//
// Responsibilities: binning coordinates onto a regular grid, building
// the per-bin run-length (start/count) index, converting that sparse
// index into dense read plans (selection mask + ragged index + validity
// mask), and slicing snapped query windows against the full grid with
// margin and edge clipping.
//
// Everything here is a pure in-memory array transformation on flat,
// row-major slices. No I/O, no locks, no knowledge of any on-disk
// format: collaborators feed coordinate and index arrays in and carry
// the resulting masks and plans back to their own storage layer.
//
// Dependency rule: gridindex depends on nothing else in this module.
package gridindex
