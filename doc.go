// Package pulsegrid indexes LiDAR pulse records on a regular spatial
// grid so that arbitrarily large point clouds can be read and written
// window by window. Each grid bin stores a run-length entry (start,
// count) into a bin-sorted record array; a windowed query slices the
// bin arrays, converts them to a read plan, and hands the plan to a
// record store, which fetches only the selected records.
//
// The package tree splits along that seam:
//
//   - internal/gridindex holds the array core: binning, run-length
//     construction, window slicing, and plan conversion.
//   - internal/spatialindex wraps the core into a persistent index with
//     kinds (cartesian, spherical, scan), occupancy stats, and caching.
//   - internal/pointstore orchestrates datasets over a record store and
//     snapshots the index; internal/pulsedb is the SQLite store.
//
// This root package re-exports the public surface of those internal
// packages, so importers depend on github.com/banshee-data/pulsegrid
// alone.
package pulsegrid
