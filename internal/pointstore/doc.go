// Package pointstore owns pulse and point record storage and the
// dataset orchestration above it: appending tiles through the spatial
// index, fetching records for a query plan, writing refined values
// back, and persisting index snapshots so a dataset can be reopened
// without rebuilding.
//
// Records move through the package as parallel column slices
// (PulseColumns, PointColumns) rather than row structs, matching the
// columnar layout the index arithmetic works in. Storage backends
// implement the small Store interfaces; MemoryStore is the in-process
// reference backend, and pulsedb provides the SQLite-backed one.
//
// Dependency rule: pointstore may depend on gridindex and
// spatialindex, never on a concrete database package.
package pointstore
