// Package spatialindex owns the grid spatial index over a pulse
// dataset.
//
// Responsibilities: windowed read planning (snap, slice, convert) with
// a one-entry extent cache, point-level planning composed through the
// pulse level, incremental index construction as tiles of new pulses
// are appended, and occupancy statistics.
//
// The index holds only the persisted start/count arrays and geometry;
// record I/O belongs to the collaborating store, reached through the
// PointRangeSource interface. Instances are not safe for concurrent
// use: confine each to one goroutine or serialize access externally.
//
// Dependency rule: spatialindex may depend on gridindex, never on the
// store or database layers.
package spatialindex
