package pulsegrid

import (
	"github.com/banshee-data/pulsegrid/internal/config"
	"github.com/banshee-data/pulsegrid/internal/gridindex"
	"github.com/banshee-data/pulsegrid/internal/pointstore"
	"github.com/banshee-data/pulsegrid/internal/pulsedb"
	"github.com/banshee-data/pulsegrid/internal/spatialindex"
)

// ── Grid core ────────────────────────────────────────────────────────

type Grid = gridindex.Grid
type Extent = gridindex.Extent
type ReadPlan = gridindex.ReadPlan
type Binning = gridindex.Binning

var ErrIndexRank = gridindex.ErrIndexRank

var Bin = gridindex.Bin
var BuildIndex = gridindex.BuildIndex
var Convert = gridindex.Convert
var RefineMask = gridindex.RefineMask
var SnapToGrid = gridindex.SnapToGrid
var Bounds = gridindex.Bounds

// Gather arranges a masked read's flat output into the plan's ragged
// layout. See gridindex.Gather.
func Gather[T any](p *ReadPlan, flat, ragged []T) {
	gridindex.Gather(p, flat, ragged)
}

// Flatten scatters valid ragged cells back into a flat buffer in
// record order. See gridindex.Flatten.
func Flatten[T any](p *ReadPlan, ragged, flat []T) {
	gridindex.Flatten(p, ragged, flat)
}

// ── Spatial index ────────────────────────────────────────────────────

type Index = spatialindex.Index
type IndexKind = spatialindex.IndexKind
type OccupancyStats = spatialindex.OccupancyStats
type PointRangeSource = spatialindex.PointRangeSource
type LogWriters = spatialindex.LogWriters

const (
	KindCartesian   = spatialindex.KindCartesian
	KindSpherical   = spatialindex.KindSpherical
	KindCylindrical = spatialindex.KindCylindrical
	KindPolar       = spatialindex.KindPolar
	KindScan        = spatialindex.KindScan
)

var NewIndex = spatialindex.New
var LoadIndex = spatialindex.Load
var ParseKind = spatialindex.ParseKind
var SetLogWriters = spatialindex.SetLogWriters

// ── Datasets and stores ──────────────────────────────────────────────

type Dataset = pointstore.Dataset
type TileWrite = pointstore.TileWrite
type PulseColumns = pointstore.PulseColumns
type PointColumns = pointstore.PointColumns
type Store = pointstore.Store
type PulseStore = pointstore.PulseStore
type PointStore = pointstore.PointStore
type SnapshotStore = pointstore.SnapshotStore
type MemoryStore = pointstore.MemoryStore
type IndexSnapshot = pointstore.IndexSnapshot
type Run = pointstore.Run
type Persister = pointstore.Persister
type SnapshotFlusher = pointstore.SnapshotFlusher
type SnapshotFlusherConfig = pointstore.SnapshotFlusherConfig

var ErrNoSnapshot = pointstore.ErrNoSnapshot
var ErrStaleSnapshot = pointstore.ErrStaleSnapshot

var NewDataset = pointstore.New
var RestoreDataset = pointstore.Restore
var NewMemoryStore = pointstore.NewMemoryStore
var NewSnapshotFlusher = pointstore.NewSnapshotFlusher
var SnapshotIndex = pointstore.SnapshotIndex
var RestoreIndex = pointstore.RestoreIndex
var WriteArchive = pointstore.WriteArchive
var ReadArchive = pointstore.ReadArchive
var SelectionRuns = pointstore.SelectionRuns

// ── SQLite persistence ───────────────────────────────────────────────

type PulseDB = pulsedb.DB
type DatasetInfo = pulsedb.Dataset
type DatasetStore = pulsedb.DatasetStore

var ErrDatasetNotFound = pulsedb.ErrDatasetNotFound

var OpenPulseDB = pulsedb.Open
var OpenPulseDBForMigrations = pulsedb.OpenForMigrations

// ── Configuration ────────────────────────────────────────────────────

type Tuning = config.Tuning

var DefaultTuning = config.DefaultTuning
var LoadTuning = config.LoadTuning
