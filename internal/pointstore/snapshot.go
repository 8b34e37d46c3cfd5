package pointstore

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/banshee-data/pulsegrid/internal/gridindex"
	"github.com/banshee-data/pulsegrid/internal/spatialindex"
)

// IndexSnapshot is a point-in-time copy of a dataset's spatial index:
// the grid geometry, the compressed bin arrays, and the record counts
// the arrays were built against. A dataset restored from a snapshot
// serves queries without rebinning a single pulse.
type IndexSnapshot struct {
	SnapshotID     int64
	TakenUnixNanos int64
	Reason         string
	Kind           spatialindex.IndexKind
	BinSize        float64
	XMin           float64
	YMax           float64
	Rows           int
	Cols           int
	PulseCount     uint64
	PointCount     uint64
	IndexBlob      []byte // gob+gzip encoded bin arrays
}

// indexArrays is the gob payload inside IndexBlob.
type indexArrays struct {
	Start []uint64
	Count []uint32
}

// serializeIndex compresses the bin arrays using gob encoding and gzip
// compression.
func serializeIndex(start []uint64, count []uint32) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := gob.NewEncoder(gz)
	if err := enc.Encode(indexArrays{Start: start, Count: count}); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// deserializeIndex decompresses and decodes bin arrays from a gob+gzip
// blob.
func deserializeIndex(blob []byte) ([]uint64, []uint32, error) {
	if len(blob) == 0 {
		return nil, nil, fmt.Errorf("empty index blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var arrs indexArrays
	dec := gob.NewDecoder(gz)
	if err := dec.Decode(&arrs); err != nil {
		return nil, nil, fmt.Errorf("failed to decode index arrays: %w", err)
	}
	return arrs.Start, arrs.Count, nil
}

// SnapshotIndex captures ix into a storable snapshot covering the
// given record counts.
func SnapshotIndex(ix *spatialindex.Index, pulses, points uint64, reason string) (*IndexSnapshot, error) {
	blob, err := serializeIndex(ix.Start(), ix.Count())
	if err != nil {
		return nil, err
	}
	g := ix.Grid()
	return &IndexSnapshot{
		TakenUnixNanos: time.Now().UnixNano(),
		Reason:         reason,
		Kind:           ix.Kind(),
		BinSize:        g.BinSize,
		XMin:           g.XMin,
		YMax:           g.YMax,
		Rows:           g.Rows,
		Cols:           g.Cols,
		PulseCount:     pulses,
		PointCount:     points,
		IndexBlob:      blob,
	}, nil
}

// RestoreIndex rebuilds the in-memory index from a snapshot.
func RestoreIndex(snap *IndexSnapshot) (*spatialindex.Index, error) {
	start, count, err := deserializeIndex(snap.IndexBlob)
	if err != nil {
		return nil, err
	}
	g := gridindex.Grid{
		BinSize: snap.BinSize,
		XMin:    snap.XMin,
		YMax:    snap.YMax,
		Rows:    snap.Rows,
		Cols:    snap.Cols,
	}
	return spatialindex.Load(g, snap.Kind, start, count)
}
