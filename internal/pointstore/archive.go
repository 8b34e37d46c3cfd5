package pointstore

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// WriteArchive writes snap to w as a zstd-compressed gob stream, the
// portable on-disk form the export and import tooling exchanges.
// level is a zstd compression level (1 fastest, 3 default, up to 22).
func WriteArchive(w io.Writer, snap *IndexSnapshot, level int) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return fmt.Errorf("failed to create compressor: %w", err)
	}
	if err := gob.NewEncoder(enc).Encode(snap); err != nil {
		enc.Close()
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return enc.Close()
}

// ReadArchive reads a snapshot previously written by WriteArchive.
func ReadArchive(r io.Reader) (*IndexSnapshot, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create decompressor: %w", err)
	}
	defer dec.Close()

	var snap IndexSnapshot
	if err := gob.NewDecoder(dec).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}
