package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Tuning holds the operational knobs for indexing and querying: grid
// resolution, ingest block shape, store read parallelism, archive
// compression, and snapshot cadence. All fields are optional pointers
// so a partial JSON file overrides only what it names.
type Tuning struct {
	// Grid params
	BinSize *float64 `json:"bin_size,omitempty"`

	// Ingest params
	BlockSize   *int `json:"block_size,omitempty"`   // bins per tile edge
	BlockMargin *int `json:"block_margin,omitempty"` // overlap bins per side

	// Store params
	ReadConcurrency *int `json:"read_concurrency,omitempty"`

	// Snapshot params
	ArchiveCompressionLevel *int    `json:"archive_compression_level,omitempty"` // zstd level 1..22
	SnapshotInterval        *string `json:"snapshot_interval,omitempty"`         // duration string like "60s"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultTuning returns a Tuning with every field set to its default.
func DefaultTuning() *Tuning {
	return &Tuning{
		BinSize:                 ptrFloat64(1.0),
		BlockSize:               ptrInt(200),
		BlockMargin:             ptrInt(0),
		ReadConcurrency:         ptrInt(4),
		ArchiveCompressionLevel: ptrInt(3),
		SnapshotInterval:        ptrString("60s"),
	}
}

// LoadTuning loads a Tuning from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file stay nil, so partial configs are
// safe; the Get* methods fall back to defaults for them.
func LoadTuning(path string) (*Tuning, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Tuning{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Apply fills every nil field of t from defaults and returns t.
func (t *Tuning) Apply(defaults *Tuning) *Tuning {
	if t.BinSize == nil {
		t.BinSize = defaults.BinSize
	}
	if t.BlockSize == nil {
		t.BlockSize = defaults.BlockSize
	}
	if t.BlockMargin == nil {
		t.BlockMargin = defaults.BlockMargin
	}
	if t.ReadConcurrency == nil {
		t.ReadConcurrency = defaults.ReadConcurrency
	}
	if t.ArchiveCompressionLevel == nil {
		t.ArchiveCompressionLevel = defaults.ArchiveCompressionLevel
	}
	if t.SnapshotInterval == nil {
		t.SnapshotInterval = defaults.SnapshotInterval
	}
	return t
}

// Validate checks that the configuration values are valid.
func (t *Tuning) Validate() error {
	if t.BinSize != nil && *t.BinSize <= 0 {
		return fmt.Errorf("bin_size must be positive, got %g", *t.BinSize)
	}

	if t.BlockSize != nil && *t.BlockSize <= 0 {
		return fmt.Errorf("block_size must be positive, got %d", *t.BlockSize)
	}

	if t.BlockMargin != nil && *t.BlockMargin < 0 {
		return fmt.Errorf("block_margin must be non-negative, got %d", *t.BlockMargin)
	}

	if t.ReadConcurrency != nil && *t.ReadConcurrency <= 0 {
		return fmt.Errorf("read_concurrency must be positive, got %d", *t.ReadConcurrency)
	}

	if t.ArchiveCompressionLevel != nil {
		if *t.ArchiveCompressionLevel < 1 || *t.ArchiveCompressionLevel > 22 {
			return fmt.Errorf("archive_compression_level must be between 1 and 22, got %d", *t.ArchiveCompressionLevel)
		}
	}

	// Validate SnapshotInterval can be parsed if set
	if t.SnapshotInterval != nil && *t.SnapshotInterval != "" {
		if _, err := time.ParseDuration(*t.SnapshotInterval); err != nil {
			return fmt.Errorf("invalid snapshot_interval '%s': %w", *t.SnapshotInterval, err)
		}
	}

	return nil
}

// GetBinSize returns the bin_size value or the default.
func (t *Tuning) GetBinSize() float64 {
	if t.BinSize == nil {
		return 1.0 // default
	}
	return *t.BinSize
}

// GetBlockSize returns the block_size value or the default.
func (t *Tuning) GetBlockSize() int {
	if t.BlockSize == nil {
		return 200 // default
	}
	return *t.BlockSize
}

// GetBlockMargin returns the block_margin value or the default.
func (t *Tuning) GetBlockMargin() int {
	if t.BlockMargin == nil {
		return 0 // default
	}
	return *t.BlockMargin
}

// GetReadConcurrency returns the read_concurrency value or the default.
func (t *Tuning) GetReadConcurrency() int {
	if t.ReadConcurrency == nil {
		return 4 // default
	}
	return *t.ReadConcurrency
}

// GetArchiveCompressionLevel returns the archive_compression_level value or the default.
func (t *Tuning) GetArchiveCompressionLevel() int {
	if t.ArchiveCompressionLevel == nil {
		return 3 // default
	}
	return *t.ArchiveCompressionLevel
}

// GetSnapshotInterval parses and returns the SnapshotInterval as a time.Duration.
func (t *Tuning) GetSnapshotInterval() time.Duration {
	if t.SnapshotInterval == nil || *t.SnapshotInterval == "" {
		return 60 * time.Second // default
	}
	d, err := time.ParseDuration(*t.SnapshotInterval)
	if err != nil {
		return 60 * time.Second // default on parse error
	}
	return d
}
