package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultTuning(t *testing.T) {
	cfg := DefaultTuning()

	// Test that defaults are set via pointers
	if cfg.BinSize == nil || *cfg.BinSize != 1.0 {
		t.Errorf("Expected BinSize 1.0, got %v", cfg.BinSize)
	}
	if cfg.BlockSize == nil || *cfg.BlockSize != 200 {
		t.Errorf("Expected BlockSize 200, got %v", cfg.BlockSize)
	}
	if cfg.BlockMargin == nil || *cfg.BlockMargin != 0 {
		t.Errorf("Expected BlockMargin 0, got %v", cfg.BlockMargin)
	}
	if cfg.ReadConcurrency == nil || *cfg.ReadConcurrency != 4 {
		t.Errorf("Expected ReadConcurrency 4, got %v", cfg.ReadConcurrency)
	}
	if cfg.ArchiveCompressionLevel == nil || *cfg.ArchiveCompressionLevel != 3 {
		t.Errorf("Expected ArchiveCompressionLevel 3, got %v", cfg.ArchiveCompressionLevel)
	}
	if cfg.SnapshotInterval == nil || *cfg.SnapshotInterval != "60s" {
		t.Errorf("Expected SnapshotInterval '60s', got %v", cfg.SnapshotInterval)
	}

	// Test getter methods
	if cfg.GetBinSize() != 1.0 {
		t.Errorf("GetBinSize() = %f, want 1.0", cfg.GetBinSize())
	}
	if cfg.GetBlockSize() != 200 {
		t.Errorf("GetBlockSize() = %d, want 200", cfg.GetBlockSize())
	}
	if cfg.GetReadConcurrency() != 4 {
		t.Errorf("GetReadConcurrency() = %d, want 4", cfg.GetReadConcurrency())
	}
	if cfg.GetSnapshotInterval() != 60*time.Second {
		t.Errorf("GetSnapshotInterval() = %v, want 60s", cfg.GetSnapshotInterval())
	}
}

func TestLoadTuning(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "bin_size": 0.5,
  "block_size": 100,
  "block_margin": 2,
  "read_concurrency": 8,
  "archive_compression_level": 9,
  "snapshot_interval": "120s"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuning(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.BinSize == nil || *cfg.BinSize != 0.5 {
		t.Errorf("Expected BinSize 0.5, got %v", cfg.BinSize)
	}
	if cfg.BlockSize == nil || *cfg.BlockSize != 100 {
		t.Errorf("Expected BlockSize 100, got %v", cfg.BlockSize)
	}
	if cfg.BlockMargin == nil || *cfg.BlockMargin != 2 {
		t.Errorf("Expected BlockMargin 2, got %v", cfg.BlockMargin)
	}
	if cfg.ReadConcurrency == nil || *cfg.ReadConcurrency != 8 {
		t.Errorf("Expected ReadConcurrency 8, got %v", cfg.ReadConcurrency)
	}
	if cfg.ArchiveCompressionLevel == nil || *cfg.ArchiveCompressionLevel != 9 {
		t.Errorf("Expected ArchiveCompressionLevel 9, got %v", cfg.ArchiveCompressionLevel)
	}
	if cfg.GetSnapshotInterval() != 120*time.Second {
		t.Errorf("GetSnapshotInterval() = %v, want 120s", cfg.GetSnapshotInterval())
	}
}

func TestLoadTuningPartial(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.json")

	// Only one field set; the rest stay nil and fall back to defaults.
	if err := os.WriteFile(configPath, []byte(`{"bin_size": 2.5}`), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuning(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetBinSize() != 2.5 {
		t.Errorf("GetBinSize() = %f, want 2.5", cfg.GetBinSize())
	}
	if cfg.BlockSize != nil {
		t.Errorf("Expected BlockSize nil, got %v", *cfg.BlockSize)
	}
	if cfg.GetBlockSize() != 200 {
		t.Errorf("GetBlockSize() = %d, want default 200", cfg.GetBlockSize())
	}
}

func TestLoadTuningMissing(t *testing.T) {
	_, err := LoadTuning("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadTuningBadExtension(t *testing.T) {
	_, err := LoadTuning("/tmp/config.yaml")
	if err == nil {
		t.Error("Expected error for non-JSON extension, got nil")
	}
}

func TestLoadTuningInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.json")

	if err := os.WriteFile(configPath, []byte("not-json"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := LoadTuning(configPath); err == nil {
		t.Error("Expected error for invalid JSON, got nil")
	}
}

func TestTuningValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Tuning
		wantErr bool
	}{
		{"empty is valid", Tuning{}, false},
		{"zero bin size", Tuning{BinSize: ptrFloat64(0)}, true},
		{"negative block size", Tuning{BlockSize: ptrInt(-1)}, true},
		{"negative margin", Tuning{BlockMargin: ptrInt(-1)}, true},
		{"zero read concurrency", Tuning{ReadConcurrency: ptrInt(0)}, true},
		{"compression level too high", Tuning{ArchiveCompressionLevel: ptrInt(23)}, true},
		{"compression level floor", Tuning{ArchiveCompressionLevel: ptrInt(1)}, false},
		{"bad snapshot interval", Tuning{SnapshotInterval: ptrString("soon")}, true},
		{"good snapshot interval", Tuning{SnapshotInterval: ptrString("5m")}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestTuningApply(t *testing.T) {
	partial := &Tuning{BinSize: ptrFloat64(0.25)}
	merged := partial.Apply(DefaultTuning())

	if *merged.BinSize != 0.25 {
		t.Errorf("Expected explicit BinSize 0.25 to survive, got %v", *merged.BinSize)
	}
	if merged.BlockSize == nil || *merged.BlockSize != 200 {
		t.Errorf("Expected BlockSize filled from defaults, got %v", merged.BlockSize)
	}
	if merged.SnapshotInterval == nil || *merged.SnapshotInterval != "60s" {
		t.Errorf("Expected SnapshotInterval filled from defaults, got %v", merged.SnapshotInterval)
	}
}

func TestGetSnapshotIntervalFallback(t *testing.T) {
	bad := &Tuning{SnapshotInterval: ptrString("")}
	if bad.GetSnapshotInterval() != 60*time.Second {
		t.Errorf("Expected 60s fallback for empty interval, got %v", bad.GetSnapshotInterval())
	}
}
