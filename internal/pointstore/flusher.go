package pointstore

import (
	"context"
	"log"
	"sync"
	"time"
)

// Persister saves a snapshot of current state under a reason tag.
// *Dataset implements this interface.
type Persister interface {
	Persist(ctx context.Context, reason string) (int64, error)
}

var _ Persister = (*Dataset)(nil)

// finalReason tags the snapshot written on shutdown, distinguishing it
// from the periodic ones when reading the snapshot history back.
const finalReason = "final_flush"

// SnapshotFlusher persists a dataset's index snapshot on a fixed
// interval, so a long ingest loses at most one interval of work to a
// crash. One flusher drives one dataset; Run owns the loop and a final
// snapshot always goes out on shutdown, whether by context or by Stop.
type SnapshotFlusher struct {
	dataset  Persister
	interval time.Duration
	reason   string
	logger   *log.Logger
	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// SnapshotFlusherConfig contains configuration for SnapshotFlusher.
type SnapshotFlusherConfig struct {
	// Dataset is the Persister to flush, usually a *Dataset.
	Dataset Persister
	// Interval between periodic snapshots. Zero or negative disables
	// the loop.
	Interval time.Duration
	// Reason tags periodic snapshots; empty means "periodic_flush".
	Reason string
	// Logger for flush activity; nil falls back to log.Default().
	Logger *log.Logger
}

// NewSnapshotFlusher creates a new SnapshotFlusher.
func NewSnapshotFlusher(cfg SnapshotFlusherConfig) *SnapshotFlusher {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	reason := cfg.Reason
	if reason == "" {
		reason = "periodic_flush"
	}
	return &SnapshotFlusher{
		dataset:  cfg.Dataset,
		interval: cfg.Interval,
		reason:   reason,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Run blocks flushing on every interval tick until ctx is cancelled or
// Stop is called, then writes one last snapshot and returns nil. A
// second concurrent Run is a no-op.
func (f *SnapshotFlusher) Run(ctx context.Context) error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return nil
	}
	f.running = true
	f.stopCh = make(chan struct{})
	f.doneCh = make(chan struct{})
	f.mu.Unlock()

	defer func() {
		close(f.doneCh)
		f.mu.Lock()
		f.running = false
		f.mu.Unlock()
	}()

	if f.interval <= 0 {
		f.logger.Printf("SnapshotFlusher: interval is zero or negative, not starting")
		return nil
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	f.logger.Printf("SnapshotFlusher started: interval=%v", f.interval)

	for {
		select {
		case <-ctx.Done():
			f.logger.Printf("SnapshotFlusher: stopping, context cancelled")
			// ctx is already dead here; the final write gets a live one.
			f.persist(context.WithoutCancel(ctx), finalReason)
			return nil
		case <-f.stopCh:
			f.logger.Printf("SnapshotFlusher: stopping on Stop()")
			f.persist(ctx, finalReason)
			return nil
		case <-ticker.C:
			f.persist(ctx, f.reason)
		}
	}
}

// Stop asks a running loop to finish and waits for its final snapshot.
// Safe to call repeatedly; a flusher that never ran returns at once.
func (f *SnapshotFlusher) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	done := f.doneCh
	f.mu.Unlock()

	<-done
}

// IsRunning reports whether the loop is active.
func (f *SnapshotFlusher) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// persist writes one snapshot. Failures are logged, never fatal: the
// records themselves are already stored, only the resume point lags.
func (f *SnapshotFlusher) persist(ctx context.Context, reason string) {
	if f.dataset == nil {
		return
	}
	id, err := f.dataset.Persist(ctx, reason)
	if err != nil {
		f.logger.Printf("SnapshotFlusher: error flushing: %v", err)
		return
	}
	f.logger.Printf("SnapshotFlusher: index snapshot %d written (%s)", id, reason)
}

// FlushNow writes a snapshot immediately, outside the interval. Works
// whether or not the loop is running.
func (f *SnapshotFlusher) FlushNow(ctx context.Context) {
	f.persist(ctx, f.reason)
}
