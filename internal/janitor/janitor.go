// Package janitor implements background cleanup of stale uploads and orphan
// key files. It operates independently from the main app Service to keep
// lifecycle concerns (retention sweeps, reconciliation) isolated from request
// path logic.
package janitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Uploads abstracts the retention sweep over the upload directory.
type Uploads interface {
	// PurgeOlderThan removes files last modified before t and returns the
	// number removed.
	PurgeOlderThan(t time.Time) (int, error)
}

// Keys abstracts key-store reconciliation (orphan armored-file removal).
type Keys interface {
	Reconcile(ctx context.Context) (int, error)
}

// Config holds tunables for the Janitor.
type Config struct {
	Interval  time.Duration // how often a cycle begins
	Retention time.Duration // uploads older than this are purged; 0 disables the sweep
	Logger    *slog.Logger  // optional logger (defaults to slog.Default())
	// Observe, when set, receives the per-cycle purge count for export to
	// the metrics manager.
	Observe func(name string, value int64)
}

// Metrics accumulates counters (in-memory) for operational insight.
type Metrics struct {
	mu                  sync.Mutex
	Cycles              uint64
	Purged              uint64
	Orphans             uint64
	CycleLastDurationMS int64
}

// MetricsView is a read-only snapshot safe to copy.
type MetricsView struct {
	Cycles              uint64
	Purged              uint64
	Orphans             uint64
	CycleLastDurationMS int64
}

func (m *Metrics) addPurged(n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.Purged += uint64(n)
	m.mu.Unlock()
}

func (m *Metrics) addOrphans(n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.Orphans += uint64(n)
	m.mu.Unlock()
}

func (m *Metrics) recordCycle(d time.Duration) {
	m.mu.Lock()
	m.Cycles++
	m.CycleLastDurationMS = d.Milliseconds()
	m.mu.Unlock()
}

// Janitor encapsulates the background cleanup loop.
type Janitor struct {
	uploads Uploads
	keys    Keys
	cfg     Config
	metrics *Metrics

	ticker *time.Ticker
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// New constructs but does not start a Janitor.
func New(uploads Uploads, keys Keys, cfg Config) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Janitor{
		uploads: uploads,
		keys:    keys,
		cfg:     cfg,
		metrics: &Metrics{},
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start launches the janitor loop in a new goroutine.
func (j *Janitor) Start(ctx context.Context) {
	if j.ticker != nil {
		return
	} // already started
	j.ticker = time.NewTicker(j.cfg.Interval)
	go j.loop(ctx)
}

// Stop signals the loop to exit and waits for completion.
func (j *Janitor) Stop() {
	j.once.Do(func() { close(j.stopCh) })
	<-j.doneCh
}

// MetricsSnapshot returns a copy of current metrics.
func (j *Janitor) MetricsSnapshot() MetricsView {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()
	return MetricsView{
		Cycles:              j.metrics.Cycles,
		Purged:              j.metrics.Purged,
		Orphans:             j.metrics.Orphans,
		CycleLastDurationMS: j.metrics.CycleLastDurationMS,
	}
}

func (j *Janitor) loop(ctx context.Context) {
	log := j.cfg.Logger.With("domain", "janitor")
	defer func() {
		if j.ticker != nil {
			j.ticker.Stop()
		}
		close(j.doneCh)
	}()
	for {
		select {
		case <-ctx.Done():
			log.Info("janitor stop", "reason", "context_cancel")
			return
		case <-j.stopCh:
			log.Info("janitor stop", "reason", "stop_signal")
			return
		case <-j.ticker.C:
			j.runCycle(ctx)
		}
	}
}

// runCycle performs one retention sweep plus key-store reconciliation.
func (j *Janitor) runCycle(ctx context.Context) {
	start := time.Now()
	log := j.cfg.Logger.With("domain", "janitor", "action", "cycle")
	purged := 0
	if j.cfg.Retention > 0 {
		cutoff := time.Now().UTC().Add(-j.cfg.Retention)
		n, err := j.uploads.PurgeOlderThan(cutoff)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("purge", "error", err)
		}
		purged = n
	}
	orphans := 0
	if j.keys != nil {
		n, err := j.keys.Reconcile(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("reconcile", "error", err)
		}
		orphans = n
	}
	j.metrics.addPurged(purged)
	j.metrics.addOrphans(orphans)
	if j.cfg.Observe != nil && purged > 0 {
		j.cfg.Observe("janitor_purged_per_cycle", int64(purged))
	}
	j.metrics.recordCycle(time.Since(start))
	log.Info("cycle complete", "purged", purged, "orphans", orphans, "ms", time.Since(start).Milliseconds())
}
