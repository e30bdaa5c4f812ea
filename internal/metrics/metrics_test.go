package metrics

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sql.Open("sqlite3", filepath.Join(dir, "metrics.db?_busy_timeout=5000"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return db
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := New(openTestDB(t), Config{FlushInterval: time.Hour, Logger: slog.Default()})
	if err := m.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	return m
}

// drain applies all queued events synchronously (the background loop
// normally does this).
func (m *Manager) drain() { m.drainPending() }

func TestIncAndFlush(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	m.Inc("files_uploaded_total", 1)
	m.Inc("files_uploaded_total", 2)
	m.drain()
	if err := m.flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	counters, _, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if counters["files_uploaded_total"] != 3 {
		t.Fatalf("expected 3, got %d", counters["files_uploaded_total"])
	}
}

func TestSnapshotLayersUnflushedDeltas(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	m.Inc("keys_generated_total", 5)
	m.drain()
	if err := m.flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	m.Inc("keys_generated_total", 2)
	m.drain()

	counters, _, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if counters["keys_generated_total"] != 7 {
		t.Fatalf("expected persisted+delta = 7, got %d", counters["keys_generated_total"])
	}
}

func TestObserveAggregates(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	m.Observe(SummaryJanitorPurgedPerCycle, 4)
	m.Observe(SummaryJanitorPurgedPerCycle, 25)
	m.Observe(SummaryJanitorPurgedPerCycle, 6)
	m.drain()
	if err := m.flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	_, summaries, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	agg := summaries[SummaryJanitorPurgedPerCycle]
	if agg.count != 3 || agg.sum != 35 || agg.min != 4 || agg.max != 25 {
		t.Fatalf("unexpected aggregate %+v", agg)
	}
}

func TestNegativeIncIgnored(t *testing.T) {
	m := newTestManager(t)
	m.Inc("files_uploaded_total", -5)
	m.drain()
	if len(m.counters) != 0 {
		t.Fatalf("negative delta must be dropped")
	}
}

func TestFlushMergesAcrossTransactions(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	m.Inc("files_deleted_total", 1)
	m.drain()
	if err := m.flush(ctx); err != nil {
		t.Fatalf("flush1: %v", err)
	}
	m.Inc("files_deleted_total", 100)
	m.drain()
	if err := m.flush(ctx); err != nil {
		t.Fatalf("flush2: %v", err)
	}

	counters, _, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if counters["files_deleted_total"] != 101 {
		t.Fatalf("expected 101, got %d", counters["files_deleted_total"])
	}
}

func TestStopFlushesWithoutStart(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	m.Inc("files_encrypted_total", 3)
	m.drain()
	m.Stop(ctx)

	counters, _, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if counters["files_encrypted_total"] != 3 {
		t.Fatalf("expected final flush on Stop, got %d", counters["files_encrypted_total"])
	}
}

func TestStartStop(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	m.Start(ctx)
	m.Inc("files_uploaded_total", 1)
	m.Stop(ctx)

	counters, _, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if counters["files_uploaded_total"] != 1 {
		t.Fatalf("expected 1 after loop stop, got %d", counters["files_uploaded_total"])
	}
}
