package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kmorales/pgpvault/internal/app"
	"github.com/kmorales/pgpvault/internal/domain"
)

// openTestDB opens a transient SQLite database file in a temp dir with WAL enabled.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	dsn := filepath.Join(dir, "test.db?_busy_timeout=5000&cache=shared")
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err = db.Exec("PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON; PRAGMA synchronous=FULL;"); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	return db
}

func testHandle(fpr string, private bool, created time.Time) app.KeyHandle {
	return app.KeyHandle{
		KeyID:       fpr[len(fpr)-16:],
		Fingerprint: fpr,
		Algorithm:   "RSA",
		Bits:        2048,
		CreatedAt:   created.UTC().Truncate(time.Second),
		Identities:  []string{"Alice <alice@example.com>"},
		Trust:       "unknown",
		Private:     private,
	}
}

const (
	fprPub  = "aaaabbbbccccddddeeeeffff0000111122223333"
	fprPriv = "0000111122223333444455556666777788889999"
)

func TestUpsertAndGet(t *testing.T) {
	ix, err := New(openTestDB(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	h := testHandle(fprPub, false, time.Now())
	h.ExpiresAt = h.CreatedAt.Add(24 * time.Hour)
	if err := ix.Upsert(ctx, h); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := ix.Get(ctx, fprPub)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.KeyID != h.KeyID || got.Algorithm != "RSA" || got.Bits != 2048 || got.Private {
		t.Fatalf("handle mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(h.CreatedAt) || !got.ExpiresAt.Equal(h.ExpiresAt) {
		t.Fatalf("time mismatch: got %v/%v want %v/%v", got.CreatedAt, got.ExpiresAt, h.CreatedAt, h.ExpiresAt)
	}
	if len(got.Identities) != 1 || got.Identities[0] != "Alice <alice@example.com>" {
		t.Fatalf("identities mismatch: %v", got.Identities)
	}
}

func TestGetMissing(t *testing.T) {
	ix, err := New(openTestDB(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = ix.Get(context.Background(), fprPub)
	if !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestUpsertReplaces(t *testing.T) {
	ix, err := New(openTestDB(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := ix.Upsert(ctx, testHandle(fprPub, false, time.Now())); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	h := testHandle(fprPub, true, time.Now())
	if err := ix.Upsert(ctx, h); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	got, err := ix.Get(ctx, fprPub)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Private {
		t.Fatalf("expected upgraded private flag")
	}
}

func TestListSplitsSecret(t *testing.T) {
	ix, err := New(openTestDB(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	base := time.Now()
	if err := ix.Upsert(ctx, testHandle(fprPub, false, base)); err != nil {
		t.Fatalf("Upsert public: %v", err)
	}
	if err := ix.Upsert(ctx, testHandle(fprPriv, true, base.Add(time.Second))); err != nil {
		t.Fatalf("Upsert private: %v", err)
	}

	all, err := ix.List(ctx, false)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(all))
	}
	if all[0].Fingerprint != fprPub || all[1].Fingerprint != fprPriv {
		t.Fatalf("unexpected order: %s, %s", all[0].Fingerprint, all[1].Fingerprint)
	}

	secret, err := ix.List(ctx, true)
	if err != nil {
		t.Fatalf("List secret: %v", err)
	}
	if len(secret) != 1 || secret[0].Fingerprint != fprPriv {
		t.Fatalf("expected only the private key, got %+v", secret)
	}
}

func TestDeleteReportsExistence(t *testing.T) {
	ix, err := New(openTestDB(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := ix.Upsert(ctx, testHandle(fprPub, false, time.Now())); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	existed, err := ix.Delete(ctx, fprPub)
	if err != nil || !existed {
		t.Fatalf("Delete: existed=%v err=%v", existed, err)
	}
	existed, err = ix.Delete(ctx, fprPub)
	if err != nil || existed {
		t.Fatalf("second Delete: existed=%v err=%v", existed, err)
	}
}

func TestFingerprints(t *testing.T) {
	ix, err := New(openTestDB(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := ix.Upsert(ctx, testHandle(fprPub, false, time.Now())); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	fprs, err := ix.Fingerprints(ctx)
	if err != nil {
		t.Fatalf("Fingerprints: %v", err)
	}
	if len(fprs) != 1 || fprs[0] != fprPub {
		t.Fatalf("unexpected fingerprints: %v", fprs)
	}
}

func TestZeroExpiryRoundTrips(t *testing.T) {
	ix, err := New(openTestDB(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := ix.Upsert(ctx, testHandle(fprPub, false, time.Now())); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := ix.Get(ctx, fprPub)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.ExpiresAt.IsZero() {
		t.Fatalf("expected zero expiry, got %v", got.ExpiresAt)
	}
}
