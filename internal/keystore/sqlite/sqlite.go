// Package sqlite provides a SQLite-backed implementation of the
// keystore.Index port for persisting key metadata.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/kmorales/pgpvault/internal/app"
	"github.com/kmorales/pgpvault/internal/domain"
	"github.com/kmorales/pgpvault/internal/keystore"

	// database/sql SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

var _ keystore.Index = (*Index)(nil)

// Index implements keystore.Index using SQLite (via database/sql). It is safe
// for concurrent use; database/sql manages connection pooling and
// serialization.
type Index struct{ db *sql.DB }

// New constructs an Index, initializing the required schema if absent.
func New(db *sql.DB) (*Index, error) {
	ix := &Index{db: db}
	if err := ix.init(); err != nil {
		return nil, err
	}
	return ix, nil
}

func (i *Index) init() error {
	schema := `CREATE TABLE IF NOT EXISTS keys (
fingerprint TEXT PRIMARY KEY,
key_id TEXT NOT NULL,
algorithm TEXT NOT NULL,
bits INTEGER NOT NULL,
is_private INTEGER NOT NULL DEFAULT 0,
created_at INTEGER NOT NULL,
expires_at INTEGER NOT NULL DEFAULT 0,
identities TEXT NOT NULL,
trust TEXT NOT NULL
);`
	_, err := i.db.Exec(schema)
	return err
}

// Upsert inserts or replaces the handle row.
func (i *Index) Upsert(ctx context.Context, h app.KeyHandle) error {
	const q = `INSERT INTO keys (fingerprint, key_id, algorithm, bits, is_private, created_at, expires_at, identities, trust)
VALUES (?,?,?,?,?,?,?,?,?)
ON CONFLICT(fingerprint) DO UPDATE SET
key_id=excluded.key_id, algorithm=excluded.algorithm, bits=excluded.bits,
is_private=excluded.is_private, created_at=excluded.created_at,
expires_at=excluded.expires_at, identities=excluded.identities, trust=excluded.trust`
	uids, err := json.Marshal(h.Identities)
	if err != nil {
		return err
	}
	priv := 0
	if h.Private {
		priv = 1
	}
	var expires int64
	if !h.ExpiresAt.IsZero() {
		expires = h.ExpiresAt.Unix()
	}
	_, err = i.db.ExecContext(ctx, q,
		strings.ToLower(h.Fingerprint), h.KeyID, h.Algorithm, h.Bits,
		priv, h.CreatedAt.Unix(), expires, string(uids), h.Trust)
	return err
}

// Get returns the handle for a fingerprint.
func (i *Index) Get(ctx context.Context, fingerprint string) (app.KeyHandle, error) {
	const q = `SELECT fingerprint, key_id, algorithm, bits, is_private, created_at, expires_at, identities, trust
FROM keys WHERE fingerprint=?`
	row := i.db.QueryRowContext(ctx, q, strings.ToLower(fingerprint))
	h, err := scanHandle(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return app.KeyHandle{}, domain.ErrKeyNotFound
	}
	return h, err
}

// List returns all handles, or only private-key handles when secret is set,
// ordered by creation time so listings are stable.
func (i *Index) List(ctx context.Context, secret bool) ([]app.KeyHandle, error) {
	q := `SELECT fingerprint, key_id, algorithm, bits, is_private, created_at, expires_at, identities, trust
FROM keys ORDER BY created_at, fingerprint`
	if secret {
		q = `SELECT fingerprint, key_id, algorithm, bits, is_private, created_at, expires_at, identities, trust
FROM keys WHERE is_private=1 ORDER BY created_at, fingerprint`
	}
	rows, err := i.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []app.KeyHandle
	for rows.Next() {
		h, err := scanHandle(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the row, reporting whether it existed.
func (i *Index) Delete(ctx context.Context, fingerprint string) (bool, error) {
	res, err := i.db.ExecContext(ctx, `DELETE FROM keys WHERE fingerprint=?`, strings.ToLower(fingerprint))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Fingerprints returns every indexed fingerprint.
func (i *Index) Fingerprints(ctx context.Context) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, `SELECT fingerprint FROM keys`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var fpr string
		if err = rows.Scan(&fpr); err != nil {
			return nil, err
		}
		out = append(out, fpr)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// scanHandle maps one row onto a handle via the given Scan func, so a single
// column order serves both QueryRow and Rows.
func scanHandle(scan func(dest ...any) error) (app.KeyHandle, error) {
	var (
		h           app.KeyHandle
		priv        int
		createdUnix int64
		expiresUnix int64
		uids        string
	)
	if err := scan(&h.Fingerprint, &h.KeyID, &h.Algorithm, &h.Bits, &priv, &createdUnix, &expiresUnix, &uids, &h.Trust); err != nil {
		return app.KeyHandle{}, err
	}
	h.Private = priv == 1
	h.CreatedAt = time.Unix(createdUnix, 0).UTC()
	if expiresUnix > 0 {
		h.ExpiresAt = time.Unix(expiresUnix, 0).UTC()
	}
	if err := json.Unmarshal([]byte(uids), &h.Identities); err != nil {
		return app.KeyHandle{}, err
	}
	return h, nil
}
