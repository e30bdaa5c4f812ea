// Package keystore implements the application KeyStore port by composing
// lower-layer persistence ports: a SQLite-backed metadata index and a
// filesystem store holding the armored key material. External packages
// construct the store via New and interact only through app.KeyStore.
package keystore

import (
	"context"

	"github.com/kmorales/pgpvault/internal/app"
)

// Index abstracts the key metadata index (typically backed by SQLite).
// Fingerprints are stored lowercase.
type Index interface {
	// Upsert inserts or replaces the handle row keyed by fingerprint.
	Upsert(ctx context.Context, h app.KeyHandle) error
	// Get returns the handle for a fingerprint, domain.ErrKeyNotFound when absent.
	Get(ctx context.Context, fingerprint string) (app.KeyHandle, error)
	// List returns all handles, or only private-key handles when secret is set.
	List(ctx context.Context, secret bool) ([]app.KeyHandle, error)
	// Delete removes the row, reporting whether it existed.
	Delete(ctx context.Context, fingerprint string) (bool, error)
	// Fingerprints returns every indexed fingerprint, for reconciliation.
	Fingerprints(ctx context.Context) ([]string, error)
}

// KeyFiles abstracts armored key material persistence on the filesystem.
type KeyFiles interface {
	Write(fingerprint, armored string) error
	Read(fingerprint string) (string, error)
	Delete(fingerprint string) error
	// List returns all stored fingerprints (filenames sans extension).
	List() ([]string, error)
}
