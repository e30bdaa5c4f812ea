package keystore

import (
	"context"
	"errors"
	"strings"

	"github.com/kmorales/pgpvault/internal/app"
	"github.com/kmorales/pgpvault/internal/domain"
)

var _ app.KeyStore = (*Store)(nil)

// Store composes an Index and KeyFiles to satisfy app.KeyStore. The index
// answers listing and lookup; the key files hold the armored material.
type Store struct {
	index Index
	files KeyFiles
}

// New returns a Store implementation of app.KeyStore.
func New(index Index, files KeyFiles) *Store {
	return &Store{index: index, files: files}
}

// List returns handles for the requested half of the store. secret=false
// returns every key; the Private flag on each handle stays truthful.
func (s *Store) List(ctx context.Context, secret bool) ([]app.KeyHandle, error) {
	return s.index.List(ctx, secret)
}

// Armored returns the stored armored key for a fingerprint. The index is
// consulted first so a stray key file never resurrects a deleted key.
func (s *Store) Armored(ctx context.Context, fingerprint string) (string, error) {
	fpr := strings.ToLower(fingerprint)
	if _, err := s.index.Get(ctx, fpr); err != nil {
		return "", err
	}
	armored, err := s.files.Read(fpr)
	if err != nil {
		return "", err
	}
	return armored, nil
}

// Put inserts or upgrades a key. Re-importing the public half of a key whose
// private half is already stored is a no-op, so imports never demote.
func (s *Store) Put(ctx context.Context, handle app.KeyHandle, armored string) error {
	handle.Fingerprint = strings.ToLower(handle.Fingerprint)
	existing, err := s.index.Get(ctx, handle.Fingerprint)
	switch {
	case err == nil:
		if existing.Private && !handle.Private {
			return nil
		}
	case errors.Is(err, domain.ErrKeyNotFound):
	default:
		return err
	}
	if err := s.files.Write(handle.Fingerprint, armored); err != nil {
		return err
	}
	return s.index.Upsert(ctx, handle)
}

// Delete removes the key's index row and armored file. Absent keys report
// domain.ErrKeyNotFound.
func (s *Store) Delete(ctx context.Context, fingerprint string) error {
	fpr := strings.ToLower(fingerprint)
	existed, err := s.index.Delete(ctx, fpr)
	if err != nil {
		return err
	}
	if !existed {
		return domain.ErrKeyNotFound
	}
	// Index row is authoritative; a failed file removal leaves an orphan the
	// reconciler sweeps later.
	_ = s.files.Delete(fpr)
	return nil
}

// Reconcile removes armored key files that have no index row (orphans left
// by a crash between file write and index upsert, or a failed delete).
// Returns the number of files removed.
func (s *Store) Reconcile(ctx context.Context) (int, error) {
	indexed, err := s.index.Fingerprints(ctx)
	if err != nil {
		return 0, err
	}
	known := make(map[string]struct{}, len(indexed))
	for _, fpr := range indexed {
		known[fpr] = struct{}{}
	}
	stored, err := s.files.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, fpr := range stored {
		if _, ok := known[fpr]; ok {
			continue
		}
		if err := s.files.Delete(fpr); err == nil {
			removed++
		}
	}
	return removed, nil
}
