// Package filesystem provides a KeyFiles implementation backed by the local
// filesystem. Each key's armored material is one file named by fingerprint.
package filesystem

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/kmorales/pgpvault/internal/keystore"
)

// Ensure KeyFiles implements keystore.KeyFiles
var _ keystore.KeyFiles = (*KeyFiles)(nil)

// KeyFiles implements keystore.KeyFiles using the local filesystem. Files
// are named <fingerprint>.asc to simplify lookup and reconciliation.
type KeyFiles struct {
	root string
}

// New returns a filesystem-backed key store rooted at dir. The directory
// must already exist with secure permissions (0700 recommended).
func New(root string) (*KeyFiles, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, errors.New("key root is not a directory")
	}
	return &KeyFiles{root: root}, nil
}

// path constructs the full path to the armored file for a fingerprint.
func (k *KeyFiles) path(fpr string) string { return filepath.Join(k.root, fpr+".asc") }

// Write stores the armored key, replacing any previous material for the same
// fingerprint (keys are upgraded in place on re-import).
func (k *KeyFiles) Write(fingerprint, armored string) error {
	if err := validateFingerprint(fingerprint); err != nil {
		return err
	}
	return os.WriteFile(k.path(fingerprint), []byte(armored), 0o600)
}

// Read returns the armored key for a fingerprint.
func (k *KeyFiles) Read(fingerprint string) (string, error) {
	if err := validateFingerprint(fingerprint); err != nil {
		return "", err
	}
	data, err := os.ReadFile(k.path(fingerprint)) // #nosec G304 path constructed internally
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Delete removes the armored file for a fingerprint.
func (k *KeyFiles) Delete(fingerprint string) error {
	if err := validateFingerprint(fingerprint); err != nil {
		return err
	}
	return os.Remove(k.path(fingerprint))
}

// List returns all stored fingerprints. Higher layers derive orphans by
// diffing against the index.
func (k *KeyFiles) List() ([]string, error) {
	entries, err := os.ReadDir(k.root)
	if err != nil {
		return nil, err
	}
	var fprs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) != ".asc" {
			continue
		}
		fpr := name[:len(name)-4]
		if validateFingerprint(fpr) != nil {
			continue
		}
		fprs = append(fprs, fpr)
	}
	return fprs, nil
}

// validateFingerprint enforces that the name is lowercase hexadecimal of a
// plausible fingerprint length (40 for v4 keys, 64 for v6; 16 accepted for
// bare key IDs). No separators means no path traversal.
func validateFingerprint(fpr string) error {
	switch len(fpr) {
	case 16, 40, 64:
	default:
		return errors.New("invalid fingerprint: unexpected length")
	}
	for _, c := range fpr {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return errors.New("invalid fingerprint: must be lowercase hex")
		}
	}
	return nil
}
