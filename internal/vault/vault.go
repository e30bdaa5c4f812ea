// Package vault provides the upload-directory file store. It owns stored
// uploads and derived artifacts: creation with post-write verification,
// path resolution with traversal rejection, idempotent deletion, and the
// per-filename mutual exclusion that serializes operations touching the
// same stored name.
package vault

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kmorales/pgpvault/internal/app"
	"github.com/kmorales/pgpvault/internal/domain"
)

// Ensure Vault implements the application port.
var _ app.Files = (*Vault)(nil)

// Vault is a file store rooted at a single upload directory.
type Vault struct {
	root string

	mu    sync.Mutex
	locks map[string]*nameLock
}

type nameLock struct {
	m    sync.Mutex
	refs int
}

// New returns a Vault rooted at dir. The directory must already exist.
func New(root string) (*Vault, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, errors.New("upload root is not a directory")
	}
	return &Vault{root: root, locks: make(map[string]*nameLock)}, nil
}

// path resolves name inside the root, rejecting anything that is not a
// plain sanitized basename.
func (v *Vault) path(name string) (string, error) {
	if !domain.ValidStoredName(name) {
		return "", domain.ErrInvalidName
	}
	return filepath.Join(v.root, name), nil
}

// Save writes r to a new file and verifies the result is present and
// readable before reporting success. A partial file is removed on error.
func (v *Vault) Save(name string, r io.Reader) (int64, error) {
	p, err := v.path(name)
	if err != nil {
		return 0, err
	}
	// #nosec G304: path is the fixed root plus a validated basename.
	f, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return 0, err
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return 0, err
	}
	if err = f.Close(); err != nil {
		_ = os.Remove(p)
		return 0, err
	}
	fi, err := os.Stat(p)
	if err != nil || fi.Size() != n {
		_ = os.Remove(p)
		return 0, errors.New("file was not saved properly")
	}
	return n, nil
}

// Write stores a derived artifact, replacing any previous file of the same
// name.
func (v *Vault) Write(name string, data []byte) (int64, error) {
	p, err := v.path(name)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

// Read returns the file's contents.
func (v *Vault) Read(name string) ([]byte, error) {
	p, err := v.path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p) // #nosec G304 path constructed internally
}

// Open returns a reader and the file size for streaming.
func (v *Vault) Open(name string) (io.ReadCloser, int64, error) {
	p, err := v.path(name)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(p) // #nosec G304 path constructed internally
	if err != nil {
		return nil, 0, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	return f, fi.Size(), nil
}

// Delete removes the file. Returns false (never an error) when the file is
// absent or the name is invalid; this lossy convention is deliberate.
func (v *Vault) Delete(name string) bool {
	p, err := v.path(name)
	if err != nil {
		return false
	}
	return os.Remove(p) == nil
}

// Size returns the file size in bytes, or 0 on any stat failure. The zero
// sentinel is deliberate; callers that need the distinction use Open.
func (v *Vault) Size(name string) int64 {
	p, err := v.path(name)
	if err != nil {
		return 0
	}
	fi, err := os.Stat(p)
	if err != nil {
		return 0
	}
	return fi.Size()
}

// List enumerates stored files, newest first not guaranteed.
func (v *Vault) List() ([]app.FileInfo, error) {
	entries, err := os.ReadDir(v.root)
	if err != nil {
		return nil, err
	}
	out := make([]app.FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, app.FileInfo{Name: e.Name(), Size: info.Size(), Modified: info.ModTime().UTC()})
	}
	return out, nil
}

// Lock acquires the mutex for name and returns its release func. Locks are
// reference-counted so the map does not grow with dead filenames.
func (v *Vault) Lock(name string) func() {
	v.mu.Lock()
	nl := v.locks[name]
	if nl == nil {
		nl = &nameLock{}
		v.locks[name] = nl
	}
	nl.refs++
	v.mu.Unlock()
	nl.m.Lock()
	return func() {
		nl.m.Unlock()
		v.mu.Lock()
		nl.refs--
		if nl.refs == 0 {
			delete(v.locks, name)
		}
		v.mu.Unlock()
	}
}

// PurgeOlderThan removes files whose modification time precedes t and
// returns the count removed. Used by the janitor's retention sweep.
func (v *Vault) PurgeOlderThan(t time.Time) (int, error) {
	entries, err := os.ReadDir(v.root)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(t) {
			if os.Remove(filepath.Join(v.root, e.Name())) == nil {
				removed++
			}
		}
	}
	return removed, nil
}
