// Package app defines the application layer "ports" (interfaces) and simple
// data contracts the use-cases depend upon. It follows a hexagonal design:
// this package declares what the core needs, while adapter packages (the
// gopenpgp engine, SQLite+filesystem key store, upload vault, HTTP layer)
// provide concrete implementations. No I/O, logging, SQL, or network
// concerns belong here.
package app

import (
	"context"
	"io"
	"time"
)

// KeyHandle is the metadata view of a key held by the engine-backed store.
// IDs and fingerprints are opaque strings produced by the engine.
type KeyHandle struct {
	KeyID       string    `json:"keyid"`
	Fingerprint string    `json:"fingerprint"`
	Algorithm   string    `json:"algo"`
	Bits        int       `json:"length"`
	CreatedAt   time.Time `json:"date"`
	ExpiresAt   time.Time `json:"expires"` // zero when the key never expires
	Identities  []string  `json:"uids"`
	Trust       string    `json:"trust"`
	Private     bool      `json:"secret"`
}

// ParsedKey pairs a handle with the canonical armored form of the key:
// private armor when Handle.Private is set, public armor otherwise.
type ParsedKey struct {
	Handle  KeyHandle
	Armored string
}

// FileInfo describes one stored upload.
type FileInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Counter names recorded on successful operations.
const (
	CounterFilesUploaded  = "files_uploaded_total"
	CounterFilesEncrypted = "files_encrypted_total"
	CounterFilesDecrypted = "files_decrypted_total"
	CounterFilesDeleted   = "files_deleted_total"
	CounterKeysGenerated  = "keys_generated_total"
	CounterKeysImported   = "keys_imported_total"
	CounterKeysDeleted    = "keys_deleted_total"
)

// Recorder counts completed operations. Implementations must be safe for
// concurrent use. A nil Recorder disables counting.
type Recorder interface {
	Inc(name string, delta int64)
}

// Engine is the OpenPGP binding port. Implementations delegate all
// cryptography to a mature OpenPGP library; failures carry the engine's
// status text and match domain.ErrEngine.
type Engine interface {
	// Generate creates a new key pair, locked with passphrase when non-empty.
	Generate(name, email, passphrase string, bits int) (ParsedKey, error)
	// Parse reads one or more armored keys from text.
	Parse(armoredText string) ([]ParsedKey, error)
	// PublicArmor extracts the armored public key from any armored key.
	PublicArmor(armored string) (string, error)
	// Encrypt encrypts data for the given recipient keys.
	Encrypt(data []byte, recipientArmors []string, armored bool) ([]byte, error)
	// Decrypt decrypts data using the given private keys, unlocking locked
	// ones with passphrase.
	Decrypt(data []byte, privateArmors []string, passphrase string) ([]byte, error)
}

// KeyStore is the persistence port for key material and handles. The engine
// remains authoritative for the material itself; the store only keeps the
// armored form plus a metadata index.
type KeyStore interface {
	// List returns handles for keys with private material when secret is
	// true; otherwise every stored key (the Private flag still reports
	// whether a secret half exists, as the engine's public listing does).
	List(ctx context.Context, secret bool) ([]KeyHandle, error)
	// Armored returns the stored armored key for a fingerprint.
	Armored(ctx context.Context, fingerprint string) (string, error)
	// Put inserts or upgrades a key. A stored private key is never demoted
	// by re-importing its public half.
	Put(ctx context.Context, handle KeyHandle, armored string) error
	// Delete removes the key entirely. Absent keys report domain.ErrKeyNotFound.
	Delete(ctx context.Context, fingerprint string) error
}

// Files is the upload-directory lifecycle port.
type Files interface {
	// Save writes r to a new file named name, verifying the result is
	// readable before reporting success. Returns the byte count written.
	Save(name string, r io.Reader) (int64, error)
	// Write stores a derived artifact under name, replacing any previous one.
	Write(name string, data []byte) (int64, error)
	// Read returns the file's contents; os.ErrNotExist when absent.
	Read(name string) ([]byte, error)
	// Open returns a reader and the size for streaming downloads.
	Open(name string) (io.ReadCloser, int64, error)
	// Delete removes the file, reporting false (not an error) when absent.
	Delete(name string) bool
	// Size returns the file size in bytes, 0 on any stat failure.
	Size(name string) int64
	// List enumerates stored files.
	List() ([]FileInfo, error)
	// Lock acquires the per-filename mutex and returns its release func.
	Lock(name string) func()
}
