package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kmorales/pgpvault/internal/domain"
)

// Service orchestrates the file lifecycle and key management use-cases
// using the injected ports. It performs no I/O of its own.
type Service struct {
	Files          Files
	Keys           KeyStore
	Engine         Engine
	Metrics        Recorder // optional; nil disables counting
	AllowedExts    []string
	DefaultKeyBits int
}

// count records a successful operation when a Recorder is wired.
func (s *Service) count(name string) {
	if s.Metrics != nil {
		s.Metrics.Inc(name, 1)
	}
}

// Upload validates the claimed filename against the extension allow-list,
// derives a collision-free stored name (or uses the sanitized override) and
// persists the stream. Returns the stored name and byte count.
func (s *Service) Upload(ctx context.Context, claimed string, r io.Reader, override string) (string, int64, error) {
	_ = ctx
	if claimed == "" {
		return "", 0, fmt.Errorf("%w: no file selected", domain.ErrValidation)
	}
	if !domain.AllowedExtension(claimed, s.AllowedExts) {
		return "", 0, domain.ErrTypeNotAllowed
	}
	var (
		stored string
		err    error
	)
	if override != "" {
		stored = domain.Sanitize(override)
		if stored == "" {
			return "", 0, domain.ErrInvalidName
		}
	} else if stored, err = domain.UniqueName(claimed); err != nil {
		return "", 0, err
	}
	unlock := s.Files.Lock(stored)
	defer unlock()
	size, err := s.Files.Save(stored, r)
	if err != nil {
		return "", 0, err
	}
	s.count(CounterFilesUploaded)
	return stored, size, nil
}

// EncryptFile encrypts a stored file for the given recipient key IDs (or
// fingerprints), writes the derived artifact and deletes the source. The
// source is kept untouched on any failure.
func (s *Service) EncryptFile(ctx context.Context, filename string, recipients []string, armored bool) (string, int64, error) {
	if !domain.ValidStoredName(filename) {
		return "", 0, domain.ErrInvalidName
	}
	if len(recipients) == 0 {
		return "", 0, domain.ErrNoRecipients
	}
	armors := make([]string, 0, len(recipients))
	for _, rcpt := range recipients {
		handle, err := s.findKey(ctx, rcpt)
		if err != nil {
			return "", 0, fmt.Errorf("%w: %s", domain.ErrKeyNotFound, rcpt)
		}
		arm, err := s.Keys.Armored(ctx, handle.Fingerprint)
		if err != nil {
			return "", 0, err
		}
		armors = append(armors, arm)
	}
	unlock := s.Files.Lock(filename)
	defer unlock()
	data, err := s.Files.Read(filename)
	if err != nil {
		return "", 0, mapMissing(err)
	}
	out, err := s.Engine.Encrypt(data, armors, armored)
	if err != nil {
		return "", 0, err
	}
	outName := domain.EncryptedName(filename)
	size, err := s.Files.Write(outName, out)
	if err != nil {
		return "", 0, err
	}
	// One-way transformation: the plaintext source is removed only now,
	// after the artifact is fully persisted.
	s.Files.Delete(filename)
	s.count(CounterFilesEncrypted)
	return outName, size, nil
}

// DecryptFile decrypts a stored file with the available private keys,
// writes the derived artifact and deletes the encrypted source. On failure
// the source stays in place for a retry.
func (s *Service) DecryptFile(ctx context.Context, filename, passphrase string) (string, int64, error) {
	if !domain.ValidStoredName(filename) {
		return "", 0, domain.ErrInvalidName
	}
	privates, err := s.Keys.List(ctx, true)
	if err != nil {
		return "", 0, err
	}
	armors := make([]string, 0, len(privates))
	for _, h := range privates {
		arm, err := s.Keys.Armored(ctx, h.Fingerprint)
		if err != nil {
			continue
		}
		armors = append(armors, arm)
	}
	unlock := s.Files.Lock(filename)
	defer unlock()
	data, err := s.Files.Read(filename)
	if err != nil {
		return "", 0, mapMissing(err)
	}
	out, err := s.Engine.Decrypt(data, armors, passphrase)
	if err != nil {
		return "", 0, err
	}
	outName := domain.DecryptedName(filename)
	size, err := s.Files.Write(outName, out)
	if err != nil {
		return "", 0, err
	}
	s.Files.Delete(filename)
	s.count(CounterFilesDecrypted)
	return outName, size, nil
}

// OpenFile resolves a stored file for download.
func (s *Service) OpenFile(_ context.Context, filename string) (io.ReadCloser, int64, error) {
	if !domain.ValidStoredName(filename) {
		return nil, 0, domain.ErrInvalidName
	}
	rc, size, err := s.Files.Open(filename)
	if err != nil {
		return nil, 0, mapMissing(err)
	}
	return rc, size, nil
}

// DeleteFile removes a stored file, reporting false when it was absent.
func (s *Service) DeleteFile(_ context.Context, filename string) bool {
	if !domain.ValidStoredName(filename) {
		return false
	}
	unlock := s.Files.Lock(filename)
	defer unlock()
	if !s.Files.Delete(filename) {
		return false
	}
	s.count(CounterFilesDeleted)
	return true
}

// ListFiles enumerates the upload directory.
func (s *Service) ListFiles(_ context.Context) ([]FileInfo, error) {
	return s.Files.List()
}

// ListKeys returns handles for the requested half of the key store.
func (s *Service) ListKeys(ctx context.Context, secret bool) ([]KeyHandle, error) {
	return s.Keys.List(ctx, secret)
}

// KeyInfo resolves a key ID or fingerprint across the combined
// public+private list.
func (s *Service) KeyInfo(ctx context.Context, id string) (KeyHandle, error) {
	return s.findKey(ctx, id)
}

// GenerateKey creates and stores a new key pair, returning its fingerprint.
func (s *Service) GenerateKey(ctx context.Context, name, email, passphrase string, bits int) (string, error) {
	if name == "" || email == "" {
		return "", fmt.Errorf("%w: name and email are required", domain.ErrValidation)
	}
	if bits == 0 {
		bits = s.DefaultKeyBits
	}
	switch bits {
	case 2048, 3072, 4096:
	default:
		return "", fmt.Errorf("%w: unsupported key length %d", domain.ErrValidation, bits)
	}
	parsed, err := s.Engine.Generate(name, email, passphrase, bits)
	if err != nil {
		return "", err
	}
	if err := s.Keys.Put(ctx, parsed.Handle, parsed.Armored); err != nil {
		return "", err
	}
	s.count(CounterKeysGenerated)
	return parsed.Handle.Fingerprint, nil
}

// ImportKeys parses armored key text and stores every contained key,
// returning the count and fingerprints. The armor markers are checked
// before the engine sees the data.
func (s *Service) ImportKeys(ctx context.Context, armoredText string) (int, []string, error) {
	if !strings.Contains(armoredText, "-----BEGIN PGP") || !strings.Contains(armoredText, "-----END PGP") {
		return 0, nil, domain.ErrBadKeyData
	}
	parsed, err := s.Engine.Parse(armoredText)
	if err != nil {
		return 0, nil, err
	}
	if len(parsed) == 0 {
		return 0, nil, fmt.Errorf("%w: no keys were imported", domain.ErrBadKeyData)
	}
	fingerprints := make([]string, 0, len(parsed))
	for _, pk := range parsed {
		if err := s.Keys.Put(ctx, pk.Handle, pk.Armored); err != nil {
			return 0, nil, err
		}
		fingerprints = append(fingerprints, pk.Handle.Fingerprint)
		s.count(CounterKeysImported)
	}
	return len(parsed), fingerprints, nil
}

// ExportKey returns the armored key for a key ID or fingerprint. With
// secret set the stored private armor is returned; otherwise the public
// half is extracted regardless of what is stored.
func (s *Service) ExportKey(ctx context.Context, id string, secret bool) (string, error) {
	handle, err := s.findKey(ctx, id)
	if err != nil {
		return "", err
	}
	if secret && !handle.Private {
		return "", fmt.Errorf("%w: no secret key for %s", domain.ErrKeyNotFound, id)
	}
	armored, err := s.Keys.Armored(ctx, handle.Fingerprint)
	if err != nil {
		return "", err
	}
	if secret {
		return armored, nil
	}
	return s.Engine.PublicArmor(armored)
}

// DeleteKey removes a key. Deleting the public half while the secret half
// is stored is refused, mirroring the engine's own safety rule.
func (s *Service) DeleteKey(ctx context.Context, id string, secret bool) error {
	handle, err := s.findKey(ctx, id)
	if err != nil {
		return err
	}
	if secret && !handle.Private {
		return fmt.Errorf("%w: no secret key for %s", domain.ErrKeyNotFound, id)
	}
	if !secret && handle.Private {
		return domain.Enginef("failed to delete key: secret key exists, delete secret key first")
	}
	if err := s.Keys.Delete(ctx, handle.Fingerprint); err != nil {
		return err
	}
	s.count(CounterKeysDeleted)
	return nil
}

// findKey performs the linear search over the combined public+private
// handle list, matching key ID or fingerprint case-insensitively.
func (s *Service) findKey(ctx context.Context, id string) (KeyHandle, error) {
	if id == "" {
		return KeyHandle{}, domain.ErrKeyNotFound
	}
	// List(false) returns every key (private ones included, flagged), so a
	// single scan covers the combined public+private list.
	all, err := s.Keys.List(ctx, false)
	if err != nil {
		return KeyHandle{}, err
	}
	for _, h := range all {
		if strings.EqualFold(h.KeyID, id) || strings.EqualFold(h.Fingerprint, id) {
			return h, nil
		}
	}
	return KeyHandle{}, domain.ErrKeyNotFound
}

// mapMissing converts filesystem not-exist errors into the domain sentinel.
func mapMissing(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return domain.ErrNotFound
	}
	return err
}
