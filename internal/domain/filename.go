// Package domain filename.go contains the stored-file naming rules: upload
// name sanitization, collision-free suffixing, and the derived artifact
// names used by encrypt and decrypt.
package domain

import (
	"crypto/rand"
	"encoding/hex"
	"path"
	"strings"
)

const (
	encryptedTag = "_encrypted"
	decryptedTag = "_decrypted"

	// ContainerExt marks an encrypted container produced by EncryptedName.
	ContainerExt = ".gpg"
)

// NewSuffix generates the 8-character lowercase hex suffix appended to
// uploaded filenames to avoid collisions.
func NewSuffix() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	dst := make([]byte, 8)
	hex.Encode(dst, b[:]) // hex.Encode always produces lowercase
	return string(dst), nil
}

// Sanitize reduces a client-supplied filename to a safe basename: path
// components are stripped, whitespace becomes underscores, and any character
// outside [A-Za-z0-9._-] is dropped. Leading dots and dashes are trimmed so
// the result can never be hidden or read as a flag. Returns "" if nothing
// safe remains.
func Sanitize(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		case r == ' ' || r == '\t':
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".-")
	if out == "" || out == "." || out == ".." {
		return ""
	}
	return out
}

// ValidStoredName reports whether name is acceptable as a lookup into the
// upload directory: a non-empty basename with no separators or parent
// references.
func ValidStoredName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, "/\\") {
		return false
	}
	if strings.Contains(name, "..") {
		return false
	}
	return !strings.HasPrefix(name, ".")
}

// UniqueName sanitizes name and inserts a random 8-hex suffix before the
// extension, e.g. "report.txt" -> "report_1a2b3c4d.txt".
func UniqueName(name string) (string, error) {
	clean := Sanitize(name)
	if clean == "" {
		return "", ErrInvalidName
	}
	suffix, err := NewSuffix()
	if err != nil {
		return "", err
	}
	stem, ext := splitExt(clean)
	return stem + "_" + suffix + ext, nil
}

// AllowedExtension reports whether name carries one of the allowed
// extensions (case-insensitive, dot required).
func AllowedExtension(name string, allowed []string) bool {
	_, ext := splitExt(name)
	if ext == "" {
		return false
	}
	ext = strings.ToLower(ext[1:])
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return true
		}
	}
	return false
}

// EncryptedName derives the artifact name for an encrypted file:
// "name.ext" -> "name_encrypted.ext.gpg".
func EncryptedName(name string) string {
	stem, ext := splitExt(name)
	return stem + encryptedTag + ext + ContainerExt
}

// DecryptedName derives the artifact name for a decrypted file.
//
// For a ".gpg" container the inner extension is recovered by splitting the
// stem a second time, defaulting to ".txt" when none is found; any other
// extension is kept as-is. A trailing "_encrypted" on the resulting stem is
// swapped for "_decrypted", otherwise "_decrypted" is appended:
//
//	report_encrypted.txt.gpg -> report_decrypted.txt
//	notes.gpg                -> notes_decrypted.txt
//	report.txt               -> report_decrypted.txt
//
// This is a naming convention only. The recovered extension is a guess from
// the filename and is never checked against the decrypted content.
func DecryptedName(name string) string {
	stem, ext := splitExt(name)
	if ext == ContainerExt {
		inner, innerExt := splitExt(stem)
		stem = inner
		if innerExt != "" {
			ext = innerExt
		} else {
			ext = ".txt"
		}
	}
	if strings.HasSuffix(stem, encryptedTag) {
		stem = strings.TrimSuffix(stem, encryptedTag) + decryptedTag
	} else {
		stem += decryptedTag
	}
	return stem + ext
}

// splitExt splits name into stem and extension including the dot. A name
// with no dot (or only a leading dot) has an empty extension.
func splitExt(name string) (stem, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return name, ""
	}
	return name[:i], name[i:]
}
