// Package domain errors.go contains sentinel errors
package domain

import (
	"errors"
	"fmt"
)

// Sentinel domain-level errors reused by higher layers.
var (
	ErrNotFound       = errors.New("file not found")
	ErrKeyNotFound    = errors.New("key not found")
	ErrTypeNotAllowed = errors.New("file type not allowed")
	ErrNoRecipients   = errors.New("at least one recipient is required")
	ErrInvalidName    = errors.New("invalid filename")
	ErrBadKeyData     = errors.New("invalid PGP key format")
	ErrValidation     = errors.New("validation failed")

	// ErrEngine classifies failures reported by the OpenPGP engine. Match
	// with errors.Is; concrete failures are EngineError values carrying the
	// engine's status text verbatim.
	ErrEngine = errors.New("engine failure")
)

// EngineError wraps an engine status message so callers can surface it
// unchanged while still classifying it via errors.Is(err, ErrEngine).
type EngineError struct{ Status string }

func (e *EngineError) Error() string { return e.Status }

// Is lets errors.Is(err, ErrEngine) match any EngineError.
func (e *EngineError) Is(target error) bool { return target == ErrEngine }

// Enginef builds an EngineError with a formatted status message.
func Enginef(format string, args ...any) error {
	return &EngineError{Status: fmt.Sprintf(format, args...)}
}
