package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kmorales/pgpvault/internal/domain"
)

// mapServiceError maps domain/service errors to HTTP responses. Engine
// failures surface their status text verbatim so the client sees what the
// OpenPGP layer reported; anything unexpected stays opaque.
func mapServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	cid, _ := GetCorrelationID(ctx)
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrTypeNotAllowed),
		errors.Is(err, domain.ErrNoRecipients),
		errors.Is(err, domain.ErrBadKeyData):
		slog.Warn("service error", "cid", cid, "code", "bad_request", "msg", err.Error())
		writeError(ctx, w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrKeyNotFound):
		slog.Info("service error", "cid", cid, "code", "not_found")
		writeError(ctx, w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrEngine):
		slog.Error("engine error", "cid", cid, "code", "engine", "msg", err.Error())
		writeError(ctx, w, http.StatusInternalServerError, err.Error())
	default:
		// Internal / unexpected: do not reflect raw error text to the client.
		slog.Error("unhandled service error", "cid", cid, "code", "unhandled")
		writeError(ctx, w, http.StatusInternalServerError, "internal error")
	}
}
