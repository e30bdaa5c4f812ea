package httpx

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

type generateKeyRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Passphrase string `json:"passphrase,omitempty"`
	Bits       int    `json:"key_length,omitempty"`
}

type keyDataRequest struct {
	KeyData string `json:"key_data"`
}

// secretParam reads the ?secret= query flag, defaulting to false.
func secretParam(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("secret"))
	return err == nil && v
}

// handleListKeys implements GET /api/keys. The public listing contains every
// key (the public half of a stored private key is always listable); the
// private listing holds only keys with secret material.
func (h *Handler) handleListKeys(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	public, err := h.Service.ListKeys(ctx, false)
	if err != nil {
		mapServiceError(ctx, w, err)
		return
	}
	private, err := h.Service.ListKeys(ctx, true)
	if err != nil {
		mapServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, fmt.Sprintf("%d keys", len(public)), map[string]any{
		"public_keys":  public,
		"private_keys": private,
	})
}

// handleKeyInfo implements GET /api/keys/{id}; id is a key ID or fingerprint.
func (h *Handler) handleKeyInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	handle, err := h.Service.KeyInfo(ctx, r.PathValue("id"))
	if err != nil {
		mapServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, "key found", map[string]any{"key": handle})
}

// handleGenerateKey implements POST /api/keys.
func (h *Handler) handleGenerateKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req generateKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	fingerprint, err := h.Service.GenerateKey(ctx, req.Name, req.Email, req.Passphrase, req.Bits)
	if err != nil {
		mapServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, "key generated successfully", map[string]any{
		"fingerprint": fingerprint,
	})
}

// handleImportKeys implements POST /api/keys/import.
func (h *Handler) handleImportKeys(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req keyDataRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.KeyData == "" {
		writeError(ctx, w, http.StatusBadRequest, "key_data is required")
		return
	}
	count, fingerprints, err := h.Service.ImportKeys(ctx, req.KeyData)
	if err != nil {
		mapServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, fmt.Sprintf("%d key(s) imported successfully", count), map[string]any{
		"count":        count,
		"fingerprints": fingerprints,
	})
}

// handleValidateKey implements POST /api/keys/validate. Only the armor
// markers are checked; the key is not imported or parsed by the engine.
func (h *Handler) handleValidateKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req keyDataRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	valid := strings.Contains(req.KeyData, "-----BEGIN PGP") && strings.Contains(req.KeyData, "-----END PGP")
	msg := "valid PGP key format"
	if !valid {
		msg = "invalid PGP key format"
	}
	writeJSON(w, http.StatusOK, msg, map[string]any{"valid": valid})
}

// handleExportKey implements GET /api/keys/{id}/export?secret=.
func (h *Handler) handleExportKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	armored, err := h.Service.ExportKey(ctx, r.PathValue("id"), secretParam(r))
	if err != nil {
		mapServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, "key exported successfully", map[string]any{"key_data": armored})
}

// handleDeleteKey implements DELETE /api/keys/{id}?secret=.
func (h *Handler) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Service.DeleteKey(ctx, r.PathValue("id"), secretParam(r)); err != nil {
		mapServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, "key deleted successfully", nil)
}
