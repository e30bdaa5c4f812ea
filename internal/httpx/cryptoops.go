package httpx

import "net/http"

type encryptRequest struct {
	Filename   string   `json:"filename"`
	Recipients []string `json:"recipients"`
	Armor      *bool    `json:"armor,omitempty"` // default true
}

type decryptRequest struct {
	Filename   string `json:"filename"`
	Passphrase string `json:"passphrase,omitempty"`
}

// handleEncrypt implements POST /api/encrypt. The source file is replaced by
// the encrypted artifact on success.
func (h *Handler) handleEncrypt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req encryptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Filename == "" {
		writeError(ctx, w, http.StatusBadRequest, "filename is required")
		return
	}
	armored := true
	if req.Armor != nil {
		armored = *req.Armor
	}
	outName, size, err := h.Service.EncryptFile(ctx, req.Filename, req.Recipients, armored)
	if err != nil {
		mapServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, "file encrypted successfully", map[string]any{
		"encrypted_filename": outName,
		"size":               size,
	})
}

// handleDecrypt implements POST /api/decrypt. The encrypted source is
// replaced by the decrypted artifact on success; on failure it stays put.
func (h *Handler) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req decryptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Filename == "" {
		writeError(ctx, w, http.StatusBadRequest, "filename is required")
		return
	}
	outName, size, err := h.Service.DecryptFile(ctx, req.Filename, req.Passphrase)
	if err != nil {
		mapServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, "file decrypted successfully", map[string]any{
		"decrypted_filename": outName,
		"size":               size,
	})
}
