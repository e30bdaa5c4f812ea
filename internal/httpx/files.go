package httpx

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// handleUpload implements POST /api/upload (multipart/form-data). The file
// rides in the "file" part; an optional "filename" field overrides the
// derived stored name.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.MaxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBody)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(ctx, w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(ctx, w, http.StatusBadRequest, "no file part in request")
		return
	}
	defer file.Close()
	override := r.FormValue("filename")
	stored, size, svcErr := h.Service.Upload(ctx, header.Filename, file, override)
	if svcErr != nil {
		mapServiceError(ctx, w, svcErr)
		return
	}
	writeJSON(w, http.StatusCreated, "file uploaded successfully", map[string]any{
		"filename": stored,
		"size":     size,
	})
}

// handleListFiles implements GET /api/files.
func (h *Handler) handleListFiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	files, err := h.Service.ListFiles(ctx)
	if err != nil {
		mapServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, fmt.Sprintf("%d files", len(files)), map[string]any{
		"files": files,
	})
}

// handleDownload implements GET /api/files/{name}, streaming the stored file
// as an attachment.
func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.PathValue("name")
	rc, size, err := h.Service.OpenFile(ctx, name)
	if err != nil {
		mapServiceError(ctx, w, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

// handleDeleteFile implements DELETE /api/files/{name}. A missing file is
// reported as a failed deletion, matching the lossy boolean convention of
// the file store.
func (h *Handler) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.PathValue("name")
	if !h.Service.DeleteFile(ctx, name) {
		writeError(ctx, w, http.StatusInternalServerError, "failed to delete file")
		return
	}
	writeJSON(w, http.StatusOK, "file deleted successfully", nil)
}
