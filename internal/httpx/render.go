package httpx

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// envelope is the uniform JSON response shape. Every API response carries
// success and message; endpoint-specific fields ride along as extra keys.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// writeJSON writes a success envelope with optional extra fields merged in.
func writeJSON(w http.ResponseWriter, code int, message string, extra map[string]any) {
	body := map[string]any{"success": true, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes a failure envelope with the given status code.
func writeError(ctx context.Context, w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Message: msg})
	if cid, ok := GetCorrelationID(ctx); ok {
		slog.Debug("wrote error response", "cid", cid, "status", code, "msg", msg)
	}
}

// decodeJSON reads a request body into dst, enforcing a sane size cap.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, 1<<20)
	defer body.Close()
	return json.NewDecoder(body).Decode(dst)
}
