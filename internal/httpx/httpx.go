// Package httpx contains the HTTP delivery layer (net/http handlers) for the
// pgpvault service. It maps HTTP requests to the application service while
// enforcing validation, size limits, security headers, and error translation.
// Handlers are split across files (files.go, cryptoops.go, keys.go, health.go).
package httpx

import (
	"context"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/kmorales/pgpvault/internal/app"
)

// ServicePort abstracts the subset of app.Service used by the HTTP layer.
// It is satisfied by *app.Service in production and mocked in tests.
type ServicePort interface {
	Upload(ctx context.Context, claimed string, r io.Reader, override string) (string, int64, error)
	EncryptFile(ctx context.Context, filename string, recipients []string, armored bool) (string, int64, error)
	DecryptFile(ctx context.Context, filename, passphrase string) (string, int64, error)
	OpenFile(ctx context.Context, filename string) (io.ReadCloser, int64, error)
	DeleteFile(ctx context.Context, filename string) bool
	ListFiles(ctx context.Context) ([]app.FileInfo, error)
	ListKeys(ctx context.Context, secret bool) ([]app.KeyHandle, error)
	KeyInfo(ctx context.Context, id string) (app.KeyHandle, error)
	GenerateKey(ctx context.Context, name, email, passphrase string, bits int) (string, error)
	ImportKeys(ctx context.Context, armoredText string) (int, []string, error)
	ExportKey(ctx context.Context, id string, secret bool) (string, error)
	DeleteKey(ctx context.Context, id string, secret bool) error
}

// Handler wires HTTP endpoints to the application service.
// It is safe for concurrent use. Zero-value is not valid; construct via New.
type Handler struct {
	Service   ServicePort
	MaxBody   int64                       // maximum upload request size (0 disables the cap)
	Readiness func(context.Context) error // optional readiness probe
	Assets    http.FileSystem             // static assets filesystem (optional)
	Metrics   http.Handler                // optional /metricz snapshot handler
}

// New returns a configured Handler.
// svc: application service port implementation.
// maxBody: maximum allowed upload body size (0 disables the cap).
// readiness: optional probe function for /readyz (nil => always ready).
func New(svc ServicePort, maxBody int64, readiness func(context.Context) error) *Handler {
	return &Handler{Service: svc, MaxBody: maxBody, Readiness: readiness}
}

// Router constructs and returns an http.Handler with all routes mounted,
// correlation IDs injected and security headers applied.
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload", h.handleUpload)
	mux.HandleFunc("GET /api/files", h.handleListFiles)
	mux.HandleFunc("GET /api/files/{name}", h.handleDownload)
	mux.HandleFunc("DELETE /api/files/{name}", h.handleDeleteFile)
	mux.HandleFunc("POST /api/encrypt", h.handleEncrypt)
	mux.HandleFunc("POST /api/decrypt", h.handleDecrypt)
	mux.HandleFunc("GET /api/keys", h.handleListKeys)
	mux.HandleFunc("POST /api/keys", h.handleGenerateKey)
	mux.HandleFunc("POST /api/keys/import", h.handleImportKeys)
	mux.HandleFunc("POST /api/keys/validate", h.handleValidateKey)
	mux.HandleFunc("GET /api/keys/{id}", h.handleKeyInfo)
	mux.HandleFunc("GET /api/keys/{id}/export", h.handleExportKey)
	mux.HandleFunc("DELETE /api/keys/{id}", h.handleDeleteKey)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /readyz", h.handleReady)
	if h.Metrics != nil {
		mux.Handle("GET /metricz", h.Metrics)
	}
	mux.HandleFunc("GET /{$}", h.handleIndex)
	if h.Assets != nil {
		mux.Handle("GET /static/", http.StripPrefix("/static/", h.staticHandler()))
	}
	return CorrelationIDMiddleware(h.secureHeaders(mux))
}

// secureHeaders middleware adds standard security & cache control headers.
func (h *Handler) secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		// API responses carry decrypted material; never cache. The static
		// handler overrides this for assets.
		if ct := w.Header().Get("Content-Type"); ct == "" {
			w.Header().Set("Cache-Control", "no-store")
			w.Header().Set("Pragma", "no-cache")
		}
		w.Header().Set("Content-Security-Policy", "default-src 'none'; script-src 'self'; style-src 'self'; img-src 'self' data:; connect-src 'self'; font-src 'self'; frame-ancestors 'none'; base-uri 'none'; form-action 'self'")
		next.ServeHTTP(w, r)
	})
}

// staticHandler serves embedded/static assets under /static/.
func (h *Handler) staticHandler() http.Handler {
	fs := h.Assets
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent directory listings; require a file with extension
		if strings.HasSuffix(r.URL.Path, "/") || path.Ext(r.URL.Path) == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=300")
		http.FileServer(fs).ServeHTTP(w, r)
	})
}

// handleIndex serves the root HTML page from the assets filesystem.
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if h.Assets == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("index unavailable"))
		return
	}
	f, err := h.Assets.Open("index.html")
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("index unavailable"))
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = io.Copy(w, f)
}
