// Package main provides the pgpvault binary entry point that starts the HTTP
// server for web-based PGP key management and file encryption. It loads
// configuration from environment variables, validates it, wires the storage
// and crypto adapters together, and then starts the HTTP server.
//
// The application flow:
//  1. Load defaults and apply environment variables.
//  2. Validate configuration.
//  3. Prepare the data directory (uploads/ and keys/) and SQLite database.
//  4. Wire the engine, key store, upload vault, metrics and janitor.
//  5. Configure and start the HTTP server.
//
// It blocks until the process receives SIGINT/SIGTERM or the server exits
// with an error (other than http.ErrServerClosed).
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kmorales/pgpvault/internal/app"
	"github.com/kmorales/pgpvault/internal/config"
	"github.com/kmorales/pgpvault/internal/engine"
	"github.com/kmorales/pgpvault/internal/httpx"
	"github.com/kmorales/pgpvault/internal/janitor"
	"github.com/kmorales/pgpvault/internal/keystore"
	"github.com/kmorales/pgpvault/internal/keystore/filesystem"
	"github.com/kmorales/pgpvault/internal/keystore/sqlite"
	"github.com/kmorales/pgpvault/internal/metrics"
	"github.com/kmorales/pgpvault/internal/vault"
	wembed "github.com/kmorales/pgpvault/web"
)

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "err", err)
		os.Exit(2)
	}
	return cfg
}

func ensureDataDirs(cfg *config.Config) (uploadsDir, keysDir string) {
	for _, dir := range []string{cfg.DataDir, cfg.UploadsDir(), cfg.KeysDir()} {
		if st, err := os.Stat(dir); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				slog.Error("stat data directory", "dir", dir, "err", err)
				os.Exit(3)
			}
			if mkErr := os.MkdirAll(dir, 0o700); mkErr != nil {
				slog.Error("failed to create data directory", "dir", dir, "err", mkErr)
				os.Exit(3)
			}
		} else if !st.IsDir() {
			slog.Error("data path not directory", "dir", dir)
			os.Exit(3)
		}
	}
	return cfg.UploadsDir(), cfg.KeysDir()
}

func openDatabase(cfg *config.Config) (*sql.DB, *sqlite.Index) {
	db, err := sql.Open("sqlite3", cfg.SQLiteDSN())
	if err != nil {
		slog.Error("open sqlite driver", "err", err)
		os.Exit(4)
	}
	idx, err := sqlite.New(db)
	if err != nil {
		slog.Error("init sqlite schema", "err", err)
		os.Exit(4)
	}
	return db, idx
}

func buildKeyStore(idx *sqlite.Index, keysDir string) *keystore.Store {
	kf, err := filesystem.New(keysDir)
	if err != nil {
		slog.Error("init key file storage", "err", err)
		os.Exit(5)
	}
	return keystore.New(idx, kf)
}

func buildVault(uploadsDir string) *vault.Vault {
	v, err := vault.New(uploadsDir)
	if err != nil {
		slog.Error("init upload vault", "err", err)
		os.Exit(5)
	}
	return v
}

func buildService(cfg *config.Config, v *vault.Vault, ks *keystore.Store, mgr *metrics.Manager) *app.Service {
	return &app.Service{
		Files:          v,
		Keys:           ks,
		Engine:         engine.New(),
		Metrics:        mgr,
		AllowedExts:    cfg.AllowedExtensions,
		DefaultKeyBits: cfg.DefaultKeyBits,
	}
}

func buildHandler(cfg *config.Config, svc *app.Service, db *sql.DB, uploadsDir string, mgr *metrics.Manager) http.Handler {
	readiness := func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		if _, err := os.ReadDir(uploadsDir); err != nil {
			return err
		}
		return nil
	}
	h := httpx.New(svc, cfg.MaxUploadBytes, readiness)
	h.Assets = http.FS(wembed.Assets)
	h.Metrics = metrics.Handler(mgr, "")
	return h.Router()
}

func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{Addr: cfg.Addr, Handler: handler, ReadTimeout: 5 * time.Second, WriteTimeout: 30 * time.Second, IdleTimeout: 120 * time.Second}
}

func run() error {
	cfg := loadConfig()
	uploadsDir, keysDir := ensureDataDirs(cfg)
	db, idx := openDatabase(cfg)
	defer db.Close()

	ks := buildKeyStore(idx, keysDir)
	v := buildVault(uploadsDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mgr := metrics.New(db, metrics.Config{FlushInterval: cfg.MetricsFlushInterval})
	if err := mgr.InitSchema(ctx); err != nil {
		return err
	}
	mgr.Start(ctx)

	jan := janitor.New(v, ks, janitor.Config{
		Interval:  cfg.JanitorInterval,
		Retention: cfg.UploadRetention,
		Observe:   mgr.Observe,
	})
	jan.Start(ctx)

	svc := buildService(cfg, v, ks, mgr)
	srv := newServer(cfg, buildHandler(cfg, svc, db, uploadsDir, mgr))

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.Addr, "pid", os.Getpid())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			runErr = err
		}
	case err, ok := <-errCh:
		if ok {
			runErr = err
		}
	}

	jan.Stop()
	mgr.Stop(context.Background())
	return runErr
}

func main() {
	if err := run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
