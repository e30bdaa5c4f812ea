// Package config provides layered configuration loading for the pgpvault
// service. Defaults are overlaid with PGPVAULT_* environment variables and
// the merged result is validated before use. The loaded Config is immutable;
// it is constructed once at startup and passed to all components.
package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "PGPVAULT_"

// Config holds the merged runtime configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required,ip_port"`
	// DataDir is the root directory holding uploads, key files and the
	// SQLite database.
	DataDir string `koanf:"data_dir" validate:"required,safe_dir"`
	// MaxUploadBytes caps request bodies on the upload endpoint.
	MaxUploadBytes int64 `koanf:"max_upload_bytes" validate:"required,gt=0"`
	// AllowedExtensions is the upload allow-list (without dots).
	AllowedExtensions []string `koanf:"allowed_extensions" validate:"required,min=1,dive,required"`
	// UploadRetention is how long uploads may sit in the upload directory
	// before the janitor purges them. Zero disables purging.
	UploadRetention time.Duration `koanf:"upload_retention" validate:"min=0"`
	// JanitorInterval is how often a cleanup cycle runs.
	JanitorInterval time.Duration `koanf:"janitor_interval" validate:"required,gt=0"`
	// MetricsFlushInterval is how often counter deltas are flushed.
	MetricsFlushInterval time.Duration `koanf:"metrics_flush_interval" validate:"required,gt=0"`
	// DefaultKeyBits is the RSA key length used when generate requests omit one.
	DefaultKeyBits int `koanf:"default_key_bits" validate:"oneof=2048 3072 4096"`
}

// DefaultAppConfig holds the built-in defaults applied before the
// environment overlay.
var DefaultAppConfig = Config{
	Addr:           ":8080",
	DataDir:        "./data",
	MaxUploadBytes: 16 << 20, // 16 MiB
	AllowedExtensions: []string{
		"txt", "pdf", "png", "jpg", "jpeg", "gif", "doc", "docx", "zip",
		"gpg", "asc", "pgp", "sig",
	},
	UploadRetention:      24 * time.Hour,
	JanitorInterval:      5 * time.Minute,
	MetricsFlushInterval: 5 * time.Second,
	DefaultKeyBits:       2048,
}

// Loader funcs are package vars so tests can inject failures.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DefaultAppConfig, "koanf"), nil)
}

var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, envPrefix)), value
		},
	}), nil)
}

var registerValidators = func(v *validator.Validate) error {
	if err := v.RegisterValidation("ip_port", validIPPort); err != nil {
		return err
	}
	return v.RegisterValidation("safe_dir", validSafeDir)
}

// Load merges defaults with environment variables, decodes and validates the
// result.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := defaultLoader(k); err != nil {
		return nil, err
	}
	if err := envLoader(k); err != nil {
		return nil, err
	}
	var cfg Config
	dc := &mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			StringToExtensionList(),
		),
		Result:           &cfg,
		WeaklyTypedInput: true,
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", DecoderConfig: dc}); err != nil {
		return nil, err
	}
	v := validator.New()
	if err := registerValidators(v); err != nil {
		return nil, err
	}
	if err := v.Struct(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UploadsDir returns the directory uploads are stored in.
func (c *Config) UploadsDir() string { return filepath.Join(c.DataDir, "uploads") }

// KeysDir returns the directory armored key files are stored in.
func (c *Config) KeysDir() string { return filepath.Join(c.DataDir, "keys") }

// SQLiteDSN returns the DSN for the shared SQLite database under DataDir.
func (c *Config) SQLiteDSN() string {
	path := c.DataDir
	if len(path) == 0 || path[len(path)-1] != '/' {
		path += "/"
	}
	return fmt.Sprintf("file:%spgpvault.db?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_synchronous=FULL", path)
}

// validIPPort accepts ":port", "ipv4:port" and "[ipv6]:port" forms with a
// numeric port in [1,65535]. Hostnames are rejected; the listen address is
// expected to be an IP or wildcard.
func validIPPort(fl validator.FieldLevel) bool {
	host, port, err := net.SplitHostPort(fl.Field().String())
	if err != nil {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return false
	}
	if host == "" {
		return true
	}
	return net.ParseIP(host) != nil
}

// validSafeDir rejects empty, root and parent-traversing directory paths.
func validSafeDir(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	if p == "" || strings.Contains(p, "..") {
		return false
	}
	clean := filepath.Clean(p)
	return clean != "." && clean != "/"
}
