// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file at `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `CATALOG_`, where `__` maps to “.”
     (e.g., `CATALOG_BACKEND__BASE_URL → backend.base_url`).

After merging, every string value that starts with `vault:` is replaced
by the secret it names (`vault:<mount>/<path>#<key>`).  The tree is then
unmarshalled into strongly-typed structs, defaulted, validated, enriched
with the runtime root path, and cached in an `atomic.Pointer` for
lock-free reads.  `Reload()` calls `Load()` again and swaps the pointer.

Instrumentation
---------------
  • DEBUG spans: root discovery, YAML read, env overlay.
  • ERROR spans: YAML parse, env overlay, secret lookup, unmarshal, and
    validation failures.
  • INFO span: final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`;
    this lets `go run ./cmd/web` work from any sub-directory.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const (
	envPrefix   = "CATALOG_"
	vaultPrefix = "vault:"
	secretTTL   = 10 * time.Minute
)

var (
	current  atomic.Pointer[Config]
	resolver atomic.Value // SecretResolver, reused by Reload
)

// SecretResolver fetches one key from a KV secret.  *vault.Client
// satisfies it.
type SecretResolver interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves CATALOG_ROOT or climbs directories until
// conf/global.yaml is found.  Falls back to executable heuristic for
// production layout.
func rootDir() string {
	if r := os.Getenv(envPrefix + "ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, resolves vault references,
// validates, and caches Config.  res may be nil when no value uses the
// vault: prefix.
func Load(ctx context.Context, res SecretResolver) (*Config, error) {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: CATALOG_BACKEND__BASE_URL → backend.base_url
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(ctx, k, res); err != nil {
		zap.S().Errorw("config secret lookup failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	cfg.applyDefaults()
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	if res != nil {
		resolver.Store(res)
	}
	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"backend", cfg.Backend.BaseURL,
		"media_provider", cfg.Media.Provider,
		"store", cfg.Store.Driver,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// resolveSecrets swaps every `vault:<path>#<key>` string for its value.
func resolveSecrets(ctx context.Context, k *koanf.Koanf, res SecretResolver) error {
	for key, val := range k.All() {
		s, ok := val.(string)
		if !ok || !strings.HasPrefix(s, vaultPrefix) {
			continue
		}
		if res == nil {
			return fmt.Errorf("%s references vault but no vault client is configured", key)
		}
		path, field, ok := strings.Cut(strings.TrimPrefix(s, vaultPrefix), "#")
		if !ok || path == "" || field == "" {
			return fmt.Errorf("%s: malformed vault reference %q", key, s)
		}
		secret, err := res.GetKV(ctx, path, field, secretTTL)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if err := k.Set(key, secret); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		zap.S().Debugw("config secret resolved", "key", key, "path", path)
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config { return current.Load() }

// Reload re-reads every layer with the resolver from the last Load.
func Reload(ctx context.Context) error {
	res, _ := resolver.Load().(SecretResolver)
	_, err := Load(ctx, res)
	return err
}
