// internal/vault/vault.go
//
// Vault client wrapper.
//
// Context
// -------
//   - Provides a concurrency-safe client around the HashiCorp Vault Go SDK.
//   - Resolves `vault:<path>#<key>` configuration values for the loader, so
//     Cloudinary, S3, JWT, and CSRF secrets never sit in YAML.
//   - Adds background token renewal, KV-v2 reads, per-key caching, and
//     singleflight so a burst of identical lookups costs one round trip.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx, zap.S())          // during boot.
//  2. pw,  err := cli.GetKV(ctx, path, key, ttl)   // via config.Load.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

//
// SECTION 1.  Public façade
//

// Client is safe for concurrent use.  Create once at startup.  Zero value
// is invalid.
type Client struct {
	api   *vault.Client
	log   *zap.SugaredLogger
	fetch func(ctx context.Context, mount, rel string) (map[string]any, error)

	group   singleflight.Group
	cacheMu sync.RWMutex
	cache   map[string]cached // canonical path#key → value + expiry.
	now     func() time.Time
}

type cached struct {
	val string
	exp time.Time
}

// New constructs a Vault client and starts a background token-renewal loop.
//
// Environment expectations
// ------------------------
// • VAULT_ADDR   – scheme and host of the Vault server.
// • VAULT_TOKEN  – initial token (falls back to ~/.vault-token).
func New(ctx context.Context, log *zap.SugaredLogger) (*Client, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	c := newClient(log, func(ctx context.Context, mount, rel string) (map[string]any, error) {
		sec, err := apiCli.KVv2(mount).Get(ctx, rel)
		if err != nil {
			return nil, err
		}
		return sec.Data, nil
	})
	c.api = apiCli

	go c.renewLoop(ctx)
	return c, nil
}

func newClient(log *zap.SugaredLogger, fetch func(context.Context, string, string) (map[string]any, error)) *Client {
	return &Client{
		log:   log,
		fetch: fetch,
		cache: make(map[string]cached),
		now:   time.Now,
	}
}

// GetKV fetches a single key from a KV-v2 secret.  If ttl > 0 the result is
// cached for that duration.  Concurrent callers for the same key share one
// upstream read.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("secret path and key must be non-empty")
	}

	canonical := secretPath + "#" + key

	if ttl > 0 {
		c.cacheMu.RLock()
		cv, ok := c.cache[canonical]
		c.cacheMu.RUnlock()
		if ok && c.now().Before(cv.exp) {
			return cv.val, nil
		}
	}

	v, err, _ := c.group.Do(canonical, func() (any, error) {
		mount, rel := splitMount(secretPath)
		data, err := c.fetch(ctx, mount, rel)
		if err != nil {
			return "", fmt.Errorf("vault get %s: %w", secretPath, err)
		}
		raw, ok := data[key]
		if !ok {
			return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
		}
		sval, ok := raw.(string)
		if !ok {
			return "", fmt.Errorf("value at %s#%s is not a string", secretPath, key)
		}
		if ttl > 0 {
			c.cacheMu.Lock()
			c.cache[canonical] = cached{val: sval, exp: c.now().Add(ttl)}
			c.cacheMu.Unlock()
		}
		return sval, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

//
// SECTION 2.  Background token renewal
//

func (c *Client) renewLoop(ctx context.Context) {
	for ctx.Err() == nil {
		sec, err := c.api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			c.log.Warnw("vault: token renew self failed", "err", err)
			backoff(ctx, 30*time.Second)
			continue
		}
		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			c.log.Infow("vault: token is not renewable, sleeping 1h")
			backoff(ctx, time.Hour)
			continue
		}

		watcher, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{
			Secret: sec,
		})
		if err != nil {
			c.log.Warnw("vault: watcher init error", "err", err)
			backoff(ctx, 30*time.Second)
			continue
		}
		c.watch(ctx, watcher)
	}
}

// watch runs one lifetime watcher until it stops or ctx ends.
func (c *Client) watch(ctx context.Context, w *vault.LifetimeWatcher) {
	go w.Start()
	defer w.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.DoneCh():
			if err != nil {
				c.log.Warnw("vault: token renewal stopped", "err", err)
			}
			backoff(ctx, 15*time.Second)
			return
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				c.log.Debugw("vault: token renewed", "ttl_s", ev.Secret.Auth.LeaseDuration)
			}
		}
	}
}

//
// SECTION 3.  Helpers
//

func splitMount(p string) (mount, rel string) {
	if p == "" {
		return "", ""
	}
	parts := strings.SplitN(p, "/", 2)
	mount = parts[0]
	if len(parts) == 2 {
		rel = parts[1]
	}
	return
}

func backoff(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
