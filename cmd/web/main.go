// cmd/web/main.go
//
// Catalog admin – HTTP entry point.
//
// Start-up sequence
// -----------------
//
//  1. Install a console logger for start-up messages.
//
//  2. Connect to Vault when VAULT_ADDR is set, then load configuration
//     (conf/.env, conf/global.yaml, CATALOG_* overrides, vault: secrets),
//     and switch to the rotating file logger from the logging section.
//
//  3. Register entity definitions and load the message catalogs.
//
//  4. Build the media host, the backend client, the form-instance store,
//     and the submitter.
//
//  5. Open the ACL database when a DSN is configured.
//
//  6. Build the router:
//
//     • request ID and request logger
//     • panic recovery
//     • HTTPS enforcement and security headers
//     • request info (UA, geo, locale)
//     • /metrics, /healthz, and every registered component
//
//  7. Serve until SIGINT or SIGTERM, then drain.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/catalog-admin/internal/acl"
	"github.com/yanizio/catalog-admin/internal/auth"
	"github.com/yanizio/catalog-admin/internal/catalog"
	"github.com/yanizio/catalog-admin/internal/component"
	"github.com/yanizio/catalog-admin/internal/config"
	"github.com/yanizio/catalog-admin/internal/database"
	"github.com/yanizio/catalog-admin/internal/form"
	"github.com/yanizio/catalog-admin/internal/i18n"
	"github.com/yanizio/catalog-admin/internal/logger"
	"github.com/yanizio/catalog-admin/internal/media"
	"github.com/yanizio/catalog-admin/internal/middleware"
	"github.com/yanizio/catalog-admin/internal/requestinfo"
	"github.com/yanizio/catalog-admin/internal/server"
	"github.com/yanizio/catalog-admin/internal/store"
	"github.com/yanizio/catalog-admin/internal/vault"
	"github.com/yanizio/catalog-admin/internal/workflow"

	_ "github.com/yanizio/catalog-admin/components/catalog" // admin forms
)

const shutdownGrace = 15 * time.Second

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	tty := runningInTTY()
	boot := logger.Bootstrap(tty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, boot, tty); err != nil {
		zap.S().Errorw("catalog admin stopped", "err", err)
		_ = zap.L().Sync()
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, boot *zap.SugaredLogger, tty bool) error {
	//
	// ── 1.  Secrets, configuration, and the file logger ────────────────
	//
	var secrets config.SecretResolver
	if os.Getenv("VAULT_ADDR") != "" {
		vc, err := vault.New(ctx, boot)
		if err != nil {
			return err
		}
		secrets = vc
	}
	cfg, err := config.Load(ctx, secrets)
	if err != nil {
		return err
	}

	logOut, err := logger.New(logger.FromConfig(cfg.Logging, tty))
	if err != nil {
		return err
	}
	defer func() { _ = logOut.Sync() }()

	if cfg.GeoIP.DBPath != "" {
		if err := requestinfo.InitGeo(cfg.GeoIP.DBPath); err != nil {
			logOut.Warnw("geoip disabled", "err", err)
		}
		defer requestinfo.CloseGeo()
	}

	//
	// ── 2.  Entities and messages ──────────────────────────────────────
	//
	if err := form.RegisterEmbedded(); err != nil {
		return err
	}
	if cfg.Forms.Dir != "" {
		if err := form.RegisterDefs([]string{cfg.Forms.Dir}); err != nil {
			return err
		}
	}
	logOut.Infow("entity kinds registered", "kinds", form.Kinds())

	messages, err := i18n.Load(cfg.I18n.Dir, cfg.I18n.DefaultLocale, cfg.I18n.FallbackLocale)
	if err != nil {
		return err
	}

	//
	// ── 3.  Workflow services ──────────────────────────────────────────
	//
	host, err := media.NewHost(ctx, cfg.Media)
	if err != nil {
		return err
	}
	backend := catalog.New(cfg.Backend.BaseURL, cfg.Backend.Timeout)

	instances, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	submitter := workflow.NewSubmitter(
		form.NewValidator(messages),
		media.NewUploader(host, cfg.Media.MaxBytes, cfg.Media.Folder),
		backend,
		instances,
		messages,
	)

	var checker acl.Checker
	if cfg.Database.DSN != "" {
		db, err := database.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		checker = acl.NewStore(db)
		logOut.Infow("acl database online")
	}

	//
	// ── 4.  Router ─────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(logOut))
	r.Use(chimw.Recoverer)
	r.Use(middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS))
	r.Use(middleware.Security)
	r.Use(requestinfo.Enrich)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	err = component.Mount(r, component.Deps{
		Submitter:      submitter,
		Lister:         backend,
		I18n:           messages,
		CSRF:           form.NewCSRF(cfg.HTTP.CSRFKey),
		Verifier:       auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.CookieName),
		ACL:            checker,
		Auth:           cfg.Auth,
		TemplateDir:    cfg.HTTP.TemplateDir,
		MaxUploadBytes: cfg.Media.MaxBytes,
	})
	if err != nil {
		return err
	}

	//
	// ── 5.  Serve ──────────────────────────────────────────────────────
	//
	return server.Serve(ctx, server.New(cfg.HTTP.ListenAddr, r), shutdownGrace, logOut)
}

// openStore builds the configured form-instance store.  The returned func
// releases its resources.
func openStore(ctx context.Context, s config.Store) (workflow.Instances, func(), error) {
	switch s.Driver {
	case "redis":
		rdb, err := store.Connect(ctx, s.RedisAddr, s.RedisPassword, s.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRedis(rdb, s.TTL), func() { _ = rdb.Close() }, nil
	default:
		return store.NewMemory(s.Capacity, s.TTL), func() {}, nil
	}
}
