// internal/config/model.go
//
// Typed configuration model for the catalog admin service.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                           – dotenv values,
//   • `conf/global.yaml`                        – primary static file,
//   • `CATALOG_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Validation happens immediately after unmarshal and defaulting; the app
// fails fast if required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import (
	"path/filepath"
	"time"
)

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr  string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS  bool   `koanf:"force_https"`
	CSRFKey     string `koanf:"csrf_key"`
	TemplateDir string `koanf:"template_dir"` // optional page overrides
}

//
// Backend section
//

// Backend points at the catalog REST API that owns brand and category
// records.  Timeout bounds every create, update, and get call.
type Backend struct {
	BaseURL string        `koanf:"base_url" validate:"required,url"`
	Timeout time.Duration `koanf:"timeout"`
}

//
// Media section
//

// Cloudinary credentials.  Only required when Media.Provider is cloudinary.
type Cloudinary struct {
	CloudName string `koanf:"cloud_name"`
	APIKey    string `koanf:"api_key"`
	APISecret string `koanf:"api_secret"`
}

// S3 describes an S3-compatible bucket (AWS, MinIO, R2).  PublicBaseURL is
// the prefix used to build durable object URLs.
type S3 struct {
	Bucket        string `koanf:"bucket"`
	Region        string `koanf:"region"`
	Endpoint      string `koanf:"endpoint"`
	AccessKey     string `koanf:"access_key"`
	SecretKey     string `koanf:"secret_key"`
	PublicBaseURL string `koanf:"public_base_url"`
	UsePathStyle  bool   `koanf:"use_path_style"`
}

// Media selects the upload host and the local acceptance limits.
type Media struct {
	Provider   string     `koanf:"provider"  validate:"oneof=cloudinary s3"`
	MaxBytes   int64      `koanf:"max_bytes" validate:"gt=0"`
	Folder     string     `koanf:"folder"`
	Cloudinary Cloudinary `koanf:"cloudinary"`
	S3         S3         `koanf:"s3"`
}

//
// Auth section
//

// Auth configures the admin gate.  JWTSecret signs and verifies HS256
// tokens; unauthenticated or non-admin callers are sent to LoginURL.
type Auth struct {
	JWTSecret  string `koanf:"jwt_secret"  validate:"required,min=16"`
	AdminRole  string `koanf:"admin_role"  validate:"required"`
	LoginURL   string `koanf:"login_url"   validate:"required"`
	CookieName string `koanf:"cookie_name" validate:"required"`
}

//
// I18n section
//

// I18n controls locale resolution.  FallbackLocale supplies messages for
// keys the requested locale does not define.  Dir, when set, holds YAML
// catalogs that override the embedded ones.
type I18n struct {
	DefaultLocale  string `koanf:"default_locale"  validate:"required"`
	FallbackLocale string `koanf:"fallback_locale" validate:"required"`
	Dir            string `koanf:"dir"`
}

//
// Forms section
//

// Forms points at optional entity definition overrides.
type Forms struct {
	Dir string `koanf:"dir"`
}

//
// Store section
//

// Store selects where open form instances live between requests.
type Store struct {
	Driver        string        `koanf:"driver"   validate:"oneof=memory redis"`
	Capacity      int           `koanf:"capacity" validate:"gt=0"`
	TTL           time.Duration `koanf:"ttl"`
	RedisAddr     string        `koanf:"redis_addr" validate:"required_if=Driver redis"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
}

//
// Database section
//

// Database is optional.  When DSN is set the admin gate additionally
// consults the role_acl tables for per-entity permissions.
type Database struct {
	DSN string `koanf:"dsn"`
}

//
// GeoIP section
//

// GeoIP enables country and city hints in request logs when DBPath points
// at a GeoLite2-City file.
type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

//
// Logging section
//

// Logging controls the rotating JSON log.  A relative Dir is resolved
// against Paths.Root.
type Logging struct {
	Dir        string `koanf:"dir"`
	Level      string `koanf:"level"        validate:"omitempty,oneof=debug info warn error"`
	MaxSizeMB  int    `koanf:"max_size_mb"  validate:"gte=0"`
	MaxBackups int    `koanf:"max_backups"  validate:"gte=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"gte=0"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.  The loader
// discovers `Root` (repo root or CATALOG_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string // CATALOG_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Backend  Backend  `koanf:"backend"`
	Media    Media    `koanf:"media"`
	Auth     Auth     `koanf:"auth"`
	I18n     I18n     `koanf:"i18n"`
	Forms    Forms    `koanf:"forms"`
	Store    Store    `koanf:"store"`
	Database Database `koanf:"database"`
	GeoIP    GeoIP    `koanf:"geoip"`
	Logging  Logging  `koanf:"logging"`
	Paths    Paths    `koanf:"-"` // not loaded from config files
}

// applyDefaults fills zero values that have a sensible production default.
func (c *Config) applyDefaults() {
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = ":8080"
	}
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = 10 * time.Second
	}
	if c.Media.Provider == "" {
		c.Media.Provider = "cloudinary"
	}
	if c.Media.MaxBytes == 0 {
		c.Media.MaxBytes = 2 << 20
	}
	if c.Media.Folder == "" {
		c.Media.Folder = "catalog"
	}
	if c.Auth.AdminRole == "" {
		c.Auth.AdminRole = "admin"
	}
	if c.Auth.LoginURL == "" {
		c.Auth.LoginURL = "/login"
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "access_token"
	}
	if c.I18n.DefaultLocale == "" {
		c.I18n.DefaultLocale = "vi"
	}
	if c.I18n.FallbackLocale == "" {
		c.I18n.FallbackLocale = "vi"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Store.Capacity == 0 {
		c.Store.Capacity = 4096
	}
	if c.Store.TTL <= 0 {
		c.Store.TTL = 2 * time.Hour
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
	if !filepath.IsAbs(c.Logging.Dir) {
		c.Logging.Dir = filepath.Join(c.Paths.Root, c.Logging.Dir)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 50
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 7
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = 14
	}
}
