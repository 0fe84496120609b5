// internal/logger/logger.go
//
// Structured JSON logger (Zap + Lumberjack).
//
// Context
// -------
// Logging starts in two steps.  Bootstrap installs a console-only logger
// so Vault and the config loader can report problems before any file
// sink exists.  Once config is loaded, New replaces it with the real
// logger: JSON to `<logging.dir>/YYYY-MM-DD.log` at `logging.level`, plus
// a console tee when running in a TTY.  Rotation and retention follow the
// `logging` section and are handled by Lumberjack.
//
// Usage
// -----
//
//	boot := logger.Bootstrap(tty)
//	cfg, err := config.Load(ctx, secrets)
//	log, err := logger.New(logger.FromConfig(cfg.Logging, tty))
//	log.Debugw("submission invalid", "entity", kind)
//
// Notes
// -----
// • Both cores share one AtomicLevel, so Level() can be raised at runtime.
// • Errors are written to the same sink via `ErrorOutput`.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yanizio/catalog-admin/internal/config"
)

// Options configures New.
type Options struct {
	Dir        string
	Level      zapcore.Level
	Tee        bool
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// FromConfig maps the logging section onto Options.  An unparsable level
// falls back to info; config validation rejects those before this point.
func FromConfig(c config.Logging, tee bool) Options {
	lvl, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	return Options{
		Dir:        c.Dir,
		Level:      lvl,
		Tee:        tee,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}

var level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// Level exposes the level shared by every core New builds.
func Level() zap.AtomicLevel { return level }

var encCfg = zapcore.EncoderConfig{
	TimeKey:      "ts",
	LevelKey:     "level",
	MessageKey:   "msg",
	CallerKey:    "caller",
	EncodeTime:   zapcore.ISO8601TimeEncoder,
	EncodeLevel:  zapcore.LowercaseLevelEncoder,
	EncodeCaller: zapcore.ShortCallerEncoder,
}

// Bootstrap installs a console logger for the start-up phase.  Without a
// TTY it writes to stderr so container runtimes still capture it.
func Bootstrap(tty bool) *zap.SugaredLogger {
	out := os.Stderr
	if tty {
		out = os.Stdout
	}
	z := zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(out), level)).Sugar()
	zap.ReplaceGlobals(z.Desugar())
	return z
}

// New returns a *zap.SugaredLogger writing JSON under o.Dir and installs
// it as the process-wide default via zap.ReplaceGlobals.
func New(o Options) (*zap.SugaredLogger, error) {
	if o.Dir == "" {
		return nil, fmt.Errorf("logger: no log directory")
	}
	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return nil, err
	}
	level.SetLevel(o.Level)

	fileSink := &lumberjack.Logger{
		Filename:   filepath.Join(o.Dir, time.Now().Format("2006-01-02")+".log"),
		MaxSize:    o.MaxSizeMB,
		MaxBackups: o.MaxBackups,
		MaxAge:     o.MaxAgeDays,
		Compress:   true,
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(fileSink), level),
	}
	if o.Tee {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stdout), level))
	}

	z := zap.New(
		zapcore.NewTee(cores...),
		zap.ErrorOutput(zapcore.AddSync(fileSink)),
	).Sugar()
	zap.ReplaceGlobals(z.Desugar())

	z.Infow("logger online", "dir", o.Dir, "level", o.Level.String(), "tee", o.Tee)
	return z, nil
}
