package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L is the process-wide logger. It discards everything until Init is called,
// so packages can log unconditionally in tests.
var L = zap.NewNop().Sugar()

// Config controls logger construction.
type Config struct {
	Debug  bool   // debug level; otherwise only warnings and errors are emitted
	Format string // "json" or "human"
	File   string // optional extra output path
}

// Init builds the global logger. Output goes to stderr so command output on
// stdout stays clean.
func Init(cfg Config) error {
	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.DisableStacktrace = true
	}
	zc.OutputPaths = []string{"stderr"}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		zc.OutputPaths = append(zc.OutputPaths, cfg.File)
	}
	zc.ErrorOutputPaths = []string{"stderr"}
	if cfg.Debug {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	lg, err := zc.Build()
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	L = lg.Sugar()
	return nil
}

// With returns a child logger carrying the given key/value pairs.
func With(kv ...any) *zap.SugaredLogger { return L.With(kv...) }

// Sync flushes buffered entries.
func Sync() error { return L.Sync() }
