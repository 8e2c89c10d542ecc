// Package logging builds the zap logger used across the scanner.
//
// Production scans emit JSON to stdout by default; when a file path is
// configured the output is rotated with lumberjack so long-running scan
// workers do not fill the disk.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction.
type Options struct {
	Level      string // debug, info, warn, error
	FilePath   string // empty means stdout only
	MaxSizeMB  int    // rotation threshold per log file
	MaxBackups int    // rotated files to retain
	MaxAgeDays int    // days to retain rotated files
	Console    bool   // human-readable console encoding instead of JSON
}

// New constructs a SugaredLogger from opts. It never fails: bad levels fall
// back to info, and a missing file path falls back to stdout.
func New(opts Options) *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if parsed, err := zapcore.ParseLevel(opts.Level); err == nil {
			level = parsed
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if opts.Console {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	var sink zapcore.WriteSyncer
	if opts.FilePath != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    defaultInt(opts.MaxSizeMB, 50),
			MaxBackups: defaultInt(opts.MaxBackups, 5),
			MaxAge:     defaultInt(opts.MaxAgeDays, 14),
			Compress:   true,
		})
	} else {
		sink = zapcore.Lock(os.Stdout)
	}

	core := zapcore.NewCore(enc, sink, level)
	return zap.New(core).Sugar()
}

// Nop returns a logger that discards everything. Collectors accept it as a
// safe default so library users are never forced to configure logging.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func defaultInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
