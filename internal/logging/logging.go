// Package logging builds the CLI's zap logger. Runtime packages never log.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mcncl/jsonshape/internal/config"
)

const defaultMaxSizeMB = 100

// New returns a logger writing human-readable lines to console, or to a rotating file
// when cfg.File is set. The returned close function flushes and releases the output.
func New(cfg config.LogConfig, console io.Writer) (*zap.Logger, func() error, error) {
	level := zap.NewAtomicLevel()
	name := cfg.Level
	if name == "" {
		name = "info"
	}
	if strings.EqualFold(name, "trace") {
		name = "debug"
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return nil, nil, errors.Wrapf(err, "invalid log level %q", cfg.Level)
	}

	var (
		output  zapcore.WriteSyncer
		closeFn = func() error { return nil }
	)
	if cfg.File != "" {
		lj, err := fileOutput(cfg)
		if err != nil {
			return nil, nil, err
		}
		output = zapcore.AddSync(lj)
		closeFn = lj.Close
	} else {
		output = zapcore.Lock(zapcore.AddSync(console))
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	if cfg.File != "" {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), output, level)
	lg := zap.New(core, zap.ErrorOutput(output))
	return lg, func() error {
		_ = lg.Sync()
		return closeFn()
	}, nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}

func fileOutput(cfg config.LogConfig) (*lumberjack.Logger, error) {
	if st, err := os.Stat(cfg.File); err == nil && st.IsDir() {
		return nil, errors.Newf("can't use directory %s as log file name", cfg.File)
	}
	maxSize := cfg.MaxSizeMB
	if maxSize == 0 {
		maxSize = defaultMaxSizeMB
	}

	// lumberjack rotates by size and prunes old files by count and age
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}, nil
}
