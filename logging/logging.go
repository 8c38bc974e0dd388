// Package logging builds the structured logger. Logs go to a file by
// default: stdout and stderr belong to the raw-mode terminal while a
// session runs.
package logging

import (
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	timeStampKey = "timestamp"
	messageKey   = "message"
)

// DefaultPath returns the per-user log file location.
func DefaultPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "searchnav.log"
	}
	return filepath.Join(dir, "searchnav", "searchnav.log")
}

// Setup opens the log sink and builds a logr.Logger over zap. verbosity
// maps to logr V levels: 0 logs info, higher values enable debug detail.
// The returned flush function must run before exit.
func Setup(path string, verbosity int) (logr.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return logr.Discard(), func() {}, err
	}
	sink, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return logr.Discard(), func() {}, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.TimeKey = timeStampKey
	encoderCfg.MessageKey = messageKey

	// logr V(n) arrives at zap as level -n.
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(sink),
		zap.NewAtomicLevelAt(zapcore.Level(-verbosity)),
	)
	zl := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))

	flush := func() {
		zl.Sync()
		sink.Close()
	}
	return zapr.NewLogger(zl), flush, nil
}
