// Package zap adapts a *zap.Logger to tilecache.Logger.
package zap

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/tilecache"
)

var _ tilecache.Logger = Logger{}

type Logger struct{ L *zap.Logger }

// New builds a JSON production logger writing to stdout at level
// ("debug", "info", "warn" or "error"; anything else means info).
func New(level string) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.Encoding = "json"
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return Logger{}, err
	}
	return Logger{L: l.Named("tilecache")}, nil
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

func (z Logger) Debug(msg string, f tilecache.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f tilecache.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f tilecache.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f tilecache.Fields) { z.L.Error(msg, fields(f)...) }

func fields(f tilecache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
