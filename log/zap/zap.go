// Package zap adapts a zap logger to tiercache.Logger.
package zap

import (
	"go.uber.org/zap"

	"github.com/unkn0wn-root/tiercache"
)

var _ tiercache.Logger = Logger{}

type Logger struct{ L *zap.Logger }

// New wraps l; a nil l discards everything.
func New(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return Logger{L: l}
}

func (z Logger) Debug(msg string, f tiercache.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f tiercache.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f tiercache.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f tiercache.Fields) { z.L.Error(msg, fields(f)...) }

func fields(f tiercache.Fields) []zap.Field {
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
