package tiercache

import "fmt"

// Fields is a minimal structured field map for logs.
type Fields map[string]any

// Logger is a tiny leveled logger. Provide an adapter around logging stack
// (see log/logrus, log/zap, log/slog). If no Logger is configured, logging is disabled.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}

// cronLogger bridges Logger to robfig/cron's key/value logger.
type cronLogger struct{ l Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("flush scheduler: "+msg, kvFields(keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	f := kvFields(keysAndValues)
	f["err"] = err
	c.l.Error("flush scheduler: "+msg, f)
}

func kvFields(kv []any) Fields {
	f := make(Fields, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
