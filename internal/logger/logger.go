package logger

import (
	"context"
	"log/slog"
)

const (
	// The field set by WithError function
	FieldError = "err"
)

// Dispatcher delivers records to handlers. It's implemented by
// handler.Chain.
type Dispatcher interface {
	Dispatch(ctx context.Context, r Record) (bool, error)
}

func WithError(l *slog.Logger, err error, msg string) *slog.Logger {
	if err != nil {
		l = l.With(slog.String(FieldError, err.Error()))
	}
	if msg != "" {
		l.Error(msg)
	}
	return l
}

// Logger emits records of one channel. It's a slog.Logger, so any slog
// call ends up as a Record, and Emit gives access to levels slog has no
// name for.
type Logger struct {
	*slog.Logger

	bridge *Bridge
}

func NewLogger(channel string, d Dispatcher) *Logger {
	return newLogger(NewBridge(channel, d))
}

func newLogger(b *Bridge) *Logger {
	return &Logger{Logger: slog.New(b), bridge: b}
}

func (self *Logger) Channel() string { return self.bridge.channel }

func (self *Logger) WithField(field string, val any) *Logger {
	return self.with(slog.Any(field, val))
}

func (self *Logger) WithError(err error) *Logger {
	if err == nil {
		return self
	}
	return self.with(slog.String(FieldError, err.Error()))
}

func (self *Logger) WithChannel(channel string) *Logger {
	b := self.bridge.clone()
	b.channel = channel
	return newLogger(b)
}

func (self *Logger) with(attrs ...slog.Attr) *Logger {
	return newLogger(self.bridge.withAttrs(attrs))
}

// Emit creates a record at level and dispatches it. It reports whether any
// handler accepted the record, together with the first handler failure.
func (self *Logger) Emit(ctx context.Context, level Level, msg string,
	fields ...Field,
) (bool, error) {
	r := NewRecord(self.bridge.channel, level, msg,
		self.bridge.contextWith(fields))
	return self.bridge.d.Dispatch(ctx, r)
}
