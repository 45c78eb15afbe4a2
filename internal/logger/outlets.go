package logger

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

func NewBridge(channel string, d Dispatcher) *Bridge {
	return &Bridge{channel: channel, d: d}
}

// Bridge is a slog.Handler which converts slog records into Records and
// dispatches them. Attributes become the record context, groups are
// flattened into dotted keys.
type Bridge struct {
	channel string
	d       Dispatcher

	attrs  Fields
	groups []string
}

var _ slog.Handler = (*Bridge)(nil)

type levelFilter interface {
	IsHandling(level Level) bool
}

func (self *Bridge) Enabled(_ context.Context, level slog.Level) bool {
	if f, ok := self.d.(levelFilter); ok {
		return f.IsHandling(LevelFromSlog(level))
	}
	return true
}

func (self *Bridge) Handle(ctx context.Context, r slog.Record) error {
	ctxFields := self.attrs.Clone()
	r.Attrs(func(a slog.Attr) bool {
		ctxFields = appendAttr(ctxFields, self.groups, a)
		return true
	})

	rec := Record{
		Channel: self.channel,
		Level:   LevelFromSlog(r.Level),
		Message: r.Message,
		Context: ctxFields,
		Time:    r.Time,
	}
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}

	if _, err := self.d.Dispatch(ctx, rec); err != nil {
		err = fmt.Errorf("logger: one of handlers failed: %w", err)
		self.logInternalError(ctx, err)
		return err
	}
	return nil
}

func (self *Bridge) logInternalError(ctx context.Context, err error) {
	r := NewRecord(self.channel, Error, "unable log message",
		Fields{{FieldError, err.Error()}})
	// ignore errors at this point (still better than panicking if the error is
	// temporary)
	_, _ = self.d.Dispatch(ctx, r)
}

func (self *Bridge) WithAttrs(attrs []slog.Attr) slog.Handler {
	return self.withAttrs(attrs)
}

func (self *Bridge) withAttrs(attrs []slog.Attr) *Bridge {
	b := self.clone()
	for _, a := range attrs {
		b.attrs = appendAttr(b.attrs, b.groups, a)
	}
	return b
}

func (self *Bridge) WithGroup(name string) slog.Handler {
	if name == "" {
		return self
	}
	b := self.clone()
	b.groups = append(b.groups, name)
	return b
}

func (self *Bridge) clone() *Bridge {
	b := *self
	b.attrs = self.attrs.Clone()
	b.groups = slices.Clip(self.groups)
	return &b
}

func (self *Bridge) contextWith(fields []Field) Fields {
	f := self.attrs.Clone()
	for _, field := range fields {
		f = f.With(field.Key, field.Value)
	}
	return f
}

func appendAttr(f Fields, groups []string, a slog.Attr) Fields {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return f
	}

	if a.Value.Kind() == slog.KindGroup {
		nested := groups
		if a.Key != "" {
			nested = append(slices.Clip(groups), a.Key)
		}
		for _, ga := range a.Value.Group() {
			f = appendAttr(f, nested, ga)
		}
		return f
	}

	key := a.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}
	return f.With(key, a.Value.Any())
}
