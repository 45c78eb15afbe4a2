package formatter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"unicode"

	"github.com/dsh2dsh/logchain/internal/logger"
)

const (
	ChannelKey = "channel"
	ExtraKey   = "extra"

	stdTimeLayout = "2006/01/02 15:04:05"
)

// NewSlog returns a formatter which renders records with slog handlers:
// logfmt style key=value pairs by default, or one JSON object per line
// after WithJsonHandler.
func NewSlog() *Slog {
	f := &Slog{
		b:          new(buffer),
		logLevel:   true,
		logTime:    true,
		timeLayout: stdTimeLayout,
		mu:         new(sync.Mutex),
	}
	return f.WithTextHandler()
}

type Slog struct {
	b    *buffer
	hide map[string]struct{}
	json bool

	logLevel   bool
	logTime    bool
	timeLayout string

	h  slog.Handler
	mu *sync.Mutex
}

var _ Formatter = (*Slog)(nil)

func (self *Slog) WithLogMetadata(v bool) *Slog {
	self.WithLogLevel(v)
	self.WithLogTime(v)
	return self
}

// WithHideFields drops context fields with these keys from the output.
func (self *Slog) WithHideFields(fields []string) *Slog {
	self.hide = make(map[string]struct{}, len(fields))
	for _, field := range fields {
		self.hide[field] = struct{}{}
	}
	return self
}

func (self *Slog) WithJsonHandler() *Slog {
	self.json = true
	self.h = slog.NewJSONHandler(self.b, &slog.HandlerOptions{
		Level:       slog.LevelDebug - 8,
		ReplaceAttr: self.replaceJsonAttr,
	})
	return self
}

func (self *Slog) WithTextHandler() *Slog {
	self.json = false
	self.h = slog.NewTextHandler(self.b, &slog.HandlerOptions{
		Level:       slog.LevelDebug - 8,
		ReplaceAttr: self.replaceTextAttr,
	})
	return self
}

func (self *Slog) WithLogTime(enable bool) *Slog {
	self.logTime = enable
	return self
}

func (self *Slog) WithLogLevel(enable bool) *Slog {
	self.logLevel = enable
	return self
}

func (self *Slog) WithTimeLayout(layout string) *Slog {
	self.timeLayout = layout
	return self
}

func (self *Slog) replaceTextAttr(groups []string, a slog.Attr,
) slog.Attr {
	switch a.Key {
	case slog.TimeKey, slog.LevelKey, slog.MessageKey:
		if len(groups) == 0 {
			return slog.Attr{}
		}
	}
	return self.replaceHiddenAttr(groups, a)
}

func (self *Slog) replaceJsonAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch a.Key {
		case slog.TimeKey:
			if !self.logTime {
				return slog.Attr{}
			}
		case slog.LevelKey:
			if !self.logLevel {
				return slog.Attr{}
			}
			if l, ok := a.Value.Any().(slog.Level); ok {
				return slog.String(a.Key, logger.LevelFromSlog(l).WireName())
			}
		}
	}
	return self.replaceHiddenAttr(groups, a)
}

func (self *Slog) replaceHiddenAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && self.hiddenField(a.Key) {
		return slog.Attr{}
	}
	return a
}

func (self *Slog) hiddenField(name string) bool {
	_, hide := self.hide[name]
	return hide
}

func (self *Slog) Format(r logger.Record) ([]byte, error) {
	self.lock()
	defer self.mu.Unlock()
	if err := self.format(r); err != nil {
		self.b.free()
		return nil, err
	}
	self.b.WriteByte('\n')
	return self.b.Detach(), nil
}

func (self *Slog) FormatBatch(records []logger.Record) ([]byte, error) {
	return concatBatch(self, records)
}

func (self *Slog) lock() {
	self.mu.Lock()
	self.b.alloc()
}

func (self *Slog) format(r logger.Record) error {
	self.formatStd(r)

	sr := slog.NewRecord(r.Time, r.Level.Slog(), r.Message, 0)
	if self.json {
		sr.AddAttrs(slog.String(ChannelKey, r.Channel))
	}
	sr.AddAttrs(fieldAttrs(r.Context)...)
	if len(r.Extra) > 0 {
		sr.AddAttrs(slog.Attr{
			Key:   ExtraKey,
			Value: slog.GroupValue(fieldAttrs(r.Extra)...),
		})
	}

	if err := self.h.Handle(context.Background(), sr); err != nil {
		return fmt.Errorf("failed slog handler: %w", err)
	}

	// Discard trailing '\n', added by slog handlers, and trailing ' ' added by
	// formatStd.
	b := self.b.Bytes()
	b = bytes.TrimRightFunc(b, unicode.IsSpace)
	self.b.Truncate(len(b))
	return nil
}

func (self *Slog) formatStd(r logger.Record) {
	if self.json {
		return
	}

	if self.logTime {
		self.b.WriteString(r.Time.Format(self.timeLayout))
		self.b.WriteByte(' ')
	}

	self.b.WriteString(r.Channel)
	if self.logLevel {
		self.b.WriteByte('.')
		self.b.WriteString(r.Level.Name())
	}
	self.b.WriteString(": ")
	self.b.WriteString(r.Message)
	self.b.WriteByte(' ')
}

func fieldAttrs(f logger.Fields) []slog.Attr {
	attrs := make([]slog.Attr, len(f))
	for i, field := range f {
		if nested, ok := field.Value.(logger.Fields); ok {
			attrs[i] = slog.Attr{
				Key:   field.Key,
				Value: slog.GroupValue(fieldAttrs(nested)...),
			}
			continue
		}
		attrs[i] = slog.Any(field.Key, field.Value)
	}
	return attrs
}
