package formatter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/dsh2dsh/logchain/internal/logger"
)

const DefaultTimeLayout = "2006-01-02T15:04:05.000000-07:00"

var levelColors = map[logger.Level]*color.Color{
	logger.Debug:     newColor(color.FgWhite),
	logger.Timer:     newColor(color.FgBlue),
	logger.Event:     newColor(color.FgBlue),
	logger.Info:      newColor(color.FgGreen),
	logger.Notice:    newColor(color.FgCyan),
	logger.Warning:   newColor(color.FgYellow),
	logger.Error:     newColor(color.FgRed),
	logger.Critical:  newColor(color.FgRed, color.Bold),
	logger.Alert:     newColor(color.FgHiRed, color.Bold),
	logger.Emergency: newColor(color.FgHiWhite, color.BgRed, color.Bold),
}

func newColor(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	c.EnableColor()
	return c
}

// NewLine returns the human readable formatter:
//
//	[time] channel.LEVEL: message {context} {extra}
//
// Empty context and extra are rendered as [].
func NewLine() *Line {
	return &Line{timeLayout: DefaultTimeLayout}
}

type Line struct {
	timeLayout string

	color            bool
	inlineLineBreaks bool
	ignoreEmpty      bool
}

var _ Formatter = (*Line)(nil)

func (self *Line) WithTimeLayout(layout string) *Line {
	self.timeLayout = layout
	return self
}

// WithColor colors the level name by severity.
func (self *Line) WithColor(enable bool) *Line {
	self.color = enable
	return self
}

// WithInlineLineBreaks keeps line feeds of the message. By default they are
// replaced by spaces, so every record renders as exactly one line.
func (self *Line) WithInlineLineBreaks(enable bool) *Line {
	self.inlineLineBreaks = enable
	return self
}

// WithIgnoreEmpty omits empty context and extra instead of rendering [].
func (self *Line) WithIgnoreEmpty(enable bool) *Line {
	self.ignoreEmpty = enable
	return self
}

func (self *Line) Format(r logger.Record) ([]byte, error) {
	b := newBuffer()
	b.WriteByte('[')
	b.WriteString(r.Time.Format(self.timeLayout))
	b.WriteString("] ")
	b.WriteString(r.Channel)
	b.WriteByte('.')
	b.WriteString(self.levelName(r.Level))
	b.WriteString(": ")
	b.WriteString(self.message(r.Message))

	for _, f := range [...]logger.Fields{r.Context, r.Extra} {
		if len(f) == 0 && self.ignoreEmpty {
			continue
		}
		s, err := self.fields(f)
		if err != nil {
			b.free()
			return nil, err
		}
		b.WriteByte(' ')
		b.WriteString(s)
	}

	b.WriteByte('\n')
	return b.Detach(), nil
}

func (self *Line) FormatBatch(records []logger.Record) ([]byte, error) {
	return concatBatch(self, records)
}

func (self *Line) levelName(l logger.Level) string {
	if !self.color {
		return l.Name()
	}
	c, ok := levelColors[l]
	if !ok {
		return l.Name()
	}
	return c.Sprint(l.Name())
}

func (self *Line) message(s string) string {
	if self.inlineLineBreaks {
		return s
	}
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

func (self *Line) fields(f logger.Fields) (string, error) {
	if len(f) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(normalize(f))
	if err != nil {
		return "", fmt.Errorf("format fields: %w", err)
	}
	return string(b), nil
}

// normalize makes values which encoding/json can't represent printable.
func normalize(f logger.Fields) logger.Fields {
	out := make(logger.Fields, len(f))
	for i, field := range f {
		out[i] = logger.Field{Key: field.Key, Value: normalizeValue(field.Value)}
	}
	return out
}

func normalizeValue(v any) any {
	switch v := v.(type) {
	case logger.Fields:
		return normalize(v)
	case error:
		return v.Error()
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case time.Duration:
		return v.String()
	case fmt.Stringer:
		return v.String()
	}
	return v
}
