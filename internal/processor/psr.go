package processor

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dsh2dsh/logchain/internal/logger"
)

var placeholderRegexp = regexp.MustCompile(`\{([A-Za-z0-9_.]+)\}`)

// NewPsrPlaceholder returns a processor which replaces "{key}" placeholders
// of the message with values from the record context.
func NewPsrPlaceholder() *PsrPlaceholder {
	return &PsrPlaceholder{timeLayout: time.RFC3339Nano}
}

type PsrPlaceholder struct {
	timeLayout string
	removeUsed bool
}

func (self *PsrPlaceholder) WithTimeLayout(layout string) *PsrPlaceholder {
	self.timeLayout = layout
	return self
}

// WithRemoveUsed removes context fields which were substituted into the
// message.
func (self *PsrPlaceholder) WithRemoveUsed(v bool) *PsrPlaceholder {
	self.removeUsed = v
	return self
}

func (self *PsrPlaceholder) Process(r logger.Record) logger.Record {
	if !strings.Contains(r.Message, "{") {
		return r
	}

	var used []string
	r.Message = placeholderRegexp.ReplaceAllStringFunc(r.Message,
		func(m string) string {
			key := m[1 : len(m)-1]
			v, ok := r.Context.Get(key)
			if !ok {
				return m
			}
			used = append(used, key)
			return self.stringify(v)
		})

	if self.removeUsed {
		for _, key := range used {
			r.Context = r.Context.Without(key)
		}
	}
	return r
}

func (self *PsrPlaceholder) stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return v
	case time.Time:
		return v.Format(self.timeLayout)
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32,
		uint64, float32, float64, json.Number:
		return fmt.Sprint(v)
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("[%T]", v)
	}
	return string(b)
}
