package formatter

import (
	"encoding/json"
	"fmt"

	"github.com/dsh2dsh/logchain/internal/logger"
)

// NewFluentd returns a formatter producing fluentd's JSON message format:
//
//	["tag", unix_time, {"message": ..., "context": ..., "extra": ...}]
//
// The tag is the channel. With a level tag it's "channel.wire_level" and
// the level fields are omitted from the message.
func NewFluentd() *Fluentd { return &Fluentd{} }

type Fluentd struct {
	levelTag bool
}

var _ Formatter = (*Fluentd)(nil)

func (self *Fluentd) WithLevelTag(enable bool) *Fluentd {
	self.levelTag = enable
	return self
}

func (self *Fluentd) LevelTag() bool { return self.levelTag }

func (self *Fluentd) Format(r logger.Record) ([]byte, error) {
	tag := r.Channel
	if self.levelTag {
		tag += "." + r.Level.WireName()
	}

	msg := logger.Fields{
		{Key: "message", Value: r.Message},
		{Key: "context", Value: fieldsOrEmpty(r.Context)},
		{Key: "extra", Value: fieldsOrEmpty(r.Extra)},
	}
	if !self.levelTag {
		msg = msg.With("level", r.Level.Rank()).
			With("level_name", r.Level.Name())
	}

	b, err := json.Marshal([]any{tag, r.Time.Unix(), msg})
	if err != nil {
		return nil, fmt.Errorf("fluentd format: %w", err)
	}
	return append(b, '\n'), nil
}

func (self *Fluentd) FormatBatch(records []logger.Record) ([]byte, error) {
	return concatBatch(self, records)
}

func fieldsOrEmpty(f logger.Fields) logger.Fields {
	if f == nil {
		return logger.Fields{}
	}
	return normalize(f)
}
