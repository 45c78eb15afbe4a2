package logger

import "time"

// Record is a single log event. Handlers treat it as immutable: anything
// which modifies a record works on its own copy, see Clone.
type Record struct {
	Channel string
	Level   Level
	Message string
	Context Fields
	Extra   Fields
	Time    time.Time
}

func NewRecord(channel string, level Level, msg string, ctx Fields) Record {
	return Record{
		Channel: channel,
		Level:   level,
		Message: msg,
		Context: ctx,
		Time:    time.Now(),
	}
}

// Clone returns a copy of r which shares no Context or Extra storage with
// r, so processors applied to the copy never leak into sibling handlers.
func (r Record) Clone() Record {
	r.Context = r.Context.Clone()
	r.Extra = r.Extra.Clone()
	return r
}

func (r Record) WithExtra(key string, value any) Record {
	r.Extra = r.Extra.With(key, value)
	return r
}

func (r Record) WithContext(key string, value any) Record {
	r.Context = r.Context.With(key, value)
	return r
}
