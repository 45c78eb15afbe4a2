package processor

import (
	"os"
	"runtime"

	"github.com/dustin/go-humanize"

	"github.com/dsh2dsh/logchain/internal/logger"
)

const (
	HostnameField = "hostname"
	MemoryField   = "memory_usage"
	TagsField     = "tags"
)

// Hostname adds the name of the host to the extra of every record.
func Hostname() Processor {
	host, err := os.Hostname()
	if err != nil {
		host = "-"
	}
	return func(r logger.Record) logger.Record {
		return r.WithExtra(HostnameField, host)
	}
}

// Memory adds the size of allocated heap objects to the extra of every
// record. With humanized set, the size is formatted like "3.1 MB".
func Memory(humanized bool) Processor {
	return func(r logger.Record) logger.Record {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		if humanized {
			return r.WithExtra(MemoryField, humanize.Bytes(m.HeapAlloc))
		}
		return r.WithExtra(MemoryField, m.HeapAlloc)
	}
}

// Tags adds a static list of tags to the extra of every record.
func Tags(tags ...string) Processor {
	return func(r logger.Record) logger.Record {
		return r.WithExtra(TagsField, append([]string(nil), tags...))
	}
}

// MinLevel wraps p so it only runs for records at level or more severe.
func MinLevel(level logger.Level, p Processor) Processor {
	return func(r logger.Record) logger.Record {
		if !level.Includes(r.Level) {
			return r
		}
		return p(r)
	}
}
