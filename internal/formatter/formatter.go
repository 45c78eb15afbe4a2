// Package formatter renders records into the bytes a sink writes.
package formatter

import (
	"bytes"
	"fmt"

	"github.com/dsh2dsh/logchain/internal/logger"
)

// Formatter renders one record or a batch of records. Output of Format is
// line oriented: sinks which split on line feeds, like syslog datagrams,
// expect a single logical message not to contain unescaped line feeds.
type Formatter interface {
	Format(r logger.Record) ([]byte, error)
	FormatBatch(records []logger.Record) ([]byte, error)
}

// Default is the formatter used by handlers which have none set.
func Default() Formatter { return NewLine() }

func concatBatch(f Formatter, records []logger.Record) ([]byte, error) {
	var b bytes.Buffer
	for i := range records {
		formatted, err := f.Format(records[i])
		if err != nil {
			return nil, fmt.Errorf("format record #%d: %w", i, err)
		}
		b.Write(formatted)
	}
	return b.Bytes(), nil
}
