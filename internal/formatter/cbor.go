package formatter

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/dsh2dsh/logchain/internal/logger"
)

// CBORRecord is the shape of a record rendered by the CBOR formatter.
type CBORRecord struct {
	Channel   string         `cbor:"channel"`
	Level     int            `cbor:"level"`
	LevelName string         `cbor:"level_name"`
	Message   string         `cbor:"message"`
	Context   map[string]any `cbor:"context"`
	Extra     map[string]any `cbor:"extra"`
	Time      time.Time      `cbor:"datetime"`
}

// NewCBOR returns a formatter producing one CBOR data item per record. A
// batch is a CBOR sequence (RFC 8742).
func NewCBOR() (*CBOR, error) {
	em, err := cbor.EncOptions{
		Sort: cbor.SortCanonical,
		Time: cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor enc mode: %w", err)
	}
	return &CBOR{em: em}, nil
}

type CBOR struct {
	em cbor.EncMode
}

var _ Formatter = (*CBOR)(nil)

func (self *CBOR) Format(r logger.Record) ([]byte, error) {
	b, err := self.em.Marshal(CBORRecord{
		Channel:   r.Channel,
		Level:     r.Level.Rank(),
		LevelName: r.Level.Name(),
		Message:   r.Message,
		Context:   fieldsMap(r.Context),
		Extra:     fieldsMap(r.Extra),
		Time:      r.Time,
	})
	if err != nil {
		return nil, fmt.Errorf("cbor format: %w", err)
	}
	return b, nil
}

func (self *CBOR) FormatBatch(records []logger.Record) ([]byte, error) {
	return concatBatch(self, records)
}

// DecodeCBOR decodes one record rendered by the CBOR formatter.
func DecodeCBOR(b []byte) (r CBORRecord, err error) {
	if err = cbor.Unmarshal(b, &r); err != nil {
		err = fmt.Errorf("cbor decode: %w", err)
	}
	return
}

func fieldsMap(f logger.Fields) map[string]any {
	m := make(map[string]any, len(f))
	for _, field := range f {
		v := normalizeValue(field.Value)
		if nested, ok := v.(logger.Fields); ok {
			v = fieldsMap(nested)
		}
		m[field.Key] = v
	}
	return m
}
