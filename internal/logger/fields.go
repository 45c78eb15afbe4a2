package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

type Field struct {
	Key   string
	Value any
}

// Fields is a string-keyed map which keeps insertion order. The zero value
// is an empty map ready to use.
type Fields []Field

// FieldsFromMap returns fields in the order given by keys. Keys missing
// from m are skipped.
func FieldsFromMap(m map[string]any, keys ...string) Fields {
	f := make(Fields, 0, len(m))
	for _, k := range keys {
		if v, ok := m[k]; ok {
			f = append(f, Field{k, v})
		}
	}
	return f
}

func (self Fields) Len() int { return len(self) }

func (self Fields) index(key string) int {
	return slices.IndexFunc(self, func(f Field) bool { return f.Key == key })
}

func (self Fields) Get(key string) (any, bool) {
	if i := self.index(key); i >= 0 {
		return self[i].Value, true
	}
	return nil, false
}

func (self Fields) Has(key string) bool { return self.index(key) >= 0 }

// With returns a copy of self with key set to value. An existing key keeps
// its position, a new one is appended. self is never modified.
func (self Fields) With(key string, value any) Fields {
	f := make(Fields, len(self), len(self)+1)
	copy(f, self)
	if i := f.index(key); i >= 0 {
		f[i].Value = value
		return f
	}
	return append(f, Field{key, value})
}

// Without returns a copy of self without key.
func (self Fields) Without(key string) Fields {
	i := self.index(key)
	if i < 0 {
		return self.Clone()
	}
	f := make(Fields, 0, len(self)-1)
	f = append(f, self[:i]...)
	return append(f, self[i+1:]...)
}

func (self Fields) Keys() []string {
	keys := make([]string, len(self))
	for i, f := range self {
		keys[i] = f.Key
	}
	return keys
}

func (self Fields) Map() map[string]any {
	m := make(map[string]any, len(self))
	for _, f := range self {
		m[f.Key] = f.Value
	}
	return m
}

// Clone returns a copy with its own backing array. Values are copied
// shallowly, except nested Fields which are cloned too.
func (self Fields) Clone() Fields {
	if self == nil {
		return nil
	}
	f := make(Fields, len(self))
	for i, field := range self {
		if nested, ok := field.Value.(Fields); ok {
			field.Value = nested.Clone()
		}
		f[i] = field
	}
	return f
}

var (
	_ json.Marshaler   = (Fields)(nil)
	_ json.Unmarshaler = (*Fields)(nil)
)

// MarshalJSON encodes fields as a JSON object keeping insertion order.
func (self Fields) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, f := range self {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", f.Key, err)
		}
		b.Write(key)
		b.WriteByte(':')
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal value of %q: %w", f.Key, err)
		}
		b.Write(value)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping the order of its keys. Nested
// objects are decoded as Fields too.
func (self *Fields) UnmarshalJSON(input []byte) error {
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()
	f, err := decodeFields(dec)
	if err != nil {
		return fmt.Errorf("unmarshal fields: %w", err)
	}
	*self = f
	return nil
}

func decodeFields(dec *json.Decoder) (Fields, error) {
	t, err := dec.Token()
	if err != nil {
		return nil, err
	} else if t == nil {
		return nil, nil
	} else if delim, ok := t.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("expected JSON object")
	}

	f := Fields{}
	for dec.More() {
		t, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := t.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", t)
		}
		value, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("decode %q: %w", key, err)
		}
		f = append(f, Field{key, value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return f, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		nested := json.NewDecoder(bytes.NewReader(raw))
		nested.UseNumber()
		return decodeFields(nested)
	}

	var v any
	nested := json.NewDecoder(bytes.NewReader(raw))
	nested.UseNumber()
	if err := nested.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
