// Package ordered provides an insertion-ordered, string-keyed map and a
// compact JSON-style serializer that keeps that order on output.
//
// Rendered settings files must be byte-for-byte reproducible, so nothing in
// this package ever iterates a Go map.
package ordered

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Pair is a single key/value entry of a Map.
type Pair struct {
	Key   string
	Value any
}

// Map is a string-keyed map that remembers insertion order. The zero value
// is an empty map ready for use.
type Map struct {
	pairs []Pair
	index map[string]int
}

// New returns an empty Map.
func New() *Map {
	return &Map{}
}

// Set stores value under key. Setting an existing key replaces its value in
// place without changing its position.
func (m *Map) Set(key string, value any) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[key]; ok {
		m.pairs[i].Value = value
		return
	}
	m.index[key] = len(m.pairs)
	m.pairs = append(m.pairs, Pair{Key: key, Value: value})
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}
	return m.pairs[i].Value, true
}

// Len reports the number of entries. A nil Map has length zero.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.pairs)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, len(m.pairs))
	for i, p := range m.pairs {
		keys[i] = p.Key
	}
	return keys
}

// Pairs returns a copy of the entries in insertion order.
func (m *Map) Pairs() []Pair {
	if m == nil {
		return nil
	}
	out := make([]Pair, len(m.pairs))
	copy(out, m.pairs)
	return out
}

// MarshalJSON implements json.Marshaler using the compact ordered encoding.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Marshal serializes v as compact JSON (no insignificant whitespace, no HTML
// escaping). Supported values are nil, *Map, string, bool, the integer and
// float kinds, []string and []any.
func Marshal(v any) (string, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func encode(buf *bytes.Buffer, v any) error {
	switch v := v.(type) {
	case nil:
		buf.WriteString("null")
	case *Map:
		buf.WriteByte('{')
		if v != nil {
			for i, p := range v.pairs {
				if i > 0 {
					buf.WriteByte(',')
				}
				if err := encodeString(buf, p.Key); err != nil {
					return err
				}
				buf.WriteByte(':')
				if err := encode(buf, p.Value); err != nil {
					return fmt.Errorf("key %q: %w", p.Key, err)
				}
			}
		}
		buf.WriteByte('}')
	case string:
		return encodeString(buf, v)
	case bool:
		buf.WriteString(strconv.FormatBool(v))
	case int:
		buf.WriteString(strconv.Itoa(v))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(v, 10))
	case uint:
		buf.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(v, 10))
	case float64:
		buf.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	case []string:
		buf.WriteByte('[')
		for i, s := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, s); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case []any:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("ordered: unsupported value type %T", v)
	}
	return nil
}

// encodeString writes s as a JSON string literal. HTML escaping is disabled
// so that values such as "<" survive verbatim.
func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
