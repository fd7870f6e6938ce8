package data

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"slices"
	"strconv"
)

// Field is one key/value pair of a request body.
type Field struct {
	Key   string
	Value any
}

// Body is an ordered request body or filter set. Order matters: INSERT columns
// and UPDATE assignments follow it.
type Body []Field

// BodyOf builds a Body from alternating keys and values.
// It panics on an odd argument count or a non-string key.
func BodyOf(kv ...any) Body {
	if len(kv)%2 != 0 {
		panic("data.BodyOf: odd number of arguments")
	}
	b := make(Body, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("data.BodyOf: key %v is not a string", kv[i]))
		}
		b = b.Set(key, kv[i+1])
	}
	return b
}

// BodyFromValues converts URL query values. Keys are sorted; repeated keys become []string.
func BodyFromValues(values url.Values) Body {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	b := make(Body, 0, len(keys))
	for _, k := range keys {
		vs := values[k]
		switch len(vs) {
		case 0:
			continue
		case 1:
			b = append(b, Field{Key: k, Value: vs[0]})
		default:
			b = append(b, Field{Key: k, Value: slices.Clone(vs)})
		}
	}
	return b
}

// Get returns the value stored under key.
func (b Body) Get(key string) (any, bool) {
	for _, f := range b {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Set replaces the value under key, or appends it.
func (b Body) Set(key string, value any) Body {
	for i, f := range b {
		if f.Key == key {
			b[i].Value = value
			return b
		}
	}
	return append(b, Field{Key: key, Value: value})
}

// Without returns a copy of b lacking the given keys.
func (b Body) Without(keys ...string) Body {
	out := make(Body, 0, len(b))
	for _, f := range b {
		if !slices.Contains(keys, f.Key) {
			out = append(out, f)
		}
	}
	return out
}

// Keys returns the keys in order.
func (b Body) Keys() []string {
	keys := make([]string, len(b))
	for i, f := range b {
		keys[i] = f.Key
	}
	return keys
}

// HasEmptyValue reports whether b has no fields or any field is nil or "".
func (b Body) HasEmptyValue() bool {
	if len(b) == 0 {
		return true
	}
	for _, f := range b {
		if f.Value == nil {
			return true
		}
		if s, ok := f.Value.(string); ok && s == "" {
			return true
		}
	}
	return false
}

// MarshalJSON writes b as an object, preserving order.
func (b Body) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping key order. Integral numbers become
// int64 and other numbers float64. A repeated key keeps its first position and last value.
func (b *Body) UnmarshalJSON(raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*b = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("request body must be a JSON object")
	}

	out := Body{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", keyTok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return err
		}
		out = out.Set(key, normalizeJSON(v))
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*b = out
	return nil
}

func normalizeJSON(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		for i := range t {
			t[i] = normalizeJSON(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = normalizeJSON(t[k])
		}
		return t
	}
	return v
}

// numeric returns v as an int64 or float64 if it is a number or a numeric string.
func numeric(v any) (any, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return uint64ToNumber(uint64(t))
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		return uint64ToNumber(t)
	case float32:
		return floatToNumber(float64(t))
	case float64:
		return floatToNumber(t)
	case json.Number:
		return numericString(t.String())
	case string:
		return numericString(t)
	}
	return nil, false
}

func numericString(s string) (any, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	return floatToNumber(f)
}

func floatToNumber(f float64) (any, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f), true
	}
	return f, true
}

func uint64ToNumber(u uint64) (any, bool) {
	if u > math.MaxInt64 {
		return float64(u), true
	}
	return int64(u), true
}

// integer returns v as an int64 if it is an integral number or integer string.
func integer(v any) (int64, bool) {
	n, ok := numeric(v)
	if !ok {
		return 0, false
	}
	i, ok := n.(int64)
	return i, ok
}

// coerce turns numeric strings into numbers and leaves everything else untouched.
func coerce(v any) any {
	if s, ok := v.(string); ok {
		if n, ok := numericString(s); ok {
			return n
		}
	}
	return v
}

// listItems returns the elements of a slice or array value. []byte is not a list.
func listItems(v any) ([]any, bool) {
	switch t := v.(type) {
	case nil, []byte, string:
		return nil, false
	case []any:
		return t, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}
