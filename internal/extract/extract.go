// Package extract pulls the first image URL out of the loosely shaped
// parameter values a skill platform sends.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

const (
	maxDepth      = 32
	secureURLsKey = "secureUrls"
)

var (
	// Commas end a match so "List(a, b)" encodings split cleanly.
	urlPattern = regexp.MustCompile(`https?://[A-Za-z0-9\-._~:/?#\[\]@!$&'*+;=%]+`)

	errTooDeep = errors.New("value nested too deeply")
)

// Value is one node of a decoded parameter value: Object, Sequence, or Scalar.
// A nil Value stands for JSON null or an absent field.
type Value interface {
	firstURL(depth int) string
}

// Field is one member of an Object, kept in document order.
type Field struct {
	Key   string
	Value Value
}

// Object is a JSON object with its fields in document order.
type Object []Field

// Sequence is a JSON array.
type Sequence []Value

// Scalar is the text form of a string, number, or boolean.
type Scalar string

// FirstURL returns the first http(s) URL reachable from v by depth-first
// traversal, or "" when none is found.
func FirstURL(v Value) string {
	if v == nil {
		return ""
	}
	return v.firstURL(0)
}

// Get returns the value of the named field, or nil.
func (o Object) Get(key string) Value {
	for _, f := range o {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

func (o Object) firstURL(depth int) string {
	if depth > maxDepth {
		return ""
	}
	if fast := o.Get(secureURLsKey); fast != nil {
		if url := fast.firstURL(depth + 1); url != "" {
			return url
		}
	}
	for _, f := range o {
		if f.Key == secureURLsKey || f.Value == nil {
			continue
		}
		if url := f.Value.firstURL(depth + 1); url != "" {
			return url
		}
	}
	return ""
}

// Only the first element is considered; the skill handles one photo.
func (s Sequence) firstURL(depth int) string {
	if depth > maxDepth || len(s) == 0 || s[0] == nil {
		return ""
	}
	return s[0].firstURL(depth + 1)
}

func (s Scalar) firstURL(int) string {
	return urlPattern.FindString(string(s))
}

// Parse decodes raw JSON into a Value, preserving object field order.
// Malformed or overly nested input yields nil.
func Parse(raw []byte) Value {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	v, err := decodeValue(dec, 0)
	if err != nil {
		return nil
	}
	return v
}

func decodeValue(dec *json.Decoder, depth int) (Value, error) {
	if depth > maxDepth {
		return nil, errTooDeep
	}
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec, depth)
		case '[':
			return decodeSequence(dec, depth)
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	case string:
		return Scalar(t), nil
	case json.Number:
		return Scalar(t.String()), nil
	case bool:
		return Scalar(strconv.FormatBool(t)), nil
	default:
		return nil, nil
	}
}

func decodeObject(dec *json.Decoder, depth int) (Value, error) {
	obj := Object{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key token %v", keyTok)
		}
		val, err := decodeValue(dec, depth+1)
		if err != nil {
			return nil, err
		}
		obj = append(obj, Field{Key: key, Value: val})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("close object: %w", err)
	}
	return obj, nil
}

func decodeSequence(dec *json.Decoder, depth int) (Value, error) {
	seq := Sequence{}
	for dec.More() {
		val, err := decodeValue(dec, depth+1)
		if err != nil {
			return nil, err
		}
		seq = append(seq, val)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("close array: %w", err)
	}
	return seq, nil
}

// FromAny converts an already decoded value (maps, slices, scalars) into a
// Value. Map keys are visited in sorted order since Go maps carry none.
func FromAny(v any) Value {
	return fromAny(v, 0)
}

func fromAny(v any, depth int) Value {
	if depth > maxDepth {
		return nil
	}
	switch t := v.(type) {
	case nil:
		return nil
	case Value:
		return t
	case json.RawMessage:
		return Parse(t)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := make(Object, 0, len(keys))
		for _, k := range keys {
			obj = append(obj, Field{Key: k, Value: fromAny(t[k], depth+1)})
		}
		return obj
	case []any:
		seq := make(Sequence, 0, len(t))
		for _, item := range t {
			seq = append(seq, fromAny(item, depth+1))
		}
		return seq
	case []string:
		seq := make(Sequence, 0, len(t))
		for _, item := range t {
			seq = append(seq, Scalar(item))
		}
		return seq
	case string:
		return Scalar(t)
	default:
		return Scalar(fmt.Sprint(t))
	}
}
