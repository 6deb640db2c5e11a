package catalog

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind enumerates the shapes a raw field value can take.
type Kind int

const (
	KindMissing Kind = iota
	KindNull
	KindString
	KindNumber
	KindBool
	KindList
	KindObject
)

// Record is one raw catalog entry as delivered by the source. Field names
// arrive in any casing. Decoders should use json.Decoder.UseNumber so numbers
// keep their literal form.
type Record map[string]any

// Value is a decoded field of a Record tagged with its Kind.
type Value struct {
	kind Kind
	raw  any
}

// Get returns the first field found for the candidate names. Each candidate is
// tried as written, fully lowercased and fully uppercased, in that order.
func (r Record) Get(candidates ...string) Value {
	for _, name := range candidates {
		for _, k := range [...]string{name, strings.ToLower(name), strings.ToUpper(name)} {
			if v, ok := r[k]; ok {
				return ValueOf(v)
			}
		}
	}
	return Value{kind: KindMissing}
}

// ValueOf tags a value decoded by encoding/json.
func ValueOf(v any) Value {
	switch t := v.(type) {
	case nil:
		return Value{kind: KindNull}
	case string:
		return Value{kind: KindString, raw: t}
	case json.Number, float64, float32, int, int64:
		return Value{kind: KindNumber, raw: t}
	case bool:
		return Value{kind: KindBool, raw: t}
	case []any:
		return Value{kind: KindList, raw: t}
	case map[string]any:
		return Value{kind: KindObject, raw: Record(t)}
	case Record:
		return Value{kind: KindObject, raw: t}
	default:
		return Value{kind: KindMissing}
	}
}

// Kind returns the shape of the value.
func (v Value) Kind() Kind { return v.kind }

// Present reports whether the field existed and was not null.
func (v Value) Present() bool { return v.kind != KindMissing && v.kind != KindNull }

// String renders scalars as text. Missing, null and composite values yield "".
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.raw.(string)
	case KindNumber:
		f := v.Number()
		if math.IsNaN(f) {
			return ""
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.raw.(bool))
	default:
		return ""
	}
}

// Number converts the value to a float. Strings may carry the tag prefix,
// which is removed before parsing; a blank string is 0. Anything that cannot
// be read as a number is NaN, and callers decide how to guard it.
func (v Value) Number() float64 {
	switch v.kind {
	case KindNumber:
		switch n := v.raw.(type) {
		case json.Number:
			f, err := n.Float64()
			if err != nil {
				return math.NaN()
			}
			return f
		case float64:
			return n
		case float32:
			return float64(n)
		case int:
			return float64(n)
		case int64:
			return float64(n)
		}
	case KindString:
		return parseTagged(v.raw.(string))
	case KindBool:
		if v.raw.(bool) {
			return 1
		}
		return 0
	case KindNull:
		return 0
	}
	return math.NaN()
}

// List returns the elements of a list value, or nil for any other kind.
func (v Value) List() []Value {
	if v.kind != KindList {
		return nil
	}
	items := v.raw.([]any)
	out := make([]Value, len(items))
	for i, item := range items {
		out[i] = ValueOf(item)
	}
	return out
}

// Len is the number of elements of a list value; 0 for any other kind.
func (v Value) Len() int {
	if v.kind != KindList {
		return 0
	}
	return len(v.raw.([]any))
}

// Object returns the nested record of an object value, or nil.
func (v Value) Object() Record {
	if v.kind != KindObject {
		return nil
	}
	return v.raw.(Record)
}

func parseTagged(s string) float64 {
	s = strings.TrimSpace(strings.Replace(s, tagPrefix, "", 1))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
