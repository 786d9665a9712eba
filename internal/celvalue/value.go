// Package celvalue implements the CEL runtime value domain: a tagged union
// over null, bool, int, uint, double, string, bytes, list, map, duration,
// timestamp, and object, together with its arithmetic, comparison,
// membership, indexing, and coercion operators.
package celvalue

import (
	"fmt"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindDouble
	KindString
	KindBytes
	KindList
	KindMap
	KindDuration
	KindTimestamp
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindDuration:
		return "duration"
	case KindTimestamp:
		return "timestamp"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is the runtime representation of every CEL-evaluated quantity.
// It is logically immutable: every operator below that "changes" a value
// instead returns a new one. List and Map hold their payload behind a
// pointer so that clones are O(1) and share storage until an append or
// insert forces a copy-on-write split.
type Value struct {
	kind  Kind
	b     bool
	i     int64
	u     uint64
	f     float64
	s     string // string or bytes-as-string payload
	list  *listData
	mp    *mapData
	dur   Duration
	ts    Timestamp
	obj   Object
}

// Null is the singular null value.
var Null = Value{kind: KindNull}

// Bool constructs a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int constructs a signed 64-bit integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Uint constructs an unsigned 64-bit integer value.
func Uint(u uint64) Value { return Value{kind: KindUint, u: u} }

// Double constructs an IEEE-754 64-bit floating point value.
func Double(f float64) Value { return Value{kind: KindDouble, f: f} }

// String constructs a UTF-8 string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Bytes constructs a byte-sequence value. The byte slice is copied into an
// immutable string-backed payload so callers may not observe mutation
// through a retained slice.
func Bytes(b []byte) Value { return Value{kind: KindBytes, s: string(b)} }

// List constructs a list value from the given elements.
func List(elems ...Value) Value {
	return Value{kind: KindList, list: newListData(elems)}
}

// Map constructs a map value from the given entries, in iteration order.
// A later duplicate key overwrites an earlier one, per §4.3's map-literal rule.
func Map(entries ...MapEntry) Value {
	md := newMapData()
	for _, e := range entries {
		md.set(e.Key, e.Value)
	}
	return Value{kind: KindMap, mp: md}
}

// MapEntry is a single key/value pair used to build a Map value.
type MapEntry struct {
	Key   Key
	Value Value
}

// DurationValue constructs a duration value.
func DurationValue(d Duration) Value { return Value{kind: KindDuration, dur: d} }

// TimestampValue constructs a timestamp value.
func TimestampValue(t Timestamp) Value { return Value{kind: KindTimestamp, ts: t} }

// ObjectValue constructs an opaque user-defined value.
func ObjectValue(o Object) Value { return Value{kind: KindObject, obj: o} }

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// BoolValue returns the payload of a bool Value; the caller must check Kind first.
func (v Value) BoolValue() bool { return v.b }

// IntValue returns the payload of an int Value.
func (v Value) IntValue() int64 { return v.i }

// UintValue returns the payload of a uint Value.
func (v Value) UintValue() uint64 { return v.u }

// DoubleValue returns the payload of a double Value.
func (v Value) DoubleValue() float64 { return v.f }

// StringValue returns the payload of a string Value.
func (v Value) StringValue() string { return v.s }

// BytesValue returns the payload of a bytes Value as a fresh slice.
func (v Value) BytesValue() []byte { return []byte(v.s) }

// ListValue returns the element slice of a list Value. The returned slice
// must not be mutated by the caller; use the List constructor to build a
// new value instead.
func (v Value) ListValue() []Value { return v.list.elems }

// MapValue returns the entries of a map Value in their stable-per-evaluation
// iteration order.
func (v Value) MapValue() []MapEntry { return v.mp.entries() }

// DurationValueOf returns the payload of a duration Value.
func (v Value) DurationValueOf() Duration { return v.dur }

// TimestampValueOf returns the payload of a timestamp Value.
func (v Value) TimestampValueOf() Timestamp { return v.ts }

// ObjectValueOf returns the payload of an object Value.
func (v Value) ObjectValueOf() Object { return v.obj }

// IsZero reports whether v holds its variant's zero value, per the
// ofNonZeroValue predicate supplemented from cel-rust's optional helpers.
func (v Value) IsZero() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return !v.b
	case KindInt:
		return v.i == 0
	case KindUint:
		return v.u == 0
	case KindDouble:
		return v.f == 0
	case KindString:
		return v.s == ""
	case KindBytes:
		return len(v.s) == 0
	case KindList:
		return len(v.list.elems) == 0
	case KindMap:
		return v.mp.len() == 0
	case KindDuration:
		return v.dur == 0
	case KindTimestamp:
		return v.ts.Equal(UnixEpoch)
	default:
		return false
	}
}

// TypeName returns the CEL type name of v, used by string(type(x)) and by
// diagnostics.
func (v Value) TypeName() string {
	if v.kind == KindObject && v.obj != nil {
		return v.obj.TypeName()
	}
	return v.kind.String()
}

// GoString renders v for debugging; it is not the CEL string() coercion.
func (v Value) GoString() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindUint:
		return fmt.Sprintf("%du", v.u)
	case KindDouble:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindBytes:
		return fmt.Sprintf("b%q", v.s)
	case KindList:
		parts := make([]string, len(v.list.elems))
		for i, e := range v.list.elems {
			parts[i] = e.GoString()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		entries := v.mp.entries()
		parts := make([]string, len(entries))
		for i, e := range entries {
			parts[i] = fmt.Sprintf("%s: %s", e.Key.GoString(), e.Value.GoString())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindDuration:
		return v.dur.String()
	case KindTimestamp:
		return v.ts.String()
	case KindObject:
		return fmt.Sprintf("%s(%v)", v.obj.TypeName(), v.obj)
	default:
		return "<invalid>"
	}
}
