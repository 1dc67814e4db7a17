package osc

import (
	"fmt"
	"math"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindBlob
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindBlob:
		return "blob"
	default:
		return "invalid"
	}
}

// Value is one decoded message argument. The zero Value is KindInvalid.
// Values are immutable once constructed; Blob returns a copy of its payload.
type Value struct {
	kind Kind
	num  uint32 // int32 or float32 bits
	b    bool
	str  string
	blob []byte
}

// Int returns an integer Value.
func Int(v int32) Value { return Value{kind: KindInt, num: uint32(v)} }

// Float returns a float Value. The bit pattern is preserved exactly.
func Float(v float32) Value { return Value{kind: KindFloat, num: math.Float32bits(v)} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// String returns a string Value.
func String(v string) Value { return Value{kind: KindString, str: v} }

// Blob returns a blob Value holding a private copy of p.
func Blob(p []byte) Value {
	cp := make([]byte, len(p))
	copy(cp, p)
	return Value{kind: KindBlob, blob: cp}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// AsInt returns the integer held by v.
func (v Value) AsInt() (int32, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return int32(v.num), true
}

// AsFloat returns the float held by v.
func (v Value) AsFloat() (float32, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return math.Float32frombits(v.num), true
}

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsBlob returns a copy of the payload held by v.
func (v Value) AsBlob() ([]byte, bool) {
	if v.kind != KindBlob {
		return nil, false
	}
	cp := make([]byte, len(v.blob))
	copy(cp, v.blob)
	return cp, true
}

// Tag returns the wire type-tag character for v, or 0 for an invalid Value.
func (v Value) Tag() byte {
	switch v.kind {
	case KindInt:
		return TagInt
	case KindFloat:
		return TagFloat
	case KindBool:
		if v.b {
			return TagTrue
		}
		return TagFalse
	case KindString:
		return TagString
	case KindBlob:
		return TagBlob
	default:
		return 0
	}
}

// Equal reports whether v and o hold the same variant and payload. Floats
// compare by bit pattern, so NaN payloads round-trip as equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt, KindFloat:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.str == o.str
	case KindBlob:
		return string(v.blob) == string(o.blob)
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return fmt.Sprintf("Int(%d)", int32(v.num))
	case KindFloat:
		return fmt.Sprintf("Float(%g)", math.Float32frombits(v.num))
	case KindBool:
		return fmt.Sprintf("Bool(%t)", v.b)
	case KindString:
		return fmt.Sprintf("String(%q)", v.str)
	case KindBlob:
		return fmt.Sprintf("Blob(%d bytes)", len(v.blob))
	default:
		return "Invalid"
	}
}

// Message is one decoded sub-message: an address and its arguments in wire
// order. The i-th value's variant matches the i-th type-tag character.
type Message struct {
	Address string
	Values  []Value
}

// NewMessage builds a Message from an address and values.
func NewMessage(address string, values ...Value) Message {
	return Message{Address: address, Values: values}
}

// TypeTags rebuilds the type-tag string (without the leading comma).
func (m Message) TypeTags() string {
	var sb strings.Builder
	sb.Grow(len(m.Values))
	for _, v := range m.Values {
		if t := v.Tag(); t != 0 {
			sb.WriteByte(t)
		}
	}
	return sb.String()
}

func (m Message) value(idx int) (Value, bool) {
	if idx < 0 || idx >= len(m.Values) {
		return Value{}, false
	}
	return m.Values[idx], true
}

// Int returns argument idx as an integer.
func (m Message) Int(idx int) (int32, bool) {
	v, ok := m.value(idx)
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

// Float returns argument idx as a float.
func (m Message) Float(idx int) (float32, bool) {
	v, ok := m.value(idx)
	if !ok {
		return 0, false
	}
	return v.AsFloat()
}

// Bool returns argument idx as a boolean.
func (m Message) Bool(idx int) (bool, bool) {
	v, ok := m.value(idx)
	if !ok {
		return false, false
	}
	return v.AsBool()
}

// String returns argument idx as a string.
func (m Message) String(idx int) (string, bool) {
	v, ok := m.value(idx)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// Blob returns argument idx as a blob.
func (m Message) Blob(idx int) ([]byte, bool) {
	v, ok := m.value(idx)
	if !ok {
		return nil, false
	}
	return v.AsBlob()
}

// Equal reports whether m and o carry the same address and values.
func (m Message) Equal(o Message) bool {
	if m.Address != o.Address || len(m.Values) != len(o.Values) {
		return false
	}
	for i := range m.Values {
		if !m.Values[i].Equal(o.Values[i]) {
			return false
		}
	}
	return true
}
