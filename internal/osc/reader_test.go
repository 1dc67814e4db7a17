package osc

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestReadArgument_Numeric(t *testing.T) {
	buf := []byte{
		0x00, 0x00, 0x01, 0x02, // int 258
		0xff, 0xff, 0xff, 0xfe, // int -2
		0x3f, 0x80, 0x00, 0x00, // float 1.0
	}
	r := NewReader(buf)

	v, err := r.ReadArgument(TagInt)
	if err != nil {
		t.Fatalf("int: %v", err)
	}
	if got, _ := v.AsInt(); got != 258 {
		t.Errorf("int = %d, want 258", got)
	}

	v, err = r.ReadArgument(TagInt)
	if err != nil {
		t.Fatalf("negative int: %v", err)
	}
	if got, _ := v.AsInt(); got != -2 {
		t.Errorf("int = %d, want -2", got)
	}

	v, err = r.ReadArgument(TagFloat)
	if err != nil {
		t.Fatalf("float: %v", err)
	}
	if got, _ := v.AsFloat(); got != 1.0 {
		t.Errorf("float = %v, want 1.0", got)
	}
	if r.Len() != 0 {
		t.Errorf("expected buffer to be consumed, %d bytes left", r.Len())
	}
}

func TestReadArgument_Bools(t *testing.T) {
	// VMC layout consumes one ignored byte per boolean.
	r := NewReader([]byte{0x7f, 0x00})
	v, err := r.ReadArgument(TagTrue)
	if err != nil {
		t.Fatalf("T: %v", err)
	}
	if b, ok := v.AsBool(); !ok || !b {
		t.Errorf("T decoded as %v", v)
	}
	v, err = r.ReadArgument(TagFalse)
	if err != nil {
		t.Fatalf("F: %v", err)
	}
	if b, ok := v.AsBool(); !ok || b {
		t.Errorf("F decoded as %v", v)
	}
	if r.Offset() != 2 {
		t.Errorf("offset = %d, want 2", r.Offset())
	}

	// OSC layout carries no payload for booleans.
	r = newFramedReader(nil, FramingOSC)
	if _, err := r.ReadArgument(TagTrue); err != nil {
		t.Errorf("T with OSC layout on empty buffer: %v", err)
	}

	// A missing bool byte in VMC layout is a framing error.
	r = NewReader(nil)
	if _, err := r.ReadArgument(TagFalse); !errors.Is(err, ErrMalformedFraming) {
		t.Errorf("expected ErrMalformedFraming, got %v", err)
	}
}

func TestReadArgument_StringAdvance(t *testing.T) {
	for l := 0; l <= 13; l++ {
		s := strings.Repeat("x", l)
		buf := appendPaddedString(nil, s)
		buf = append(buf, 0xAA, 0xBB, 0xCC, 0xDD) // trailing sentinel bytes

		r := NewReader(buf)
		v, err := r.ReadArgument(TagString)
		if err != nil {
			t.Fatalf("len %d: %v", l, err)
		}
		if got, _ := v.AsString(); got != s {
			t.Errorf("len %d: got %q", l, got)
		}
		if want := (l + 4) &^ 3; r.Offset() != want {
			t.Errorf("len %d: cursor advanced %d bytes, want %d", l, r.Offset(), want)
		}
		next, _ := r.Peek()
		if next != 0xAA {
			t.Errorf("len %d: next byte %#x, want 0xaa", l, next)
		}
	}
}

func TestReadArgument_StringErrors(t *testing.T) {
	// No terminator at all.
	r := NewReader([]byte("abc"))
	_, err := r.ReadArgument(TagString)
	var fe *FramingError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FramingError, got %v", err)
	}
	if fe.Need != 0 || fe.Field != "string argument" {
		t.Errorf("unexpected framing error %+v", fe)
	}
	if r.Offset() != 0 {
		t.Errorf("cursor moved to %d on failure", r.Offset())
	}

	// Terminator present but padding cut off.
	r = NewReader([]byte{'a', 'b', 'c', 'd', 0, 0})
	if _, err := r.ReadArgument(TagString); !errors.Is(err, ErrMalformedFraming) {
		t.Errorf("expected ErrMalformedFraming for missing padding, got %v", err)
	}
}

func TestReadArgument_Blob(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	buf := []byte{0, 0, 0, 5}
	buf = append(buf, payload...)
	buf = append(buf, 0xEE)

	r := NewReader(buf)
	v, err := r.ReadArgument(TagBlob)
	if err != nil {
		t.Fatalf("blob: %v", err)
	}
	got, ok := v.AsBlob()
	if !ok || !bytes.Equal(got, payload) {
		t.Errorf("blob = %v, want %v", got, payload)
	}
	if r.Offset() != 9 {
		t.Errorf("VMC blob should not be padded: offset %d, want 9", r.Offset())
	}

	// OSC layout pads to the next multiple of four.
	padded := []byte{0, 0, 0, 5, 1, 2, 3, 4, 5, 0, 0, 0}
	r = newFramedReader(padded, FramingOSC)
	if _, err := r.ReadArgument(TagBlob); err != nil {
		t.Fatalf("padded blob: %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("padded blob left %d bytes", r.Len())
	}

	// Declared size beyond the buffer.
	r = NewReader([]byte{0, 0, 0, 9, 1, 2})
	if _, err := r.ReadArgument(TagBlob); !errors.Is(err, ErrMalformedFraming) {
		t.Errorf("expected ErrMalformedFraming, got %v", err)
	}
	if r.Offset() != 0 {
		t.Errorf("cursor moved to %d on failure", r.Offset())
	}
}

func TestReadArgument_UnknownTag(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4})
	_, err := r.ReadArgument('h')
	if !errors.Is(err, ErrUnknownTypeTag) {
		t.Fatalf("expected ErrUnknownTypeTag, got %v", err)
	}
	if r.Offset() != 0 {
		t.Errorf("unknown tag consumed %d bytes", r.Offset())
	}
}

func TestReadArgument_ShortNumeric(t *testing.T) {
	r := NewReader([]byte{0x3f, 0x80})
	_, err := r.ReadArgument(TagFloat)
	var fe *FramingError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FramingError, got %v", err)
	}
	if fe.Need != 4 || fe.Have != 2 {
		t.Errorf("framing error = %+v, want Need 4 Have 2", fe)
	}
}

func TestValueAccessors(t *testing.T) {
	nan := math.Float32frombits(0x7fc00001)
	tests := []struct {
		name string
		v    Value
		kind Kind
		tag  byte
	}{
		{"int", Int(-7), KindInt, 'i'},
		{"float", Float(0.5), KindFloat, 'f'},
		{"nan", Float(nan), KindFloat, 'f'},
		{"true", Bool(true), KindBool, 'T'},
		{"false", Bool(false), KindBool, 'F'},
		{"string", String("Joy"), KindString, 's'},
		{"blob", Blob([]byte{9}), KindBlob, 'b'},
		{"invalid", Value{}, KindInvalid, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.v.Kind() != tc.kind {
				t.Errorf("Kind() = %v, want %v", tc.v.Kind(), tc.kind)
			}
			if tc.v.Tag() != tc.tag {
				t.Errorf("Tag() = %q, want %q", tc.v.Tag(), tc.tag)
			}
			if !tc.v.Equal(tc.v) {
				t.Errorf("%v is not equal to itself", tc.v)
			}
		})
	}

	if _, ok := Int(1).AsFloat(); ok {
		t.Error("AsFloat on an int value should fail")
	}

	src := []byte{1, 2}
	b := Blob(src)
	src[0] = 99
	got, _ := b.AsBlob()
	if got[0] != 1 {
		t.Error("Blob must copy its input")
	}
}

func TestMessageAccessors(t *testing.T) {
	m := NewMessage("/VMC/Ext/Bone/Pos", String("Hips"), Float(1.5), Int(3), Bool(true))

	if s, ok := m.String(0); !ok || s != "Hips" {
		t.Errorf("String(0) = %q, %v", s, ok)
	}
	if f, ok := m.Float(1); !ok || f != 1.5 {
		t.Errorf("Float(1) = %v, %v", f, ok)
	}
	if i, ok := m.Int(2); !ok || i != 3 {
		t.Errorf("Int(2) = %v, %v", i, ok)
	}
	if b, ok := m.Bool(3); !ok || !b {
		t.Errorf("Bool(3) = %v, %v", b, ok)
	}
	if _, ok := m.Float(0); ok {
		t.Error("Float(0) on a string argument should fail")
	}
	if _, ok := m.Float(8); ok {
		t.Error("out of range index should fail")
	}
	if _, ok := m.Blob(-1); ok {
		t.Error("negative index should fail")
	}
	if m.TypeTags() != "sfiT" {
		t.Errorf("TypeTags() = %q, want sfiT", m.TypeTags())
	}
}
