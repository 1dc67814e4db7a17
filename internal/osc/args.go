package osc

import (
	"fmt"
	"math"
)

// Type-tag characters understood by the argument decoder.
const (
	TagInt    byte = 'i'
	TagFloat  byte = 'f'
	TagString byte = 's'
	TagBlob   byte = 'b'
	TagTrue   byte = 'T'
	TagFalse  byte = 'F'
)

// maxBlobSize caps the length prefix of a blob argument. A datagram cannot
// carry more than this anyway.
const maxBlobSize = 1 << 16

// ReadArgument decodes one argument described by tag and advances the
// cursor past it. Numeric payloads are big-endian.
//
// An unsupported tag returns an error wrapping ErrUnknownTypeTag and leaves
// the cursor untouched; callers skip it and carry on with the next tag.
func (r *Reader) ReadArgument(tag byte) (Value, error) {
	switch tag {
	case TagInt:
		u, err := r.Uint32BE("int argument")
		if err != nil {
			return Value{}, err
		}
		return Int(int32(u)), nil
	case TagFloat:
		u, err := r.Uint32BE("float argument")
		if err != nil {
			return Value{}, err
		}
		return Float(math.Float32frombits(u)), nil
	case TagTrue, TagFalse:
		if err := r.Skip("bool argument", r.boolWidth); err != nil {
			return Value{}, err
		}
		return Bool(tag == TagTrue), nil
	case TagString:
		s, err := r.PaddedString("string argument")
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	case TagBlob:
		return r.readBlob()
	default:
		return Value{}, fmt.Errorf("%w %q at offset %d", ErrUnknownTypeTag, tag, r.pos)
	}
}

func (r *Reader) readBlob() (Value, error) {
	start := r.pos
	size, err := r.Uint32BE("blob size")
	if err != nil {
		return Value{}, err
	}
	if size > maxBlobSize {
		r.pos = start
		return Value{}, &FramingError{Offset: start, Field: "blob size", Need: int(size), Have: r.Len()}
	}
	n := int(size)
	if r.padBlobs {
		n = (n + 3) &^ 3
	}
	p, err := r.Bytes("blob payload", n)
	if err != nil {
		r.pos = start
		return Value{}, err
	}
	return Blob(p[:size]), nil
}
