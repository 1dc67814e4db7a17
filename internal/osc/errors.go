package osc

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedFraming marks a datagram whose framing ran out of bytes
	// mid-field or lacked a required terminator.
	ErrMalformedFraming = errors.New("malformed framing")

	// ErrUnknownTypeTag marks a type-tag character outside the supported set.
	ErrUnknownTypeTag = errors.New("unknown type tag")
)

// FramingError describes where decoding of a datagram stopped.
type FramingError struct {
	Offset int    // cursor position when the field was attempted
	Field  string // what was being read
	Need   int    // bytes required, or 0 for a missing terminator
	Have   int    // bytes remaining at Offset
}

func (e *FramingError) Error() string {
	if e.Need == 0 {
		return fmt.Sprintf("malformed framing at offset %d: %s is not terminated (%d bytes remain)", e.Offset, e.Field, e.Have)
	}
	return fmt.Sprintf("malformed framing at offset %d: %s needs %d bytes, %d remain", e.Offset, e.Field, e.Need, e.Have)
}

// Unwrap lets callers test with errors.Is(err, ErrMalformedFraming).
func (e *FramingError) Unwrap() error { return ErrMalformedFraming }
