package osc

import (
	"bytes"
	"encoding/binary"
)

// Reader is a forward-only cursor over an immutable datagram. Every read
// either advances the cursor past the whole field or leaves it untouched
// and returns a *FramingError.
type Reader struct {
	buf []byte
	pos int

	// boolWidth is the number of payload bytes consumed by T and F tags.
	boolWidth int
	// padBlobs rounds blob payloads up to a 4-byte boundary.
	padBlobs bool
}

// NewReader returns a Reader over buf using the VMC argument layout.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf, boolWidth: 1}
}

// newFramedReader returns a Reader with the argument layout of framing f.
func newFramedReader(buf []byte, f Framing) *Reader {
	r := NewReader(buf)
	if f == FramingOSC {
		r.boolWidth = 0
		r.padBlobs = true
	}
	return r
}

// Offset returns the cursor position.
func (r *Reader) Offset() int { return r.pos }

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

func (r *Reader) short(field string, need int) *FramingError {
	return &FramingError{Offset: r.pos, Field: field, Need: need, Have: r.Len()}
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(field string, n int) error {
	if n < 0 || r.Len() < n {
		return r.short(field, n)
	}
	r.pos += n
	return nil
}

// SkipNulls advances past any run of zero bytes.
func (r *Reader) SkipNulls() {
	for r.pos < len(r.buf) && r.buf[r.pos] == 0 {
		r.pos++
	}
}

// Peek returns the next byte without consuming it.
func (r *Reader) Peek() (byte, bool) {
	if r.pos >= len(r.buf) {
		return 0, false
	}
	return r.buf[r.pos], true
}

// OnlyNulls reports whether every unread byte is zero.
func (r *Reader) OnlyNulls() bool {
	for _, b := range r.buf[r.pos:] {
		if b != 0 {
			return false
		}
	}
	return true
}

// Uint32LE reads a 4-byte little-endian unsigned integer.
func (r *Reader) Uint32LE(field string) (uint32, error) {
	if r.Len() < 4 {
		return 0, r.short(field, 4)
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// Uint32BE reads a 4-byte big-endian unsigned integer.
func (r *Reader) Uint32BE(field string) (uint32, error) {
	if r.Len() < 4 {
		return 0, r.short(field, 4)
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// Uint64BE reads an 8-byte big-endian unsigned integer.
func (r *Reader) Uint64BE(field string) (uint64, error) {
	if r.Len() < 8 {
		return 0, r.short(field, 8)
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// CString reads bytes up to the next zero byte and consumes the terminator.
// No alignment padding is consumed.
func (r *Reader) CString(field string) (string, error) {
	i := bytes.IndexByte(r.buf[r.pos:], 0)
	if i < 0 {
		return "", &FramingError{Offset: r.pos, Field: field, Have: r.Len()}
	}
	s := string(r.buf[r.pos : r.pos+i])
	r.pos += i + 1
	return s, nil
}

// PaddedString reads a zero-terminated string and its alignment padding.
// The cursor advances by exactly (len+4)&^3 bytes from the first character.
func (r *Reader) PaddedString(field string) (string, error) {
	i := bytes.IndexByte(r.buf[r.pos:], 0)
	if i < 0 {
		return "", &FramingError{Offset: r.pos, Field: field, Have: r.Len()}
	}
	total := paddedLen(i)
	if r.Len() < total {
		return "", r.short(field, total)
	}
	s := string(r.buf[r.pos : r.pos+i])
	r.pos += total
	return s, nil
}

// Bytes reads n raw bytes. The returned slice aliases the datagram.
func (r *Reader) Bytes(field string, n int) ([]byte, error) {
	if n < 0 || r.Len() < n {
		return nil, r.short(field, n)
	}
	p := r.buf[r.pos : r.pos+n]
	r.pos += n
	return p, nil
}

// paddedLen is the size of a string of n characters plus its terminator,
// rounded up to a multiple of four.
func paddedLen(n int) int {
	return (n + 4) &^ 3
}
