package osc

import (
	"errors"
	"fmt"
	"strings"
)

// SentinelAddress is the blend-shape apply trigger. Decoding of a datagram
// stops as soon as a sub-message carries exactly this address.
const SentinelAddress = "/VMC/Ext/Blend/Apply"

const (
	// vmcElementPrefix is the number of framing bytes skipped in front of
	// every sub-message address in FramingVMC. Their meaning is not decoded.
	vmcElementPrefix = 3

	bundleIdentifier = "#bundle"
	maxBundleDepth   = 8
)

// errSentinel unwinds nested bundle decoding once the sentinel is seen.
var errSentinel = errors.New("sentinel address reached")

// Framing selects the outer datagram layout.
type Framing int

const (
	// FramingVMC: identifier string, null padding, a little-endian uint32
	// header, then sub-messages each preceded by a 3-byte prefix.
	FramingVMC Framing = iota
	// FramingOSC: OSC 1.0 packets with big-endian timetag and element sizes.
	FramingOSC
)

func (f Framing) String() string {
	switch f {
	case FramingVMC:
		return "vmc"
	case FramingOSC:
		return "osc"
	default:
		return fmt.Sprintf("Framing(%d)", int(f))
	}
}

// ParseFraming maps a configuration string onto a Framing.
func ParseFraming(s string) (Framing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "vmc":
		return FramingVMC, nil
	case "osc":
		return FramingOSC, nil
	default:
		return 0, fmt.Errorf("unsupported framing %q: expected vmc or osc", s)
	}
}

// ParserConfig configures a Parser.
type ParserConfig struct {
	Framing Framing
	// OnUnknownTag, if set, is called for every skipped type-tag character.
	OnUnknownTag func(address string, tag byte)
}

// Parser turns one datagram into messages. It holds no per-datagram state
// and is safe for concurrent use.
type Parser struct {
	framing      Framing
	onUnknownTag func(address string, tag byte)
}

// NewParser returns a Parser for the given configuration.
func NewParser(cfg ParserConfig) *Parser {
	return &Parser{
		framing:      cfg.Framing,
		onUnknownTag: cfg.OnUnknownTag,
	}
}

// Parse decodes buf with the default VMC framing.
func Parse(buf []byte) ([]Message, error) {
	return NewParser(ParserConfig{}).ParsePacket(buf)
}

// Framing returns the framing this parser decodes.
func (p *Parser) Framing() Framing { return p.framing }

// ParsePacket decodes one datagram. Messages decoded before a framing
// failure are returned alongside the error; the error wraps
// ErrMalformedFraming.
func (p *Parser) ParsePacket(packet []byte) ([]Message, error) {
	if len(packet) == 0 {
		return nil, &FramingError{Field: "datagram", Need: 1}
	}

	var (
		msgs []Message
		err  error
	)
	switch p.framing {
	case FramingOSC:
		msgs, err = p.parseOSC(newFramedReader(packet, FramingOSC))
	default:
		msgs, err = p.parseVMC(newFramedReader(packet, FramingVMC))
	}
	if err != nil {
		opsf("datagram of %d bytes: kept %d messages: %v", len(packet), len(msgs), err)
		return msgs, err
	}
	tracef("datagram of %d bytes: %d messages", len(packet), len(msgs))
	return msgs, nil
}

func (p *Parser) parseVMC(r *Reader) ([]Message, error) {
	ident, err := r.CString("bundle identifier")
	if err != nil {
		return nil, err
	}
	r.SkipNulls()
	header, err := r.Uint32LE("bundle header")
	if err != nil {
		return nil, err
	}
	tracef("bundle %q header=%d", ident, header)

	var msgs []Message
	for r.Len() > 0 && !r.OnlyNulls() {
		if err := r.Skip("element prefix", vmcElementPrefix); err != nil {
			return msgs, err
		}
		addr, err := r.CString("address")
		if err != nil {
			return msgs, err
		}
		if addr == SentinelAddress {
			return msgs, nil
		}
		msg, err := p.readVMCBody(r, addr)
		if err != nil {
			return msgs, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// readVMCBody reads the type-tag string and arguments that follow an
// address in FramingVMC.
func (p *Parser) readVMCBody(r *Reader, addr string) (Message, error) {
	r.SkipNulls()
	tagStart := r.Offset()
	comma := false
	if b, ok := r.Peek(); ok && b == ',' {
		comma = true
		_ = r.Skip("type tag marker", 1)
	}
	tags, err := r.CString("type tags")
	if err != nil {
		return Message{}, err
	}
	if comma {
		end := tagStart + paddedLen(len(tags)+1)
		if err := r.Skip("type tag padding", end-r.Offset()); err != nil {
			return Message{}, err
		}
	} else {
		r.SkipNulls()
	}
	return p.readArguments(r, addr, tags)
}

func (p *Parser) readArguments(r *Reader, addr, tags string) (Message, error) {
	values := make([]Value, 0, len(tags))
	for i := 0; i < len(tags); i++ {
		v, err := r.ReadArgument(tags[i])
		if errors.Is(err, ErrUnknownTypeTag) {
			diagf("%s: skipping %v", addr, err)
			if p.onUnknownTag != nil {
				p.onUnknownTag(addr, tags[i])
			}
			continue
		}
		if err != nil {
			return Message{}, err
		}
		values = append(values, v)
	}
	return Message{Address: addr, Values: values}, nil
}

func (p *Parser) parseOSC(r *Reader) ([]Message, error) {
	var msgs []Message
	err := p.readOSCPacket(r, 0, &msgs)
	if errors.Is(err, errSentinel) {
		return msgs, nil
	}
	return msgs, err
}

func (p *Parser) readOSCPacket(r *Reader, depth int, out *[]Message) error {
	b, ok := r.Peek()
	if !ok {
		return r.short("packet", 1)
	}
	switch b {
	case '#':
		if depth >= maxBundleDepth {
			return fmt.Errorf("%w: bundles nested deeper than %d at offset %d", ErrMalformedFraming, maxBundleDepth, r.Offset())
		}
		return p.readOSCBundle(r, depth, out)
	case '/':
		return p.readOSCMessage(r, out)
	default:
		return fmt.Errorf("%w: unexpected packet marker %q at offset %d", ErrMalformedFraming, b, r.Offset())
	}
}

func (p *Parser) readOSCBundle(r *Reader, depth int, out *[]Message) error {
	start := r.Offset()
	ident, err := r.PaddedString("bundle identifier")
	if err != nil {
		return err
	}
	if ident != bundleIdentifier {
		return fmt.Errorf("%w: bundle identifier %q at offset %d", ErrMalformedFraming, ident, start)
	}
	timetag, err := r.Uint64BE("bundle timetag")
	if err != nil {
		return err
	}
	tracef("bundle at %d timetag=%#x depth=%d", start, timetag, depth)

	for r.Len() > 0 {
		size, err := r.Uint32BE("element size")
		if err != nil {
			return err
		}
		elem, err := r.limit("bundle element", int(size))
		if err != nil {
			return err
		}
		if size == 0 {
			diagf("empty bundle element at offset %d", elem.Offset())
			continue
		}
		if err := p.readOSCPacket(elem, depth+1, out); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) readOSCMessage(r *Reader, out *[]Message) error {
	addr, err := r.PaddedString("address")
	if err != nil {
		return err
	}
	if addr == SentinelAddress {
		return errSentinel
	}
	tags := ""
	if b, ok := r.Peek(); ok && b == ',' {
		t, err := r.PaddedString("type tags")
		if err != nil {
			return err
		}
		tags = t[1:]
	}
	msg, err := p.readArguments(r, addr, tags)
	if err != nil {
		return err
	}
	*out = append(*out, msg)
	return nil
}

// limit returns a Reader bounded to the next n bytes and advances r past
// them. Offsets reported by the sub-reader stay absolute.
func (r *Reader) limit(field string, n int) (*Reader, error) {
	if n < 0 || r.Len() < n {
		return nil, r.short(field, n)
	}
	sub := *r
	sub.buf = r.buf[:r.pos+n]
	r.pos += n
	return &sub, nil
}
