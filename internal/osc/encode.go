package osc

import "encoding/binary"

// AppendMessage appends m in OSC 1.0 message layout.
func AppendMessage(dst []byte, m Message) []byte {
	dst = appendPaddedString(dst, m.Address)
	dst = appendPaddedString(dst, ","+m.TypeTags())
	for _, v := range m.Values {
		dst = appendArgument(dst, v, FramingOSC)
	}
	return dst
}

// AppendBundle appends an OSC 1.0 bundle holding msgs, each as a
// size-prefixed element.
func AppendBundle(dst []byte, timetag uint64, msgs ...Message) []byte {
	dst = appendPaddedString(dst, bundleIdentifier)
	dst = binary.BigEndian.AppendUint64(dst, timetag)
	for _, m := range msgs {
		sizeAt := len(dst)
		dst = append(dst, 0, 0, 0, 0)
		dst = AppendMessage(dst, m)
		binary.BigEndian.PutUint32(dst[sizeAt:], uint32(len(dst)-sizeAt-4))
	}
	return dst
}

// AppendVMCBundle appends msgs in the layout FramingVMC decodes: the bundle
// identifier, a little-endian header and each message behind a 3-byte
// prefix. The header's low byte must be non-zero, as the decoder skips
// zero bytes in front of it.
func AppendVMCBundle(dst []byte, header uint32, msgs ...Message) []byte {
	dst = append(dst, bundleIdentifier...)
	dst = append(dst, 0)
	dst = binary.LittleEndian.AppendUint32(dst, header)
	for _, m := range msgs {
		dst = append(dst, make([]byte, vmcElementPrefix)...)
		dst = appendPaddedString(dst, m.Address)
		dst = appendPaddedString(dst, ","+m.TypeTags())
		for _, v := range m.Values {
			dst = appendArgument(dst, v, FramingVMC)
		}
	}
	return dst
}

func appendPaddedString(dst []byte, s string) []byte {
	dst = append(dst, s...)
	for n := paddedLen(len(s)) - len(s); n > 0; n-- {
		dst = append(dst, 0)
	}
	return dst
}

func appendArgument(dst []byte, v Value, f Framing) []byte {
	switch v.kind {
	case KindInt, KindFloat:
		return binary.BigEndian.AppendUint32(dst, v.num)
	case KindBool:
		if f == FramingVMC {
			return append(dst, 0)
		}
		return dst
	case KindString:
		return appendPaddedString(dst, v.str)
	case KindBlob:
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(v.blob)))
		dst = append(dst, v.blob...)
		if f == FramingOSC {
			dst = append(dst, make([]byte, (4-len(v.blob)%4)%4)...)
		}
		return dst
	default:
		return dst
	}
}
