package network

import (
	"errors"
	"fmt"
)

var (
	// ErrWouldBlock is returned by UDPSocket.TryReadFromUDP when no
	// datagram is queued. Poll turns it into an empty result.
	ErrWouldBlock = errors.New("network: no datagram queued")

	// ErrOversizeDatagram reports a datagram longer than the receive
	// buffer. The part that fit is still parsed.
	ErrOversizeDatagram = errors.New("network: datagram exceeds receive buffer")
)

// BindError is returned by Bind when the listening address cannot be used.
type BindError struct {
	Address string
	Err     error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("network: bind %s: %v", e.Address, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }
