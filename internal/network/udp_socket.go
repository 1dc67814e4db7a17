package network

import (
	"fmt"
	"net"
	"syscall"
)

// UDPSocket is the receive side of a datagram socket. It lets the listener
// run against a mock in unit tests.
type UDPSocket interface {
	// TryReadFromUDP receives at most one datagram without blocking. It
	// returns ErrWouldBlock when nothing is queued. n is the datagram's full
	// length and exceeds len(b) when the datagram was truncated.
	TryReadFromUDP(b []byte) (n int, addr *net.UDPAddr, err error)

	// SetReadBuffer sets the size of the operating system's receive buffer.
	SetReadBuffer(bytes int) error

	Close() error
	LocalAddr() net.Addr
}

// UDPSocketFactory creates UDP sockets.
type UDPSocketFactory interface {
	ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error)
}

// RealUDPSocket wraps a *net.UDPConn.
type RealUDPSocket struct {
	conn *net.UDPConn
	raw  syscall.RawConn
}

// NewRealUDPSocket wraps an existing connection.
func NewRealUDPSocket(conn *net.UDPConn) (*RealUDPSocket, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("raw conn: %w", err)
	}
	return &RealUDPSocket{conn: conn, raw: raw}, nil
}

// TryReadFromUDP performs a single non-blocking receive.
func (r *RealUDPSocket) TryReadFromUDP(b []byte) (int, *net.UDPAddr, error) {
	return tryRecv(r.conn, r.raw, b)
}

func (r *RealUDPSocket) SetReadBuffer(bytes int) error { return r.conn.SetReadBuffer(bytes) }
func (r *RealUDPSocket) Close() error                  { return r.conn.Close() }
func (r *RealUDPSocket) LocalAddr() net.Addr           { return r.conn.LocalAddr() }

// RealUDPSocketFactory opens sockets with net.ListenUDP.
type RealUDPSocketFactory struct{}

// ListenUDP opens a UDP socket bound to laddr.
func (RealUDPSocketFactory) ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error) {
	conn, err := net.ListenUDP(network, laddr)
	if err != nil {
		return nil, err
	}
	s, err := NewRealUDPSocket(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}
