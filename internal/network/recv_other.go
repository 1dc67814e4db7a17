//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package network

import (
	"errors"
	"net"
	"os"
	"syscall"
	"time"
)

// pollWindow bounds the fallback receive. A deadline already in the past
// fails without attempting the read, so a short future one is used.
const pollWindow = time.Millisecond

func tryRecv(conn *net.UDPConn, _ syscall.RawConn, b []byte) (int, *net.UDPAddr, error) {
	if err := conn.SetReadDeadline(time.Now().Add(pollWindow)); err != nil {
		return 0, nil, err
	}
	n, addr, err := conn.ReadFromUDP(b)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return 0, nil, ErrWouldBlock
	}
	return n, addr, err
}
