//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package network

import (
	"errors"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// tryRecv calls recvmsg once with MSG_DONTWAIT. The callback always reports
// done, so the runtime poller never parks the goroutine.
func tryRecv(_ *net.UDPConn, raw syscall.RawConn, b []byte) (int, *net.UDPAddr, error) {
	var (
		n     int
		flags int
		from  unix.Sockaddr
		rerr  error
	)
	err := raw.Read(func(fd uintptr) bool {
		n, _, flags, from, rerr = unix.Recvmsg(int(fd), b, nil, recvFlags)
		return true
	})
	if err != nil {
		return 0, nil, err
	}
	if rerr != nil {
		if errors.Is(rerr, unix.EAGAIN) || errors.Is(rerr, unix.EWOULDBLOCK) {
			return 0, nil, ErrWouldBlock
		}
		return 0, nil, &net.OpError{Op: "read", Net: "udp", Err: rerr}
	}
	if flags&unix.MSG_TRUNC != 0 && n <= len(b) {
		// The kernel did not report the full length; all we know is that
		// it did not fit.
		n = len(b) + 1
	}
	return n, sockaddrToUDP(from), nil
}

func sockaddrToUDP(sa unix.Sockaddr) *net.UDPAddr {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		ip := make(net.IP, net.IPv4len)
		copy(ip, sa.Addr[:])
		return &net.UDPAddr{IP: ip, Port: sa.Port}
	case *unix.SockaddrInet6:
		ip := make(net.IP, net.IPv6len)
		copy(ip, sa.Addr[:])
		return &net.UDPAddr{IP: ip, Port: sa.Port}
	default:
		return nil
	}
}
