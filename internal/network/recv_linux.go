package network

import "golang.org/x/sys/unix"

// MSG_TRUNC makes Linux return the real datagram length for UDP.
const recvFlags = unix.MSG_DONTWAIT | unix.MSG_TRUNC
