package network

import (
	"net"
	"sync"
)

// MockUDPSocket implements UDPSocket for tests. Reads past the end of
// Packets report ErrWouldBlock.
type MockUDPSocket struct {
	mu sync.Mutex

	Packets   []MockUDPPacket
	ReadIndex int
	Closed    bool
	// ReadBufferSize holds the value set by SetReadBuffer.
	ReadBufferSize int
	LocalAddress   *net.UDPAddr
	// ReadError is returned once by the next read if set.
	ReadError          error
	SetReadBufferError error
	Reads              int
}

// MockUDPPacket is one queued datagram. Size, if larger than len(Data),
// is reported as the datagram length to simulate truncation.
type MockUDPPacket struct {
	Data []byte
	Addr *net.UDPAddr
	Size int
}

// NewMockUDPSocket returns a socket that yields packets in order.
func NewMockUDPSocket(packets ...MockUDPPacket) *MockUDPSocket {
	return &MockUDPSocket{
		Packets:      packets,
		LocalAddress: &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 3333},
	}
}

// Push queues another datagram.
func (m *MockUDPSocket) Push(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Packets = append(m.Packets, MockUDPPacket{
		Data: data,
		Addr: &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 39540},
	})
}

// TryReadFromUDP copies the next queued datagram into b.
func (m *MockUDPSocket) TryReadFromUDP(b []byte) (int, *net.UDPAddr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++
	if m.Closed {
		return 0, nil, net.ErrClosed
	}
	if m.ReadError != nil {
		err := m.ReadError
		m.ReadError = nil
		return 0, nil, err
	}
	if m.ReadIndex >= len(m.Packets) {
		return 0, nil, ErrWouldBlock
	}
	pkt := m.Packets[m.ReadIndex]
	m.ReadIndex++
	copy(b, pkt.Data)
	n := len(pkt.Data)
	if pkt.Size > n {
		n = pkt.Size
	}
	return n, pkt.Addr, nil
}

func (m *MockUDPSocket) SetReadBuffer(bytes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetReadBufferError != nil {
		return m.SetReadBufferError
	}
	m.ReadBufferSize = bytes
	return nil
}

func (m *MockUDPSocket) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

func (m *MockUDPSocket) LocalAddr() net.Addr { return m.LocalAddress }

// Pending returns the number of datagrams not yet read.
func (m *MockUDPSocket) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Packets) - m.ReadIndex
}

// MockUDPSocketFactory hands out a fixed MockUDPSocket.
type MockUDPSocketFactory struct {
	Socket      *MockUDPSocket
	Error       error
	ListenCalls []MockListenCall
}

// MockListenCall records a ListenUDP call.
type MockListenCall struct {
	Network string
	Addr    *net.UDPAddr
}

func NewMockUDPSocketFactory(socket *MockUDPSocket) *MockUDPSocketFactory {
	return &MockUDPSocketFactory{Socket: socket}
}

func (f *MockUDPSocketFactory) ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error) {
	f.ListenCalls = append(f.ListenCalls, MockListenCall{Network: network, Addr: laddr})
	if f.Error != nil {
		return nil, f.Error
	}
	return f.Socket, nil
}
