package network

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/banshee-data/vmc-listener/internal/monitoring"
)

// DropCounter counts datagrams a tap had to discard.
type DropCounter interface {
	AddDropped()
}

// Forwarder relays raw datagrams to another UDP address from a background
// goroutine, so a second VMC consumer can share one sender.
type Forwarder struct {
	conn        *net.UDPConn
	queue       chan []byte
	stats       DropCounter
	logInterval time.Duration
	address     string
}

// NewForwarder dials addr:port. stats may be nil.
func NewForwarder(addr string, port int, stats DropCounter, logInterval time.Duration) (*Forwarder, error) {
	target := net.JoinHostPort(addr, fmt.Sprint(port))
	raddr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve forward address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("failed to create forward connection: %w", err)
	}
	if stats == nil {
		stats = noopStats{}
	}
	if logInterval <= 0 {
		logInterval = DefaultStatsInterval
	}
	return &Forwarder{
		conn:        conn,
		queue:       make(chan []byte, 1000),
		stats:       stats,
		logInterval: logInterval,
		address:     target,
	}, nil
}

// Start runs the send loop until ctx is done. Write failures are counted
// and logged once per log interval.
func (f *Forwarder) Start(ctx context.Context) {
	go func() {
		failed := 0
		var lastErr error
		ticker := time.NewTicker(f.logInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case p := <-f.queue:
				if _, err := f.conn.Write(p); err != nil {
					failed++
					lastErr = err
				}
			case <-ticker.C:
				if failed > 0 {
					monitoring.Logf("\033[93mDropped %d forwarded datagrams (latest: %v)\033[0m", failed, lastErr)
					failed = 0
					lastErr = nil
				}
			}
		}
	}()
	monitoring.Logf("Forwarding datagrams to %s", f.address)
}

// Tap queues a copy of the payload. A full queue drops it.
func (f *Forwarder) Tap(d Datagram) {
	p := make([]byte, len(d.Payload))
	copy(p, d.Payload)
	select {
	case f.queue <- p:
	default:
		f.stats.AddDropped()
	}
}

// Close closes the outgoing socket. Stop the send loop by cancelling the
// context passed to Start.
func (f *Forwarder) Close() error {
	return f.conn.Close()
}
