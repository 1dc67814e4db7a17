package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/banshee-data/vmc-listener/internal/monitoring"
	"github.com/banshee-data/vmc-listener/internal/osc"
	"github.com/banshee-data/vmc-listener/internal/timeutil"
)

// Defaults applied by Bind.
const (
	DefaultAddress       = "127.0.0.1:3333"
	DefaultBufferSize    = 10000
	DefaultPollInterval  = 16 * time.Millisecond
	DefaultPollsPerTick  = 64
	DefaultStatsInterval = time.Minute
)

// PacketStatsInterface receives per-datagram counters from the listener.
type PacketStatsInterface interface {
	AddDatagram(bytes int)
	AddMessages(count int)
	AddMalformed()
	AddOversize()
	AddUnknownTag()
	AddReadError()
	AddDropped()
	LogStats()
}

// Datagram is one received payload as seen by a Tap. Payload aliases the
// listener's receive buffer and is only valid during the Tap call.
type Datagram struct {
	Payload    []byte
	Source     *net.UDPAddr
	ReceivedAt time.Time
	Messages   []osc.Message
	Err        error
}

// Tap observes every received datagram. Implementations must not block.
type Tap interface {
	Tap(d Datagram)
}

// ListenerConfig configures Bind. Zero fields take the defaults above.
type ListenerConfig struct {
	Address       string
	BufferSize    int
	RcvBuf        int
	Framing       osc.Framing
	PollInterval  time.Duration
	PollsPerTick  int
	StatsInterval time.Duration
	Stats         PacketStatsInterface
	Taps          []Tap
	Clock         timeutil.Clock
	SocketFactory UDPSocketFactory
}

// Listener owns a non-blocking UDP socket and its reusable receive buffer.
// Poll and Run must be called from a single goroutine.
type Listener struct {
	socket        UDPSocket
	buf           []byte
	parser        *osc.Parser
	stats         PacketStatsInterface
	taps          []Tap
	clock         timeutil.Clock
	pollInterval  time.Duration
	pollsPerTick  int
	statsInterval time.Duration
}

// noopStats is used when no collector is configured.
type noopStats struct{}

func (noopStats) AddDatagram(int) {}
func (noopStats) AddMessages(int) {}
func (noopStats) AddMalformed()   {}
func (noopStats) AddOversize()    {}
func (noopStats) AddUnknownTag()  {}
func (noopStats) AddReadError()   {}
func (noopStats) AddDropped()     {}
func (noopStats) LogStats()       {}

// Bind opens the listening socket. Any failure is returned as *BindError.
func Bind(cfg ListenerConfig) (*Listener, error) {
	if cfg.Address == "" {
		cfg.Address = DefaultAddress
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PollsPerTick <= 0 {
		cfg.PollsPerTick = DefaultPollsPerTick
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = DefaultStatsInterval
	}
	if cfg.Stats == nil {
		cfg.Stats = noopStats{}
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.SocketFactory == nil {
		cfg.SocketFactory = RealUDPSocketFactory{}
	}

	addr, err := net.ResolveUDPAddr("udp", cfg.Address)
	if err != nil {
		return nil, &BindError{Address: cfg.Address, Err: err}
	}
	sock, err := cfg.SocketFactory.ListenUDP("udp", addr)
	if err != nil {
		return nil, &BindError{Address: cfg.Address, Err: err}
	}
	if cfg.RcvBuf > 0 {
		if err := sock.SetReadBuffer(cfg.RcvBuf); err != nil {
			monitoring.Logf("Warning: failed to set UDP receive buffer to %d bytes: %v", cfg.RcvBuf, err)
		}
	}

	stats := cfg.Stats
	l := &Listener{
		socket: sock,
		buf:    make([]byte, cfg.BufferSize),
		parser: osc.NewParser(osc.ParserConfig{
			Framing:      cfg.Framing,
			OnUnknownTag: func(string, byte) { stats.AddUnknownTag() },
		}),
		stats:         stats,
		taps:          cfg.Taps,
		clock:         cfg.Clock,
		pollInterval:  cfg.PollInterval,
		pollsPerTick:  cfg.PollsPerTick,
		statsInterval: cfg.StatsInterval,
	}
	monitoring.Logf("VMC listener bound to %s (%s framing, %d byte buffer)", sock.LocalAddr(), cfg.Framing, cfg.BufferSize)
	return l, nil
}

// LocalAddr returns the bound address.
func (l *Listener) LocalAddr() net.Addr { return l.socket.LocalAddr() }

// Poll attempts exactly one non-blocking receive and parses what arrived.
//
// It returns nil, nil when no datagram is queued. Messages decoded before a
// framing failure are returned together with the error. A datagram larger
// than the buffer is parsed up to the buffer size and reported with
// ErrOversizeDatagram. Errors never leave the listener unusable.
func (l *Listener) Poll() ([]osc.Message, error) {
	msgs, _, err := l.poll()
	return msgs, err
}

func (l *Listener) poll() (msgs []osc.Message, got bool, err error) {
	n, src, err := l.socket.TryReadFromUDP(l.buf)
	if errors.Is(err, ErrWouldBlock) {
		return nil, false, nil
	}
	if err != nil {
		l.stats.AddReadError()
		return nil, true, fmt.Errorf("network: receive: %w", err)
	}

	var oversize error
	if n > len(l.buf) {
		l.stats.AddOversize()
		oversize = fmt.Errorf("%w: %d bytes into a %d byte buffer", ErrOversizeDatagram, n, len(l.buf))
		monitoring.Logf("\033[93mDatagram from %v truncated: %d bytes, buffer %d\033[0m", src, n, len(l.buf))
		n = len(l.buf)
	}
	payload := l.buf[:n]
	l.stats.AddDatagram(n)

	msgs, perr := l.parser.ParsePacket(payload)
	if perr != nil {
		l.stats.AddMalformed()
	}
	l.stats.AddMessages(len(msgs))
	err = errors.Join(oversize, perr)

	if len(l.taps) > 0 {
		d := Datagram{
			Payload:    payload,
			Source:     src,
			ReceivedAt: l.clock.Now(),
			Messages:   msgs,
			Err:        err,
		}
		for _, t := range l.taps {
			t.Tap(d)
		}
	}
	return msgs, true, err
}

// Run polls on every tick of the poll interval until ctx is done. Each tick
// drains up to the per-tick limit of queued datagrams, calling handle for
// every datagram received. Statistics are logged on the stats interval.
// Run returns ctx.Err() on cancellation, or the receive error if the socket
// is closed underneath it.
func (l *Listener) Run(ctx context.Context, handle func([]osc.Message, error)) error {
	poll := l.clock.NewTicker(l.pollInterval)
	defer poll.Stop()
	report := l.clock.NewTicker(l.statsInterval)
	defer report.Stop()

	monitoring.Logf("VMC listener polling every %v", l.pollInterval)
	for {
		if err := l.drain(handle); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			monitoring.Logf("VMC listener stopping: %v", ctx.Err())
			return ctx.Err()
		case <-report.C():
			l.stats.LogStats()
		case <-poll.C():
		}
	}
}

func (l *Listener) drain(handle func([]osc.Message, error)) error {
	for i := 0; i < l.pollsPerTick; i++ {
		msgs, got, err := l.poll()
		if !got {
			return nil
		}
		if errors.Is(err, net.ErrClosed) {
			return err
		}
		if handle != nil {
			handle(msgs, err)
		}
	}
	return nil
}

// Close closes the socket.
func (l *Listener) Close() error {
	return l.socket.Close()
}
