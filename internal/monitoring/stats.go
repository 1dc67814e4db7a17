package monitoring

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/banshee-data/vmc-listener/internal/timeutil"
)

// PacketStats counts listener activity. Interval counters are reset by
// LogStats; totals and the Prometheus counters only grow.
type PacketStats struct {
	mu        sync.Mutex
	clock     timeutil.Clock
	interval  StatsSnapshot
	total     StatsSnapshot
	lastReset time.Time
	started   time.Time

	metrics *packetMetrics
}

// StatsSnapshot is a set of counter values.
type StatsSnapshot struct {
	Datagrams   int64 `json:"datagrams"`
	Bytes       int64 `json:"bytes"`
	Messages    int64 `json:"messages"`
	Malformed   int64 `json:"malformed"`
	Oversize    int64 `json:"oversize"`
	UnknownTags int64 `json:"unknown_tags"`
	ReadErrors  int64 `json:"read_errors"`
	Dropped     int64 `json:"dropped"`
}

type packetMetrics struct {
	datagrams   prometheus.Counter
	bytes       prometheus.Counter
	messages    prometheus.Counter
	errors      *prometheus.CounterVec
	unknownTags prometheus.Counter
	dropped     prometheus.Counter
}

// NewPacketStats returns a collector registering its counters with reg.
// A nil reg skips Prometheus registration.
func NewPacketStats(clock timeutil.Clock, reg prometheus.Registerer) *PacketStats {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	now := clock.Now()
	ps := &PacketStats{clock: clock, lastReset: now, started: now}
	if reg != nil {
		ps.metrics = newPacketMetrics(reg)
	}
	return ps
}

func newPacketMetrics(reg prometheus.Registerer) *packetMetrics {
	factory := promauto.With(reg)
	return &packetMetrics{
		datagrams: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vmc",
			Name:      "datagrams_total",
			Help:      "Datagrams received.",
		}),
		bytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vmc",
			Name:      "datagram_bytes_total",
			Help:      "Payload bytes received.",
		}),
		messages: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vmc",
			Name:      "messages_total",
			Help:      "Messages decoded from received datagrams.",
		}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vmc",
			Name:      "datagram_errors_total",
			Help:      "Datagrams that hit a receive or decode error, by kind.",
		}, []string{"kind"}),
		unknownTags: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vmc",
			Name:      "unknown_type_tags_total",
			Help:      "Type-tag characters skipped by the decoder.",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vmc",
			Name:      "tap_dropped_total",
			Help:      "Datagrams dropped by full forward or record queues.",
		}),
	}
}

func (ps *PacketStats) add(f func(s *StatsSnapshot)) {
	ps.mu.Lock()
	f(&ps.interval)
	f(&ps.total)
	ps.mu.Unlock()
}

func (ps *PacketStats) AddDatagram(bytes int) {
	ps.add(func(s *StatsSnapshot) { s.Datagrams++; s.Bytes += int64(bytes) })
	if ps.metrics != nil {
		ps.metrics.datagrams.Inc()
		ps.metrics.bytes.Add(float64(bytes))
	}
}

func (ps *PacketStats) AddMessages(count int) {
	ps.add(func(s *StatsSnapshot) { s.Messages += int64(count) })
	if ps.metrics != nil {
		ps.metrics.messages.Add(float64(count))
	}
}

func (ps *PacketStats) AddMalformed() {
	ps.add(func(s *StatsSnapshot) { s.Malformed++ })
	if ps.metrics != nil {
		ps.metrics.errors.WithLabelValues("malformed").Inc()
	}
}

func (ps *PacketStats) AddOversize() {
	ps.add(func(s *StatsSnapshot) { s.Oversize++ })
	if ps.metrics != nil {
		ps.metrics.errors.WithLabelValues("oversize").Inc()
	}
}

func (ps *PacketStats) AddReadError() {
	ps.add(func(s *StatsSnapshot) { s.ReadErrors++ })
	if ps.metrics != nil {
		ps.metrics.errors.WithLabelValues("read").Inc()
	}
}

func (ps *PacketStats) AddUnknownTag() {
	ps.add(func(s *StatsSnapshot) { s.UnknownTags++ })
	if ps.metrics != nil {
		ps.metrics.unknownTags.Inc()
	}
}

func (ps *PacketStats) AddDropped() {
	ps.add(func(s *StatsSnapshot) { s.Dropped++ })
	if ps.metrics != nil {
		ps.metrics.dropped.Inc()
	}
}

// Totals returns the counters since the collector was created and the
// time it was created.
func (ps *PacketStats) Totals() (StatsSnapshot, time.Time) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.total, ps.started
}

// GetAndReset returns the interval counters and their duration, then
// starts a new interval.
func (ps *PacketStats) GetAndReset() (StatsSnapshot, time.Duration) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	now := ps.clock.Now()
	s, d := ps.interval, now.Sub(ps.lastReset)
	ps.interval = StatsSnapshot{}
	ps.lastReset = now
	return s, d
}

// LogStats logs per-second rates for the interval. Quiet intervals are not
// logged.
func (ps *PacketStats) LogStats() {
	s, d := ps.GetAndReset()
	if line := FormatStats(s, d); line != "" {
		Logf("%s", line)
	}
}

// FormatStats renders s over d as a log line, or "" when nothing happened.
func FormatStats(s StatsSnapshot, d time.Duration) string {
	if s == (StatsSnapshot{}) || d <= 0 {
		return ""
	}
	secs := d.Seconds()
	var b strings.Builder
	fmt.Fprintf(&b, "VMC stats (/sec): %.1f datagrams, %.1f KB, %.1f messages",
		float64(s.Datagrams)/secs, float64(s.Bytes)/secs/1024, float64(s.Messages)/secs)
	for _, c := range []struct {
		n    int64
		what string
	}{
		{s.Malformed, "malformed"},
		{s.Oversize, "oversize"},
		{s.UnknownTags, "unknown tags"},
		{s.ReadErrors, "read errors"},
		{s.Dropped, "dropped on tap"},
	} {
		if c.n > 0 {
			fmt.Fprintf(&b, ", %d %s", c.n, c.what)
		}
	}
	return b.String()
}
