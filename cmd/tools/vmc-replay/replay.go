package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/banshee-data/vmc-listener/internal/db"
	"github.com/banshee-data/vmc-listener/internal/monitoring"
	"github.com/banshee-data/vmc-listener/internal/network"
	"github.com/banshee-data/vmc-listener/internal/osc"
	"github.com/banshee-data/vmc-listener/internal/timeutil"
	"github.com/banshee-data/vmc-listener/internal/vmc"
)

// sink consumes one replayed datagram.
type sink interface {
	Send(payload []byte, ts time.Time) error
}

// udpSink writes each datagram to a connected UDP socket.
type udpSink struct {
	conn *net.UDPConn
}

func newUDPSink(addr string) (*udpSink, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, err
	}
	return &udpSink{conn: conn}, nil
}

func (s *udpSink) Send(payload []byte, _ time.Time) error {
	_, err := s.conn.Write(payload)
	return err
}

func (s *udpSink) Close() error { return s.conn.Close() }

// decodeSink runs datagrams through the parser and the avatar state
// without a socket.
type decodeSink struct {
	parser     *osc.Parser
	dispatcher *vmc.Dispatcher
	state      *vmc.State
	clock      *timeutil.MockClock
	stats      *monitoring.PacketStats
}

func newDecodeSink(framing osc.Framing, tr vmc.Translations) *decodeSink {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	stats := monitoring.NewPacketStats(clock, nil)
	return &decodeSink{
		parser: osc.NewParser(osc.ParserConfig{
			Framing:      framing,
			OnUnknownTag: func(string, byte) { stats.AddUnknownTag() },
		}),
		dispatcher: vmc.NewDispatcher(tr),
		state:      vmc.NewState(clock),
		clock:      clock,
		stats:      stats,
	}
}

func (s *decodeSink) Send(payload []byte, ts time.Time) error {
	s.clock.Set(ts)
	s.stats.AddDatagram(len(payload))
	msgs, err := s.parser.ParsePacket(payload)
	if err != nil {
		s.stats.AddMalformed()
	}
	s.stats.AddMessages(len(msgs))
	s.state.Apply(s.dispatcher.Dispatch(msgs))
	return nil
}

type summary struct {
	Stats monitoring.StatsSnapshot `json:"stats"`
	State vmc.Snapshot             `json:"state"`
}

// WriteSummary prints the counters and final avatar state as JSON.
func (s *decodeSink) WriteSummary(w io.Writer) error {
	totals, _ := s.stats.Totals()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary{Stats: totals, State: s.state.Snapshot()})
}

// pacer sleeps so that datagrams leave at their recorded spacing divided
// by speed. A zero speed disables pacing.
type pacer struct {
	speed    float64
	first    time.Time
	wallBase time.Time
}

func (p *pacer) wait(ctx context.Context, ts time.Time) error {
	if p.speed <= 0 {
		return ctx.Err()
	}
	if p.first.IsZero() {
		p.first, p.wallBase = ts, time.Now()
		return ctx.Err()
	}
	due := p.wallBase.Add(time.Duration(float64(ts.Sub(p.first)) / p.speed))
	d := time.Until(due)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// replaySession sends every datagram of a recorded session to out.
func replaySession(ctx context.Context, store *db.DB, sessionID string, speed float64, out sink) (int, error) {
	if _, err := store.GetSession(sessionID); err != nil {
		return 0, fmt.Errorf("session %s: %w", sessionID, err)
	}
	p := &pacer{speed: speed}
	n := 0
	err := store.ForEachDatagram(sessionID, func(d db.StoredDatagram) error {
		if err := p.wait(ctx, d.ReceivedAt); err != nil {
			return err
		}
		if err := out.Send(d.Payload, d.ReceivedAt); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

// replayPCAP sends every UDP payload of a capture to out. Pacing is done
// by ReadPCAP.
func replayPCAP(ctx context.Context, r io.Reader, cfg network.PCAPReplayConfig, out sink) (int, error) {
	return network.ReadPCAP(ctx, r, cfg, func(p network.PCAPPacket) error {
		return out.Send(p.Payload, p.Timestamp)
	})
}
