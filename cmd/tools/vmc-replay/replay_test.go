package main

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/vmc-listener/internal/db"
	"github.com/banshee-data/vmc-listener/internal/network"
	"github.com/banshee-data/vmc-listener/internal/osc"
	"github.com/banshee-data/vmc-listener/internal/testutil"
	"github.com/banshee-data/vmc-listener/internal/vmc"
)

func blendFrame(name string, w float32) []byte {
	return osc.AppendBundle(nil, 1,
		osc.NewMessage(vmc.BlendValueAddress, osc.String(name), osc.Float(w)),
		osc.NewMessage(vmc.BlendApplyAddress))
}

type recordingSink struct {
	payloads [][]byte
}

func (r *recordingSink) Send(p []byte, _ time.Time) error {
	r.payloads = append(r.payloads, append([]byte(nil), p...))
	return nil
}

func TestReplayPCAP_Decode(t *testing.T) {
	dst := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 3333}
	start := time.Unix(1700000000, 0)
	packets := []network.PCAPPacket{
		{Payload: blendFrame("A", 0.2), Timestamp: start},
		{Payload: blendFrame("A", 0.73), Timestamp: start.Add(time.Millisecond)},
		{Payload: []byte("#bundle"), Timestamp: start.Add(2 * time.Millisecond)},
	}
	var capture bytes.Buffer
	require.NoError(t, network.WritePCAP(&capture, dst, packets))

	out := newDecodeSink(osc.FramingVMC, vmc.DefaultTranslations().WithOverrides(map[string]string{"A": "aa"}))
	n, err := replayPCAP(context.Background(), &capture, network.PCAPReplayConfig{Port: 3333}, out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	totals, _ := out.stats.Totals()
	assert.Equal(t, int64(3), totals.Datagrams)
	assert.Equal(t, int64(1), totals.Malformed)

	w, ok := out.state.BlendWeight("aa")
	require.True(t, ok)
	assert.Equal(t, float32(0.73), w)

	var summary bytes.Buffer
	require.NoError(t, out.WriteSummary(&summary))
	assert.Contains(t, summary.String(), `"malformed": 1`)
	assert.Contains(t, summary.String(), `"aa"`)
}

func TestReplaySession(t *testing.T) {
	store, err := db.Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer store.Close()

	id, err := store.StartSession(time.Unix(0, 0), "vmc", "127.0.0.1:3333")
	require.NoError(t, err)
	rec := db.NewRecorder(store, id, vmc.DefaultTranslations(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	rec.Start(ctx)
	frames := [][]byte{blendFrame("A", 0.1), blendFrame("A", 0.2), blendFrame("A", 0.3)}
	for i, f := range frames {
		rec.Tap(network.Datagram{Payload: f, ReceivedAt: time.Unix(10, int64(i)*int64(time.Millisecond))})
	}
	cancel()
	rec.Wait()

	out := &recordingSink{}
	n, err := replaySession(context.Background(), store, id, 0, out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, frames, out.payloads)

	_, err = replaySession(context.Background(), store, "missing", 0, out)
	assert.ErrorIs(t, err, db.ErrSessionNotFound)
}

func TestUDPSink(t *testing.T) {
	conn := testutil.ListenLoopback(t)
	s, err := newUDPSink(conn.LocalAddr().String())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Send(blendFrame("Joy", 1), time.Now()))
	assert.Equal(t, blendFrame("Joy", 1), testutil.ReadUDP(t, conn, 2*time.Second))
}

func TestPacer(t *testing.T) {
	ctx := context.Background()
	p := &pacer{speed: 10}
	base := time.Unix(0, 0)
	require.NoError(t, p.wait(ctx, base))

	start := time.Now()
	require.NoError(t, p.wait(ctx, base.Add(200*time.Millisecond)))
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, p.wait(cctx, base.Add(time.Hour)), context.Canceled)

	unpaced := &pacer{}
	assert.NoError(t, unpaced.wait(ctx, base.Add(time.Hour)))
}
