package network

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/vmc-listener/internal/testutil"
)

func TestForwarder_RelaysPayload(t *testing.T) {
	sink := testutil.ListenLoopback(t)
	port := sink.LocalAddr().(*net.UDPAddr).Port

	stats := &countingStats{}
	f, err := NewForwarder("127.0.0.1", port, stats, time.Second)
	require.NoError(t, err)
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.Start(ctx)

	payload := blendDatagram("A", 0.73)
	f.Tap(Datagram{Payload: payload})
	payload[0] = 'X' // the tap must have copied

	got := testutil.ReadUDP(t, sink, 2*time.Second)
	assert.Equal(t, blendDatagram("A", 0.73), got)
	assert.Zero(t, stats.dropped)
}

func TestForwarder_DropsWhenFull(t *testing.T) {
	stats := &countingStats{}
	f, err := NewForwarder("127.0.0.1", 9, stats, time.Second)
	require.NoError(t, err)
	defer f.Close()

	// Without Start nothing drains the queue.
	for i := 0; i < cap(f.queue)+5; i++ {
		f.Tap(Datagram{Payload: []byte{1}})
	}
	assert.Equal(t, 5, stats.dropped)
}

func TestNewForwarder_BadAddress(t *testing.T) {
	_, err := NewForwarder("no such host.invalid", -1, nil, 0)
	assert.Error(t, err)
}
