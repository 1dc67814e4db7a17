package monitoring

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/vmc-listener/internal/timeutil"
)

func TestPacketStats(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	reg := prometheus.NewRegistry()
	ps := NewPacketStats(clock, reg)

	ps.AddDatagram(100)
	ps.AddDatagram(300)
	ps.AddMessages(5)
	ps.AddMalformed()
	ps.AddOversize()
	ps.AddUnknownTag()
	ps.AddDropped()
	ps.AddReadError()

	clock.Advance(2 * time.Second)
	s, d := ps.GetAndReset()
	assert.Equal(t, 2*time.Second, d)
	assert.Equal(t, StatsSnapshot{
		Datagrams: 2, Bytes: 400, Messages: 5, Malformed: 1,
		Oversize: 1, UnknownTags: 1, ReadErrors: 1, Dropped: 1,
	}, s)

	// Interval resets, totals keep growing.
	ps.AddDatagram(10)
	s, _ = ps.GetAndReset()
	assert.Equal(t, int64(1), s.Datagrams)
	total, started := ps.Totals()
	assert.Equal(t, int64(3), total.Datagrams)
	assert.Equal(t, time.Unix(1000, 0), started)

	assert.Equal(t, float64(3), testutil.ToFloat64(ps.metrics.datagrams))
	assert.Equal(t, float64(410), testutil.ToFloat64(ps.metrics.bytes))
	assert.Equal(t, float64(1), testutil.ToFloat64(ps.metrics.errors.WithLabelValues("oversize")))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Greater(t, n, 0)
}

func TestPacketStats_NoRegistry(t *testing.T) {
	ps := NewPacketStats(nil, nil)
	ps.AddDatagram(1)
	ps.AddMalformed()
	total, _ := ps.Totals()
	assert.Equal(t, int64(1), total.Malformed)
}

func TestLogStats(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, v[0].(string))
	})

	clock := timeutil.NewMockClock(time.Unix(0, 0))
	ps := NewPacketStats(clock, nil)

	clock.Advance(time.Second)
	ps.LogStats()
	assert.Empty(t, lines, "quiet interval should not log")

	ps.AddDatagram(2048)
	ps.AddMessages(10)
	ps.AddMalformed()
	clock.Advance(time.Second)
	ps.LogStats()
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "VMC stats (/sec): 1.0 datagrams, 2.0 KB, 10.0 messages"), lines[0])
	assert.Contains(t, lines[0], "1 malformed")
	assert.NotContains(t, lines[0], "oversize")
}
