package main

import (
	"errors"
	"time"

	"github.com/banshee-data/vmc-listener/internal/monitoring"
	"github.com/banshee-data/vmc-listener/internal/network"
	"github.com/banshee-data/vmc-listener/internal/osc"
	"github.com/banshee-data/vmc-listener/internal/vmc"
)

// pollHandler turns each polled datagram into a state update. Datagram
// errors are already counted by the listener; they are logged here at
// most once per interval.
type pollHandler struct {
	dispatcher  *vmc.Dispatcher
	state       *vmc.State
	logInterval time.Duration
	now         func() time.Time

	lastLog    time.Time
	suppressed int
}

func newPollHandler(d *vmc.Dispatcher, s *vmc.State, logInterval time.Duration) *pollHandler {
	return &pollHandler{dispatcher: d, state: s, logInterval: logInterval, now: time.Now}
}

func (h *pollHandler) handle(msgs []osc.Message, err error) {
	u := h.dispatcher.Dispatch(msgs)
	h.state.Apply(u)

	if err == nil && len(u.Errors) > 0 {
		err = errors.Join(u.Errors...)
	}
	if err == nil {
		return
	}
	now := h.now()
	if now.Sub(h.lastLog) < h.logInterval {
		h.suppressed++
		return
	}
	color := ""
	if errors.Is(err, network.ErrOversizeDatagram) {
		color = "\033[93m"
	}
	if h.suppressed > 0 {
		monitoring.Logf("%sDatagram error: %v (%d more since last report)\033[0m", color, err, h.suppressed)
	} else {
		monitoring.Logf("%sDatagram error: %v\033[0m", color, err)
	}
	h.lastLog = now
	h.suppressed = 0
}
