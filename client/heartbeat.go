package client

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// heartbeat drives an application-level ping/pong liveness check over one
// session's socket, grounded on the ping-ticker-plus-missed-pong loop the
// pack's WebSocket connection handler runs. Unlike that loop's
// wall-clock-since-last-read check, missed pings are counted directly:
// each tick that finds the previous ping still unanswered counts as one
// miss, and MaxMissedHeartbeats consecutive misses is a transport failure.
type heartbeat struct {
	conn      *websocket.Conn
	interval  time.Duration
	maxMissed int
	onDead    func()

	missed atomic.Int32
	stop   chan struct{}
}

func newHeartbeat(conn *websocket.Conn, interval time.Duration, maxMissed int, onDead func()) *heartbeat {
	h := &heartbeat{conn: conn, interval: interval, maxMissed: maxMissed, onDead: onDead, stop: make(chan struct{})}
	conn.SetPongHandler(func(string) error {
		h.missed.Store(0)
		return nil
	})
	return h
}

func (h *heartbeat) run() {
	if h.interval <= 0 {
		return
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			if int(h.missed.Add(1)) > h.maxMissed {
				h.onDead()
				return
			}
			deadline := time.Now().Add(h.interval)
			if err := h.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				h.onDead()
				return
			}
		}
	}
}

func (h *heartbeat) Close() {
	select {
	case <-h.stop:
	default:
		close(h.stop)
	}
}
