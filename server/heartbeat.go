package server

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// heartbeat drives the server side of the application-level ping/pong
// liveness check, mirroring client.heartbeat: a session that stops
// responding without ever closing its TCP socket (a dropped connection on
// a lossy network, a frozen peer) is otherwise invisible to a read loop
// blocked in conn.ReadMessage forever. ServerConfig.HeartbeatInterval sets
// the ping cadence; ServerConfig.KeepaliveTimeout divided by that interval
// sets how many consecutive un-ponged pings are tolerated before the
// session is torn down as dead.
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

// maxMissedHeartbeats derives the consecutive-miss threshold from a
// heartbeat cadence and a total keepalive budget. At least one missed ping
// is always tolerated.
func maxMissedHeartbeats(interval, keepalive time.Duration) int {
	if interval <= 0 {
		return 0
	}
	n := int(keepalive / interval)
	if n < 1 {
		n = 1
	}
	return n
}
