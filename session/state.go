package session

import "sync/atomic"

// State is a point in the connection lifecycle shared by both the client
// and server sides of one socket. States only ever move forward; there is
// no transition back to an earlier state.
type State uint32

const (
	Handshaking State = iota
	Connected
	Closing
	Dead
)

// String renders the state for logging.
func (s State) String() string {
	switch s {
	case Handshaking:
		return "Handshaking"
	case Connected:
		return "Connected"
	case Closing:
		return "Closing"
	case Dead:
		return "Dead"
	default:
		return "Unknown"
	}
}

// stateCell is an atomic State that refuses to move backward, mirroring
// the ConnectionState transition discipline the teacher's event-driven TCP
// client enforces under a mutex; here it is lock-free since only the
// ordering, not any accompanying side-data, needs to be atomic.
type stateCell struct {
	v atomic.Uint32
}

func (c *stateCell) load() State {
	return State(c.v.Load())
}

// moveTo attempts to advance the cell to to. It reports true only if the
// cell actually moved (to was strictly later than the current state); a
// call with to equal to or earlier than the current state is a no-op that
// reports false.
func (c *stateCell) moveTo(to State) bool {
	for {
		cur := State(c.v.Load())
		if to <= cur {
			return false
		}
		if c.v.CompareAndSwap(uint32(cur), uint32(to)) {
			return true
		}
	}
}
