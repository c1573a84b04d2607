package node

import (
	"sync/atomic"
)

// State captures the state of a node: AwaitingInit, Running or Shutdown.
type State uint32

const (
	// AwaitingInit is the initial state. Nothing but an init message is
	// accepted.
	AwaitingInit State = iota
	// Running dispatches every inbound message to the handler.
	Running
	// Shutdown is terminal.
	Shutdown
)

// String ...
func (s State) String() string {
	switch s {
	case AwaitingInit:
		return "AwaitingInit"
	case Running:
		return "Running"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

type state struct {
	state State
}

func (b *state) getState() State {
	stateAddr := (*uint32)(&b.state)
	return State(atomic.LoadUint32(stateAddr))
}

func (b *state) setState(s State) {
	stateAddr := (*uint32)(&b.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}
