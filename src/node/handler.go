package node

import (
	"github.com/mosaicnetworks/duststorm/src/message"
)

// Handler implements the application logic of a node. Handle is called once
// per inbound message, in arrival order, and never concurrently with another
// Handle or Tick. It may emit any number of messages through out before
// returning.
//
// Returning a *message.Error answers the request with an error body and keeps
// the node running. Any other error is fatal.
type Handler interface {
	Handle(m *message.Message, out Sender) error
}

// Ticker is implemented by handlers that need periodic work. Tick runs on the
// same goroutine as Handle, every Config.RetryInterval.
type Ticker interface {
	Tick(out Sender)
}

// Sender is the outbound sink handed to handlers.
type Sender interface {
	// Send emits a new request to dest, with a fresh msg_id.
	Send(dest string, p message.Payload) error

	// Reply answers req. The reply carries in_reply_to and no msg_id.
	Reply(req *message.Message, p message.Payload) error
}

// HandlerFactory builds the handler of a node from the contents of its init
// message: the node's own identifier and the identifiers of every node in the
// cluster.
type HandlerFactory func(self string, nodeIDs []string) (Handler, error)
