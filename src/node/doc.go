// Package node implements the runtime of a duststorm node.
//
// A Node reads envelopes from a net.Transport and drives a single Handler with
// them. Node implements a small state machine:
//
//	AwaitingInit --init--> Running --end of input / Shutdown--> Shutdown
//
// The first inbound message must be an init. It tells the node its own
// identifier and the identifiers of the whole cluster, and the node uses them
// to build its Handler through a HandlerFactory before answering init_ok. Any
// other first message is a ProtocolViolationError.
//
// Dispatch
//
// All handler code runs on the goroutine that called Run. Inbound messages
// are handled one at a time in arrival order, and, when the handler
// implements Ticker, periodic ticks from a ControlTimer are interleaved with
// them on the same goroutine. Handlers therefore need no locking of their own.
//
// A handler answers requests through the Sender it is given. New requests get
// a fresh msg_id from a per-node counter starting at 1; replies carry the
// in_reply_to of the request and no msg_id.
//
// Errors
//
// A handler that returns a *message.Error gets an error reply sent on its
// behalf, unless the message being handled was itself a reply. Every other
// error ends Run and is returned to the caller.
package node
