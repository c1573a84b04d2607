// Package gossip implements broadcast by flooding with acknowledgements.
//
// Every node keeps the set of values it knows and, for each value, the
// neighbours that have not yet confirmed receiving it. A value learned from a
// client is pushed to every neighbour. A value learned from a neighbour is
// forwarded to the neighbours that the sender did not already list as
// recipients. Each gossip message is acknowledged with a gossip_ok, and the
// Engine re-sends a value to the neighbours that are still pending every time
// the node's retry timer ticks, so values survive dropped messages.
//
// The recipients list carried by a gossip message only narrows the eager
// forwarding. It is never treated as an acknowledgement: a neighbour leaves a
// pending set only by sending gossip_ok.
//
// The Engine is a node.Handler and node.Ticker. It is not safe for concurrent
// use, except for Stats, and relies on the node runtime to serialise calls.
package gossip
