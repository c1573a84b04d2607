// Package net implements the transports that carry envelopes between a
// duststorm node and the rest of the cluster.
//
// A node never talks to its peers directly. Every link is multiplexed onto one
// inbound and one outbound stream, and an external harness routes envelopes
// between processes. The Transport interface captures that: an ordered queue of
// inbound messages (Consumer) and an atomic Send.
//
// There are two implementations:
//
// - Line: newline-delimited JSON over an io.Reader/io.Writer pair, normally
// stdin and stdout.
//
// - Inmem: channels only, used in tests to drive a node without pipes.
package net
