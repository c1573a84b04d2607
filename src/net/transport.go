package net

import (
	"errors"

	"github.com/mosaicnetworks/duststorm/src/message"
)

var (
	// ErrTransportShutdown is returned when operations on a transport are
	// invoked after it's been terminated.
	ErrTransportShutdown = errors.New("transport shutdown")
)

// Transport provides an interface for the byte streams a node uses to talk to
// the rest of the cluster. All peers are multiplexed onto a single inbound and a
// single outbound stream.
type Transport interface {

	// Listen runs the inbound loop. It blocks until the inbound stream ends or
	// the transport is closed.
	Listen()

	// Consumer returns the ordered queue of inbound messages. It is closed when
	// the inbound stream ends, after which Err reports why.
	Consumer() <-chan *message.Message

	// Err returns the error that ended the inbound stream, or nil if it ended
	// cleanly. It is only meaningful once the Consumer channel is closed.
	Err() error

	// Send writes one message to the outbound stream. Concurrent calls never
	// interleave.
	Send(m *message.Message) error

	// Close permanently closes a transport, stopping
	// any associated goroutines and freeing other resources.
	Close() error
}
