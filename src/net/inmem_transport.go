package net

import (
	"sync"
	"time"

	"github.com/mosaicnetworks/duststorm/src/message"
)

// InmemTransport implements the Transport interface with channels, to allow
// nodes to be tested in-memory without going through byte streams. Inbound
// messages are injected with Deliver; outbound messages are read from Sent.
type InmemTransport struct {
	sync.Mutex
	consumeCh chan *message.Message
	sentCh    chan *message.Message
	closed    bool
	err       error

	shutdown   bool
	shutdownCh chan struct{}
}

// NewInmemTransport returns an InmemTransport whose outbound channel can hold
// up to capacity messages before Send blocks.
func NewInmemTransport(capacity int) *InmemTransport {
	return &InmemTransport{
		consumeCh:  make(chan *message.Message, consumerBuffer),
		sentCh:     make(chan *message.Message, capacity),
		shutdownCh: make(chan struct{}),
	}
}

// Listen is an empty function as there is no need to defer
// initialisation of the InMem service
func (i *InmemTransport) Listen() {
}

// Consumer implements the Transport interface.
func (i *InmemTransport) Consumer() <-chan *message.Message {
	return i.consumeCh
}

// Err implements the Transport interface.
func (i *InmemTransport) Err() error {
	i.Lock()
	defer i.Unlock()
	return i.err
}

// Send implements the Transport interface.
func (i *InmemTransport) Send(m *message.Message) error {
	select {
	case <-i.shutdownCh:
		return ErrTransportShutdown
	default:
	}

	select {
	case i.sentCh <- m:
		return nil
	case <-i.shutdownCh:
		return ErrTransportShutdown
	}
}

// Sent returns the channel of messages passed to Send.
func (i *InmemTransport) Sent() <-chan *message.Message {
	return i.sentCh
}

// Deliver queues an inbound message. It returns ErrTransportShutdown once the
// inbound side has been ended or the transport closed. The lock only guards
// the channel against EndInbound and is never held while blocked on it.
func (i *InmemTransport) Deliver(m *message.Message) error {
	for {
		i.Lock()
		if i.closed {
			i.Unlock()
			return ErrTransportShutdown
		}
		select {
		case i.consumeCh <- m:
			i.Unlock()
			return nil
		default:
		}
		i.Unlock()

		select {
		case <-i.shutdownCh:
			return ErrTransportShutdown
		case <-time.After(time.Millisecond):
		}
	}
}

// EndInbound closes the inbound queue as if the stream had ended. A non-nil err
// is reported by Err, as a decode failure would be.
func (i *InmemTransport) EndInbound(err error) {
	i.Lock()
	defer i.Unlock()
	if i.closed {
		return
	}
	i.err = err
	i.closed = true
	close(i.consumeCh)
}

// Close is used to permanently disable the transport
func (i *InmemTransport) Close() error {
	i.Lock()
	defer i.Unlock()
	if !i.shutdown {
		close(i.shutdownCh)
		i.shutdown = true
	}
	return nil
}
