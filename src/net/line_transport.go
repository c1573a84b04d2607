package net

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/mosaicnetworks/duststorm/src/message"
	"github.com/sirupsen/logrus"
)

const (
	bufSize = 1 << 16

	// consumerBuffer is the capacity of the inbound queue.
	consumerBuffer = 64
)

/*
LineTransport reads and writes newline-delimited envelopes on a pair of
streams. In production these are the process' stdin and stdout.

The inbound loop decodes one envelope per line and pushes it onto the
consumer queue in arrival order. A line that cannot be decoded ends the loop:
framing cannot be recovered from a text stream without markers, so the error
is reported through Err and the consumer channel is closed.

Every Send is one encode, one write and one flush under a lock, so lines from
concurrent senders never interleave and nothing lingers in the buffer.
*/
type LineTransport struct {
	logger *logrus.Entry

	r *bufio.Reader

	w         *bufio.Writer
	writeLock sync.Mutex

	consumeCh chan *message.Message
	err       error

	shutdown     bool
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex
}

// NewLineTransport creates a LineTransport reading from r and writing to w.
func NewLineTransport(r io.Reader, w io.Writer, logger *logrus.Entry) *LineTransport {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &LineTransport{
		logger:     logger,
		r:          bufio.NewReaderSize(r, bufSize),
		w:          bufio.NewWriterSize(w, bufSize),
		consumeCh:  make(chan *message.Message, consumerBuffer),
		shutdownCh: make(chan struct{}),
	}
}

// NewStdioTransport creates a LineTransport on the process' stdin and stdout.
func NewStdioTransport(logger *logrus.Entry) *LineTransport {
	return NewLineTransport(os.Stdin, os.Stdout, logger)
}

// Listen implements the Transport interface.
func (t *LineTransport) Listen() {
	defer close(t.consumeCh)

	for {
		line, err := t.r.ReadBytes('\n')

		if len(line) > 0 && !isBlank(line) {
			m, derr := message.Decode(line)
			if derr != nil {
				t.logger.WithError(derr).Error("Failed to decode inbound line")
				t.err = derr
				return
			}

			t.logger.WithField("msg", m.String()).Debug("Received")

			select {
			case t.consumeCh <- m:
			case <-t.shutdownCh:
				return
			}
		}

		if err != nil {
			if err != io.EOF {
				t.logger.WithError(err).Error("Failed to read inbound stream")
				t.err = err
			}
			return
		}
	}
}

// Consumer implements the Transport interface.
func (t *LineTransport) Consumer() <-chan *message.Message {
	return t.consumeCh
}

// Err implements the Transport interface.
func (t *LineTransport) Err() error {
	return t.err
}

// Send implements the Transport interface.
func (t *LineTransport) Send(m *message.Message) error {
	line, err := message.Encode(m)
	if err != nil {
		return err
	}

	t.writeLock.Lock()
	defer t.writeLock.Unlock()

	if t.IsShutdown() {
		return ErrTransportShutdown
	}

	if _, err := t.w.Write(line); err != nil {
		return err
	}
	if err := t.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := t.w.Flush(); err != nil {
		return err
	}

	t.logger.WithField("msg", m.String()).Debug("Sent")

	return nil
}

// IsShutdown is used to check if the transport is shutdown.
func (t *LineTransport) IsShutdown() bool {
	select {
	case <-t.shutdownCh:
		return true
	default:
		return false
	}
}

// Close implements the Transport interface. It stops the delivery of inbound
// messages and refuses further sends. A Listen blocked on a read returns when
// that read does.
func (t *LineTransport) Close() error {
	t.shutdownLock.Lock()
	defer t.shutdownLock.Unlock()

	if !t.shutdown {
		close(t.shutdownCh)
		t.shutdown = true
	}
	return nil
}

func isBlank(line []byte) bool {
	for _, b := range line {
		switch b {
		case ' ', '\t', '\r', '\n':
		default:
			return false
		}
	}
	return true
}
