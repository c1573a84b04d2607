package node

import (
	"errors"
	"fmt"

	"github.com/mosaicnetworks/duststorm/src/message"
)

// ProtocolViolationError is returned by Run when a peer breaks the handshake,
// for example when the first message is not an init.
type ProtocolViolationError struct {
	Msg    *message.Message
	Reason string
}

// Error ...
func (e *ProtocolViolationError) Error() string {
	if e.Msg == nil {
		return fmt.Sprintf("protocol violation: %s", e.Reason)
	}
	return fmt.Sprintf("protocol violation: %s (%s)", e.Reason, e.Msg)
}

// IsProtocolViolation reports whether err is, or wraps, a
// ProtocolViolationError.
func IsProtocolViolation(err error) bool {
	var e *ProtocolViolationError
	return errors.As(err, &e)
}
