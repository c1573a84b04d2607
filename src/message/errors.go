package message

import (
	"errors"
	"fmt"
)

// ErrorCode enumerates the codes carried by error bodies.
type ErrorCode int

const (
	// Timeout ...
	Timeout ErrorCode = 0
	// NodeNotFound ...
	NodeNotFound ErrorCode = 1
	// NotSupported is returned for request types a handler does not serve.
	NotSupported ErrorCode = 10
	// TemporarilyUnavailable ...
	TemporarilyUnavailable ErrorCode = 11
	// MalformedRequest is returned for requests a handler cannot interpret.
	MalformedRequest ErrorCode = 12
	// Crash ...
	Crash ErrorCode = 13
	// Abort ...
	Abort ErrorCode = 14
	// KeyDoesNotExist ...
	KeyDoesNotExist ErrorCode = 20
	// KeyAlreadyExists ...
	KeyAlreadyExists ErrorCode = 21
	// PreconditionFailed ...
	PreconditionFailed ErrorCode = 22
	// TxnConflict ...
	TxnConflict ErrorCode = 30
)

// String ...
func (c ErrorCode) String() string {
	switch c {
	case Timeout:
		return "timeout"
	case NodeNotFound:
		return "node-not-found"
	case NotSupported:
		return "not-supported"
	case TemporarilyUnavailable:
		return "temporarily-unavailable"
	case MalformedRequest:
		return "malformed-request"
	case Crash:
		return "crash"
	case Abort:
		return "abort"
	case KeyDoesNotExist:
		return "key-does-not-exist"
	case KeyAlreadyExists:
		return "key-already-exists"
	case PreconditionFailed:
		return "precondition-failed"
	case TxnConflict:
		return "txn-conflict"
	default:
		return fmt.Sprintf("code-%d", int(c))
	}
}

// Error is both the payload of error bodies and a Go error. Handlers return it
// to have the node answer the request with an error body.
type Error struct {
	Code ErrorCode
	Text string
}

// NewError returns an Error with a formatted text.
func NewError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code: code,
		Text: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Text == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Text)
}

// AsError returns the *Error wrapped in err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// MalformedEnvelopeError is returned when a line cannot be decoded into a
// Message. The stream it came from cannot be trusted any further.
type MalformedEnvelopeError struct {
	Line   string
	Reason string
	Err    error
}

func malformed(line []byte, err error, format string, args ...interface{}) *MalformedEnvelopeError {
	return &MalformedEnvelopeError{
		Line:   string(line),
		Reason: fmt.Sprintf(format, args...),
		Err:    err,
	}
}

// Error ...
func (e *MalformedEnvelopeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed envelope %q: %s: %v", e.Line, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed envelope %q: %s", e.Line, e.Reason)
}

// Unwrap ...
func (e *MalformedEnvelopeError) Unwrap() error {
	return e.Err
}

// IsMalformed reports whether err is, or wraps, a MalformedEnvelopeError.
func IsMalformed(err error) bool {
	var e *MalformedEnvelopeError
	return errors.As(err, &e)
}
