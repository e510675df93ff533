package provider

import (
	"errors"
	"fmt"
)

// NotFoundMessage is the Err text for an ACTIVATE whose hit id is not in the
// current result set
const NotFoundMessage = "cannot find data by hit"

var (
	// ErrTransport matches any read or write failure on the channel
	ErrTransport = errors.New("transport failure")
	// ErrProtocolViolation matches any unexpected payload from the host
	ErrProtocolViolation = errors.New("protocol violation")
)

// ErrorKind classifies fatal engine errors
type ErrorKind int

const (
	KindTransport ErrorKind = iota
	KindProtocol
)

// Error is a fatal failure that ends Run. Host and provider cannot
// resynchronize after one, so the process is expected to exit.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTransport:
		return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
	case KindProtocol:
		return fmt.Sprintf("protocol violation during %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the sentinel of the error's kind
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindTransport:
		return target == ErrTransport
	case KindProtocol:
		return target == ErrProtocolViolation
	}
	return false
}

func transportError(op string, err error) error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

func protocolError(op string, format string, args ...interface{}) error {
	return &Error{Kind: KindProtocol, Op: op, Err: fmt.Errorf(format, args...)}
}
