package unirun

import (
	"errors"
	"fmt"
	"io"
)

// ClientErrorType classifies failures seen by the host side of the protocol
type ClientErrorType int

const (
	ClientErrorTypeIo ClientErrorType = iota
	ClientErrorTypeProvider
	ClientErrorTypeUnexpectedPackage
	ClientErrorTypeCorrelation
)

// ClientError represents errors from a provider conversation
type ClientError struct {
	Type    ClientErrorType
	Message string
	Err     error
}

func (e *ClientError) Error() string {
	switch e.Type {
	case ClientErrorTypeIo:
		return fmt.Sprintf("I/O error: %s", e.Message)
	case ClientErrorTypeProvider:
		return fmt.Sprintf("Provider returned error: %s", e.Message)
	case ClientErrorTypeUnexpectedPackage:
		return fmt.Sprintf("Unexpected package: %s", e.Message)
	case ClientErrorTypeCorrelation:
		return fmt.Sprintf("Correlation mismatch: %s", e.Message)
	default:
		return fmt.Sprintf("Unknown error: %s", e.Message)
	}
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

func ioError(op string, err error) *ClientError {
	return &ClientError{Type: ClientErrorTypeIo, Message: fmt.Sprintf("%s: %v", op, err), Err: err}
}

// Client drives a provider from the host side. It acknowledges every hit it
// receives and can cut a stream short with an in-stream ABORT.
type Client struct {
	conn *Conn
}

// NewClient creates a client on an established connection
func NewClient(conn *Conn) *Client {
	return &Client{conn: conn}
}

// roundTrip sends a command and waits for the RESULT answering it
func (c *Client) roundTrip(pkg *Package) error {
	if err := c.conn.WritePackage(pkg); err != nil {
		return ioError("write "+pkg.Payload.Command.Kind.String(), err)
	}
	resp, err := c.conn.ReadPackage()
	if err != nil {
		return ioError("read result", err)
	}
	if resp.Payload.Type != PayloadResult {
		return &ClientError{Type: ClientErrorTypeUnexpectedPackage, Message: resp.String()}
	}
	res := resp.Payload.Result
	if res.AnsweredID != pkg.ID {
		return &ClientError{
			Type:    ClientErrorTypeCorrelation,
			Message: fmt.Sprintf("sent %s, result answers %s", pkg.ID, res.AnsweredID),
		}
	}
	if !res.Ok() {
		return &ClientError{Type: ClientErrorTypeProvider, Message: res.Error()}
	}
	return nil
}

// Search issues GET_DATA and consumes the hit stream until the end-of-stream
// marker. onHit is called once per delivered hit; returning false aborts the
// rest of the stream.
func (c *Client) Search(query string, onHit func(Hit) bool) error {
	if err := c.roundTrip(NewGetData(query)); err != nil {
		return err
	}

	aborted := false
	for {
		pkg, err := c.conn.ReadPackage()
		if err != nil {
			return ioError("read hit", err)
		}

		switch {
		case pkg.IsCommand(CommandAbort):
			return nil

		case pkg.Payload.Type == PayloadHit:
			if aborted {
				return &ClientError{Type: ClientErrorTypeUnexpectedPackage, Message: "hit after abort: " + pkg.String()}
			}
			if !onHit(*pkg.Payload.Hit) {
				aborted = true
				if err := c.conn.WritePackage(NewAbort()); err != nil {
					return ioError("write ABORT", err)
				}
				continue
			}
			if err := c.conn.WritePackage(NewOk(pkg.ID)); err != nil {
				return ioError("write ack", err)
			}

		default:
			return &ClientError{Type: ClientErrorTypeUnexpectedPackage, Message: pkg.String()}
		}
	}
}

// Activate asks the provider to launch the application behind hitID
func (c *Client) Activate(hitID string) error {
	return c.roundTrip(NewActivate(hitID))
}

// Quit asks the provider to exit. A provider that closes the stream before
// acknowledging is treated as having quit.
func (c *Client) Quit() error {
	err := c.roundTrip(NewQuit())
	var ce *ClientError
	if errors.As(err, &ce) && ce.Type == ClientErrorTypeIo && errors.Is(ce.Err, io.EOF) {
		return nil
	}
	return err
}
