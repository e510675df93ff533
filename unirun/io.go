package unirun

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrMalformedPackage matches a frame whose body is not a valid package
var ErrMalformedPackage = errors.New("malformed package")

// PackageReader reads length-prefixed CBOR packages from a stream
type PackageReader struct {
	reader io.Reader
	limits Limits
}

// NewPackageReader creates a new PackageReader
func NewPackageReader(r io.Reader) *PackageReader {
	return &PackageReader{
		reader: r,
		limits: DefaultLimits(),
	}
}

// SetLimits updates the reader's limits
func (pr *PackageReader) SetLimits(limits Limits) {
	pr.limits = limits.Effective()
}

// ReadPackage reads a single package from the stream
func (pr *PackageReader) ReadPackage() (*Package, error) {
	// Read 4-byte length prefix (big-endian)
	var lengthBuf [4]byte
	if _, err := io.ReadFull(pr.reader, lengthBuf[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(lengthBuf[:])

	if int(length) > pr.limits.MaxFrame {
		return nil, fmt.Errorf("frame size %d exceeds max_frame limit %d", length, pr.limits.MaxFrame)
	}
	if int(length) > MaxFrameHardLimit {
		return nil, fmt.Errorf("frame size %d exceeds hard limit %d", length, MaxFrameHardLimit)
	}

	frameBuf := make([]byte, length)
	if _, err := io.ReadFull(pr.reader, frameBuf); err != nil {
		return nil, err
	}

	pkg, err := DecodePackage(frameBuf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPackage, err)
	}
	return pkg, nil
}

// PackageWriter writes length-prefixed CBOR packages to a stream
type PackageWriter struct {
	writer io.Writer
	limits Limits
}

// NewPackageWriter creates a new PackageWriter
func NewPackageWriter(w io.Writer) *PackageWriter {
	return &PackageWriter{
		writer: w,
		limits: DefaultLimits(),
	}
}

// SetLimits updates the writer's limits
func (pw *PackageWriter) SetLimits(limits Limits) {
	pw.limits = limits.Effective()
}

// WritePackage writes a single package as one frame
func (pw *PackageWriter) WritePackage(pkg *Package) error {
	body, err := EncodePackage(pkg)
	if err != nil {
		return fmt.Errorf("encode package: %w", err)
	}

	if len(body) > pw.limits.MaxFrame {
		return fmt.Errorf("encoded package size %d exceeds max_frame limit %d", len(body), pw.limits.MaxFrame)
	}
	if len(body) > MaxFrameHardLimit {
		return fmt.Errorf("encoded package size %d exceeds hard limit %d", len(body), MaxFrameHardLimit)
	}

	// Prefix and body go out in a single Write so a frame is never split
	// across writes on message-oriented transports.
	frame := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(body)))
	copy(frame[4:], body)
	if _, err := pw.writer.Write(frame); err != nil {
		return err
	}
	return nil
}

// Conn is a duplex package channel over a byte stream
type Conn struct {
	reader  *PackageReader
	writer  *PackageWriter
	closers []io.Closer
	once    sync.Once
}

// NewConn creates a Conn reading from r and writing to w. Close closes the
// given closers in order.
func NewConn(r io.Reader, w io.Writer, closers ...io.Closer) *Conn {
	return &Conn{
		reader:  NewPackageReader(r),
		writer:  NewPackageWriter(w),
		closers: closers,
	}
}

// NewStreamConn creates a Conn over a single bidirectional stream such as a
// socket
func NewStreamConn(rwc io.ReadWriteCloser) *Conn {
	return NewConn(rwc, rwc, rwc)
}

// SetLimits applies limits to both directions
func (c *Conn) SetLimits(limits Limits) {
	c.reader.SetLimits(limits)
	c.writer.SetLimits(limits)
}

// ReadPackage blocks until one package arrives or the stream fails
func (c *Conn) ReadPackage() (*Package, error) {
	return c.reader.ReadPackage()
}

// WritePackage blocks until the package is written or the stream fails
func (c *Conn) WritePackage(pkg *Package) error {
	return c.writer.WritePackage(pkg)
}

// Close closes the underlying stream(s) once and returns the first error
func (c *Conn) Close() error {
	var first error
	c.once.Do(func() {
		for _, cl := range c.closers {
			if err := cl.Close(); err != nil && first == nil {
				first = err
			}
		}
	})
	return first
}
