// Package dap implements the subset of the Debug Adapter Protocol the host
// needs to talk to a running backend over its control channel: requests
// with typed or custom arguments, event fan-out and disconnect.
package dap

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
)

const (
	// MaxMessageSize caps the body of one incoming message. provideContent
	// answers carry whole rendered pages, so the cap is generous.
	MaxMessageSize = 16 << 20

	// maxHeaderLine bounds a single header line; the reader buffer is this
	// size, so a longer line is rejected without buffering it.
	maxHeaderLine = 1024

	// maxHeaders bounds the header block of one message.
	maxHeaders = 8
)

var (
	// ErrFrameTooLarge is returned for a Content-Length above MaxMessageSize.
	ErrFrameTooLarge = errors.New("dap: message exceeds size limit")

	// ErrMalformedFrame is returned for header blocks that cannot be parsed.
	ErrMalformedFrame = errors.New("dap: malformed message header")
)

// Transport moves framed message bodies between the client and a backend.
type Transport interface {
	// Send writes one message body.
	Send(body []byte) error

	// Receive blocks until the next message body arrives.
	Receive() ([]byte, error)

	Close() error
}

// Conn is a Transport over the backend's TCP control channel.
type Conn struct {
	conn net.Conn
	r    *bufio.Reader

	wmu sync.Mutex
	buf bytes.Buffer
}

// Dial connects to the control channel at address.
func Dial(ctx context.Context, address string) (*Conn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return newConn(c), nil
}

func newConn(c net.Conn) *Conn {
	return &Conn{
		conn: c,
		r:    bufio.NewReaderSize(c, maxHeaderLine),
	}
}

// Send writes the header and body with a single write so concurrent
// senders never interleave partial frames.
func (c *Conn) Send(body []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	c.buf.Reset()
	c.buf.WriteString("Content-Length: ")
	c.buf.WriteString(strconv.Itoa(len(body)))
	c.buf.WriteString("\r\n\r\n")
	c.buf.Write(body)

	if _, err := c.conn.Write(c.buf.Bytes()); err != nil {
		return fmt.Errorf("dap: write: %w", err)
	}
	return nil
}

// Receive reads the next message body.
func (c *Conn) Receive() ([]byte, error) {
	size, err := readHeader(c.r)
	if err != nil {
		return nil, err
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(c.r, body); err != nil {
		return nil, fmt.Errorf("dap: read body: %w", err)
	}
	return body, nil
}

func (c *Conn) Close() error {
	return c.conn.Close()
}

// readHeader consumes one header block and returns its Content-Length.
// Headers other than Content-Length are ignored.
func readHeader(r *bufio.Reader) (int, error) {
	size := -1
	for n := 0; ; n++ {
		if n > maxHeaders {
			return 0, fmt.Errorf("%w: more than %d header lines", ErrMalformedFrame, maxHeaders)
		}

		line, err := r.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			return 0, fmt.Errorf("%w: header line longer than %d bytes", ErrMalformedFrame, maxHeaderLine)
		}
		if err != nil {
			if n == 0 && errors.Is(err, io.EOF) {
				return 0, io.EOF
			}
			return 0, fmt.Errorf("dap: read header: %w", err)
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			break
		}

		name, value, ok := bytes.Cut(line, []byte(":"))
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrMalformedFrame, line)
		}
		if !bytes.EqualFold(bytes.TrimSpace(name), []byte("Content-Length")) {
			continue
		}

		v, err := strconv.Atoi(string(bytes.TrimSpace(value)))
		if err != nil || v < 0 {
			return 0, fmt.Errorf("%w: content length %q", ErrMalformedFrame, value)
		}
		if v > MaxMessageSize {
			return 0, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, v)
		}
		size = v
	}

	if size < 0 {
		return 0, fmt.Errorf("%w: missing Content-Length", ErrMalformedFrame)
	}
	return size, nil
}
