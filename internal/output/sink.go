// Package output provides the user-facing transcript that backend output and
// diagnostics progress are written to.
//
// A Sink is passed explicitly to every component that produces transcript
// text. There is no package-level default.
package output

import (
	"bytes"
	"io"
	"strings"
	"sync"
)

// Sink receives transcript text.
//
// Implementations must be safe for concurrent use: a backend's stdout and
// stderr are forwarded from separate goroutines.
type Sink interface {
	io.Writer

	// AppendLine writes line followed by a newline.
	AppendLine(line string)

	// Clear discards the retained transcript.
	Clear()

	// Flush pushes buffered text to the underlying destination.
	Flush()
}

// Channel is a Sink that writes through to an io.Writer and retains a copy
// of everything written since the last Clear.
type Channel struct {
	mu         sync.Mutex
	out        io.Writer
	transcript bytes.Buffer
}

// NewChannel creates a Channel writing to out. A nil out only retains the
// transcript.
func NewChannel(out io.Writer) *Channel {
	if out == nil {
		out = io.Discard
	}
	return &Channel{out: out}
}

// Write appends p to the transcript and forwards it to the destination.
func (c *Channel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.transcript.Write(p)
	return c.out.Write(p)
}

// Append writes s verbatim.
func (c *Channel) Append(s string) {
	_, _ = io.WriteString(c, s)
}

// AppendLine writes line followed by a newline.
func (c *Channel) AppendLine(line string) {
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	c.Append(line)
}

// Clear discards the retained transcript.
func (c *Channel) Clear() {
	c.mu.Lock()
	c.transcript.Reset()
	c.mu.Unlock()
}

// Flush syncs the destination when it supports it.
func (c *Channel) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.out.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
}

// String returns the retained transcript.
func (c *Channel) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.String()
}

// Lines returns the retained transcript split into lines, without the
// trailing empty element.
func (c *Channel) Lines() []string {
	text := strings.TrimSuffix(c.String(), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
