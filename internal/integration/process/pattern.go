package process

import (
	"context"
	"errors"
	"io"
	"regexp"
	"time"
)

// DefaultPatternTimeout bounds WaitPattern when no timeout is given.
const DefaultPatternTimeout = 5 * time.Second

// HandshakePattern matches the line a backend prints once its control
// channel is listening. The trailing \s keeps a partially received port
// number from matching.
var HandshakePattern = regexp.MustCompile(`(?m)^Listening on port (\d+)\s`)

// WaitPattern reads r until pattern matches the accumulated output and
// returns the submatches. Matching is done against everything read so far,
// so patterns may span lines and reads.
//
// Every chunk read is written to sink (if non-nil), before and after the
// match: after WaitPattern returns, a background reader keeps forwarding the
// rest of r to sink until r ends.
//
// If timeout (DefaultPatternTimeout when <= 0) elapses first the error wraps
// ErrHandshakeTimeout; if r ends first it wraps ErrHandshakeStreamClosed.
// Cancelling ctx returns ctx.Err().
func WaitPattern(ctx context.Context, r io.Reader, pattern *regexp.Regexp, timeout time.Duration, sink io.Writer) ([]string, error) {
	if timeout <= 0 {
		timeout = DefaultPatternTimeout
	}

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	chunks := make(chan []byte)
	ended := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)

	go forward(r, sink, chunks, ended, stop)

	var seen []byte
	for {
		select {
		case chunk := <-chunks:
			seen = append(seen, chunk...)
			if m := pattern.FindSubmatch(seen); m != nil {
				groups := make([]string, len(m))
				for i, g := range m {
					groups[i] = string(g)
				}
				return groups, nil
			}

		case err := <-ended:
			if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				return nil, &HandshakeError{Pattern: pattern.String(), Err: errors.Join(ErrHandshakeStreamClosed, err)}
			}
			return nil, &HandshakeError{Pattern: pattern.String(), Err: ErrHandshakeStreamClosed}

		case <-ctx.Done():
			if err := parent.Err(); err != nil {
				return nil, err
			}
			return nil, &HandshakeError{Pattern: pattern.String(), Err: ErrHandshakeTimeout}
		}
	}
}

// forward copies r to sink in chunks, offering each chunk on chunks until
// stop is closed. The terminal read error is sent on ended.
func forward(r io.Reader, sink io.Writer, chunks chan<- []byte, ended chan<- error, stop <-chan struct{}) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			if sink != nil {
				_, _ = sink.Write(chunk)
			}
			select {
			case chunks <- chunk:
			case <-stop:
			}
		}
		if err != nil {
			ended <- err
			return
		}
	}
}

// drain forwards r to sink until r ends.
func drain(r io.Reader, sink io.Writer) {
	if sink == nil {
		sink = io.Discard
	}
	_, _ = io.Copy(sink, r)
}
