package process

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind discriminates launch failures so callers can choose remediation
// without inspecting message text.
type ErrorKind int

const (
	// KindUnknown covers every failure without a more specific kind.
	KindUnknown ErrorKind = iota
	// KindNotFound means the executable could not be found.
	KindNotFound
	// KindTimeout means the expected output did not appear in time.
	KindTimeout
	// KindHandshake means the output stream ended before the expected output.
	KindHandshake
	// KindConfiguration means the launch configuration is invalid.
	KindConfiguration
)

// String returns a short kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not-found"
	case KindTimeout:
		return "timeout"
	case KindHandshake:
		return "handshake"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Sentinel errors for process package.
var (
	// ErrHandshakeTimeout is returned when no match appears within the timeout.
	ErrHandshakeTimeout = errors.New("timed out waiting for debugger output")

	// ErrHandshakeStreamClosed is returned when the stream ends before a match.
	ErrHandshakeStreamClosed = errors.New("debugger output ended before the expected line")

	// ErrHandshakeInvalidPort is returned when the handshake names a port
	// outside 1..65535.
	ErrHandshakeInvalidPort = errors.New("debugger reported an invalid port")

	// ErrProcessAlreadyStarted is returned when trying to start an already running process.
	ErrProcessAlreadyStarted = errors.New("process already started")

	// ErrSupervisorShutdown is returned when the supervisor is shutting down.
	ErrSupervisorShutdown = errors.New("supervisor is shutting down")
)

// ExecutableNotFoundError reports an executable that does not exist or is
// not on PATH.
type ExecutableNotFoundError struct {
	Path string
	Err  error
}

func (e *ExecutableNotFoundError) Error() string {
	return fmt.Sprintf("executable %q not found", e.Path)
}

func (e *ExecutableNotFoundError) Unwrap() error {
	return e.Err
}

// HandshakeError wraps ErrHandshakeTimeout or ErrHandshakeStreamClosed with
// the pattern that was being waited for.
type HandshakeError struct {
	Pattern string
	Err     error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("%v (waiting for %q)", e.Err, e.Pattern)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports an environment override that references an
// unsupported variable kind.
type ConfigurationError struct {
	// Variable is the environment variable whose value failed to expand.
	Variable string
	// VariableKind is the unsupported reference kind, e.g. "config" in ${config:x}.
	VariableKind string
	// Value is the raw override value.
	Value string
}

func (e *ConfigurationError) Error() string {
	if e.VariableKind == "" {
		return fmt.Sprintf("environment %s=%q: untyped variable reference", e.Variable, e.Value)
	}
	return fmt.Sprintf("environment %s=%q: unknown variable type %q", e.Variable, e.Value, e.VariableKind)
}

// KindOf classifies err.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var notFound *ExecutableNotFoundError
	var cfgErr *ConfigurationError
	switch {
	case errors.As(err, &notFound):
		return KindNotFound
	case errors.As(err, &cfgErr):
		return KindConfiguration
	case errors.Is(err, ErrHandshakeTimeout):
		return KindTimeout
	case errors.Is(err, ErrHandshakeStreamClosed), errors.Is(err, ErrHandshakeInvalidPort):
		return KindHandshake
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindUnknown
	}
}

// NotFoundPath returns the path carried by an ExecutableNotFoundError in
// err's chain.
func NotFoundPath(err error) (string, bool) {
	var notFound *ExecutableNotFoundError
	if errors.As(err, &notFound) {
		return notFound.Path, true
	}
	return "", false
}
