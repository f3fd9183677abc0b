package debug

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dshills/lldbhost/internal/integration"
	"github.com/dshills/lldbhost/internal/integration/debug/bridge"
	"github.com/dshills/lldbhost/internal/integration/debug/dap"
)

// SessionState represents the current state of a debug session.
type SessionState int

const (
	// StateConnected is after the control channel is established.
	StateConnected SessionState = iota
	// StateInitialized is after the initialize request succeeded.
	StateInitialized
	// StateTerminated is after the backend reported the debuggee ended.
	StateTerminated
	// StateDisconnected is after the control channel was closed.
	StateDisconnected
)

// String returns a string representation of the state.
func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateInitialized:
		return "initialized"
	case StateTerminated:
		return "terminated"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// SessionHandlers contains callbacks for session events.
type SessionHandlers struct {
	// OnStateChanged is called when the session state changes.
	OnStateChanged func(old, new SessionState)

	// OnOutput is called when the backend sends output.
	OnOutput func(category, output string)

	// OnTerminated is called when the debuggee terminates.
	OnTerminated func()

	// OnExited is called with the debuggee's exit code.
	OnExited func(code int)
}

// SessionConfig configures the initialize request.
type SessionConfig struct {
	// AdapterID is the debug adapter identifier.
	AdapterID string

	// ClientID is this client's identifier.
	ClientID string

	// ClientName is this client's name.
	ClientName string

	// LinesStartAt1 indicates if line numbers start at 1.
	LinesStartAt1 bool

	// ColumnsStartAt1 indicates if column numbers start at 1.
	ColumnsStartAt1 bool

	// PathFormat is the path format ("path" or "uri").
	PathFormat string
}

// DefaultSessionConfig returns a default session configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		AdapterID:       bridge.SessionType,
		ClientID:        "lldbhost",
		ClientName:      "lldbhost",
		LinesStartAt1:   true,
		ColumnsStartAt1: true,
		PathFormat:      "path",
	}
}

// Session is a debug session on a launched backend's control channel.
type Session struct {
	id     string
	name   string
	client *dap.Client
	events Poster
	log    log.FieldLogger

	capabilities *dap.Capabilities
	state        SessionState
	stateMu      sync.RWMutex

	handlers   SessionHandlers
	handlersMu sync.RWMutex

	endOnce sync.Once
}

// NewSession creates a session called name over client. Its start, custom
// events and end are posted to events.
func NewSession(client *dap.Client, name string, events Poster) *Session {
	s := &Session{
		id:     uuid.NewString(),
		name:   name,
		client: client,
		events: events,
		state:  StateConnected,
	}
	s.log = log.WithFields(log.Fields{"component": "session", "session": name, "id": s.id})

	client.OnOutput(s.onOutput)
	client.OnTerminated(s.onTerminated)
	client.OnExited(s.onExited)
	client.OnAnyEvent(s.onEvent)

	return s
}

// ConnectSession connects to a backend listening on the local port and
// creates a session for it.
func ConnectSession(ctx context.Context, port int, name string, events Poster) (*Session, error) {
	address := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))

	conn, err := integration.Retry(ctx, integration.DefaultRetryConfig(), func() (*dap.Conn, error) {
		return dap.Dial(ctx, address)
	})
	if err != nil {
		return nil, fmt.Errorf("connect to backend on %s: %w", address, err)
	}

	return NewSession(dap.NewClient(conn), name, events), nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Name returns the session name.
func (s *Session) Name() string {
	return s.name
}

// Info describes the session to the bridge.
func (s *Session) Info() bridge.SessionInfo {
	return bridge.SessionInfo{
		ID:        s.id,
		Name:      s.name,
		Type:      bridge.SessionType,
		Requester: s.client,
	}
}

// SetHandlers sets the session event handlers.
func (s *Session) SetHandlers(handlers SessionHandlers) {
	s.handlersMu.Lock()
	s.handlers = handlers
	s.handlersMu.Unlock()
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// setState updates the session state.
func (s *Session) setState(state SessionState) {
	s.stateMu.Lock()
	old := s.state
	s.state = state
	s.stateMu.Unlock()

	s.handlersMu.RLock()
	handler := s.handlers.OnStateChanged
	s.handlersMu.RUnlock()

	if handler != nil && old != state {
		handler(old, state)
	}
}

// Capabilities returns the backend capabilities.
func (s *Session) Capabilities() *dap.Capabilities {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.capabilities
}

// Err returns the error that ended the control channel, if any.
func (s *Session) Err() error {
	return s.client.Error()
}

// Done is closed when the control channel stops receiving.
func (s *Session) Done() <-chan struct{} {
	return s.client.Ended()
}

// Initialize initializes the control channel and reports the session as
// started.
func (s *Session) Initialize(ctx context.Context, config SessionConfig) error {
	args := dap.InitializeRequestArguments{
		ClientID:        config.ClientID,
		ClientName:      config.ClientName,
		AdapterID:       config.AdapterID,
		LinesStartAt1:   config.LinesStartAt1,
		ColumnsStartAt1: config.ColumnsStartAt1,
		PathFormat:      config.PathFormat,
	}

	caps, err := s.client.Initialize(ctx, args)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	s.stateMu.Lock()
	s.capabilities = caps
	s.stateMu.Unlock()
	s.setState(StateInitialized)

	if err := s.post(bridge.SessionStarted(s.Info())); err != nil {
		return fmt.Errorf("report session start: %w", err)
	}
	s.log.Info("session initialized")
	return nil
}

// Disconnect asks the backend to end the session.
func (s *Session) Disconnect(ctx context.Context, terminate bool) error {
	args := dap.DisconnectArguments{
		TerminateDebuggee: terminate,
	}

	if err := s.client.Disconnect(ctx, args); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

// Close closes the control channel and reports the session as ended. The
// bridge then gives the backend a grace period to exit.
func (s *Session) Close() error {
	s.end()
	s.setState(StateDisconnected)
	return s.client.Close()
}

// end reports the session's end once.
func (s *Session) end() {
	s.endOnce.Do(func() {
		if err := s.post(bridge.SessionTerminated(s.id, bridge.SessionType)); err != nil {
			s.log.WithError(err).Warn("could not report session end")
		}
	})
}

func (s *Session) post(ev bridge.Event) error {
	if s.events == nil {
		return nil
	}
	return s.events.Post(ev)
}

func (s *Session) onOutput(body dap.OutputEventBody) {
	s.handlersMu.RLock()
	handler := s.handlers.OnOutput
	s.handlersMu.RUnlock()

	if handler != nil {
		handler(body.Category, body.Output)
	}
}

func (s *Session) onTerminated(body dap.TerminatedEventBody) {
	s.setState(StateTerminated)

	s.handlersMu.RLock()
	handler := s.handlers.OnTerminated
	s.handlersMu.RUnlock()

	if handler != nil {
		handler()
	}
}

func (s *Session) onExited(body dap.ExitedEventBody) {
	s.log.WithField("exitCode", body.ExitCode).Info("debuggee exited")

	s.handlersMu.RLock()
	handler := s.handlers.OnExited
	s.handlersMu.RUnlock()

	if handler != nil {
		handler(body.ExitCode)
	}
}

// onEvent forwards events without a dedicated handler to the bridge.
func (s *Session) onEvent(evt dap.Event) {
	switch evt.Event {
	case "output", "terminated", "exited", "initialized":
		return
	}

	if err := s.post(bridge.Custom(s.id, bridge.SessionType, evt.Event, []byte(evt.Body))); err != nil {
		s.log.WithError(err).WithField("event", evt.Event).Warn("could not forward event")
	}
}
