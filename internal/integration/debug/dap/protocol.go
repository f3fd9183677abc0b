package dap

import (
	"github.com/goccy/go-json"
)

// ProtocolMessage is the base for all DAP messages.
type ProtocolMessage struct {
	Seq  int    `json:"seq"`
	Type string `json:"type"` // "request", "response", "event"
}

// Request represents a DAP request.
type Request struct {
	ProtocolMessage
	Command   string          `json:"command"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Response represents a DAP response.
type Response struct {
	ProtocolMessage
	RequestSeq int             `json:"request_seq"`
	Success    bool            `json:"success"`
	Command    string          `json:"command"`
	Message    string          `json:"message,omitempty"`
	Body       json.RawMessage `json:"body,omitempty"`
}

// Event represents a DAP event.
type Event struct {
	ProtocolMessage
	Event string          `json:"event"`
	Body  json.RawMessage `json:"body,omitempty"`
}

// ErrorMessage contains error details of a failed response.
type ErrorMessage struct {
	ID        int               `json:"id"`
	Format    string            `json:"format"`
	Variables map[string]string `json:"variables,omitempty"`
}

// ErrorResponseBody is the body of a failed response.
type ErrorResponseBody struct {
	Error *ErrorMessage `json:"error,omitempty"`
}

// Capabilities describes the adapter features the host cares about.
type Capabilities struct {
	SupportsConfigurationDoneRequest bool `json:"supportsConfigurationDoneRequest,omitempty"`
	SupportTerminateDebuggee         bool `json:"supportTerminateDebuggee,omitempty"`
	SupportsTerminateRequest         bool `json:"supportsTerminateRequest,omitempty"`
	SupportsLoadedSourcesRequest     bool `json:"supportsLoadedSourcesRequest,omitempty"`
}

// InitializeRequestArguments are the arguments for the initialize request.
type InitializeRequestArguments struct {
	ClientID        string `json:"clientID,omitempty"`
	ClientName      string `json:"clientName,omitempty"`
	AdapterID       string `json:"adapterID"`
	Locale          string `json:"locale,omitempty"`
	LinesStartAt1   bool   `json:"linesStartAt1,omitempty"`
	ColumnsStartAt1 bool   `json:"columnsStartAt1,omitempty"`
	PathFormat      string `json:"pathFormat,omitempty"`
}

// DisconnectArguments are the arguments for disconnect.
type DisconnectArguments struct {
	Restart           bool `json:"restart,omitempty"`
	TerminateDebuggee bool `json:"terminateDebuggee,omitempty"`
	SuspendDebuggee   bool `json:"suspendDebuggee,omitempty"`
}

// ProvideContentArguments are the arguments for the provideContent custom
// request, which asks the adapter for a session-scoped document.
type ProvideContentArguments struct {
	URI string `json:"uri"`
}

// ProvideContentResponseBody is the body of a provideContent response.
type ProvideContentResponseBody struct {
	Content string `json:"content"`
}

// ExitedEventBody is the body of the exited event.
type ExitedEventBody struct {
	ExitCode int `json:"exitCode"`
}

// TerminatedEventBody is the body of the terminated event.
type TerminatedEventBody struct {
	Restart any `json:"restart,omitempty"`
}

// OutputEventBody is the body of the output event.
type OutputEventBody struct {
	Category string `json:"category,omitempty"` // "console", "important", "stdout", "stderr", "telemetry"
	Output   string `json:"output"`
}
