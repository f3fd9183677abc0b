package bridge

import "fmt"

// Kind identifies what an Event reports.
type Kind int

const (
	// EventLaunching records a backend started for a session that the
	// host has not reported yet.
	EventLaunching Kind = iota + 1
	// EventSessionStarted reports a session the host has started.
	EventSessionStarted
	// EventSessionTerminated reports a session the host has ended.
	EventSessionTerminated
	// EventCustom carries a custom event sent by a session.
	EventCustom
)

// String returns a short kind name.
func (k Kind) String() string {
	switch k {
	case EventLaunching:
		return "launching"
	case EventSessionStarted:
		return "session-started"
	case EventSessionTerminated:
		return "session-terminated"
	case EventCustom:
		return "custom"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// SessionInfo identifies a host debug session.
type SessionInfo struct {
	// ID is the host's unique session identifier.
	ID string

	// Name is the session name given at launch.
	Name string

	// Type is the debugger type; only SessionType sessions are bridged.
	Type string

	// Requester answers live content queries for the session.
	Requester ContentRequester
}

// Event is one notification delivered to a Bridge.
type Event struct {
	Kind Kind

	// Session is the session the event is about. For EventLaunching only
	// Session.Name is used.
	Session SessionInfo

	// Adapter is the launched backend (EventLaunching).
	Adapter AdapterProcess

	// Name is the custom event name (EventCustom).
	Name string

	// Body is the custom event body as JSON (EventCustom).
	Body []byte
}

// Launching builds an EventLaunching event.
func Launching(name string, adapter AdapterProcess) Event {
	return Event{Kind: EventLaunching, Session: SessionInfo{Name: name}, Adapter: adapter}
}

// SessionStarted builds an EventSessionStarted event.
func SessionStarted(info SessionInfo) Event {
	return Event{Kind: EventSessionStarted, Session: info}
}

// SessionTerminated builds an EventSessionTerminated event.
func SessionTerminated(id, sessionType string) Event {
	return Event{Kind: EventSessionTerminated, Session: SessionInfo{ID: id, Type: sessionType}}
}

// Custom builds an EventCustom event.
func Custom(id, sessionType, name string, body []byte) Event {
	return Event{Kind: EventCustom, Session: SessionInfo{ID: id, Type: sessionType}, Name: name, Body: body}
}
