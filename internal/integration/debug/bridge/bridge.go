package bridge

import (
	"context"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/dshills/lldbhost/internal/integration/process"
)

const (
	// SessionType is the only debugger type the bridge reacts to.
	SessionType = "lldb"

	// DisplayHTMLEvent is the custom event carrying document content.
	DisplayHTMLEvent = "displayHtml"
)

// AdapterProcess is a launched backend.
// *process.Handle implements AdapterProcess.
type AdapterProcess interface {
	process.Killable
	IsAlive() bool
}

// ContentRequester queries a running session for a document.
// *dap.Client implements ContentRequester.
type ContentRequester interface {
	ProvideContent(ctx context.Context, uri string) (string, error)
}

// Document is an instruction to show or refresh a session document.
type Document struct {
	URI string

	// Position is the payload's position value as raw JSON, empty when
	// absent.
	Position string

	Title string
}

// Host renders session documents.
type Host interface {
	// ContentChanged reports that the content of uri has changed.
	ContentChanged(uri string)

	// ShowDocument displays or refreshes doc.
	ShowDocument(ctx context.Context, doc Document) error
}

type pendingLaunch struct {
	name    string
	adapter AdapterProcess
}

type activeSession struct {
	info    SessionInfo
	adapter AdapterProcess
	content map[string]string
}

// Bridge associates backends with host sessions and caches the content
// sessions push.
type Bridge struct {
	host    Host
	grace   time.Duration
	log     log.FieldLogger
	pending []pendingLaunch
	active  map[string]*activeSession
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithGrace sets how long a terminated session's backend may keep running
// before it is killed.
func WithGrace(d time.Duration) Option {
	return func(b *Bridge) {
		b.grace = d
	}
}

// WithLogger sets the bridge's logger.
func WithLogger(l log.FieldLogger) Option {
	return func(b *Bridge) {
		b.log = l
	}
}

// New creates a Bridge reporting to host.
func New(host Host, opts ...Option) *Bridge {
	b := &Bridge{
		host:   host,
		grace:  process.DefaultTerminateGrace,
		active: make(map[string]*activeSession),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = log.WithField("component", "bridge")
	}
	return b
}

// Dispatch applies ev.
func (b *Bridge) Dispatch(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventLaunching:
		b.RegisterLaunching(ev.Session.Name, ev.Adapter)
	case EventSessionStarted:
		b.SessionStarted(ev.Session)
	case EventSessionTerminated:
		b.SessionTerminated(ev.Session)
	case EventCustom:
		return b.CustomEvent(ctx, ev.Session, ev.Name, ev.Body)
	default:
		return fmt.Errorf("unknown event kind %v", ev.Kind)
	}
	return nil
}

// RegisterLaunching records adapter as launched for the session called
// name.
func (b *Bridge) RegisterLaunching(name string, adapter AdapterProcess) {
	b.pending = append(b.pending, pendingLaunch{name: name, adapter: adapter})
	b.log.WithFields(log.Fields{"session": name, "pending": b.Pending()}).Debug("backend launching")
}

// SessionStarted matches info to the first pending launch with the same
// name and reports whether one was found. Pending launches whose backend
// has exited are dropped while scanning.
func (b *Bridge) SessionStarted(info SessionInfo) bool {
	if info.Type != SessionType {
		return false
	}

	for i := 0; i < len(b.pending); i++ {
		p := b.pending[i]
		if p.name == info.Name {
			b.active[info.ID] = &activeSession{
				info:    info,
				adapter: p.adapter,
				content: make(map[string]string),
			}
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			b.log.WithFields(log.Fields{"session": info.Name, "id": info.ID}).Info("session started")
			return true
		}
		if !p.adapter.IsAlive() {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			i--
			b.log.WithField("session", p.name).Debug("dropped stale launch")
		}
	}

	b.log.WithFields(log.Fields{"session": info.Name, "id": info.ID, "pending": b.Pending()}).Warn("no launching backend for session")
	return false
}

// SessionTerminated forgets the session and schedules its backend to be
// killed after the grace period. It returns nil when the session is
// unknown.
func (b *Bridge) SessionTerminated(info SessionInfo) *process.ScheduledTermination {
	if info.Type != SessionType {
		return nil
	}

	adapter, ok := b.Adapter(info.ID)
	if !ok {
		return nil
	}
	delete(b.active, info.ID)

	b.log.WithFields(log.Fields{"id": info.ID, "grace": b.grace, "active": b.Active()}).Info("session terminated")
	if adapter == nil {
		return nil
	}
	return process.ScheduleTermination(adapter, b.grace)
}

// CustomEvent handles a custom event sent by a session. Only displayHtml
// is bridged.
func (b *Bridge) CustomEvent(ctx context.Context, info SessionInfo, name string, body []byte) error {
	if info.Type != SessionType {
		return nil
	}
	if name != DisplayHTMLEvent {
		b.log.WithField("event", name).Debug("ignored custom event")
		return nil
	}
	return b.DisplayHTML(ctx, info.ID, body)
}

// DisplayHTML applies a displayHtml body to the session's cache, reports
// every changed document with the main document last, and asks the host to
// show the main document.
func (b *Bridge) DisplayHTML(ctx context.Context, sessionID string, body []byte) error {
	s, ok := b.active[sessionID]
	if !ok {
		b.log.WithField("id", sessionID).Warn("displayHtml for unknown session")
		return nil
	}

	if !gjson.ValidBytes(body) {
		return fmt.Errorf("%w: malformed JSON", ErrInvalidPayload)
	}
	payload := gjson.ParseBytes(body)
	uri := payload.Get("uri")
	if !payload.IsObject() || uri.Type != gjson.String {
		return fmt.Errorf("%w: missing uri", ErrInvalidPayload)
	}

	docURI, err := NormalizeURI(uri.String(), sessionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	payload.Get("content").ForEach(func(key, value gjson.Result) bool {
		contentURI, err := NormalizeURI(key.String(), sessionID)
		if err != nil {
			b.log.WithError(err).Warn("skipped content entry")
			return true
		}
		if value.Type == gjson.Null {
			delete(s.content, contentURI)
		} else {
			s.content[contentURI] = value.String()
		}
		if contentURI != docURI {
			b.host.ContentChanged(contentURI)
		}
		return true
	})
	b.host.ContentChanged(docURI)

	return b.host.ShowDocument(ctx, Document{
		URI:      docURI,
		Position: payload.Get("position").Raw,
		Title:    payload.Get("title").String(),
	})
}

// contentLookup is the outcome of resolving a content query against the
// cache.
type contentLookup struct {
	key       string
	content   string
	cached    bool
	requester ContentRequester
}

// lookup resolves uri to its session. It reports false when uri is not a
// session document or its session is gone.
func (b *Bridge) lookup(uri string) (contentLookup, bool) {
	sessionID, key, err := ownerOf(uri)
	if err != nil {
		b.log.WithError(err).Debug("content query rejected")
		return contentLookup{}, false
	}

	s, ok := b.active[sessionID]
	if !ok {
		b.log.WithField("uri", uri).Error("did not find an active debug session")
		return contentLookup{}, false
	}

	if content, ok := b.Cached(sessionID, key); ok {
		return contentLookup{key: key, content: content, cached: true}, true
	}
	if s.info.Requester == nil {
		return contentLookup{}, false
	}
	return contentLookup{key: key, requester: s.info.Requester}, true
}

// query asks the session for content that was not pushed.
func (b *Bridge) query(ctx context.Context, l contentLookup) (string, bool) {
	if l.cached {
		return l.content, true
	}
	content, err := l.requester.ProvideContent(ctx, l.key)
	if err != nil {
		b.log.WithError(err).WithField("uri", l.key).Warn("content query failed")
		return "", false
	}
	return content, true
}

// ProvideContent returns the content of a session document, from the cache
// or from the session itself. It reports false when the content is
// unavailable.
func (b *Bridge) ProvideContent(ctx context.Context, uri string) (string, bool) {
	l, ok := b.lookup(uri)
	if !ok {
		return "", false
	}
	return b.query(ctx, l)
}

// Pending returns the names of launches not yet matched to a session.
func (b *Bridge) Pending() []string {
	names := make([]string, len(b.pending))
	for i, p := range b.pending {
		names[i] = p.name
	}
	return names
}

// Active returns the IDs of active sessions, sorted.
func (b *Bridge) Active() []string {
	ids := make([]string, 0, len(b.active))
	for id := range b.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Adapter returns the backend owned by an active session.
func (b *Bridge) Adapter(sessionID string) (AdapterProcess, bool) {
	s, ok := b.active[sessionID]
	if !ok {
		return nil, false
	}
	return s.adapter, true
}

// Cached returns the cached content of uri in sessionID, without querying
// the session.
func (b *Bridge) Cached(sessionID, uri string) (string, bool) {
	s, ok := b.active[sessionID]
	if !ok {
		return "", false
	}
	content, ok := s.content[uri]
	return content, ok
}
