package dap

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"
)

// Client is a DAP client that communicates with a debug adapter.
type Client struct {
	transport Transport
	seq       int64
	pending   map[int]*pendingRequest
	pendingMu sync.RWMutex
	handlers  eventHandlers
	handlerMu sync.RWMutex
	done      chan struct{}
	ended     chan struct{}
	closeOnce sync.Once
	err       error
	errMu     sync.RWMutex
}

// pendingRequest tracks a pending request awaiting response.
type pendingRequest struct {
	done      chan struct{}
	closeOnce sync.Once
	response  *Response
	err       error
}

// close safely closes the done channel.
func (p *pendingRequest) close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}

// eventHandlers stores event handler functions.
type eventHandlers struct {
	onExited     func(ExitedEventBody)
	onTerminated func(TerminatedEventBody)
	onOutput     func(OutputEventBody)
	onAny        func(Event)
}

// ResponseError is returned when the adapter answers a request with
// success=false.
type ResponseError struct {
	Command string
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Command, e.Message)
}

// NewClient creates a new DAP client with the given transport.
func NewClient(transport Transport) *Client {
	c := &Client{
		transport: transport,
		pending:   make(map[int]*pendingRequest),
		done:      make(chan struct{}),
		ended:     make(chan struct{}),
	}
	go c.receiveLoop()
	return c
}

// Close closes the client and underlying transport.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return c.transport.Close()
}

// Error returns any error that occurred during receive.
func (c *Client) Error() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()
	return c.err
}

// Ended is closed when the client stops receiving, either because it was
// closed or because the connection failed.
func (c *Client) Ended() <-chan struct{} {
	return c.ended
}

// receiveLoop continuously receives messages from the transport.
func (c *Client) receiveLoop() {
	defer close(c.ended)

	for {
		body, err := c.transport.Receive()
		if err != nil {
			// Check if we're shutting down
			select {
			case <-c.done:
				err = fmt.Errorf("client closed: %w", err)
			default:
			}

			c.errMu.Lock()
			c.err = err
			c.errMu.Unlock()

			// Cancel all pending requests
			c.pendingMu.Lock()
			for _, req := range c.pending {
				req.err = err
				req.close()
			}
			c.pending = make(map[int]*pendingRequest)
			c.pendingMu.Unlock()
			return
		}

		c.handleMessage(body)
	}
}

// handleMessage dispatches a received message.
func (c *Client) handleMessage(content []byte) {
	var base ProtocolMessage
	if err := json.Unmarshal(content, &base); err != nil {
		return
	}

	switch base.Type {
	case "response":
		c.handleResponse(content)
	case "event":
		c.handleEvent(content)
	}
}

// handleResponse processes a response message.
func (c *Client) handleResponse(content []byte) {
	var resp Response
	if err := json.Unmarshal(content, &resp); err != nil {
		return
	}

	c.pendingMu.Lock()
	req, ok := c.pending[resp.RequestSeq]
	if ok {
		delete(c.pending, resp.RequestSeq)
	}
	c.pendingMu.Unlock()

	if ok {
		req.response = &resp
		req.close()
	}
}

// handleEvent processes an event message.
func (c *Client) handleEvent(content []byte) {
	var evt Event
	if err := json.Unmarshal(content, &evt); err != nil {
		return
	}

	c.handlerMu.RLock()
	handlers := c.handlers
	c.handlerMu.RUnlock()

	switch evt.Event {
	case "exited":
		if handlers.onExited != nil {
			var body ExitedEventBody
			if err := json.Unmarshal(evt.Body, &body); err == nil {
				handlers.onExited(body)
			}
		}
	case "terminated":
		if handlers.onTerminated != nil {
			var body TerminatedEventBody
			if len(evt.Body) > 0 {
				_ = json.Unmarshal(evt.Body, &body)
			}
			handlers.onTerminated(body)
		}
	case "output":
		if handlers.onOutput != nil {
			var body OutputEventBody
			if err := json.Unmarshal(evt.Body, &body); err == nil {
				handlers.onOutput(body)
			}
		}
	}

	// Always call onAny if set
	if handlers.onAny != nil {
		handlers.onAny(evt)
	}
}

// sendRequest sends a request and waits for the response.
func (c *Client) sendRequest(ctx context.Context, command string, args any) (*Response, error) {
	seq := int(atomic.AddInt64(&c.seq, 1))

	var argsJSON json.RawMessage
	if args != nil {
		var err error
		argsJSON, err = json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("marshal arguments: %w", err)
		}
	}

	req := Request{
		ProtocolMessage: ProtocolMessage{
			Seq:  seq,
			Type: "request",
		},
		Command:   command,
		Arguments: argsJSON,
	}

	content, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	pending := &pendingRequest{
		done: make(chan struct{}),
	}

	c.pendingMu.Lock()
	c.pending[seq] = pending
	c.pendingMu.Unlock()

	if err := c.transport.Send(content); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, seq)
		c.pendingMu.Unlock()
		return nil, fmt.Errorf("send request: %w", err)
	}

	select {
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, seq)
		c.pendingMu.Unlock()
		return nil, ctx.Err()
	case <-pending.done:
		if pending.err != nil {
			return nil, pending.err
		}
		return pending.response, nil
	}
}

// Event handler setters

// OnExited sets the handler for the exited event.
func (c *Client) OnExited(handler func(ExitedEventBody)) {
	c.handlerMu.Lock()
	c.handlers.onExited = handler
	c.handlerMu.Unlock()
}

// OnTerminated sets the handler for the terminated event.
func (c *Client) OnTerminated(handler func(TerminatedEventBody)) {
	c.handlerMu.Lock()
	c.handlers.onTerminated = handler
	c.handlerMu.Unlock()
}

// OnOutput sets the handler for the output event.
func (c *Client) OnOutput(handler func(OutputEventBody)) {
	c.handlerMu.Lock()
	c.handlers.onOutput = handler
	c.handlerMu.Unlock()
}

// OnAnyEvent sets a handler called for every event, after any
// event-specific handler. Custom events only reach this handler.
func (c *Client) OnAnyEvent(handler func(Event)) {
	c.handlerMu.Lock()
	c.handlers.onAny = handler
	c.handlerMu.Unlock()
}

// DAP Request Methods

// Initialize sends the initialize request.
func (c *Client) Initialize(ctx context.Context, args InitializeRequestArguments) (*Capabilities, error) {
	var caps Capabilities
	if err := c.CustomRequest(ctx, "initialize", args, &caps); err != nil {
		return nil, err
	}
	return &caps, nil
}

// Disconnect sends the disconnect request.
func (c *Client) Disconnect(ctx context.Context, args DisconnectArguments) error {
	return c.CustomRequest(ctx, "disconnect", args, nil)
}

// ProvideContent asks the adapter for the content of a session-scoped
// document.
func (c *Client) ProvideContent(ctx context.Context, uri string) (string, error) {
	var body ProvideContentResponseBody
	if err := c.CustomRequest(ctx, "provideContent", ProvideContentArguments{URI: uri}, &body); err != nil {
		return "", err
	}
	return body.Content, nil
}

// CustomRequest sends any request and decodes the response body into
// result (skipped when result is nil or the body is empty).
func (c *Client) CustomRequest(ctx context.Context, command string, args any, result any) error {
	resp, err := c.sendRequest(ctx, command, args)
	if err != nil {
		return err
	}

	if !resp.Success {
		return &ResponseError{Command: command, Message: failureMessage(resp)}
	}

	if result == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, result); err != nil {
		return fmt.Errorf("unmarshal %s response: %w", command, err)
	}
	return nil
}

// failureMessage prefers the structured error format over the short
// message when the adapter supplies one.
func failureMessage(resp *Response) string {
	if len(resp.Body) > 0 {
		var body ErrorResponseBody
		if err := json.Unmarshal(resp.Body, &body); err == nil && body.Error != nil && body.Error.Format != "" {
			return body.Error.Format
		}
	}
	return resp.Message
}
