package bridge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

type fakeAdapter struct {
	alive    atomic.Bool
	done     chan struct{}
	exitOnce sync.Once
	kills    atomic.Int32
}

func newAdapter() *fakeAdapter {
	a := &fakeAdapter{done: make(chan struct{})}
	a.alive.Store(true)
	return a
}

func deadAdapter() *fakeAdapter {
	a := newAdapter()
	a.exit()
	return a
}

func (a *fakeAdapter) IsAlive() bool         { return a.alive.Load() }
func (a *fakeAdapter) Done() <-chan struct{} { return a.done }

func (a *fakeAdapter) Kill() error {
	a.kills.Add(1)
	a.exit()
	return nil
}

func (a *fakeAdapter) exit() {
	a.exitOnce.Do(func() {
		a.alive.Store(false)
		close(a.done)
	})
}

type recordingHost struct {
	mu      sync.Mutex
	changed []string
	shown   []Document
	err     error
}

func (h *recordingHost) ContentChanged(uri string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.changed = append(h.changed, uri)
}

func (h *recordingHost) ShowDocument(_ context.Context, doc Document) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shown = append(h.shown, doc)
	return h.err
}

func (h *recordingHost) changes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.changed...)
}

func (h *recordingHost) documents() []Document {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Document(nil), h.shown...)
}

// fakeRequester answers live content queries. A nil content map fails the
// test when queried.
type fakeRequester struct {
	t       *testing.T
	mu      sync.Mutex
	content map[string]string
	asked   []string
}

func (r *fakeRequester) ProvideContent(_ context.Context, uri string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asked = append(r.asked, uri)
	if r.content == nil {
		r.t.Errorf("unexpected live query for %s", uri)
		return "", errors.New("unexpected query")
	}
	c, ok := r.content[uri]
	if !ok {
		return "", errors.New("provideContent failed: no such document")
	}
	return c, nil
}

func (r *fakeRequester) queries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.asked...)
}
