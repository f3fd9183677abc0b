package bridge

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// DefaultQueueSize is the number of operations a Queue buffers.
const DefaultQueueSize = 64

type operation func(ctx context.Context)

// Queue serializes access to a Bridge: every event and content lookup runs
// on the goroutine that calls Run, in posting order. Live content queries
// run on the caller's goroutine so a slow session does not hold up other
// events.
type Queue struct {
	bridge   *Bridge
	ops      chan operation
	stopped  chan struct{}
	stopOnce sync.Once
	log      log.FieldLogger
}

// NewQueue creates a Queue for b. size <= 0 uses DefaultQueueSize.
func NewQueue(b *Bridge, size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		bridge:  b,
		ops:     make(chan operation, size),
		stopped: make(chan struct{}),
		log:     b.log,
	}
}

// Run processes operations until ctx is cancelled. Operations posted after
// Run returns fail with ErrQueueStopped.
func (q *Queue) Run(ctx context.Context) error {
	defer q.stopOnce.Do(func() { close(q.stopped) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case op := <-q.ops:
			q.run(ctx, op)
		}
	}
}

func (q *Queue) run(ctx context.Context, op operation) {
	defer func() {
		if r := recover(); r != nil {
			q.log.WithField("panic", r).Error("bridge operation panicked")
		}
	}()
	op(ctx)
}

// Stopped is closed when Run has returned.
func (q *Queue) Stopped() <-chan struct{} {
	return q.stopped
}

func (q *Queue) enqueue(op operation) error {
	select {
	case <-q.stopped:
		return ErrQueueStopped
	default:
	}

	select {
	case q.ops <- op:
		return nil
	case <-q.stopped:
		return ErrQueueStopped
	}
}

// Post enqueues ev without waiting for it to be applied. Dispatch errors
// are logged.
func (q *Queue) Post(ev Event) error {
	return q.enqueue(func(ctx context.Context) {
		if err := q.bridge.Dispatch(ctx, ev); err != nil {
			q.log.WithError(err).WithField("kind", ev.Kind).Warn("bridge event failed")
		}
	})
}

// call runs fn on the queue and waits for it to finish.
func (q *Queue) call(ctx context.Context, fn func(ctx context.Context)) error {
	done := make(chan struct{})
	err := q.enqueue(func(ctx context.Context) {
		defer close(done)
		fn(ctx)
	})
	if err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.stopped:
		// The operation may have completed just before the stop.
		select {
		case <-done:
			return nil
		default:
			return ErrQueueStopped
		}
	}
}

// Send applies ev and returns the dispatch error.
func (q *Queue) Send(ctx context.Context, ev Event) error {
	var dispatchErr error
	if err := q.call(ctx, func(ctx context.Context) {
		dispatchErr = q.bridge.Dispatch(ctx, ev)
	}); err != nil {
		return fmt.Errorf("send %v: %w", ev.Kind, err)
	}
	return dispatchErr
}

// ProvideContent resolves uri on the queue and, for content that was not
// pushed, queries the session from the caller's goroutine.
func (q *Queue) ProvideContent(ctx context.Context, uri string) (string, bool) {
	var (
		l  contentLookup
		ok bool
	)
	if err := q.call(ctx, func(context.Context) {
		l, ok = q.bridge.lookup(uri)
	}); err != nil {
		q.log.WithError(err).Debug("content lookup abandoned")
		return "", false
	}
	if !ok {
		return "", false
	}
	return q.bridge.query(ctx, l)
}
