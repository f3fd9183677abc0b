package process

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTerminateGrace is how long a session's backend is given to exit on
// its own before it is killed.
const DefaultTerminateGrace = 1500 * time.Millisecond

// Killable is a process that can be force-stopped and reports its exit.
type Killable interface {
	Done() <-chan struct{}
	Kill() error
}

// ScheduledTermination is a pending forced termination. It resolves when
// the grace period elapses (the target is killed), when the target exits on
// its own, or when it is cancelled.
type ScheduledTermination struct {
	cancel   chan struct{}
	once     sync.Once
	resolved chan struct{}
	fired    atomic.Bool
	err      error
}

// ScheduleTermination kills target after grace unless target exits first or
// the returned schedule is cancelled.
func ScheduleTermination(target Killable, grace time.Duration) *ScheduledTermination {
	st := &ScheduledTermination{
		cancel:   make(chan struct{}),
		resolved: make(chan struct{}),
	}

	go func() {
		defer close(st.resolved)

		timer := time.NewTimer(grace)
		defer timer.Stop()

		select {
		case <-timer.C:
			st.fired.Store(true)
			st.err = target.Kill()
		case <-target.Done():
		case <-st.cancel:
		}
	}()

	return st
}

// Cancel stops the schedule if it has not fired yet.
func (st *ScheduledTermination) Cancel() {
	st.once.Do(func() { close(st.cancel) })
}

// Done is closed once the schedule has resolved.
func (st *ScheduledTermination) Done() <-chan struct{} {
	return st.resolved
}

// Fired reports whether the grace period elapsed and the kill was issued.
func (st *ScheduledTermination) Fired() bool {
	return st.fired.Load()
}

// Err returns the kill error, valid after Done is closed.
func (st *ScheduledTermination) Err() error {
	<-st.resolved
	return st.err
}
