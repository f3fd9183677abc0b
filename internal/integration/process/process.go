package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// State represents the state of a process.
type State int

const (
	// StateCreated indicates the process has been created but not started.
	StateCreated State = iota
	// StateRunning indicates the process is currently running.
	StateRunning
	// StateExited indicates the process has exited normally or with an error.
	StateExited
	// StateKilled indicates the process was killed by a signal.
	StateKilled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Handle is one spawned backend process.
//
// The owner of a Handle is whoever launched it until it is handed to a
// session; the Handle itself only tracks liveness, the handshake port and
// the exit status.
type Handle struct {
	// ID is the unique identifier for this process.
	ID string

	// Executable is the path or name the process was started from.
	Executable string

	// Cmd is the underlying exec.Cmd.
	Cmd *exec.Cmd

	// Started is the time the process was started.
	Started time.Time

	stdout  *io.PipeReader
	stderr  *io.PipeReader
	stdoutW *io.PipeWriter
	stderrW *io.PipeWriter

	done chan struct{}

	state    atomic.Int32
	exitCode atomic.Int32
	port     atomic.Int32

	mu         sync.RWMutex
	exitErr    error
	exitSignal string

	waitOnce sync.Once
}

// newHandle creates a Handle wrapping cmd. Both output streams are routed
// through in-process pipes that are closed only after the child has been
// reaped, so no output is lost when a process writes and exits at once.
func newHandle(id string, cmd *exec.Cmd) *Handle {
	h := &Handle{
		ID:         id,
		Executable: cmd.Path,
		Cmd:        cmd,
		done:       make(chan struct{}),
	}
	h.stdout, h.stdoutW = io.Pipe()
	h.stderr, h.stderrW = io.Pipe()
	cmd.Stdout = h.stdoutW
	cmd.Stderr = h.stderrW

	h.state.Store(int32(StateCreated))
	h.exitCode.Store(-1)
	return h
}

// State returns the current process state.
func (h *Handle) State() State {
	return State(h.state.Load())
}

// IsAlive reports whether the process is running. It turns false exactly
// once, when the process exits.
func (h *Handle) IsAlive() bool {
	return h.State() == StateRunning
}

// Port returns the control-channel port reported by the handshake, or 0.
func (h *Handle) Port() int {
	return int(h.port.Load())
}

// setPort records the handshake port. Only the first call has an effect.
func (h *Handle) setPort(port int) {
	h.port.CompareAndSwap(0, int32(port))
}

// ExitCode returns the process exit code.
// Returns -1 if the process has not exited or was killed by a signal.
func (h *Handle) ExitCode() int {
	return int(h.exitCode.Load())
}

// ExitSignal returns the name of the signal that terminated the process, if any.
func (h *Handle) ExitSignal() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.exitSignal
}

// ExitError returns any error from waiting on the process.
func (h *Handle) ExitError() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.exitErr
}

// Done returns a channel that is closed when the process exits.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Stdout returns the process's standard output stream.
func (h *Handle) Stdout() io.Reader {
	return h.stdout
}

// Stderr returns the process's standard error stream.
func (h *Handle) Stderr() io.Reader {
	return h.stderr
}

// PID returns the process ID, or -1 if not started.
func (h *Handle) PID() int {
	if h.Cmd.Process == nil {
		return -1
	}
	return h.Cmd.Process.Pid
}

// Terminate asks the process to exit. It is a no-op when the process is no
// longer alive, so calling it repeatedly is safe.
func (h *Handle) Terminate() error {
	if runtime.GOOS == "windows" {
		return h.Kill()
	}
	return h.quietSignal(syscall.SIGTERM)
}

// Kill forcibly stops the process. Like Terminate, it is a no-op once the
// process has exited.
func (h *Handle) Kill() error {
	return h.quietSignal(os.Kill)
}

func (h *Handle) quietSignal(sig os.Signal) error {
	if !h.IsAlive() {
		return nil
	}
	err := h.Cmd.Process.Signal(sig)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// start starts the process and begins tracking it.
// This is called by the Supervisor.
func (h *Handle) start(onExit func(*Handle)) error {
	if h.State() != StateCreated {
		return ErrProcessAlreadyStarted
	}

	if err := h.Cmd.Start(); err != nil {
		h.stdoutW.Close()
		h.stderrW.Close()
		return err
	}

	h.Started = time.Now()
	h.state.Store(int32(StateRunning))

	go h.waitLoop(onExit)

	return nil
}

// waitLoop waits for the process to exit and updates state.
func (h *Handle) waitLoop(onExit func(*Handle)) {
	h.waitOnce.Do(func() {
		err := h.Cmd.Wait()
		if errors.Is(err, exec.ErrWaitDelay) {
			// Exited cleanly; a descendant still held the output pipes.
			err = nil
		}

		// Wait returns after the copy goroutines drain the child's pipes,
		// so readers see every byte before EOF.
		h.stdoutW.Close()
		h.stderrW.Close()

		exitCode := 0
		state := StateExited
		signal := ""

		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				exitCode = exitErr.ExitCode()
				if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
					state = StateKilled
					signal = status.Signal().String()
				}
			} else {
				exitCode = -1
			}
		}

		h.mu.Lock()
		h.exitErr = err
		h.exitSignal = signal
		h.mu.Unlock()

		h.exitCode.Store(int32(exitCode))
		h.state.Store(int32(state))
		close(h.done)

		if onExit != nil {
			onExit(h)
		}
	})
}

// Runtime returns the duration the process has been running.
func (h *Handle) Runtime() time.Duration {
	if h.Started.IsZero() {
		return 0
	}
	return time.Since(h.Started)
}
