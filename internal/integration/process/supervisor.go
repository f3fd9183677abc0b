package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	// outputWaitDelay is how long the output pipes stay open after the
	// process exits. A descendant that inherited them cannot keep the
	// process looking alive past this.
	outputWaitDelay = 500 * time.Millisecond

	maxPort = 65535
)

// Command describes a backend to spawn.
type Command struct {
	// Executable is a path or a name looked up on PATH.
	Executable string

	// Args are the command-line arguments.
	Args []string

	// Env overrides entries of the current environment. Values may
	// reference ${env:NAME}; any other reference kind fails the spawn.
	Env map[string]string

	// Dir is the working directory. Empty means the current directory.
	Dir string
}

// Supervisor spawns backends and tracks the ones still running.
//
// Supervisor is safe for concurrent use.
type Supervisor struct {
	mu        sync.RWMutex
	processes map[string]*Handle

	// closed indicates the supervisor has been shut down
	closed atomic.Bool

	// onProcessExit is called when a process exits
	onProcessExit func(h *Handle)

	sink    io.Writer
	log     log.FieldLogger
	goos    string
	environ func() []string
}

// SupervisorOption configures a Supervisor instance.
type SupervisorOption func(*Supervisor)

// WithProcessExitCallback sets a callback for when processes exit.
func WithProcessExitCallback(fn func(h *Handle)) SupervisorOption {
	return func(s *Supervisor) {
		s.onProcessExit = fn
	}
}

// WithSink sets where backend output and exit notices are written.
func WithSink(w io.Writer) SupervisorOption {
	return func(s *Supervisor) {
		s.sink = w
	}
}

// WithLogger sets the supervisor's logger.
func WithLogger(l log.FieldLogger) SupervisorOption {
	return func(s *Supervisor) {
		s.log = l
	}
}

// WithPlatform overrides runtime.GOOS for environment correction.
func WithPlatform(goos string) SupervisorOption {
	return func(s *Supervisor) {
		s.goos = goos
	}
}

// WithEnviron overrides os.Environ as the base environment.
func WithEnviron(fn func() []string) SupervisorOption {
	return func(s *Supervisor) {
		s.environ = fn
	}
}

// NewSupervisor creates a new process supervisor.
func NewSupervisor(opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		processes: make(map[string]*Handle),
		sink:      io.Discard,
		goos:      runtime.GOOS,
		environ:   os.Environ,
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.sink == nil {
		s.sink = io.Discard
	}
	if s.log == nil {
		s.log = log.WithField("component", "process")
	}

	return s
}

// Spawn starts cmd without waiting for any output.
//
// Stderr is forwarded to the sink in the background. Stdout is left to the
// caller, who must consume Handle.Stdout (WaitPattern does, and keeps
// forwarding to the sink after it returns); an unread stdout eventually
// blocks the child.
func (s *Supervisor) Spawn(cmd Command) (*Handle, error) {
	env, err := BuildEnvironment(s.environ(), cmd.Env, s.goos)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return nil, ErrSupervisorShutdown
	}

	c := exec.Command(cmd.Executable, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = env
	c.WaitDelay = outputWaitDelay

	h := newHandle(uuid.New().String(), c)
	h.Executable = cmd.Executable

	if err := h.start(s.processExited); err != nil {
		if isNotFound(err) {
			return nil, &ExecutableNotFoundError{Path: cmd.Executable, Err: err}
		}
		return nil, fmt.Errorf("start %s: %w", cmd.Executable, err)
	}

	s.processes[h.ID] = h
	go drain(h.Stderr(), s.sink)

	s.log.WithFields(log.Fields{"pid": h.PID(), "executable": cmd.Executable}).Debug("backend spawned")
	return h, nil
}

// Launch spawns cmd and waits up to timeout for the handshake line. On
// success the returned Handle carries the reported port. On failure the
// process is terminated and the error keeps its kind (see KindOf).
func (s *Supervisor) Launch(ctx context.Context, cmd Command, timeout time.Duration) (*Handle, error) {
	h, err := s.Spawn(cmd)
	if err != nil {
		return nil, err
	}

	m, err := WaitPattern(ctx, h.Stdout(), HandshakePattern, timeout, s.sink)
	if err != nil {
		_ = h.Terminate()
		return nil, err
	}

	port, err := strconv.Atoi(m[1])
	if err != nil || port < 1 || port > maxPort {
		_ = h.Terminate()
		return nil, &HandshakeError{
			Pattern: HandshakePattern.String(),
			Err:     fmt.Errorf("%w: %s", ErrHandshakeInvalidPort, m[1]),
		}
	}
	h.setPort(port)

	s.log.WithFields(log.Fields{"pid": h.PID(), "port": port}).Info("backend listening")
	return h, nil
}

// Probe spawns cmd, waits for pattern on its stdout and returns the
// submatches. The process is terminated before Probe returns.
func (s *Supervisor) Probe(ctx context.Context, cmd Command, pattern *regexp.Regexp, timeout time.Duration) ([]string, error) {
	h, err := s.Spawn(cmd)
	if err != nil {
		return nil, err
	}
	defer h.Terminate()

	return WaitPattern(ctx, h.Stdout(), pattern, timeout, s.sink)
}

// processExited reports the exit and removes h from tracking.
func (s *Supervisor) processExited(h *Handle) {
	if sig := h.ExitSignal(); sig != "" {
		fmt.Fprintf(s.sink, "Adapter terminated by %s signal.\n", sig)
	}
	if code := h.ExitCode(); code > 0 {
		fmt.Fprintf(s.sink, "Adapter exit code: %d.\n", code)
	}

	if s.onProcessExit != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.WithField("panic", r).Error("process exit callback panicked")
				}
			}()
			s.onProcessExit(h)
		}()
	}

	s.mu.Lock()
	delete(s.processes, h.ID)
	s.mu.Unlock()
}

func isNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

// List returns all running processes.
func (s *Supervisor) List() []*Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Handle, 0, len(s.processes))
	for _, h := range s.processes {
		result = append(result, h)
	}
	return result
}

// Count returns the number of running processes.
func (s *Supervisor) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.processes)
}

// Shutdown terminates all processes.
//
// It first asks every process to exit and waits up to timeout for them to
// do so. Any processes still running after the timeout are killed.
//
// Shutdown blocks until all processes have exited and been removed.
func (s *Supervisor) Shutdown(timeout time.Duration) {
	if s.closed.Swap(true) {
		return // Already shutting down
	}

	procs := s.List()
	if len(procs) == 0 {
		return
	}

	for _, h := range procs {
		_ = h.Terminate()
	}

	done := make(chan struct{})
	go func() {
		for _, h := range procs {
			<-h.Done()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		for _, h := range procs {
			_ = h.Kill()
		}
		<-done
	}

	// Wait for exit callbacks to finish cleanup (remove from map)
	s.waitForCleanup()
}

// waitForCleanup waits for all processes to be removed from the map.
func (s *Supervisor) waitForCleanup() {
	for {
		if s.Count() == 0 {
			return
		}
		time.Sleep(1 * time.Millisecond)
	}
}
