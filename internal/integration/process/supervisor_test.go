package process

import (
	"context"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dshills/lldbhost/internal/logging"
	"github.com/dshills/lldbhost/internal/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSupervisor(t *testing.T, opts ...SupervisorOption) (*Supervisor, *output.Channel) {
	t.Helper()
	sink := output.NewChannel(nil)
	opts = append([]SupervisorOption{WithSink(sink), WithLogger(logging.Discard())}, opts...)
	s := NewSupervisor(opts...)
	t.Cleanup(func() { s.Shutdown(time.Second) })
	return s, sink
}

func shell(script string) Command {
	return Command{Executable: "sh", Args: []string{"-c", script}}
}

func TestSupervisor_LaunchHandshake(t *testing.T) {
	s, _ := newTestSupervisor(t)

	h, err := s.Launch(context.Background(), shell(`echo "Listening on port 4444"; exec sleep 10`), 5*time.Second)
	require.NoError(t, err)

	assert.Equal(t, 4444, h.Port())
	assert.True(t, h.IsAlive())
	assert.NotEmpty(t, h.ID)
	assert.Equal(t, "sh", h.Executable)
	assert.Equal(t, 1, s.Count())
	assert.Contains(t, s.List(), h)

	require.NoError(t, h.Terminate())
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after Terminate")
	}
	assert.False(t, h.IsAlive())
	assert.Eventually(t, func() bool { return s.Count() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSupervisor_TerminateTwice(t *testing.T) {
	s, _ := newTestSupervisor(t)

	h, err := s.Launch(context.Background(), shell(`echo "Listening on port 1"; exec sleep 10`), 5*time.Second)
	require.NoError(t, err)

	assert.NoError(t, h.Terminate())
	assert.NoError(t, h.Terminate())
	<-h.Done()
	assert.NoError(t, h.Terminate())
	assert.Equal(t, StateKilled, h.State())
	assert.NotEmpty(t, h.ExitSignal())
}

func TestSupervisor_LaunchExecutableNotFound(t *testing.T) {
	s, _ := newTestSupervisor(t)

	for _, exe := range []string{"/nonexistent/build/lldb/bin/lldb", "lldb-does-not-exist-anywhere"} {
		_, err := s.Launch(context.Background(), Command{Executable: exe}, time.Second)
		require.Error(t, err, exe)
		assert.Equal(t, KindNotFound, KindOf(err), exe)

		path, ok := NotFoundPath(err)
		assert.True(t, ok)
		assert.Equal(t, exe, path)
	}
	assert.Equal(t, 0, s.Count())
}

func TestSupervisor_LaunchStreamClosed(t *testing.T) {
	s, sink := newTestSupervisor(t)

	_, err := s.Launch(context.Background(), shell(`echo "error: python not found"`), 5*time.Second)
	require.Error(t, err)
	assert.Equal(t, KindHandshake, KindOf(err))
	assert.Contains(t, sink.String(), "error: python not found")
}

func TestSupervisor_LaunchTimeout(t *testing.T) {
	s, _ := newTestSupervisor(t)

	_, err := s.Launch(context.Background(), shell(`exec sleep 10`), 100*time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))

	// The backend that never answered is not left running.
	assert.Eventually(t, func() bool { return s.Count() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestSupervisor_LaunchBadEnvironment(t *testing.T) {
	s, _ := newTestSupervisor(t)

	cmd := shell(`echo "Listening on port 1"`)
	cmd.Env = map[string]string{"PYTHONPATH": "${workspaceFolder:x}"}

	_, err := s.Launch(context.Background(), cmd, time.Second)
	assert.Equal(t, KindConfiguration, KindOf(err))
	assert.Equal(t, 0, s.Count())
}

func TestSupervisor_EnvironmentExpansion(t *testing.T) {
	s, sink := newTestSupervisor(t, WithEnviron(func() []string {
		return []string{"PATH=" + os.Getenv("PATH"), "BASE=value"}
	}))

	cmd := shell(`echo "FOO=$FOO"; echo "Listening on port 7"; exec sleep 10`)
	cmd.Env = map[string]string{"FOO": "${env:BASE}-x"}

	h, err := s.Launch(context.Background(), cmd, 5*time.Second)
	require.NoError(t, err)
	defer h.Terminate()

	assert.Contains(t, sink.String(), "FOO=value-x")
}

func TestSupervisor_WorkingDirectory(t *testing.T) {
	s, sink := newTestSupervisor(t)
	dir := t.TempDir()

	cmd := shell(`echo "cwd=$(pwd)"; echo "Listening on port 8"; exec sleep 10`)
	cmd.Dir = dir

	h, err := s.Launch(context.Background(), cmd, 5*time.Second)
	require.NoError(t, err)
	defer h.Terminate()

	assert.Contains(t, sink.String(), "cwd=")
	assert.Contains(t, sink.String(), strings.TrimSuffix(dir, "/"))
}

func TestSupervisor_StderrGoesToSink(t *testing.T) {
	s, sink := newTestSupervisor(t)

	h, err := s.Launch(context.Background(), shell(`echo "loading" >&2; echo "Listening on port 5"; exec sleep 10`), 5*time.Second)
	require.NoError(t, err)
	defer h.Terminate()

	assert.Eventually(t, func() bool {
		return strings.Contains(sink.String(), "loading")
	}, time.Second, 5*time.Millisecond)
}

func TestSupervisor_ExitNotice(t *testing.T) {
	var exited atomic.Pointer[Handle]
	s, sink := newTestSupervisor(t, WithProcessExitCallback(func(h *Handle) {
		exited.Store(h)
	}))

	h, err := s.Launch(context.Background(), shell(`echo "Listening on port 2"; exit 3`), 5*time.Second)
	require.NoError(t, err)

	<-h.Done()
	assert.Equal(t, 3, h.ExitCode())
	assert.Equal(t, StateExited, h.State())
	assert.Eventually(t, func() bool {
		return strings.Contains(sink.String(), "Adapter exit code: 3.") && exited.Load() == h
	}, time.Second, 5*time.Millisecond)
}

func TestSupervisor_Probe(t *testing.T) {
	s, _ := newTestSupervisor(t)

	m, err := s.Probe(context.Background(), shell(`echo "lldb version 10.0.0"`), mustVersionPattern(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0", m[1])
}

func TestSupervisor_SpawnAfterShutdown(t *testing.T) {
	s, _ := newTestSupervisor(t)
	s.Shutdown(time.Second)

	_, err := s.Spawn(shell(`true`))
	assert.ErrorIs(t, err, ErrSupervisorShutdown)
}

func TestSupervisor_ShutdownStopsBackends(t *testing.T) {
	s, _ := newTestSupervisor(t)

	var handles []*Handle
	for i := 0; i < 3; i++ {
		h, err := s.Launch(context.Background(), shell(`echo "Listening on port 3"; exec sleep 30`), 5*time.Second)
		require.NoError(t, err)
		handles = append(handles, h)
	}
	assert.Len(t, s.List(), 3)

	s.Shutdown(2 * time.Second)

	for _, h := range handles {
		assert.False(t, h.IsAlive())
	}
	assert.Equal(t, 0, s.Count())
}

func TestSupervisor_SpawnedStdoutReadable(t *testing.T) {
	s, _ := newTestSupervisor(t)

	h, err := s.Spawn(shell(`echo plain`))
	require.NoError(t, err)

	data, err := io.ReadAll(h.Stdout())
	require.NoError(t, err)
	assert.Equal(t, "plain\n", string(data))
	<-h.Done()
}

func TestSupervisor_ExitWhileDescendantHoldsOutput(t *testing.T) {
	s, _ := newTestSupervisor(t)

	h, err := s.Launch(context.Background(), shell(`sleep 20 & echo "Listening on port 7"; exit 0`), 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 7, h.Port())

	select {
	case <-h.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("backend exited but is still reported as running")
	}
	assert.False(t, h.IsAlive())
	assert.Equal(t, StateExited, h.State())
	assert.Equal(t, 0, h.ExitCode())
	assert.NoError(t, h.ExitError())
	assert.Eventually(t, func() bool { return s.Count() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSupervisor_ShutdownWithDescendantHoldingOutput(t *testing.T) {
	s, _ := newTestSupervisor(t)

	h, err := s.Launch(context.Background(), shell(`sleep 20 & echo "Listening on port 7"; exec sleep 30`), 5*time.Second)
	require.NoError(t, err)

	start := time.Now()
	s.Shutdown(2 * time.Second)

	assert.Less(t, time.Since(start), 3*time.Second)
	assert.False(t, h.IsAlive())
	assert.Equal(t, 0, s.Count())
}

func TestSupervisor_LaunchRejectsInvalidPort(t *testing.T) {
	for _, port := range []string{"0", "65536", "99999999999", "99999999999999999999"} {
		t.Run(port, func(t *testing.T) {
			s, _ := newTestSupervisor(t)

			_, err := s.Launch(context.Background(), shell(`echo "Listening on port `+port+`"; exec sleep 10`), 5*time.Second)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrHandshakeInvalidPort)
			assert.Equal(t, KindHandshake, KindOf(err))
			assert.Contains(t, err.Error(), port)
			assert.Eventually(t, func() bool { return s.Count() == 0 }, 2*time.Second, 5*time.Millisecond)
		})
	}
}
