package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/lldbhost/internal/config"
	"github.com/dshills/lldbhost/internal/integration/debug/bridge"
	"github.com/dshills/lldbhost/internal/logging"
)

func TestLinePrompter(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			p := &linePrompter{in: bufio.NewReader(strings.NewReader(tt.input)), out: &out}

			got, err := p.Confirm(context.Background(), "Save?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "Save? [y/N] ", out.String())
		})
	}
}

func TestLinePrompterCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &linePrompter{in: bufio.NewReader(strings.NewReader("y\n")), out: &bytes.Buffer{}}
	_, err := p.Confirm(ctx, "Save?")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseParams(t *testing.T) {
	params, err := parseParams("")
	require.NoError(t, err)
	assert.Nil(t, params)

	params, err = parseParams(`{"program":"/bin/ls","args":["-l"]}`)
	require.NoError(t, err)
	assert.Equal(t, "/bin/ls", params["program"])

	_, err = parseParams(`[1,2]`)
	assert.Error(t, err)
}

func TestFileHostPathFor(t *testing.T) {
	h := newFileHost("/out", logging.Discard())

	tests := []struct {
		uri     string
		want    string
		wantErr bool
	}{
		{uri: "debugger://s1/page.html", want: filepath.Join("/out", "s1", "page.html")},
		{uri: "debugger://s1/a/b.css", want: filepath.Join("/out", "s1", "a", "b.css")},
		{uri: "debugger://s1/../../etc/passwd", want: filepath.Join("/out", "s1", "etc", "passwd")},
		{uri: "debugger://s1", want: filepath.Join("/out", "s1", "index.html")},
		{uri: "file:///tmp/x", wantErr: true},
		{uri: "debugger:///page", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := h.pathFor(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type staticSource struct {
	mu      sync.Mutex
	content map[string]string
	asked   []string
}

func (s *staticSource) ProvideContent(_ context.Context, uri string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = append(s.asked, uri)
	c, ok := s.content[uri]
	return c, ok
}

func TestFileHostMirrorsShownDocument(t *testing.T) {
	dir := t.TempDir()
	h := newFileHost(dir, logging.Discard())
	h.source = &staticSource{content: map[string]string{"debugger://s1/page.html": "<p>hi</p>"}}

	err := h.ShowDocument(context.Background(), bridge.Document{URI: "debugger://s1/page.html", Title: "Page"})
	require.NoError(t, err)

	target := filepath.Join(dir, "s1", "page.html")
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(target)
		return err == nil && string(data) == "<p>hi</p>"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFileHostWithoutDirOnlyLogs(t *testing.T) {
	src := &staticSource{}
	h := newFileHost("", logging.Discard())
	h.source = src

	require.NoError(t, h.ShowDocument(context.Background(), bridge.Document{URI: "debugger://s1/page.html"}))
	time.Sleep(20 * time.Millisecond)

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Empty(t, src.asked)
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "lldbhost dev")
}

func TestConfigCommandPrintsDefaults(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "--config", filepath.Join(t.TempDir(), "missing.toml")})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "handshakeTimeout")
}

func TestWatchConfigReportsWatcherFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[lldb]\n"), 0o644))

	orig := newWatcher
	t.Cleanup(func() { newWatcher = orig })
	newWatcher = func(string, func(*config.Config), ...config.WatcherOption) (*config.Watcher, error) {
		return nil, errors.New("too many open files")
	}

	logger, hook := logtest.NewNullLogger()
	stop := watchConfig(path, func(config.Adapter) { t.Fatal("unexpected reload") }, logger)
	stop()

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, log.WarnLevel, entry.Level)
	assert.Equal(t, "too many open files", entry.Data[log.ErrorKey].(error).Error())
}

func TestWatchConfigMissingFile(t *testing.T) {
	orig := newWatcher
	t.Cleanup(func() { newWatcher = orig })
	newWatcher = func(string, func(*config.Config), ...config.WatcherOption) (*config.Watcher, error) {
		t.Fatal("missing file must not be watched")
		return nil, nil
	}

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	watchConfig(filepath.Join(t.TempDir(), "missing.toml"), func(config.Adapter) {}, logger)()

	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, log.WarnLevel, e.Level)
	}
}

func TestWatchConfigAppliesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[lldb]\nexecutable = \"lldb-9\"\n"), 0o644))

	applied := make(chan config.Adapter, 4)
	logger, hook := logtest.NewNullLogger()
	stop := watchConfig(path, func(a config.Adapter) { applied <- a }, logger)
	defer stop()
	assert.Empty(t, hook.AllEntries())

	require.NoError(t, os.WriteFile(path, []byte("[lldb]\nexecutable = \"lldb-10\"\n"), 0o644))

	select {
	case a := <-applied:
		assert.Equal(t, "lldb-10", a.Executable)
	case <-time.After(3 * time.Second):
		t.Fatal("reload not applied")
	}
}
