package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_SetExecutable_TOML(t *testing.T) {
	path := writeFile(t, "lldbhost.toml", `
[lldb]
executable = "lldb"
useCodeLLDB = false

[log]
level = "debug"
`)

	store := NewFileStore(path)
	require.NoError(t, store.SetExecutable("/usr/bin/lldb-9.0"))

	cfg, err := LoadWithEnv(path, noEnv)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/lldb-9.0", cfg.LLDB.Executable)
	assert.Equal(t, "debug", cfg.Log.Level, "other keys are preserved")
}

func TestFileStore_SetExecutable_YAML(t *testing.T) {
	path := writeFile(t, "lldbhost.yaml", "log:\n  level: warn\n")

	require.NoError(t, NewFileStore(path).SetExecutable("lldb-10.0"))

	cfg, err := LoadWithEnv(path, noEnv)
	require.NoError(t, err)
	assert.Equal(t, "lldb-10.0", cfg.LLDB.Executable)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestFileStore_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lldbhost.toml")

	require.NoError(t, NewFileStore(path).SetExecutable("lldb-7.0"))

	cfg, err := LoadWithEnv(path, noEnv)
	require.NoError(t, err)
	assert.Equal(t, "lldb-7.0", cfg.LLDB.Executable)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestFileStore_Errors(t *testing.T) {
	assert.ErrorIs(t, NewFileStore("").SetExecutable("lldb"), ErrNoConfigFile)
	assert.ErrorIs(t, NewFileStore("/tmp/lldbhost.ini").SetExecutable("lldb"), ErrUnsupportedFormat)

	path := writeFile(t, "broken.yaml", "lldb: [unterminated\n")
	var perr *ParseError
	assert.ErrorAs(t, NewFileStore(path).SetExecutable("lldb"), &perr)
}
