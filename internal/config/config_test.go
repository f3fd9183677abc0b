package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Empty(t, cfg.LLDB.Executable)
	assert.False(t, cfg.LLDB.UseCodeLLDB)
	assert.Equal(t, 5*time.Second, cfg.LLDB.HandshakeTimeout.Std())
	assert.Equal(t, 5*time.Second, cfg.LLDB.ProbeTimeout.Std())
	assert.Equal(t, 1500*time.Millisecond, cfg.LLDB.TerminateGrace.Std())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Nil(t, cfg.LLDB.LogLevel)
	assert.Nil(t, cfg.LLDB.Loggers)
	assert.NoError(t, cfg.Validate())
}

func TestAdapter_ConfiguredExecutable(t *testing.T) {
	assert.Equal(t, "lldb", Adapter{}.ConfiguredExecutable())
	assert.Equal(t, "/opt/lldb", Adapter{Executable: "/opt/lldb"}.ConfiguredExecutable())
}

func TestAdapter_ScriptModeExecutable(t *testing.T) {
	assert.Equal(t, "lldb", Adapter{}.ScriptModeExecutable())
	assert.Equal(t, filepath.Join("/ext", "build", "lldb", "bin", "lldb"),
		Adapter{ExtensionPath: "/ext"}.ScriptModeExecutable())
	assert.Equal(t, "/usr/bin/lldb-10",
		Adapter{ExtensionPath: "/ext", Executable: "/usr/bin/lldb-10"}.ScriptModeExecutable())
}

func TestConfig_Validate(t *testing.T) {
	negative := -1.0

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"negative handshake", func(c *Config) { c.LLDB.HandshakeTimeout = -1 }, "lldb.handshakeTimeout"},
		{"negative probe", func(c *Config) { c.LLDB.ProbeTimeout = -1 }, "lldb.probeTimeout"},
		{"negative grace", func(c *Config) { c.LLDB.TerminateGrace = -1 }, "lldb.terminateGrace"},
		{"codelldb without extension", func(c *Config) { c.LLDB.UseCodeLLDB = true }, "lldb.extensionPath"},
		{"negative evaluation timeout", func(c *Config) { c.LLDB.EvaluationTimeout = &negative }, "lldb.evaluationTimeout"},
		{"empty env name", func(c *Config) { c.LLDB.ExecutableEnv = map[string]string{"": "x"} }, "lldb.executableEnv"},
		{"negative log size", func(c *Config) { c.Log.MaxSizeMB = -1 }, "log.maxSizeMB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1500ms")))
	assert.Equal(t, 1500*time.Millisecond, d.Std())

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1.5s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
