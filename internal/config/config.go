package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// DefaultExecutable is the LLDB name looked up on PATH when no executable
// is configured.
const DefaultExecutable = "lldb"

// Default timeouts.
const (
	DefaultHandshakeTimeout = 5 * time.Second
	DefaultProbeTimeout     = 5 * time.Second
	DefaultTerminateGrace   = 1500 * time.Millisecond
)

// Config is the complete host configuration.
type Config struct {
	LLDB Adapter `toml:"lldb" yaml:"lldb"`
	Log  Log     `toml:"log" yaml:"log"`
}

// Adapter configures how the debugger backend is located and started.
type Adapter struct {
	// Executable is the LLDB binary. Empty means "not configured".
	Executable string `toml:"executable,omitempty" yaml:"executable,omitempty"`

	// ExecutableEnv overrides environment variables of the backend.
	// Values may reference ${env:NAME}.
	ExecutableEnv map[string]string `toml:"executableEnv,omitempty" yaml:"executableEnv,omitempty"`

	// UseCodeLLDB selects the native adapter instead of LLDB script mode.
	UseCodeLLDB bool `toml:"useCodeLLDB" yaml:"useCodeLLDB"`

	// ExtensionPath is the installation root holding the adapter scripts
	// and the bundled toolchain.
	ExtensionPath string `toml:"extensionPath,omitempty" yaml:"extensionPath,omitempty"`

	// WorkspaceRoot is the working directory of spawned backends.
	WorkspaceRoot string `toml:"workspaceRoot,omitempty" yaml:"workspaceRoot,omitempty"`

	LogLevel                   *int     `toml:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	Loggers                    []string `toml:"loggers,omitempty" yaml:"loggers,omitempty"`
	LogFile                    *string  `toml:"logFile,omitempty" yaml:"logFile,omitempty"`
	ReverseDebugging           *bool    `toml:"reverseDebugging,omitempty" yaml:"reverseDebugging,omitempty"`
	SuppressMissingSourceFiles *bool    `toml:"suppressMissingSourceFiles,omitempty" yaml:"suppressMissingSourceFiles,omitempty"`
	EvaluationTimeout          *float64 `toml:"evaluationTimeout,omitempty" yaml:"evaluationTimeout,omitempty"`
	Ptvsd                      *bool    `toml:"ptvsd,omitempty" yaml:"ptvsd,omitempty"`

	// HandshakeTimeout bounds the wait for the "Listening on port" line.
	HandshakeTimeout Duration `toml:"handshakeTimeout" yaml:"handshakeTimeout"`

	// ProbeTimeout bounds each diagnostics probe.
	ProbeTimeout Duration `toml:"probeTimeout" yaml:"probeTimeout"`

	// TerminateGrace is how long a finished session's backend may take to
	// exit before it is killed.
	TerminateGrace Duration `toml:"terminateGrace" yaml:"terminateGrace"`
}

// Log configures host logging.
type Log struct {
	Level     string `toml:"level" yaml:"level"`
	File      string `toml:"file,omitempty" yaml:"file,omitempty"`
	MaxSizeMB int    `toml:"maxSizeMB,omitempty" yaml:"maxSizeMB,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LLDB: Adapter{
			HandshakeTimeout: Duration(DefaultHandshakeTimeout),
			ProbeTimeout:     Duration(DefaultProbeTimeout),
			TerminateGrace:   Duration(DefaultTerminateGrace),
		},
		Log: Log{Level: "info"},
	}
}

// ConfiguredExecutable returns the executable name diagnostics starts from:
// the configured value, or DefaultExecutable.
func (a Adapter) ConfiguredExecutable() string {
	if a.Executable == "" {
		return DefaultExecutable
	}
	return a.Executable
}

// ScriptModeExecutable returns the LLDB binary used in script mode: the
// configured value, else the toolchain bundled under ExtensionPath, else
// DefaultExecutable.
func (a Adapter) ScriptModeExecutable() string {
	switch {
	case a.Executable != "":
		return a.Executable
	case a.ExtensionPath != "":
		return filepath.Join(a.ExtensionPath, "build", "lldb", "bin", "lldb")
	default:
		return DefaultExecutable
	}
}

// Validate checks the configuration once, before it reaches the supervisor
// or diagnostics.
func (c *Config) Validate() error {
	var errs []error
	if err := c.LLDB.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.MaxSizeMB < 0 {
		errs = append(errs, &ValidationError{Field: "log.maxSizeMB", Message: "must not be negative"})
	}
	return errors.Join(errs...)
}

// Validate checks the adapter settings.
func (a Adapter) Validate() error {
	var errs []error

	if a.HandshakeTimeout < 0 {
		errs = append(errs, &ValidationError{Field: "lldb.handshakeTimeout", Message: "must not be negative"})
	}
	if a.ProbeTimeout < 0 {
		errs = append(errs, &ValidationError{Field: "lldb.probeTimeout", Message: "must not be negative"})
	}
	if a.TerminateGrace < 0 {
		errs = append(errs, &ValidationError{Field: "lldb.terminateGrace", Message: "must not be negative"})
	}
	if a.UseCodeLLDB && a.ExtensionPath == "" {
		errs = append(errs, &ValidationError{Field: "lldb.extensionPath", Message: "is required when useCodeLLDB is set"})
	}
	if a.EvaluationTimeout != nil && *a.EvaluationTimeout < 0 {
		errs = append(errs, &ValidationError{Field: "lldb.evaluationTimeout", Message: "must not be negative"})
	}
	for name := range a.ExecutableEnv {
		if name == "" {
			errs = append(errs, &ValidationError{Field: "lldb.executableEnv", Message: "contains an empty variable name"})
			break
		}
	}

	return errors.Join(errs...)
}

// Duration is a time.Duration written as a Go duration string ("1500ms")
// in configuration files.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}
