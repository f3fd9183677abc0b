package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LLDBHOST_"

// Format is a configuration file syntax.
type Format string

const (
	// FormatTOML is selected by the .toml extension.
	FormatTOML Format = "toml"
	// FormatYAML is selected by the .yaml and .yml extensions.
	FormatYAML Format = "yaml"
)

// FormatOf returns the format implied by path's extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Load reads the configuration file at path on top of the defaults, applies
// environment overrides and validates the result. A missing file (or an
// empty path) is not an error: the defaults apply.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := Decode(path, data, cfg); err != nil {
				return nil, err
			}
		case os.IsNotExist(err):
			// File doesn't exist, not an error
		default:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	if err := ApplyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode parses data in the format implied by path into cfg. Keys absent
// from data keep their current values.
func Decode(path string, data []byte, cfg *Config) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}

	switch format {
	case FormatTOML:
		err = toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(cfg)
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(cfg)
		if errors.Is(err, io.EOF) {
			err = nil // empty document
		}
	}
	if err != nil {
		return &ParseError{Path: path, Err: err}
	}
	return nil
}

// envSetter applies one environment override.
type envSetter func(cfg *Config, value string) error

// envMapping maps LLDBHOST_-prefixed variable names (without the prefix)
// to the setting they override.
var envMapping = map[string]envSetter{
	"EXECUTABLE": func(cfg *Config, v string) error {
		cfg.LLDB.Executable = v
		return nil
	},
	"USE_CODELLDB": func(cfg *Config, v string) error {
		b, err := strconv.ParseBool(v)
		cfg.LLDB.UseCodeLLDB = b
		return err
	},
	"EXTENSION_PATH": func(cfg *Config, v string) error {
		cfg.LLDB.ExtensionPath = v
		return nil
	},
	"WORKSPACE_ROOT": func(cfg *Config, v string) error {
		cfg.LLDB.WorkspaceRoot = v
		return nil
	},
	"ADAPTER_LOG_LEVEL": func(cfg *Config, v string) error {
		n, err := strconv.Atoi(v)
		cfg.LLDB.LogLevel = &n
		return err
	},
	"ADAPTER_LOG_FILE": func(cfg *Config, v string) error {
		cfg.LLDB.LogFile = &v
		return nil
	},
	"HANDSHAKE_TIMEOUT": func(cfg *Config, v string) error {
		return setDuration(&cfg.LLDB.HandshakeTimeout, v)
	},
	"PROBE_TIMEOUT": func(cfg *Config, v string) error {
		return setDuration(&cfg.LLDB.ProbeTimeout, v)
	},
	"TERMINATE_GRACE": func(cfg *Config, v string) error {
		return setDuration(&cfg.LLDB.TerminateGrace, v)
	},
	"LOG_LEVEL": func(cfg *Config, v string) error {
		cfg.Log.Level = v
		return nil
	},
	"LOG_FILE": func(cfg *Config, v string) error {
		cfg.Log.File = v
		return nil
	},
}

func setDuration(dst *Duration, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = Duration(d)
	return nil
}

// ApplyEnv overrides cfg from LLDBHOST_* variables found through lookup.
// Empty values are treated as set.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for suffix, set := range envMapping {
		name := EnvPrefix + suffix
		value, ok := lookup(name)
		if !ok {
			continue
		}
		if err := set(cfg, value); err != nil {
			return &EnvError{Variable: name, Value: value, Err: err}
		}
	}
	return nil
}

// Encode renders cfg in the format implied by path.
func Encode(path string, cfg *Config) ([]byte, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	if format == FormatTOML {
		return toml.Marshal(cfg)
	}
	return yaml.Marshal(cfg)
}
