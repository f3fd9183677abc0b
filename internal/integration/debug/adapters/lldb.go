package adapters

import (
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/tidwall/sjson"

	"github.com/dshills/lldbhost/internal/config"
	"github.com/dshills/lldbhost/internal/integration/process"
)

// LLDBAdapter runs the adapter scripts inside LLDB's Python interpreter.
//
// The command line is
//
//	lldb -b -O "command script import '<ext>/adapter'" \
//	        -O "script adapter.run_tcp_session(0, '<base64 params>')"
//
// where port 0 lets the adapter pick any free port.
type LLDBAdapter struct {
	config config.Adapter
}

// NewLLDBAdapter creates a script-mode adapter.
func NewLLDBAdapter(cfg config.Adapter) (Adapter, error) {
	return &LLDBAdapter{config: cfg}, nil
}

// Type returns the adapter type.
func (a *LLDBAdapter) Type() AdapterType {
	return AdapterLLDB
}

// Name returns a human-readable adapter name.
func (a *LLDBAdapter) Name() string {
	return "LLDB (script mode)"
}

// Validate validates the configuration.
func (a *LLDBAdapter) Validate() error {
	if a.config.ExtensionPath == "" {
		return errors.New("extensionPath is required to import the adapter scripts")
	}
	return nil
}

// GetCommand returns the command to start the adapter.
func (a *LLDBAdapter) GetCommand(params map[string]any) (process.Command, error) {
	encoded, err := EncodeParameters(a.config, params)
	if err != nil {
		return process.Command{}, err
	}

	return process.Command{
		Executable: a.config.ScriptModeExecutable(),
		Args: []string{
			"-b",
			"-O", fmt.Sprintf("command script import '%s'", filepath.Join(a.config.ExtensionPath, "adapter")),
			"-O", fmt.Sprintf("script adapter.run_tcp_session(0, '%s')", encoded),
		},
		Env: a.config.ExecutableEnv,
		Dir: a.config.WorkspaceRoot,
	}, nil
}

// EncodeParameters renders params as JSON, overlays the adapter settings
// that are explicitly configured, and returns the result base64-encoded.
// Unset settings are omitted rather than sent as zero values.
func EncodeParameters(cfg config.Adapter, params map[string]any) (string, error) {
	if params == nil {
		params = map[string]any{}
	}
	doc, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encoding adapter parameters: %w", err)
	}

	for _, p := range configuredParameters(cfg) {
		doc, err = sjson.SetBytes(doc, p.key, p.value)
		if err != nil {
			return "", fmt.Errorf("setting adapter parameter %s: %w", p.key, err)
		}
	}

	return base64.StdEncoding.EncodeToString(doc), nil
}

type parameter struct {
	key   string
	value any
}

// configuredParameters lists the allow-listed settings that are set.
func configuredParameters(cfg config.Adapter) []parameter {
	var ps []parameter
	if cfg.LogLevel != nil {
		ps = append(ps, parameter{"logLevel", *cfg.LogLevel})
	}
	if cfg.Loggers != nil {
		ps = append(ps, parameter{"loggers", cfg.Loggers})
	}
	if cfg.LogFile != nil {
		ps = append(ps, parameter{"logFile", *cfg.LogFile})
	}
	if cfg.ReverseDebugging != nil {
		ps = append(ps, parameter{"reverseDebugging", *cfg.ReverseDebugging})
	}
	if cfg.SuppressMissingSourceFiles != nil {
		ps = append(ps, parameter{"suppressMissingSourceFiles", *cfg.SuppressMissingSourceFiles})
	}
	if cfg.EvaluationTimeout != nil {
		ps = append(ps, parameter{"evaluationTimeout", *cfg.EvaluationTimeout})
	}
	if cfg.Ptvsd != nil {
		ps = append(ps, parameter{"ptvsd", *cfg.Ptvsd})
	}
	return ps
}
