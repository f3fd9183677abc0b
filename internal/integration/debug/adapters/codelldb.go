package adapters

import (
	"errors"
	"path/filepath"

	"github.com/dshills/lldbhost/internal/config"
	"github.com/dshills/lldbhost/internal/integration/process"
)

// CodeLLDBAdapter runs the native adapter shipped under the extension
// path, pointing it at the bundled LLDB toolchain. Session parameters are
// not passed on the command line in this mode.
type CodeLLDBAdapter struct {
	config config.Adapter
}

// NewCodeLLDBAdapter creates a native adapter.
func NewCodeLLDBAdapter(cfg config.Adapter) (Adapter, error) {
	return &CodeLLDBAdapter{config: cfg}, nil
}

// Type returns the adapter type.
func (a *CodeLLDBAdapter) Type() AdapterType {
	return AdapterCodeLLDB
}

// Name returns a human-readable adapter name.
func (a *CodeLLDBAdapter) Name() string {
	return "CodeLLDB"
}

// Validate validates the configuration.
func (a *CodeLLDBAdapter) Validate() error {
	if a.config.ExtensionPath == "" {
		return errors.New("extensionPath is required to locate codelldb")
	}
	return nil
}

// GetCommand returns the command to start the adapter.
func (a *CodeLLDBAdapter) GetCommand(map[string]any) (process.Command, error) {
	ext := a.config.ExtensionPath
	return process.Command{
		Executable: filepath.Join(ext, "build", "adapter2", "codelldb"),
		Args:       []string{"--lldb=" + filepath.Join(ext, "build", "lldb")},
		Env:        a.config.ExecutableEnv,
		Dir:        a.config.WorkspaceRoot,
	}, nil
}
