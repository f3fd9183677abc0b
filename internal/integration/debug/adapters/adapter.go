// Package adapters builds the command lines for the supported debugger
// backends.
//
// Every flavor starts a backend that opens its control channel on a free
// local port and prints "Listening on port <n>" once it is ready.
package adapters

import (
	"fmt"

	"github.com/dshills/lldbhost/internal/config"
	"github.com/dshills/lldbhost/internal/integration/process"
)

// AdapterType identifies a backend flavor.
type AdapterType string

const (
	// AdapterLLDB runs LLDB in batch mode and starts the adapter from its
	// embedded Python interpreter.
	AdapterLLDB AdapterType = "lldb"
	// AdapterCodeLLDB runs the native adapter binary.
	AdapterCodeLLDB AdapterType = "codelldb"
)

// Adapter produces the launch command for one backend flavor.
type Adapter interface {
	// Type returns the adapter type.
	Type() AdapterType

	// Name returns a human-readable adapter name.
	Name() string

	// Validate validates the configuration.
	Validate() error

	// GetCommand returns the command that starts the backend. params are
	// the session parameters handed to the adapter, where the flavor
	// supports them.
	GetCommand(params map[string]any) (process.Command, error)
}

// Factory creates an Adapter from configuration.
type Factory func(cfg config.Adapter) (Adapter, error)

// Registry manages available backend flavors.
type Registry struct {
	adapters map[AdapterType]Factory
}

// NewRegistry creates a new adapter registry with default adapters.
func NewRegistry() *Registry {
	r := &Registry{
		adapters: make(map[AdapterType]Factory),
	}

	r.Register(AdapterLLDB, NewLLDBAdapter)
	r.Register(AdapterCodeLLDB, NewCodeLLDBAdapter)

	return r
}

// Register registers an adapter factory.
func (r *Registry) Register(adapterType AdapterType, factory Factory) {
	r.adapters[adapterType] = factory
}

// TypeFor returns the flavor cfg selects.
func TypeFor(cfg config.Adapter) AdapterType {
	if cfg.UseCodeLLDB {
		return AdapterCodeLLDB
	}
	return AdapterLLDB
}

// Create creates the adapter cfg selects and validates it.
func (r *Registry) Create(cfg config.Adapter) (Adapter, error) {
	adapterType := TypeFor(cfg)
	factory, ok := r.adapters[adapterType]
	if !ok {
		return nil, fmt.Errorf("unknown adapter type: %s", adapterType)
	}

	a, err := factory(cfg)
	if err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", a.Name(), err)
	}
	return a, nil
}
