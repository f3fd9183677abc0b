package adapters

import (
	"path/filepath"
	"testing"

	"github.com/dshills/lldbhost/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapterTypeConstants(t *testing.T) {
	assert.Equal(t, AdapterType("lldb"), AdapterLLDB)
	assert.Equal(t, AdapterType("codelldb"), AdapterCodeLLDB)
}

func TestTypeFor(t *testing.T) {
	assert.Equal(t, AdapterLLDB, TypeFor(config.Adapter{}))
	assert.Equal(t, AdapterCodeLLDB, TypeFor(config.Adapter{UseCodeLLDB: true}))
}

func TestRegistry_Create(t *testing.T) {
	r := NewRegistry()

	a, err := r.Create(config.Adapter{ExtensionPath: "/ext"})
	require.NoError(t, err)
	assert.Equal(t, AdapterLLDB, a.Type())

	a, err = r.Create(config.Adapter{ExtensionPath: "/ext", UseCodeLLDB: true})
	require.NoError(t, err)
	assert.Equal(t, AdapterCodeLLDB, a.Type())
}

func TestRegistry_Create_Invalid(t *testing.T) {
	r := NewRegistry()

	_, err := r.Create(config.Adapter{})
	assert.ErrorContains(t, err, "extensionPath")

	_, err = r.Create(config.Adapter{UseCodeLLDB: true})
	assert.ErrorContains(t, err, "extensionPath")
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	r.Register(AdapterLLDB, func(cfg config.Adapter) (Adapter, error) {
		return &CodeLLDBAdapter{config: cfg}, nil
	})

	a, err := r.Create(config.Adapter{ExtensionPath: "/ext"})
	require.NoError(t, err)
	assert.Equal(t, AdapterCodeLLDB, a.Type(), "registered factory replaces the default")
}

func TestRegistry_Create_Unknown(t *testing.T) {
	r := &Registry{adapters: map[AdapterType]Factory{}}

	_, err := r.Create(config.Adapter{})
	assert.ErrorContains(t, err, "unknown adapter type")
}

func TestCodeLLDBAdapter_GetCommand(t *testing.T) {
	cfg := config.Adapter{
		UseCodeLLDB:   true,
		ExtensionPath: "/ext",
		Executable:    "/ignored/lldb",
		ExecutableEnv: map[string]string{"RUST_LOG": "debug"},
		WorkspaceRoot: "/work",
	}
	a, err := NewCodeLLDBAdapter(cfg)
	require.NoError(t, err)

	cmd, err := a.GetCommand(map[string]any{"ignored": true})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/ext", "build", "adapter2", "codelldb"), cmd.Executable)
	assert.Equal(t, []string{"--lldb=" + filepath.Join("/ext", "build", "lldb")}, cmd.Args)
	assert.Equal(t, cfg.ExecutableEnv, cmd.Env)
	assert.Equal(t, "/work", cmd.Dir)
	assert.Equal(t, "CodeLLDB", a.Name())
}
