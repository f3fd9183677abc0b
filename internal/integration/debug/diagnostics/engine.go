// Package diagnostics implements the LLDB self-test: it locates a working
// LLDB among the configured and well-known candidates, checks its version
// and Python scripting support, and offers to persist a better executable
// path.
//
// The transcript of every run goes to an output.Sink; the caller receives a
// Result and never an error or panic.
package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dshills/lldbhost/internal/config"
	"github.com/dshills/lldbhost/internal/integration/process"
	"github.com/dshills/lldbhost/internal/output"
)

// Prober runs a command and waits for pattern on its output.
// *process.Supervisor implements Prober.
type Prober interface {
	Probe(ctx context.Context, cmd process.Command, pattern *regexp.Regexp, timeout time.Duration) ([]string, error)
}

// Prompter asks the user a yes/no question.
type Prompter interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// ConfigStore persists a corrected executable path.
// *config.FileStore implements ConfigStore.
type ConfigStore interface {
	SetExecutable(path string) error
}

// Engine runs diagnostics.
type Engine struct {
	prober   Prober
	sink     output.Sink
	prompter Prompter
	store    ConfigStore
	goos     string
	log      log.FieldLogger
}

// Option configures an Engine.
type Option func(*Engine)

// WithPrompter sets who is asked before the configuration is changed.
// Without one the change is declined.
func WithPrompter(p Prompter) Option {
	return func(e *Engine) {
		e.prompter = p
	}
}

// WithConfigStore sets where an accepted executable path is saved.
func WithConfigStore(s ConfigStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithPlatform overrides runtime.GOOS.
func WithPlatform(goos string) Option {
	return func(e *Engine) {
		e.goos = goos
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l log.FieldLogger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// New creates an Engine that probes through prober and writes its
// transcript to sink.
func New(prober Prober, sink output.Sink, opts ...Option) *Engine {
	e := &Engine{
		prober: prober,
		sink:   sink,
		goos:   runtime.GOOS,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = log.WithField("component", "diagnostics")
	}
	return e
}

// errDeclined marks a configuration update the user refused.
var errDeclined = errors.New("configuration update declined")

// Run executes the self-test for cfg. The transcript is cleared first and
// flushed last, whatever the outcome.
func (e *Engine) Run(ctx context.Context, cfg config.Adapter) (result Result) {
	e.sink.Clear()
	defer e.sink.Flush()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			e.log.WithError(err).Error("diagnostics panicked")
			e.exception(err)
			result.Status = Failed
			result.Err = err
		}
	}()

	result = e.run(ctx, cfg)
	e.log.WithFields(log.Fields{"status": result.Status, "path": result.Path, "version": result.Version}).Info("diagnostics finished")
	return result
}

func (e *Engine) run(ctx context.Context, cfg config.Adapter) Result {
	var result Result
	platform := PlatformFor(e.goos)
	configured := cfg.ConfiguredExecutable()
	timeout := cfg.ProbeTimeout.Std()

	e.sink.AppendLine("--- Checking version ---")
	for _, name := range platform.candidates(configured, config.DefaultExecutable) {
		m, err := e.prober.Probe(ctx, e.command(cfg, name, VersionArg), platform.VersionPattern, timeout)
		if err != nil {
			e.sink.AppendLine(err.Error())
			e.log.WithError(err).WithField("candidate", name).Debug("version probe failed")
			continue
		}
		result.Path = name
		result.Version = m[1]
		break
	}

	if result.Path == "" {
		result.Status = NotFound
		e.sink.AppendLine("--- Done ---")
		return result
	}

	if CompareVersions(result.Version, platform.MinimumVersion) < 0 {
		result.Warning = &VersionWarning{Detected: result.Version, Minimum: platform.MinimumVersion}
		result.Status = Warning
		e.sink.AppendLine(result.Warning.String())
	}

	e.sink.AppendLine("--- Checking Python ---")
	if _, err := e.prober.Probe(ctx, e.command(cfg, result.Path, CapabilityProbeArgs...), CapabilityPattern, timeout); err != nil {
		e.exception(err)
		result.Status = Failed
		result.Err = fmt.Errorf("python scripting check: %w", err)
		return result
	}
	e.sink.AppendLine("--- Done ---")

	if result.Path != configured {
		result.SuggestedPath = result.Path
		if err := e.offerUpdate(ctx, configured, result.Path); err != nil {
			if !errors.Is(err, errDeclined) {
				e.exception(err)
			}
			result.Status = Failed
			result.Err = err
		}
	}

	return result
}

// offerUpdate asks whether to save found as the configured executable.
func (e *Engine) offerUpdate(ctx context.Context, configured, found string) error {
	if e.prompter == nil {
		return errDeclined
	}

	msg := fmt.Sprintf("Could not launch LLDB executable %q, however we did locate a usable LLDB binary: %q. "+
		"Would you like to update LLDB configuration with this value?", configured, found)
	yes, err := e.prompter.Confirm(ctx, msg)
	if err != nil {
		return fmt.Errorf("prompt: %w", err)
	}
	if !yes {
		return errDeclined
	}

	e.sink.AppendLine(fmt.Sprintf(`Setting "lldb.executable": %q.`, found))
	if e.store == nil {
		return nil
	}
	if err := e.store.SetExecutable(found); err != nil {
		return fmt.Errorf("saving configuration: %w", err)
	}
	return nil
}

func (e *Engine) command(cfg config.Adapter, name string, args ...string) process.Command {
	return process.Command{
		Executable: name,
		Args:       args,
		Env:        cfg.ExecutableEnv,
		Dir:        cfg.WorkspaceRoot,
	}
}

// exception writes the failure banner and err to the transcript.
func (e *Engine) exception(err error) {
	e.sink.AppendLine("")
	e.sink.AppendLine("*** An exception was raised during self-test ***")
	e.sink.AppendLine(fmt.Sprintf("%+v", err))
}
