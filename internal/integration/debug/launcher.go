package debug

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dshills/lldbhost/internal/config"
	"github.com/dshills/lldbhost/internal/integration/debug/adapters"
	"github.com/dshills/lldbhost/internal/integration/debug/bridge"
	"github.com/dshills/lldbhost/internal/integration/process"
	"github.com/dshills/lldbhost/internal/output"
)

// Starter starts a backend and waits for its handshake.
// *process.Supervisor implements Starter.
type Starter interface {
	Launch(ctx context.Context, cmd process.Command, timeout time.Duration) (*process.Handle, error)
}

// Poster delivers events to the content bridge without waiting.
// *bridge.Queue implements Poster.
type Poster interface {
	Post(ev bridge.Event) error
}

// Registrar delivers an event to the content bridge and waits until it has
// been applied. *bridge.Queue implements Registrar.
type Registrar interface {
	Send(ctx context.Context, ev bridge.Event) error
}

// Launcher starts debug backends from the current configuration.
type Launcher struct {
	registry *adapters.Registry
	starter  Starter
	events   Registrar
	sink     output.Sink
	log      log.FieldLogger

	mu  sync.RWMutex
	cfg config.Adapter
}

// LauncherOption configures a Launcher.
type LauncherOption func(*Launcher)

// WithSink sets where startup errors are reported.
func WithSink(s output.Sink) LauncherOption {
	return func(l *Launcher) {
		l.sink = s
	}
}

// WithLogger sets the launcher's logger.
func WithLogger(lg log.FieldLogger) LauncherOption {
	return func(l *Launcher) {
		l.log = lg
	}
}

// NewLauncher creates a Launcher. events may be nil when backends are not
// bridged.
func NewLauncher(cfg config.Adapter, starter Starter, events Registrar, opts ...LauncherOption) *Launcher {
	l := &Launcher{
		registry: adapters.NewRegistry(),
		starter:  starter,
		events:   events,
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.sink == nil {
		l.sink = output.NewChannel(nil)
	}
	if l.log == nil {
		l.log = log.WithField("component", "launcher")
	}
	return l
}

// Config returns the configuration used for the next launch.
func (l *Launcher) Config() config.Adapter {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// SetConfig replaces the configuration for subsequent launches. Running
// backends are not affected.
func (l *Launcher) SetConfig(cfg config.Adapter) {
	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()
	l.log.Info("adapter configuration updated")
}

// StartDebugAdapter starts the configured backend flavor and returns it
// once it reports its port. params are passed to flavors that accept
// session parameters.
func (l *Launcher) StartDebugAdapter(ctx context.Context, params map[string]any) (*process.Handle, error) {
	cfg := l.Config()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid adapter configuration: %w", err)
	}

	a, err := l.registry.Create(cfg)
	if err != nil {
		return nil, err
	}

	cmd, err := a.GetCommand(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Name(), err)
	}

	l.log.WithFields(log.Fields{"adapter": a.Type(), "executable": cmd.Executable}).Debug("starting backend")
	h, err := l.starter.Launch(ctx, cmd, cfg.HandshakeTimeout.Std())
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Launch starts a backend and records it with the bridge as launching for
// the session called name. The launch is registered before Launch returns,
// so a session started afterwards finds it.
func (l *Launcher) Launch(ctx context.Context, name string, params map[string]any) (*process.Handle, error) {
	h, err := l.StartDebugAdapter(ctx, params)
	if err != nil {
		return nil, err
	}

	if l.events != nil {
		if err := l.events.Send(ctx, bridge.Launching(name, h)); err != nil {
			_ = h.Terminate()
			return nil, fmt.Errorf("register launch %q: %w", name, err)
		}
	}

	l.log.WithFields(log.Fields{"session": name, "port": h.Port()}).Info("backend launched")
	return h, nil
}

// ReportStartupError writes err to the transcript and returns the remedy
// to present.
func (l *Launcher) ReportStartupError(err error) Remedy {
	l.sink.AppendLine(err.Error())
	l.sink.Flush()
	l.log.WithError(err).WithField("kind", process.KindOf(err)).Warn("backend failed to start")
	return AnalyzeStartupError(err)
}
