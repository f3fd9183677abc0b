package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dshills/lldbhost/internal/config"
	"github.com/dshills/lldbhost/internal/integration/debug"
	"github.com/dshills/lldbhost/internal/integration/debug/bridge"
	"github.com/dshills/lldbhost/internal/integration/process"
	"github.com/dshills/lldbhost/internal/logging"
	"github.com/dshills/lldbhost/internal/output"
)

const disconnectTimeout = 2 * time.Second

var newWatcher = config.NewWatcher

type launchOptions struct {
	name   string
	params string
	outDir string
}

func newLaunchCmd() *cobra.Command {
	var opts launchOptions
	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Start a debug backend and attach a session to it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			params, err := parseParams(opts.params)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runLaunch(ctx, cmd, cfg, opts, params)
		},
	}
	cmd.Flags().StringVar(&opts.name, "name", "lldb", "Session name")
	cmd.Flags().StringVar(&opts.params, "params", "", "Session parameters as a JSON object")
	cmd.Flags().StringVar(&opts.outDir, "out", "", "Directory to mirror documents pushed by the session")
	return cmd
}

func parseParams(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, fmt.Errorf("--params: %w", err)
	}
	return params, nil
}

func runLaunch(ctx context.Context, cmd *cobra.Command, cfg *config.Config, opts launchOptions, params map[string]any) error {
	logger := logging.Component("launch")
	sink := output.NewChannel(cmd.OutOrStdout())
	supervisor := process.NewSupervisor(
		process.WithSink(sink),
		process.WithLogger(logging.Component("supervisor")),
		process.WithProcessExitCallback(func(h *process.Handle) {
			logBackendExit(logger, h)
		}),
	)
	defer supervisor.Shutdown(time.Second)

	host := newFileHost(opts.outDir, logging.Component("host"))
	b := bridge.New(host,
		bridge.WithGrace(cfg.LLDB.TerminateGrace.Std()),
		bridge.WithLogger(logging.Component("bridge")),
	)
	queue := bridge.NewQueue(b, bridge.DefaultQueueSize)
	host.source = queue

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer func() {
		stopLoop()
		<-queue.Stopped()
	}()
	go func() {
		_ = queue.Run(loopCtx)
	}()

	launcher := debug.NewLauncher(cfg.LLDB, supervisor, queue,
		debug.WithSink(sink),
		debug.WithLogger(logging.Component("launcher")),
	)
	stopWatching := watchConfig(flagConfig, launcher.SetConfig, logger)
	defer stopWatching()

	h, err := launcher.Launch(ctx, opts.name, params)
	if err != nil {
		remedy := launcher.ReportStartupError(err)
		cmd.PrintErrln(remedy.Message)
		if remedy.Action == debug.RunDiagnosticsAction {
			cmd.PrintErrln("Run 'lldbhost diagnose' to check the LLDB installation.")
		}
		return errReported
	}
	cmd.Printf("Debug backend listening on port %d\n", h.Port())

	session, err := debug.ConnectSession(ctx, h.Port(), opts.name, queue)
	if err != nil {
		_ = h.Terminate()
		return fmt.Errorf("connect to backend: %w", err)
	}
	session.SetHandlers(debug.SessionHandlers{
		OnOutput: func(_, text string) {
			sink.Append(text)
		},
		OnExited: func(code int) {
			cmd.Printf("Debuggee exited with code %d\n", code)
		},
	})
	if err := session.Initialize(ctx, debug.DefaultSessionConfig()); err != nil {
		_ = session.Close()
		_ = h.Terminate()
		return err
	}
	cmd.Printf("Session %s started\n", session.ID())

	select {
	case <-ctx.Done():
	case <-session.Done():
		if err := session.Err(); err != nil {
			logger.WithError(err).Info("control channel closed")
		}
	case <-h.Done():
	}

	terminate := false
	if caps := session.Capabilities(); caps != nil {
		terminate = caps.SupportTerminateDebuggee
	}
	dctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := session.Disconnect(dctx, terminate); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.WithError(err).Debug("disconnect")
	}
	_ = session.Close()

	select {
	case <-h.Done():
	case <-time.After(cfg.LLDB.TerminateGrace.Std() + time.Second):
	}
	sink.Flush()
	return nil
}

func logBackendExit(logger log.FieldLogger, h *process.Handle) {
	entry := logger.WithFields(log.Fields{
		"pid":      h.PID(),
		"exitCode": h.ExitCode(),
		"runtime":  h.Runtime().Round(time.Millisecond),
	})
	if sig := h.ExitSignal(); sig != "" {
		entry = entry.WithField("signal", sig)
	}
	if err := h.ExitError(); err != nil {
		entry = entry.WithError(err)
	}
	entry.Info("backend exited")
}

// watchConfig hands every reloaded adapter configuration to apply until the
// returned function is called. A missing file is not watched.
func watchConfig(path string, apply func(config.Adapter), logger log.FieldLogger) func() {
	if _, err := os.Stat(path); err != nil {
		logger.WithField("config", path).Debug("no configuration file to watch")
		return func() {}
	}

	w, err := newWatcher(path, func(c *config.Config) {
		apply(c.LLDB)
	}, config.WithWatcherLogger(logging.Component("config")))
	if err != nil {
		logger.WithError(err).WithField("config", path).Warn("configuration changes will not be picked up")
		return func() {}
	}
	return func() { _ = w.Close() }
}
