// Command lldbhost supervises LLDB debug backends: it runs the LLDB
// self-test, launches backends for debug sessions and bridges the content
// they push.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dshills/lldbhost/internal/config"
	"github.com/dshills/lldbhost/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var (
	flagConfig   string
	flagLogLevel string
	flagLogFile  string
)

// errReported marks a failure whose message was already printed.
var errReported = errors.New("failed")

func main() {
	os.Exit(run())
}

func run() int {
	defer logging.Close()

	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lldbhost",
		Short:         "Launch and diagnose LLDB debug backends",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", defaultConfigPath(), "Path to the configuration file (.toml, .yaml)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the configuration")
	root.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Write logs to a rotating file instead of stderr")

	root.AddCommand(newDiagnoseCmd(), newLaunchCmd(), newConfigCmd(), newVersionCmd())
	return root
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "lldbhost", "config.toml")
}

// loadConfig reads the configuration and sets up logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	opts := logging.Options{
		Level:     cfg.Log.Level,
		File:      cfg.Log.File,
		MaxSizeMB: cfg.Log.MaxSizeMB,
	}
	if flagLogLevel != "" {
		opts.Level = flagLogLevel
	}
	if flagLogFile != "" {
		opts.File = flagLogFile
	}
	opts.ReportCaller = opts.Level == "debug"
	if err := logging.Setup(opts); err != nil {
		return nil, err
	}

	log.WithField("config", flagConfig).Debug("configuration loaded")
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("lldbhost %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
