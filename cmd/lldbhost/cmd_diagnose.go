package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/lldbhost/internal/config"
	"github.com/dshills/lldbhost/internal/integration/debug/diagnostics"
	"github.com/dshills/lldbhost/internal/integration/process"
	"github.com/dshills/lldbhost/internal/logging"
	"github.com/dshills/lldbhost/internal/output"
)

func newDiagnoseCmd() *cobra.Command {
	var assumeYes bool
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Run the LLDB self-test",
		Long: "Locate a working LLDB, check its version and Python scripting support, " +
			"and offer to save the executable that was found.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			result := runDiagnostics(cmd.Context(), cfg.LLDB, cmd.InOrStdin(), cmd.OutOrStdout(), assumeYes)

			cmd.Println(result.Status.Message())
			if result.Status == diagnostics.NotFound {
				cmd.Printf("Installation instructions: %s\n", diagnostics.InstallInstructionsURL)
			}
			if !result.OK() {
				return errReported
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Save a working executable without asking")
	return cmd
}

func runDiagnostics(ctx context.Context, cfg config.Adapter, in io.Reader, out io.Writer, assumeYes bool) diagnostics.Result {
	sink := output.NewChannel(out)
	supervisor := process.NewSupervisor(
		process.WithSink(sink),
		process.WithLogger(logging.Component("supervisor")),
	)
	defer supervisor.Shutdown(time.Second)

	var prompter diagnostics.Prompter = &linePrompter{in: bufio.NewReader(in), out: out}
	if assumeYes {
		prompter = yesPrompter{}
	}

	engine := diagnostics.New(supervisor, sink,
		diagnostics.WithPrompter(prompter),
		diagnostics.WithConfigStore(config.NewFileStore(flagConfig)),
		diagnostics.WithLogger(logging.Component("diagnostics")),
	)
	return engine.Run(ctx, cfg)
}

// linePrompter asks on out and reads the answer from in.
type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *linePrompter) Confirm(ctx context.Context, message string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintf(p.out, "%s [y/N] ", message)

	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

type yesPrompter struct{}

func (yesPrompter) Confirm(context.Context, string) (bool, error) {
	return true, nil
}
