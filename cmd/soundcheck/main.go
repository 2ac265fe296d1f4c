// Command soundcheck checks a typed program dump for suspected soundness
// bugs around unsafe code.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mpyw/soundcheck"
	"github.com/mpyw/soundcheck/internal/config"
	"github.com/mpyw/soundcheck/internal/irload"
	"github.com/mpyw/soundcheck/internal/logging"
	"github.com/mpyw/soundcheck/internal/render"
	"github.com/mpyw/soundcheck/internal/report"
)

const (
	exitError    = 1
	exitFindings = 3
)

// errFindings is returned when findings at or above the fail level exist.
var errFindings = errors.New("findings reported")

type options struct {
	format     render.Format
	configFile string
	failLevel  report.Severity
	output     string
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, errFindings) {
			return exitFindings
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{format: render.Text, failLevel: report.Error}

	cmd := &cobra.Command{
		Use:   "soundcheck [flags] <program.yaml|archive.txtar>",
		Short: soundcheck.Analyzer.Doc,
		Long: `soundcheck reads a typed program dump, written as YAML or as a txtar archive
holding a program.yaml member, and reports Send/Sync impls with missing
bounds, destructors touching generic data through unsafe code, and unsafe
operations whose precondition a caller-supplied function may invalidate.

The exit status is 3 when findings at or above --fail-level were reported.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args[0], stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.CompletionOptions.DisableDefaultCmd = true

	flags := cmd.Flags()
	flags.AddGoFlagSet(&soundcheck.Analyzer.Flags)
	flags.VarP(&opts.format, "format", "f", "output format (text, json, sarif)")
	flags.StringVarP(&opts.configFile, "config", "c", "", "YAML configuration file")
	flags.Var(failLevelValue{&opts.failLevel}, "fail-level", "lowest severity that makes the exit status non-zero (info, warning, error)")
	flags.StringVarP(&opts.output, "output", "o", "", "write findings to this file instead of stdout")

	return cmd
}

func run(cmd *cobra.Command, opts *options, input string, stdout, stderr io.Writer) error {
	cfg, err := soundcheck.Analyzer.Config()
	if err != nil {
		return err
	}
	if opts.configFile != "" {
		file, err := config.LoadFile(opts.configFile)
		if err != nil {
			return err
		}
		if err := file.Apply(&cfg, cmd.Flags().Changed); err != nil {
			return err
		}
	}

	logger := logging.New(cfg.Verbosity, stderr)

	prog, err := load(input)
	if err != nil {
		return err
	}
	logger.Debug("program loaded", "input", input, "items", len(prog.Items()))

	findings, err := soundcheck.Run(prog, cfg, logger)
	if err != nil {
		return err
	}

	if err := writeFindings(stdout, opts.output, opts.format, findings); err != nil {
		return err
	}

	for _, f := range findings {
		if f.Severity >= opts.failLevel {
			return errFindings
		}
	}
	return nil
}

// createOutput opens the --output file.
var createOutput = func(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

// writeFindings renders findings to stdout, or to the file output names.
func writeFindings(stdout io.Writer, output string, format render.Format, findings []report.Finding) (err error) {
	out := stdout
	if output != "" {
		file, createErr := createOutput(output)
		if createErr != nil {
			return fmt.Errorf("creating output: %w", createErr)
		}
		defer func() {
			if closeErr := file.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("closing output: %w", closeErr)
			}
		}()
		out = file
	}
	if err := render.Write(out, format, findings); err != nil {
		return fmt.Errorf("writing findings: %w", err)
	}
	return nil
}

func load(input string) (*irload.Program, error) {
	if filepath.Ext(input) == ".txtar" {
		prog, _, err := irload.LoadArchiveFile(input)
		return prog, err
	}
	return irload.LoadFile(input)
}

// failLevelValue adapts report.Severity to pflag.Value.
type failLevelValue struct{ s *report.Severity }

var _ pflag.Value = failLevelValue{}

func (v failLevelValue) String() string {
	if v.s == nil {
		return report.Error.String()
	}
	return v.s.String()
}

func (v failLevelValue) Set(s string) error { return v.s.Set(s) }

func (v failLevelValue) Type() string { return "severity" }
