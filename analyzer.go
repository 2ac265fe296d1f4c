// Package soundcheck provides a static analyzer that looks for suspected
// memory-safety bugs around unsafe code in a typed program supplied by a
// compiler front-end.
package soundcheck

import (
	"errors"
	"flag"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/mpyw/soundcheck/internal/checkers/sendsync"
	"github.com/mpyw/soundcheck/internal/checkers/unsafedataflow"
	"github.com/mpyw/soundcheck/internal/checkers/unsafedestructor"
	"github.com/mpyw/soundcheck/internal/context"
	"github.com/mpyw/soundcheck/internal/ignore"
	"github.com/mpyw/soundcheck/internal/ir"
	"github.com/mpyw/soundcheck/internal/logging"
	"github.com/mpyw/soundcheck/internal/paths"
	"github.com/mpyw/soundcheck/internal/report"
)

// Flags for the analyzer.
var (
	enableSendSync         bool
	enableUnsafeDestructor bool
	enableUnsafeDataflow   bool

	reportLevel    report.Severity
	verbosity      logging.Verbosity
	dataflowPolicy unsafedataflow.Policy
	sensitiveAPIs  string
)

func init() {
	defaults := DefaultConfig()

	// Checker flags
	Analyzer.Flags.BoolVar(&enableSendSync, "send-sync", defaults.SendSyncVariance,
		"enable Send/Sync variance checker")
	Analyzer.Flags.BoolVar(&enableUnsafeDestructor, "unsafe-destructor", defaults.UnsafeDestructor,
		"enable unsafe destructor checker")
	Analyzer.Flags.BoolVar(&enableUnsafeDataflow, "unsafe-dataflow", defaults.UnsafeDataflow,
		"enable unsafe dataflow checker")

	reportLevel = defaults.ReportLevel
	verbosity = defaults.Verbosity
	dataflowPolicy = defaults.Policy
	Analyzer.Flags.Var(&reportLevel, "report-level", "minimum severity to report (info, warning, error)")
	Analyzer.Flags.Var(&verbosity, "verbosity", "diagnostic verbosity (normal, verbose, trace)")
	Analyzer.Flags.Var(&dataflowPolicy, "dataflow-policy",
		"calls the dataflow checker treats as overridable (generic-self, any-trait)")
	Analyzer.Flags.StringVar(&sensitiveAPIs, "sensitive-api", "",
		"comma-separated list of extra sensitive APIs as group=path (e.g., raw_write=mycrate::buf::poke)")
}

// Suite describes the analysis and the flags that configure it.
type Suite struct {
	Name  string
	Doc   string
	Flags flag.FlagSet
}

// Analyzer is the main analyzer for soundcheck.
var Analyzer = &Suite{
	Name:  "soundcheck",
	Doc:   "checks unsafe code for Send/Sync variance, unsafe destructor and higher-order invariant bugs",
	Flags: flag.FlagSet{},
}

// Config returns the configuration the flags currently describe.
func (s *Suite) Config() (Config, error) {
	extra, err := paths.ParseEntries(sensitiveAPIs)
	if err != nil {
		return Config{}, fmt.Errorf("-sensitive-api: %w", err)
	}
	return Config{
		Verbosity:        verbosity,
		ReportLevel:      reportLevel,
		SendSyncVariance: enableSendSync,
		UnsafeDestructor: enableUnsafeDestructor,
		UnsafeDataflow:   enableUnsafeDataflow,
		Policy:           dataflowPolicy,
		ExtraPaths:       extra,
	}, nil
}

// Run analyzes prog with the configuration of the flags.
func (s *Suite) Run(prog ir.Program, logger hclog.Logger) ([]report.Finding, error) {
	cfg, err := s.Config()
	if err != nil {
		return nil, err
	}
	return Run(prog, cfg, logger)
}

// Config selects the checkers of a run and how their output is filtered.
type Config struct {
	Verbosity   logging.Verbosity
	ReportLevel report.Severity

	SendSyncVariance bool
	UnsafeDestructor bool
	UnsafeDataflow   bool

	// Policy decides which calls the dataflow checker treats as
	// overridable.
	Policy unsafedataflow.Policy
	// ExtraPaths extend the built-in sensitive API catalog.
	ExtraPaths []paths.Entry
	// Ignore silences findings on the listed items.
	Ignore []ignore.Entry
}

// DefaultConfig returns the default configuration: every checker but the
// unsafe destructor one, reporting from Info up.
func DefaultConfig() Config {
	return Config{
		Verbosity:        logging.Normal,
		ReportLevel:      report.Info,
		SendSyncVariance: true,
		UnsafeDestructor: false,
		UnsafeDataflow:   true,
		Policy:           unsafedataflow.PolicyGenericSelf,
	}
}

var ErrNoProgram = errors.New("no program to analyze")

// checker is implemented by every detector.
type checker interface {
	Name() report.Checker
	Check(rcx *context.AnalysisContext)
}

// Run analyzes prog and returns the findings at or above
// cfg.ReportLevel. Failures analyzing a single item are logged and never
// abort the run.
func Run(prog ir.Program, cfg Config, logger hclog.Logger) ([]report.Finding, error) {
	if prog == nil {
		return nil, ErrNoProgram
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	catalog := paths.DefaultCatalog()
	if len(cfg.ExtraPaths) > 0 {
		var err error
		if catalog, err = catalog.WithEntries(cfg.ExtraPaths...); err != nil {
			return nil, fmt.Errorf("building sensitive API catalog: %w", err)
		}
	}
	ignores, err := ignore.Build(cfg.Ignore)
	if err != nil {
		return nil, err
	}
	rcx := context.New(prog, cfg.ReportLevel, logger, context.WithCatalog(catalog))

	enabled := make(map[report.Checker]bool)
	for _, c := range enabledCheckers(cfg) {
		enabled[c.Name()] = true
		runAnalysis(rcx, c)
	}
	findings := ignores.Filter(rcx.Findings())

	for _, u := range ignores.Unused(enabled) {
		if len(u.Checkers) == 0 {
			logger.Warn("unused ignore entry", "item", u.Item)
		} else {
			logger.Warn("unused ignore entry", "item", u.Item, "checkers", u.Checkers)
		}
	}
	return findings, nil
}

// enabledCheckers returns the enabled checkers in the order they run.
func enabledCheckers(cfg Config) []checker {
	var checkers []checker
	if cfg.UnsafeDestructor {
		checkers = append(checkers, unsafedestructor.New())
	}
	if cfg.SendSyncVariance {
		checkers = append(checkers, sendsync.New())
	}
	if cfg.UnsafeDataflow {
		checkers = append(checkers, unsafedataflow.New(cfg.Policy))
	}
	return checkers
}

func runAnalysis(rcx *context.AnalysisContext, c checker) {
	logger := rcx.Logger()
	logger.Info(fmt.Sprintf("%s analysis started", c.Name()))
	c.Check(rcx)
	logger.Info(fmt.Sprintf("%s analysis finished", c.Name()))
}
