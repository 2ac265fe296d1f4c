// Package context provides the AnalysisContext shared by every checker of
// one analysis run.
package context

import (
	"github.com/hashicorp/go-hclog"

	"github.com/mpyw/soundcheck/internal/analysiserr"
	"github.com/mpyw/soundcheck/internal/ir"
	"github.com/mpyw/soundcheck/internal/paths"
	"github.com/mpyw/soundcheck/internal/report"
)

type bodyEntry struct {
	body *ir.Body
	err  error
}

// AnalysisContext wraps the front-end query interface with memoized
// lookups and owns the report sink of the run.
//
// It is not safe for concurrent use: checkers run one after another.
type AnalysisContext struct {
	prog        ir.Program
	catalog     *paths.Catalog
	logger      hclog.Logger
	minSeverity report.Severity
	sink        report.Sink

	pathCache  map[ir.DefID]ir.Path
	bodyCache  map[ir.DefID]bodyEntry
	traitCache map[ir.DefID]map[ir.DefID]bool
}

// Option configures an AnalysisContext.
type Option func(*AnalysisContext)

// WithCatalog replaces the default sensitive API catalog.
func WithCatalog(c *paths.Catalog) Option {
	return func(rcx *AnalysisContext) {
		rcx.catalog = c
	}
}

// New creates the context for one compilation unit.
func New(prog ir.Program, minSeverity report.Severity, logger hclog.Logger, opts ...Option) *AnalysisContext {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	rcx := &AnalysisContext{
		prog:        prog,
		logger:      logger,
		minSeverity: minSeverity,
		pathCache:   make(map[ir.DefID]ir.Path),
		bodyCache:   make(map[ir.DefID]bodyEntry),
		traitCache:  make(map[ir.DefID]map[ir.DefID]bool),
	}
	for _, opt := range opts {
		opt(rcx)
	}
	if rcx.catalog == nil {
		rcx.catalog = paths.DefaultCatalog()
	}
	return rcx
}

// Program returns the front-end query interface.
func (rcx *AnalysisContext) Program() ir.Program {
	return rcx.prog
}

// Catalog returns the sensitive API catalog.
func (rcx *AnalysisContext) Catalog() *paths.Catalog {
	return rcx.catalog
}

// Logger returns the run's logger.
func (rcx *AnalysisContext) Logger() hclog.Logger {
	return rcx.logger
}

// MinSeverity returns the report threshold of the run.
func (rcx *AnalysisContext) MinSeverity() report.Severity {
	return rcx.minSeverity
}

// AbsolutePath returns the absolute path of id. The front-end is asked at
// most once per id.
func (rcx *AnalysisContext) AbsolutePath(id ir.DefID) ir.Path {
	if p, ok := rcx.pathCache[id]; ok {
		return p
	}
	p := rcx.prog.DefPath(id)
	rcx.pathCache[id] = p
	return p
}

// MatchDefPath reports whether the absolute path of id equals path.
func (rcx *AnalysisContext) MatchDefPath(id ir.DefID, path string) bool {
	want, err := paths.Parse(path)
	if err != nil {
		return false
	}
	return rcx.AbsolutePath(id).Equal(want)
}

// CatalogGroup looks up the absolute path of id in the catalog.
func (rcx *AnalysisContext) CatalogGroup(id ir.DefID) (paths.Group, bool) {
	if !id.Valid() {
		return paths.NoGroup, false
	}
	return rcx.catalog.Group(rcx.AbsolutePath(id))
}

// TypedBody returns the typed body of id. Items without an executable
// body yield an analysiserr.NoBody error.
func (rcx *AnalysisContext) TypedBody(id ir.DefID) (*ir.Body, error) {
	if e, ok := rcx.bodyCache[id]; ok {
		return e.body, e.err
	}
	var e bodyEntry
	if body, ok := rcx.prog.Body(id); ok && body != nil {
		e.body = body
	} else {
		e.err = analysiserr.NoBody(id)
	}
	rcx.bodyCache[id] = e
	return e.body, e.err
}

// LangItem resolves a language item.
func (rcx *AnalysisContext) LangItem(item ir.LangItem) (ir.DefID, bool) {
	return rcx.prog.LangItem(item)
}

// ImpliedTraits returns trait and every trait it transitively requires.
// The returned map must not be modified.
func (rcx *AnalysisContext) ImpliedTraits(trait ir.DefID) map[ir.DefID]bool {
	if set, ok := rcx.traitCache[trait]; ok {
		return set
	}
	set := make(map[ir.DefID]bool)
	stack := []ir.DefID{trait}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if set[id] {
			continue
		}
		set[id] = true
		if td, ok := rcx.prog.Trait(id); ok {
			stack = append(stack, td.Supertraits...)
		}
	}
	rcx.traitCache[trait] = set
	return set
}

// BoundsImply reports whether any of bounds is, or requires, want.
func (rcx *AnalysisContext) BoundsImply(bounds []ir.DefID, want ir.DefID) bool {
	for _, b := range bounds {
		if rcx.ImpliedTraits(b)[want] {
			return true
		}
	}
	return false
}

// Report hands f to the sink.
func (rcx *AnalysisContext) Report(f report.Finding) {
	rcx.logger.Trace("finding", "checker", f.Checker, "at", f.Span.String())
	rcx.sink.Collect(f)
}

// Findings drains every finding at or above the run's threshold.
func (rcx *AnalysisContext) Findings() []report.Finding {
	return rcx.sink.Drain(rcx.minSeverity)
}

// LogError logs an analysis failure at the level of its kind.
func (rcx *AnalysisContext) LogError(err error, args ...any) {
	analysiserr.Log(rcx.logger, err, args...)
}
