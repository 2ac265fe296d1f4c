package context_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpyw/soundcheck/internal/analysiserr"
	"github.com/mpyw/soundcheck/internal/context"
	"github.com/mpyw/soundcheck/internal/ir"
	"github.com/mpyw/soundcheck/internal/irload"
	"github.com/mpyw/soundcheck/internal/paths"
	"github.com/mpyw/soundcheck/internal/report"
)

// countingProgram counts the expensive front-end queries.
type countingProgram struct {
	*irload.Program
	defPaths map[ir.DefID]int
	bodies   map[ir.DefID]int
}

func newCountingProgram() *countingProgram {
	return &countingProgram{
		Program:  irload.NewProgram("demo"),
		defPaths: make(map[ir.DefID]int),
		bodies:   make(map[ir.DefID]int),
	}
}

func (p *countingProgram) DefPath(id ir.DefID) ir.Path {
	p.defPaths[id]++
	return p.Program.DefPath(id)
}

func (p *countingProgram) Body(id ir.DefID) (*ir.Body, bool) {
	p.bodies[id]++
	return p.Program.Body(id)
}

func TestAbsolutePathMemoized(t *testing.T) {
	prog := newCountingProgram()
	id := prog.Declare("alloc::vec::Vec::set_len", ir.KindFn, false, ir.Span{})
	rcx := context.New(prog, report.Info, nil)

	for i := 0; i < 3; i++ {
		assert.Equal(t, "alloc::vec::Vec::set_len", rcx.AbsolutePath(id).String())
	}
	g, ok := rcx.CatalogGroup(id)
	require.True(t, ok)
	assert.Equal(t, paths.SetLen, g)
	assert.True(t, rcx.MatchDefPath(id, "alloc::vec::Vec::set_len"))
	assert.False(t, rcx.MatchDefPath(id, "alloc::vec::Vec"))

	assert.Equal(t, 1, prog.defPaths[id])
}

func TestTypedBodyMemoized(t *testing.T) {
	prog := newCountingProgram()
	withBody := prog.Declare("demo::run", ir.KindFn, true, ir.Span{})
	prog.SetBody(&ir.Body{Owner: withBody, Value: &ir.Expr{Kind: ir.ExprBlock}})
	without := prog.Declare("demo::Trait::required", ir.KindFn, true, ir.Span{})
	rcx := context.New(prog, report.Info, nil)

	for i := 0; i < 2; i++ {
		body, err := rcx.TypedBody(withBody)
		require.NoError(t, err)
		assert.Equal(t, withBody, body.Owner)

		_, err = rcx.TypedBody(without)
		var ae *analysiserr.Error
		require.True(t, errors.As(err, &ae))
		assert.Equal(t, analysiserr.OutOfScope, ae.Kind)
	}

	assert.Equal(t, 1, prog.bodies[withBody])
	assert.Equal(t, 1, prog.bodies[without])
}

func TestImpliedTraits(t *testing.T) {
	prog := irload.NewProgram("demo")
	rcx := context.New(prog, report.Info, nil)

	copyID, ok := rcx.LangItem(ir.LangCopy)
	require.True(t, ok)
	clone, ok := prog.Lookup("Clone")
	require.True(t, ok)
	ord, _ := prog.Lookup("Ord")
	eq, _ := prog.Lookup("PartialEq")

	assert.True(t, rcx.ImpliedTraits(copyID)[clone])
	assert.True(t, rcx.ImpliedTraits(ord)[eq], "supertraits are closed transitively")
	assert.False(t, rcx.ImpliedTraits(clone)[copyID])

	assert.True(t, rcx.BoundsImply([]ir.DefID{ord, copyID}, clone))
	assert.False(t, rcx.BoundsImply([]ir.DefID{ord}, copyID))
	assert.False(t, rcx.BoundsImply(nil, copyID))
}

func TestFindingsThreshold(t *testing.T) {
	rcx := context.New(irload.NewProgram("demo"), report.Warning, nil)
	rcx.Report(report.Finding{Severity: report.Info, Span: ir.Span{File: "a.rs", Line: 1}})
	rcx.Report(report.Finding{Severity: report.Warning, Span: ir.Span{File: "a.rs", Line: 2}})
	rcx.Report(report.Finding{Severity: report.Error, Span: ir.Span{File: "a.rs", Line: 3}})

	got := rcx.Findings()
	require.Len(t, got, 2)
	assert.Equal(t, report.Error, got[0].Severity)
	assert.Equal(t, report.Warning, got[1].Severity)
	assert.Empty(t, rcx.Findings(), "findings are drained")
}

func TestWithCatalog(t *testing.T) {
	prog := irload.NewProgram("demo")
	id := prog.Declare("demo::poke", ir.KindFn, true, ir.Span{})

	rcx := context.New(prog, report.Info, nil)
	_, ok := rcx.CatalogGroup(id)
	assert.False(t, ok)

	catalog, err := paths.DefaultCatalog().WithEntries(paths.Entry{Path: "demo::poke", Group: paths.RawWrite})
	require.NoError(t, err)
	rcx = context.New(prog, report.Info, nil, context.WithCatalog(catalog))
	g, ok := rcx.CatalogGroup(id)
	assert.True(t, ok)
	assert.Equal(t, paths.RawWrite, g)

	_, ok = rcx.CatalogGroup(ir.NoDef)
	assert.False(t, ok)
}
