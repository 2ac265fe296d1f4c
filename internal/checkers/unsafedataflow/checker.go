// Package unsafedataflow checks for unsafe operations whose precondition
// can be invalidated by a caller-supplied call made after it was
// established.
package unsafedataflow

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/mpyw/soundcheck/internal/context"
	"github.com/mpyw/soundcheck/internal/ir"
	"github.com/mpyw/soundcheck/internal/paths"
	"github.com/mpyw/soundcheck/internal/report"
	"github.com/mpyw/soundcheck/internal/typeutil"
)

// sinkGroups are the catalog groups of the operations the checker guards,
// mapped to the severity of a finding on them.
var sinkGroups = map[paths.Group]report.Severity{
	paths.SetLen:         report.Error,
	paths.RawWrite:       report.Error,
	paths.RawCopy:        report.Error,
	paths.FromRawParts:   report.Error,
	paths.RawRead:        report.Warning,
	paths.UncheckedIndex: report.Warning,
	paths.Transmute:      report.Warning,
	paths.PtrAsRef:       report.Warning,
}

// Checker flags higher-order invariant violations in externally
// reachable functions.
type Checker struct {
	policy Policy
}

// New creates a new unsafe dataflow checker.
func New(policy Policy) *Checker {
	return &Checker{policy: policy}
}

// Name returns the checker name.
func (*Checker) Name() report.Checker {
	return report.UnsafeDataflow
}

// Check inspects every reachable function with a body.
func (c *Checker) Check(rcx *context.AnalysisContext) {
	logger := rcx.Logger().Named("unsafe_dataflow")
	prog := rcx.Program()

	for _, id := range prog.Items() {
		if prog.Kind(id) != ir.KindFn {
			continue
		}
		fn, ok := prog.Fn(id)
		if !ok || !fn.Reachable {
			continue
		}
		body, err := rcx.TypedBody(id)
		if err != nil {
			rcx.LogError(err, "fn", rcx.AbsolutePath(id).String())
			continue
		}
		c.checkBody(rcx, logger, fn, body)
	}
}

// level is one statement list enclosing a sink, with the index of the
// statement that contains it.
type level struct {
	block *ir.Expr
	index int
}

// definition is a statement that sets a local the sink depends on. at
// indexes the statements preceding the sink in program order.
type definition struct {
	at    int
	name  string
	value *ir.Expr
}

func (c *Checker) checkBody(rcx *context.AnalysisContext, logger hclog.Logger, fn *ir.FnDef, body *ir.Body) {
	path := rcx.AbsolutePath(fn.ID).String()

	ir.WithStack(body.Value, func(n *ir.Expr, push bool, stack []*ir.Expr) bool {
		if !push || !n.IsCall() {
			return true
		}
		callee, err := typeutil.CalleeOf(n)
		if err != nil {
			rcx.LogError(err, "fn", path, "at", n.Span.String())
			return true
		}
		if !callee.Valid() {
			return true
		}
		group, ok := rcx.CatalogGroup(callee)
		if !ok {
			return true
		}
		severity, ok := sinkGroups[group]
		if !ok {
			return true
		}

		stmts := preceding(scopeChain(stack))
		defs := precondition(stmts, ir.Locals(n))
		if len(defs) == 0 {
			logger.Trace("sink has no local precondition", "fn", path, "at", n.Span.String())
			return true
		}
		call, pre := c.interceding(rcx.Program(), stmts, defs)
		if call == nil {
			return true
		}

		sinkPath := rcx.AbsolutePath(callee).String()
		rcx.Report(report.Finding{
			Checker:  report.UnsafeDataflow,
			Severity: severity,
			Message: fmt.Sprintf("`%s` relies on a precondition established before a call to %s, which may invalidate it",
				sinkPath, describe(rcx, call)),
			Span: n.Span,
			Item: path,
			Related: []report.Related{
				{Span: call.Span, Label: "overridable call " + describe(rcx, call)},
				{Span: stmts[pre.at].Span, Label: "precondition established here"},
			},
		})
		return true
	})
}

// scopeChain returns the statement lists enclosing the last node of stack,
// innermost first.
func scopeChain(stack []*ir.Expr) []level {
	var chain []level
	for i := len(stack) - 2; i >= 0; i-- {
		block := stack[i]
		if block.Kind != ir.ExprBlock {
			continue
		}
		child := stack[i+1]
		for j, stmt := range block.Stmts {
			if stmt == child {
				chain = append(chain, level{block: block, index: j})
				break
			}
		}
	}
	return chain
}

// preceding flattens the statements before the sink in program order,
// outermost scope first.
func preceding(chain []level) []*ir.Expr {
	var stmts []*ir.Expr
	for li := len(chain) - 1; li >= 0; li-- {
		lv := chain[li]
		stmts = append(stmts, lv.block.Stmts[:lv.index]...)
	}
	return stmts
}

// precondition walks back from the sink and returns, latest first, the
// nearest definition of every local the sink reads, closed over the
// locals those definitions read in turn. A compound or partial
// assignment keeps the earlier definition relevant.
func precondition(stmts []*ir.Expr, locals []string) []definition {
	pending := make(map[string]bool, len(locals))
	for _, name := range locals {
		pending[name] = true
	}

	var defs []definition
	for i := len(stmts) - 1; i >= 0; i-- {
		name, value, whole := defines(stmts[i])
		if name == "" || !pending[name] {
			continue
		}
		if whole {
			delete(pending, name)
		}
		for _, dep := range ir.Locals(value) {
			pending[dep] = true
		}
		defs = append(defs, definition{at: i, name: name, value: value})
	}
	return defs
}

// defines returns the local a let or assignment statement defines, the
// expression it is defined from, and whether the statement replaces the
// whole value.
func defines(stmt *ir.Expr) (string, *ir.Expr, bool) {
	switch stmt.Kind {
	case ir.ExprLet:
		return stmt.Name, stmt.X, true
	case ir.ExprAssign:
		whole := stmt.X != nil && stmt.X.Kind == ir.ExprPath && (stmt.Op == "" || stmt.Op == "=")
		return rootLocal(stmt.X), stmt.Y, whole
	}
	return "", nil, false
}

// rootLocal returns the local a place expression such as a.b[i] or *p is
// rooted at.
func rootLocal(e *ir.Expr) string {
	for e != nil {
		switch e.Kind {
		case ir.ExprPath:
			if e.Callee.Valid() {
				return ""
			}
			return e.Name
		case ir.ExprField, ir.ExprIndex, ir.ExprUnary:
			e = e.X
		default:
			return ""
		}
	}
	return ""
}

// interceding returns the first overridable call made after part of the
// precondition was established that reads what it was computed from, or
// that computes a later part of it. The second result is the earliest
// definition preceding the call.
func (c *Checker) interceding(prog ir.Program, stmts []*ir.Expr, defs []definition) (*ir.Expr, definition) {
	at := make(map[int]definition, len(defs))
	for _, d := range defs {
		at[d.at] = d
	}
	first := defs[len(defs)-1]

	deps := make(map[string]bool)
	for i := first.at; i < len(stmts); i++ {
		def, isDef := at[i]
		if len(deps) > 0 {
			if call := c.overlappingCall(prog, stmts[i], deps, def, isDef); call != nil {
				return call, first
			}
		}
		if isDef {
			deps[def.name] = true
			for _, name := range ir.Locals(def.value) {
				deps[name] = true
			}
		}
	}
	return nil, definition{}
}

func (c *Checker) overlappingCall(prog ir.Program, stmt *ir.Expr, deps map[string]bool, def definition, isDef bool) *ir.Expr {
	var found *ir.Expr
	ir.Inspect(stmt, func(n *ir.Expr) bool {
		if found != nil {
			return false
		}
		if !n.IsCall() || !c.policy.Overridable(prog, n) {
			return true
		}
		if touches(n, deps) || (isDef && contains(def.value, n)) {
			found = n
			return false
		}
		return true
	})
	return found
}

// touches reports whether the receiver, callee or arguments of call read
// a dependency.
func touches(call *ir.Expr, deps map[string]bool) bool {
	operands := append([]*ir.Expr{call.X, call.Fun}, call.Args...)
	for _, op := range operands {
		if op == nil {
			continue
		}
		for _, name := range ir.Locals(op) {
			if deps[name] {
				return true
			}
		}
	}
	return false
}

func contains(root, target *ir.Expr) bool {
	found := false
	ir.Inspect(root, func(n *ir.Expr) bool {
		if n == target {
			found = true
		}
		return !found
	})
	return found
}

func describe(rcx *context.AnalysisContext, call *ir.Expr) string {
	if call.Callee.Valid() {
		return "`" + rcx.AbsolutePath(call.Callee).String() + "`"
	}
	if call.Fun != nil && call.Fun.Name != "" {
		return "`" + call.Fun.Name + "`"
	}
	return "a caller-supplied function"
}
