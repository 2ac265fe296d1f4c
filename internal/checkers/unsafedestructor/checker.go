// Package unsafedestructor checks Drop impls whose unsafe code relies on
// properties of a generic parameter that nothing guarantees.
package unsafedestructor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/mpyw/soundcheck/internal/analysiserr"
	"github.com/mpyw/soundcheck/internal/context"
	"github.com/mpyw/soundcheck/internal/ir"
	"github.com/mpyw/soundcheck/internal/paths"
	"github.com/mpyw/soundcheck/internal/report"
	"github.com/mpyw/soundcheck/internal/typeutil"
)

// sensitive are the catalog groups that count as unsafe operations in a
// destructor.
var sensitive = []paths.Group{
	paths.Dealloc,
	paths.DropInPlace,
	paths.InitState,
	paths.RawRead,
}

// Checker flags destructors performing unsafe operations on values of an
// unbounded generic parameter.
type Checker struct{}

// New creates a new unsafe destructor checker.
func New() *Checker {
	return &Checker{}
}

// Name returns the checker name.
func (*Checker) Name() report.Checker {
	return report.UnsafeDestructor
}

// operation is an unsafe operation found in a destructor body.
type operation struct {
	expr  *ir.Expr
	label string
}

// Check inspects every Drop impl of the program.
func (c *Checker) Check(rcx *context.AnalysisContext) {
	logger := rcx.Logger().Named("unsafe_destructor")
	prog := rcx.Program()

	drop, ok := rcx.LangItem(ir.LangDrop)
	if !ok {
		logger.Debug("Drop lang item missing, nothing to check")
		return
	}

	for _, id := range prog.Items() {
		if prog.Kind(id) != ir.KindImpl {
			continue
		}
		impl, ok := prog.Impl(id)
		if !ok || impl.Trait != drop {
			continue
		}
		c.checkImpl(rcx, logger, impl)
	}
}

func (c *Checker) checkImpl(rcx *context.AnalysisContext, logger hclog.Logger, impl *ir.ImplDef) {
	prog := rcx.Program()
	path := rcx.AbsolutePath(impl.ID).String()

	adt, err := typeutil.SelfAdt(prog, impl)
	if err != nil {
		rcx.LogError(err, "impl", path)
		return
	}

	dropFn, ok := destructor(prog, impl)
	if !ok {
		rcx.LogError(analysiserr.UnexpectedShape("destructor", "Drop impl without drop method"), "impl", path)
		return
	}
	body, err := rcx.TypedBody(dropFn.ID)
	if err != nil {
		rcx.LogError(err, "impl", path)
		return
	}

	// Phase 1
	ops, err := unsafeOperations(rcx, body, dropFn.Unsafe)
	if err != nil {
		rcx.LogError(err, "impl", path)
		return
	}
	if len(ops) == 0 {
		logger.Trace("destructor has no unsafe operations", "impl", path)
		return
	}

	// Phase 2
	unguarded := unguardedParams(rcx, impl, adt)
	if len(unguarded) == 0 {
		return
	}
	var (
		related []report.Related
		used    = make(map[string]bool)
	)
	for _, op := range ops {
		hit := false
		for _, ty := range typeutil.TouchedTypes(op.expr) {
			for _, name := range ty.Params() {
				if adtParam, ok := unguarded[name]; ok {
					used[adtParam] = true
					hit = true
				}
			}
		}
		if hit {
			related = append(related, report.Related{Span: op.expr.Span, Label: op.label})
		}
	}
	if len(related) == 0 {
		return
	}

	names := make([]string, 0, len(used))
	for name := range used {
		names = append(names, "`"+name+"`")
	}
	sort.Strings(names)

	span := prog.Span(dropFn.ID)
	if !span.IsValid() {
		span = prog.Span(impl.ID)
	}
	rcx.Report(report.Finding{
		Checker:  report.UnsafeDestructor,
		Severity: report.Warning,
		Message: fmt.Sprintf("destructor of `%s` performs unsafe operations on generic %s without a `Copy` bound",
			impl.SelfTy, strings.Join(names, ", ")),
		Span:    span,
		Item:    path,
		Related: related,
	})
}

// destructor returns the drop method of impl.
func destructor(prog ir.Program, impl *ir.ImplDef) (*ir.FnDef, bool) {
	for _, id := range impl.Items {
		if fn, ok := prog.Fn(id); ok && fn.Name == "drop" {
			return fn, true
		}
	}
	return nil, false
}

// unsafeOperations collects the raw pointer dereferences, sensitive calls
// and unsafe function calls made in an unsafe context. Call shapes that
// are not modeled are logged and skipped; an Unreachable failure abandons
// the body and is returned.
func unsafeOperations(rcx *context.AnalysisContext, body *ir.Body, unsafeFn bool) ([]operation, error) {
	prog := rcx.Program()
	var (
		ops       []operation
		abandoned error
	)
	// fail reports whether err ends the traversal.
	fail := func(err error, n *ir.Expr) bool {
		if analysiserr.KindOf(err) == analysiserr.Unreachable {
			abandoned = err
			return true
		}
		rcx.LogError(err, "at", n.Span.String())
		return false
	}

	ir.WithStack(body.Value, func(n *ir.Expr, push bool, stack []*ir.Expr) bool {
		if !push || abandoned != nil {
			return false
		}
		if !unsafeFn && !inUnsafe(stack) {
			return true
		}
		switch {
		case n.Kind == ir.ExprUnary && n.Op == "*" && n.X != nil && n.X.Ty.IsRawPtr():
			ops = append(ops, operation{expr: n, label: "dereference of raw pointer `" + n.X.Ty.String() + "`"})
		case n.IsCall():
			callee, err := typeutil.CalleeOf(n)
			if err != nil && fail(err, n) {
				return false
			}
			if callee.Valid() && rcx.Catalog().InGroup(rcx.AbsolutePath(callee), sensitive...) {
				ops = append(ops, operation{expr: n, label: "call to `" + rcx.AbsolutePath(callee).String() + "`"})
				return true
			}
			isUnsafe, err := typeutil.CallsUnsafeFn(prog, n)
			if err != nil {
				return !fail(err, n)
			}
			if isUnsafe {
				label := "call to unsafe function"
				if callee.Valid() {
					label = "call to unsafe `" + rcx.AbsolutePath(callee).String() + "`"
				}
				ops = append(ops, operation{expr: n, label: label})
			}
		}
		return true
	})
	if abandoned != nil {
		return nil, abandoned
	}
	return ops, nil
}

func inUnsafe(stack []*ir.Expr) bool {
	for _, e := range stack {
		if e.Kind == ir.ExprBlock && e.Unsafe {
			return true
		}
	}
	return false
}

// unguardedParams maps each impl parameter standing for an ADT parameter
// without a Copy bound to the name of that ADT parameter. may_dangle
// does not establish anything and is ignored.
func unguardedParams(rcx *context.AnalysisContext, impl *ir.ImplDef, adt *ir.AdtDef) map[string]string {
	out := make(map[string]string)
	cp, ok := rcx.LangItem(ir.LangCopy)
	for adtParam, implParam := range typeutil.ParamMap(impl, adt) {
		bounds := append(adt.Generics.BoundsOf(adtParam), impl.Generics.BoundsOf(implParam)...)
		if ok && rcx.BoundsImply(bounds, cp) {
			continue
		}
		out[implParam] = adtParam
	}
	return out
}
