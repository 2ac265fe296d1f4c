// Package sendsync checks manual Send and Sync impls against the way the
// implementing type uses its generic parameters.
package sendsync

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/mpyw/soundcheck/internal/context"
	"github.com/mpyw/soundcheck/internal/ir"
	"github.com/mpyw/soundcheck/internal/paths"
	"github.com/mpyw/soundcheck/internal/report"
	"github.com/mpyw/soundcheck/internal/typeutil"
)

// Checker flags Send and Sync impls that do not bound a generic parameter
// by what the type's fields need.
type Checker struct{}

// New creates a new Send/Sync variance checker.
func New() *Checker {
	return &Checker{}
}

// Name returns the checker name.
func (*Checker) Name() report.Checker {
	return report.SendSyncVariance
}

// requirement is what a type parameter must implement for the impl to
// hold.
type requirement struct {
	send bool
	sync bool
	// extraSend marks a Send requirement that comes only from untracked
	// shared mutability on top of Sync.
	extraSend bool
	// field is the first field that gives rise to the requirement.
	field *ir.Field
}

func (r requirement) merge(o requirement) requirement {
	r.send = r.send || o.send
	r.sync = r.sync || o.sync
	r.extraSend = r.extraSend || o.extraSend
	return r
}

type markers struct {
	send, sync ir.DefID
}

// Check inspects every trait impl of the program.
func (c *Checker) Check(rcx *context.AnalysisContext) {
	logger := rcx.Logger().Named("send_sync_variance")
	prog := rcx.Program()

	var m markers
	var okSend, okSync bool
	m.send, okSend = rcx.LangItem(ir.LangSend)
	m.sync, okSync = rcx.LangItem(ir.LangSync)
	if !okSend || !okSync {
		logger.Debug("Send or Sync lang item missing, nothing to check")
		return
	}

	for _, id := range prog.Items() {
		if prog.Kind(id) != ir.KindImpl {
			continue
		}
		impl, ok := prog.Impl(id)
		if !ok || !impl.IsTraitImpl() {
			continue
		}
		if impl.Trait != m.send && impl.Trait != m.sync {
			continue
		}
		c.checkImpl(rcx, logger, m, impl)
	}
}

func (c *Checker) checkImpl(rcx *context.AnalysisContext, logger hclog.Logger, m markers, impl *ir.ImplDef) {
	prog := rcx.Program()
	path := rcx.AbsolutePath(impl.ID).String()
	isSync := impl.Trait == m.sync

	switch {
	case impl.Negative:
		logger.Trace("skipping negative impl", "impl", path)
		return
	case impl.Synthetic:
		logger.Trace("skipping synthetic impl", "impl", path)
		return
	case impl.Generics.Len() == 0:
		logger.Trace("skipping impl without generic parameters", "impl", path)
		return
	}

	adt, err := typeutil.SelfAdt(prog, impl)
	if err != nil {
		rcx.LogError(err, "impl", path)
		return
	}

	needs := naturalRequirements(rcx, adt, isSync)
	params := typeutil.ParamMap(impl, adt)

	var (
		violations   []string
		related      []report.Related
		missesMarker bool
	)
	for _, p := range adt.Generics.Params {
		implParam, ok := params[p.Name]
		if !ok {
			continue
		}
		req, ok := needs[p.Name]
		if !ok {
			continue
		}
		bounds := impl.Generics.BoundsOf(implParam)

		var missing []string
		if isSync && req.sync && !rcx.BoundsImply(bounds, m.sync) {
			missing = append(missing, "Sync")
			missesMarker = true
		}
		if (req.send || req.extraSend) && !rcx.BoundsImply(bounds, m.send) {
			missing = append(missing, "Send")
			if req.send {
				missesMarker = true
			}
		}
		if len(missing) == 0 {
			continue
		}

		violations = append(violations, fmt.Sprintf("`%s: %s`", implParam, strings.Join(missing, " + ")))
		if req.field != nil && req.field.Span.IsValid() {
			related = append(related, report.Related{
				Span:  req.field.Span,
				Label: fmt.Sprintf("field `%s` holds `%s`", req.field.Name, p.Name),
			})
		}
	}
	if len(violations) == 0 {
		return
	}

	marker := "Send"
	if isSync {
		marker = "Sync"
	}
	severity := report.Warning
	if missesMarker {
		severity = report.Error
	}
	rcx.Report(report.Finding{
		Checker:  report.SendSyncVariance,
		Severity: severity,
		Message: fmt.Sprintf("impl of `%s` for `%s` does not require %s",
			marker, impl.SelfTy, strings.Join(violations, ", ")),
		Span:    prog.Span(impl.ID),
		Item:    path,
		Related: related,
	})
}

// naturalRequirements computes, for each parameter of adt, the bounds its
// use in the fields calls for. Parameters used only through PhantomData
// need nothing.
func naturalRequirements(rcx *context.AnalysisContext, adt *ir.AdtDef, isSync bool) map[string]requirement {
	prog := rcx.Program()
	needs := make(map[string]requirement)

	fields := adt.AllFields()
	for i := range fields {
		f := &fields[i]
		for _, p := range adt.Generics.Params {
			if !mentions(prog, f.Ty, p.Name) {
				continue
			}
			req := needs[p.Name]
			if req.field == nil {
				req.field = f
			}
			if isSync {
				req = req.merge(syncRequirement(rcx, f.Ty, p.Name))
			} else {
				req.send = true
			}
			needs[p.Name] = req
		}
	}
	return needs
}

// mentions reports whether ty uses the parameter name outside of
// PhantomData.
func mentions(prog ir.Program, ty *ir.Ty, name string) bool {
	found := false
	ty.Walk(func(t *ir.Ty) bool {
		if found || typeutil.IsLangAdt(prog, t, ir.LangPhantomData) {
			return false
		}
		if t.IsParam() && t.Name == name {
			found = true
		}
		return !found
	})
	return found
}

// syncRequirement returns what the occurrences of name in ty call for
// so that ty can be shared between threads. A plain occurrence needs
// Sync. Inside an exclusive lock only Send is needed, inside a shared
// lock both. Untracked shared mutability adds Send on top of Sync.
func syncRequirement(rcx *context.AnalysisContext, ty *ir.Ty, name string) requirement {
	prog := rcx.Program()
	var req requirement
	switch {
	case ty == nil:
		return req
	case ty.IsParam():
		req.sync = ty.Name == name
		return req
	case ty.Kind == ir.TyAdt && typeutil.IsLangAdt(prog, ty, ir.LangPhantomData):
		return req
	case ty.Kind == ir.TyAdt:
		group, _ := rcx.CatalogGroup(ty.Def)
		if typeutil.IsLangAdt(prog, ty, ir.LangUnsafeCell) {
			group = paths.SharedMutability
		}
		if group == paths.ExclusiveLock || group == paths.SharedLock || group == paths.SharedMutability {
			held := false
			for _, arg := range ty.Args {
				held = held || mentions(prog, arg, name)
			}
			if !held {
				return req
			}
			switch group {
			case paths.ExclusiveLock:
				req.send = true
			case paths.SharedLock:
				req.send, req.sync = true, true
			default:
				req.sync, req.extraSend = true, true
			}
			return req
		}
	}
	for _, arg := range ty.Args {
		req = req.merge(syncRequirement(rcx, arg, name))
	}
	return req
}
