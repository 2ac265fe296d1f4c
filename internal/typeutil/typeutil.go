package typeutil

import (
	"fmt"

	"github.com/mpyw/soundcheck/internal/analysiserr"
	"github.com/mpyw/soundcheck/internal/ir"
)

// CalleeOf returns the function e calls. Method calls the front-end could
// not resolve and non-call expressions yield NoDef without an error.
func CalleeOf(e *ir.Expr) (ir.DefID, error) {
	switch e.Kind {
	case ir.ExprCall:
		if e.Callee.Valid() {
			return e.Callee, nil
		}
		if e.Fun == nil {
			return ir.NoDef, analysiserr.UnhandledCall("call without callee")
		}
		switch e.Fun.Kind {
		case ir.ExprPath:
			if e.Fun.Callee.Valid() {
				return e.Fun.Callee, nil
			}
			return ir.NoDef, analysiserr.UnhandledCall(fmt.Sprintf("call through local %q", e.Fun.Name))
		case ir.ExprField:
			// (self.f)(x)
			return ir.NoDef, analysiserr.UnsupportedCall(fmt.Sprintf("call through field %q", e.Fun.Name))
		default:
			return ir.NoDef, analysiserr.UnhandledCall(fmt.Sprintf("call through %s expression", e.Fun.Kind))
		}
	case ir.ExprMethodCall:
		return e.Callee, nil
	default:
		return ir.NoDef, nil
	}
}

// FnUnsafety reports whether calling a value of type ty needs an unsafe
// context.
func FnUnsafety(prog ir.Program, ty *ir.Ty) (bool, error) {
	if ty == nil {
		return false, analysiserr.NonFunctionType(ty)
	}
	switch ty.Kind {
	case ir.TyFnDef:
		fn, ok := prog.Fn(ty.Def)
		if !ok {
			return false, analysiserr.InvalidOwner(ty.Def)
		}
		return fn.Unsafe, nil
	case ir.TyFnPtr:
		return ty.Unsafe, nil
	case ir.TyClosure:
		return false, nil
	default:
		return false, analysiserr.NonFunctionType(ty)
	}
}

// CallsUnsafeFn reports whether the call e invokes a function declared
// unsafe.
func CallsUnsafeFn(prog ir.Program, e *ir.Expr) (bool, error) {
	if !e.IsCall() {
		return false, nil
	}
	if e.Callee.Valid() {
		fn, ok := prog.Fn(e.Callee)
		return ok && fn.Unsafe, nil
	}
	if e.Kind == ir.ExprCall && e.Fun != nil && e.Fun.Ty != nil {
		return FnUnsafety(prog, e.Fun.Ty)
	}
	return false, nil
}

// StripRefs removes every level of reference from t.
func StripRefs(t *ir.Ty) *ir.Ty {
	for t != nil && t.Kind == ir.TyRef {
		t = t.Elem()
	}
	return t
}

// IsLangAdt reports whether t is the ADT bound to the language item.
func IsLangAdt(prog ir.Program, t *ir.Ty, item ir.LangItem) bool {
	if t == nil || t.Kind != ir.TyAdt {
		return false
	}
	id, ok := prog.LangItem(item)
	return ok && t.Def == id
}

// SelfAdt returns the ADT an impl is written for. Blanket impls and impls
// for non-ADT types are out of scope.
func SelfAdt(prog ir.Program, impl *ir.ImplDef) (*ir.AdtDef, error) {
	self := impl.SelfTy
	switch {
	case self == nil:
		return nil, analysiserr.UnexpectedShape("self_adt", fmt.Sprintf("impl %s has no self type", impl.ID))
	case self.IsParam():
		return nil, analysiserr.Unsupported("self_adt", fmt.Sprintf("blanket impl for %s", self))
	case self.Kind != ir.TyAdt:
		return nil, analysiserr.Unsupported("self_adt", fmt.Sprintf("impl for non-ADT type %s", self))
	}
	adt, ok := prog.Adt(self.Def)
	if !ok {
		return nil, analysiserr.Unsupported("self_adt", fmt.Sprintf("definition of %s is not available", self))
	}
	return adt, nil
}

// ParamMap maps each ADT parameter to the impl parameter written in its
// place in the impl's self type. Parameters instantiated with anything
// other than a bare impl parameter are left out.
func ParamMap(impl *ir.ImplDef, adt *ir.AdtDef) map[string]string {
	m := make(map[string]string)
	if impl.SelfTy == nil {
		return m
	}
	for i, arg := range impl.SelfTy.Args {
		if i >= len(adt.Generics.Params) {
			break
		}
		if arg.IsParam() && impl.Generics.Index(arg.Name) >= 0 {
			m[adt.Generics.Params[i].Name] = arg.Name
		}
	}
	return m
}

// TouchedTypes returns the types an operation works on: the pointee of a
// dereference, or the generic arguments, Self type, receiver and argument
// types of a call.
func TouchedTypes(e *ir.Expr) []*ir.Ty {
	var out []*ir.Ty
	add := func(t *ir.Ty) {
		if t != nil {
			out = append(out, t)
		}
	}
	switch e.Kind {
	case ir.ExprUnary:
		if e.X != nil {
			add(e.X.Ty.Elem())
		}
		add(e.Ty)
	case ir.ExprCall, ir.ExprMethodCall:
		for _, arg := range e.CalleeArgs {
			add(arg)
		}
		add(e.SelfTy)
		if e.X != nil {
			add(e.X.Ty)
		}
		for _, arg := range e.Args {
			add(arg.Ty)
		}
	}
	return out
}
