package unsafedataflow

import (
	"fmt"

	"github.com/mpyw/soundcheck/internal/ir"
	"github.com/mpyw/soundcheck/internal/typeutil"
)

// Policy decides which calls may run code the analyzed function does not
// control.
type Policy int

const (
	// PolicyGenericSelf treats a trait method as overridable when its Self
	// type is a type parameter, a trait object or an opaque type. Calls
	// through closures, function pointers and generic callables count too.
	PolicyGenericSelf Policy = iota
	// PolicyAnyTrait treats every trait method call as overridable.
	PolicyAnyTrait
)

var policyNames = map[Policy]string{
	PolicyGenericSelf: "generic-self",
	PolicyAnyTrait:    "any-trait",
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParsePolicy parses a policy name.
func ParsePolicy(s string) (Policy, error) {
	for p, name := range policyNames {
		if name == s {
			return p, nil
		}
	}
	return PolicyGenericSelf, fmt.Errorf("unknown dataflow policy %q (want generic-self or any-trait)", s)
}

// Set implements flag.Value.
func (p *Policy) Set(s string) error {
	v, err := ParsePolicy(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	return p.Set(string(text))
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Overridable reports whether the call e may dispatch to code chosen by
// the caller of the analyzed function.
func (p Policy) Overridable(prog ir.Program, e *ir.Expr) bool {
	if !e.IsCall() {
		return false
	}
	if e.Callee.Valid() {
		fn, ok := prog.Fn(e.Callee)
		if !ok || !fn.Parent.Valid() || prog.Kind(fn.Parent) != ir.KindTrait {
			return false
		}
		if p == PolicyAnyTrait {
			return true
		}
		self := e.SelfTy
		if self == nil && e.X != nil {
			self = typeutil.StripRefs(e.X.Ty)
		}
		return isOpen(self)
	}
	// calls through a local
	if e.Kind == ir.ExprCall && e.Fun != nil && e.Fun.Kind == ir.ExprPath {
		ty := typeutil.StripRefs(e.Fun.Ty)
		if ty == nil {
			return false
		}
		switch ty.Kind {
		case ir.TyClosure, ir.TyFnPtr:
			return true
		}
		return isOpen(ty)
	}
	return false
}

func isOpen(t *ir.Ty) bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case ir.TyParam, ir.TyDyn, ir.TyOpaque:
		return true
	}
	return false
}
