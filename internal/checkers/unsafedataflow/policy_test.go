package unsafedataflow_test

import (
	"testing"

	"github.com/mpyw/soundcheck/internal/checkers/unsafedataflow"
	"github.com/mpyw/soundcheck/internal/ir"
	"github.com/mpyw/soundcheck/internal/irload"
)

func TestParsePolicy(t *testing.T) {
	for _, p := range []unsafedataflow.Policy{unsafedataflow.PolicyGenericSelf, unsafedataflow.PolicyAnyTrait} {
		got, err := unsafedataflow.ParsePolicy(p.String())
		if err != nil || got != p {
			t.Errorf("ParsePolicy(%q) = %v, %v", p, got, err)
		}
	}
	if _, err := unsafedataflow.ParsePolicy("all"); err == nil {
		t.Error("ParsePolicy(all) succeeded")
	}
}

func TestOverridable(t *testing.T) {
	prog := irload.NewProgram("demo")
	trait := prog.Declare("demo::Process", ir.KindTrait, true, ir.Span{})
	method := prog.Declare("demo::Process::process", ir.KindFn, true, ir.Span{})
	prog.AddFn(&ir.FnDef{ID: method, Parent: trait})
	free := prog.Declare("demo::helper", ir.KindFn, true, ir.Span{})
	prog.AddFn(&ir.FnDef{ID: free})

	buf := prog.Declare("demo::Buf", ir.KindStruct, true, ir.Span{})
	concrete := ir.Adt(buf, "Buf")

	traitCall := func(self *ir.Ty) *ir.Expr {
		return &ir.Expr{Kind: ir.ExprMethodCall, Name: "process", Callee: method, SelfTy: self}
	}
	localCall := func(ty *ir.Ty) *ir.Expr {
		return &ir.Expr{Kind: ir.ExprCall, Fun: &ir.Expr{Kind: ir.ExprPath, Name: "f", Ty: ty}}
	}

	tests := []struct {
		name     string
		call     *ir.Expr
		generic  bool
		anyTrait bool
	}{
		{"generic self", traitCall(ir.Param("P")), true, true},
		{"trait object", traitCall(&ir.Ty{Kind: ir.TyDyn, Name: "Process"}), true, true},
		{"concrete self", traitCall(concrete), false, true},
		{"self from receiver", &ir.Expr{
			Kind: ir.ExprMethodCall, Callee: method,
			X: &ir.Expr{Kind: ir.ExprPath, Name: "p", Ty: ir.Ref(ir.Param("P"), true)},
		}, true, true},
		{"free function", &ir.Expr{Kind: ir.ExprCall, Callee: free}, false, false},
		{"closure local", localCall(&ir.Ty{Kind: ir.TyClosure}), true, true},
		{"fn pointer local", localCall(&ir.Ty{Kind: ir.TyFnPtr}), true, true},
		{"generic callable", localCall(ir.Ref(ir.Param("F"), false)), true, true},
		{"untyped local", localCall(nil), false, false},
		{"not a call", &ir.Expr{Kind: ir.ExprPath, Name: "f"}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := unsafedataflow.PolicyGenericSelf.Overridable(prog, tt.call); got != tt.generic {
				t.Errorf("generic-self: got %v, want %v", got, tt.generic)
			}
			if got := unsafedataflow.PolicyAnyTrait.Overridable(prog, tt.call); got != tt.anyTrait {
				t.Errorf("any-trait: got %v, want %v", got, tt.anyTrait)
			}
		})
	}
}
