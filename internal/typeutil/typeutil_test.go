package typeutil_test

import (
	"errors"
	"testing"

	"github.com/mpyw/soundcheck/internal/analysiserr"
	"github.com/mpyw/soundcheck/internal/ir"
	"github.com/mpyw/soundcheck/internal/irload"
	"github.com/mpyw/soundcheck/internal/typeutil"
)

func TestCalleeOf(t *testing.T) {
	const target ir.DefID = 7

	tests := []struct {
		name     string
		expr     *ir.Expr
		want     ir.DefID
		wantKind analysiserr.Kind
		wantErr  bool
	}{
		{
			name: "path callee",
			expr: &ir.Expr{Kind: ir.ExprCall, Fun: &ir.Expr{Kind: ir.ExprPath, Callee: target}},
			want: target,
		},
		{
			name: "resolved through trait",
			expr: &ir.Expr{Kind: ir.ExprCall, Callee: target, Fun: &ir.Expr{Kind: ir.ExprPath, Name: "f"}},
			want: target,
		},
		{
			name: "method call",
			expr: &ir.Expr{Kind: ir.ExprMethodCall, Name: "set_len", Callee: target},
			want: target,
		},
		{
			name: "unresolved method call",
			expr: &ir.Expr{Kind: ir.ExprMethodCall, Name: "set_len"},
			want: ir.NoDef,
		},
		{
			name:     "field callee",
			expr:     &ir.Expr{Kind: ir.ExprCall, Fun: &ir.Expr{Kind: ir.ExprField, Name: "0"}},
			wantKind: analysiserr.OutOfScope,
			wantErr:  true,
		},
		{
			name:     "local callee",
			expr:     &ir.Expr{Kind: ir.ExprCall, Fun: &ir.Expr{Kind: ir.ExprPath, Name: "f"}},
			wantKind: analysiserr.Unimplemented,
			wantErr:  true,
		},
		{
			name:     "computed callee",
			expr:     &ir.Expr{Kind: ir.ExprCall, Fun: &ir.Expr{Kind: ir.ExprCall}},
			wantKind: analysiserr.Unimplemented,
			wantErr:  true,
		},
		{
			name: "not a call",
			expr: &ir.Expr{Kind: ir.ExprLit, Value: "1"},
			want: ir.NoDef,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := typeutil.CalleeOf(tt.expr)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("CalleeOf() = %v, want an error", got)
				}
				if k := analysiserr.KindOf(err); k != tt.wantKind {
					t.Errorf("KindOf() = %v, want %v", k, tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("CalleeOf() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CalleeOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFnUnsafety(t *testing.T) {
	p := irload.NewProgram("demo")
	safe := p.Declare("demo::safe", ir.KindFn, true, ir.Span{})
	p.AddFn(&ir.FnDef{ID: safe, Name: "safe"})
	unsafeFn := p.Declare("demo::raw", ir.KindFn, true, ir.Span{})
	p.AddFn(&ir.FnDef{ID: unsafeFn, Name: "raw", Unsafe: true})

	tests := []struct {
		name    string
		ty      *ir.Ty
		want    bool
		wantErr bool
	}{
		{"safe fn item", &ir.Ty{Kind: ir.TyFnDef, Def: safe}, false, false},
		{"unsafe fn item", &ir.Ty{Kind: ir.TyFnDef, Def: unsafeFn}, true, false},
		{"unsafe fn pointer", &ir.Ty{Kind: ir.TyFnPtr, Unsafe: true}, true, false},
		{"fn pointer", &ir.Ty{Kind: ir.TyFnPtr}, false, false},
		{"closure", &ir.Ty{Kind: ir.TyClosure}, false, false},
		{"unknown fn item", &ir.Ty{Kind: ir.TyFnDef, Def: 999}, false, true},
		{"integer", ir.Prim("u8"), false, true},
		{"missing type", nil, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := typeutil.FnUnsafety(p, tt.ty)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FnUnsafety() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FnUnsafety() = %v, want %v", got, tt.want)
			}
		})
	}

	_, err := typeutil.FnUnsafety(p, ir.Prim("u8"))
	var aerr *analysiserr.Error
	if !errors.As(err, &aerr) || aerr.Kind != analysiserr.Unreachable {
		t.Errorf("non-function type error = %v, want an Unreachable analysis error", err)
	}
}

func TestParamMap(t *testing.T) {
	adt := &ir.AdtDef{Generics: ir.Generics{Params: []ir.GenericParam{{Name: "T"}, {Name: "U"}, {Name: "V"}}}}
	impl := &ir.ImplDef{
		Generics: ir.Generics{Params: []ir.GenericParam{{Name: "A"}, {Name: "B"}}},
		SelfTy:   ir.Adt(1, "Wrapper", ir.Param("A"), ir.Prim("u8"), ir.Adt(2, "Box", ir.Param("B"))),
	}
	got := typeutil.ParamMap(impl, adt)
	if len(got) != 1 || got["T"] != "A" {
		t.Errorf("ParamMap() = %v, want map[T:A]", got)
	}
}

func TestSelfAdt(t *testing.T) {
	p, err := irload.LoadBytes([]byte(`
crate: demo
adts:
  - path: Wrapper
    generics: [T]
    fields: [{name: v, ty: T}]
`))
	if err != nil {
		t.Fatal(err)
	}
	wrapper, _ := p.Lookup("Wrapper")

	if _, err := typeutil.SelfAdt(p, &ir.ImplDef{SelfTy: ir.Adt(wrapper, "Wrapper", ir.Param("T"))}); err != nil {
		t.Errorf("SelfAdt(Wrapper<T>) error = %v", err)
	}
	for _, self := range []*ir.Ty{ir.Param("T"), ir.Ref(ir.Param("T"), false), ir.Adt(999, "Extern")} {
		_, err := typeutil.SelfAdt(p, &ir.ImplDef{SelfTy: self})
		if k := analysiserr.KindOf(err); err == nil || k != analysiserr.OutOfScope {
			t.Errorf("SelfAdt(%s) error = %v, want OutOfScope", self, err)
		}
	}
}
