package irload_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpyw/soundcheck/internal/ir"
	"github.com/mpyw/soundcheck/internal/irload"
)

const wrapperDump = `
crate: demo
file: lib.rs
adts:
  - path: Wrapper
    at: "3:1"
    generics: ["T", "#[may_dangle] U: Clone"]
    fields:
      - {name: ptr, ty: "*mut T"}
      - {name: marker, ty: "PhantomData<U>"}
impls:
  - trait: Send
    self: Wrapper<T, U>
    generics: ["T", "U"]
    where: ["T: Sync", "Wrapper<T, U>: Clone"]
    unsafe: true
    at: "10:1"
  - self: Wrapper<T, U>
    generics: ["T", "U"]
    fns:
      - path: get
        pub: true
        params: [{name: self, ty: "&Self"}]
        ret: "*mut T"
        body:
          - field: ptr
            of: {path: self}
fns:
  - path: make
    at: "20:1"
    generics: ["T: Default + Send"]
    params: [{name: w, ty: "Wrapper<T, u8>"}]
    body:
      - let: p
        init: {method: get, recv: {path: w}, callee: "demo::<impl Wrapper<T, U>>::get"}
      - unsafe:
          - call: core::ptr::read
            args: [{path: p}]
            at: "22:9"
`

func TestLink(t *testing.T) {
	p, err := irload.LoadBytes([]byte(wrapperDump))
	require.NoError(t, err)
	assert.Equal(t, "demo", p.Crate())

	wrapper, ok := p.Lookup("demo::Wrapper")
	require.True(t, ok)
	assert.Equal(t, ir.KindStruct, p.Kind(wrapper))
	assert.Equal(t, ir.Span{File: "lib.rs", Line: 3, Col: 1}, p.Span(wrapper))

	adt, ok := p.Adt(wrapper)
	require.True(t, ok)
	require.Equal(t, 2, adt.Generics.Len())
	assert.True(t, adt.Generics.Params[1].MayDangle)
	fields := adt.AllFields()
	require.Len(t, fields, 2)
	assert.Equal(t, "*mut T", fields[0].Ty.String())
	assert.Equal(t, ir.TyRawPtr, fields[0].Ty.Kind)

	phantom, _ := p.LangItem(ir.LangPhantomData)
	assert.Equal(t, phantom, fields[1].Ty.Def)

	var impls []*ir.ImplDef
	for _, id := range p.Items() {
		if impl, ok := p.Impl(id); ok {
			impls = append(impls, impl)
		}
	}
	require.Len(t, impls, 2)

	send, _ := p.LangItem(ir.LangSend)
	sync, _ := p.LangItem(ir.LangSync)
	assert.Equal(t, send, impls[0].Trait)
	assert.True(t, impls[0].Unsafe)
	assert.Equal(t, wrapper, impls[0].SelfTy.Def)
	assert.Equal(t, []ir.DefID{sync}, impls[0].Generics.BoundsOf("T"))
	require.Len(t, impls[0].Generics.Predicates, 2)
	assert.Equal(t, "Wrapper<T, U>", impls[0].Generics.Predicates[1].Ty.String())

	assert.False(t, impls[1].IsTraitImpl())
	require.Len(t, impls[1].Items, 1)
	get, ok := p.Fn(impls[1].Items[0])
	require.True(t, ok)
	assert.Equal(t, impls[1].ID, get.Parent)
	assert.True(t, get.Reachable)
	assert.Equal(t, "&Wrapper<T, U>", get.Inputs[0].String())
}

func TestLinkBodies(t *testing.T) {
	p, err := irload.LoadBytes([]byte(wrapperDump))
	require.NoError(t, err)

	mk, ok := p.Lookup("demo::make")
	require.True(t, ok)
	fn, ok := p.Fn(mk)
	require.True(t, ok)
	assert.False(t, fn.Reachable)
	require.Len(t, fn.Generics.BoundsOf("T"), 2)

	body, ok := p.Body(mk)
	require.True(t, ok)
	require.Len(t, body.Params, 1)
	require.Len(t, body.Value.Stmts, 2)

	let := body.Value.Stmts[0]
	assert.Equal(t, ir.ExprLet, let.Kind)
	assert.Equal(t, ir.ExprMethodCall, let.X.Kind)
	// T comes from the receiver, not from the impl
	assert.Equal(t, "*mut T", let.X.Ty.String())

	blk := body.Value.Stmts[1]
	assert.True(t, blk.Unsafe)
	call := blk.Stmts[0]
	require.True(t, call.IsCall())
	assert.Equal(t, "core::ptr::read", p.DefPath(call.Callee).String())
	assert.Equal(t, ir.Span{File: "lib.rs", Line: 22, Col: 9}, call.Span)
	assert.Equal(t, []string{"p"}, ir.Locals(call))

	getter, ok := p.Lookup("demo::<impl Wrapper<T, U>>::get")
	require.True(t, ok)
	getBody, ok := p.Body(getter)
	require.True(t, ok)
	field := getBody.Value.Stmts[0]
	assert.Equal(t, ir.ExprField, field.Kind)
	assert.Equal(t, "*mut T", field.Ty.String())
}

func TestLinkForLoop(t *testing.T) {
	p, err := irload.LoadBytes([]byte(`
crate: demo
fns:
  - path: drain
    generics: ["I: Iterator"]
    params: [{name: it, ty: I}]
    body:
      - for: x
        in: {path: it}
        do:
          - call: consume
            args: [{path: x}]
`))
	require.NoError(t, err)
	id, _ := p.Lookup("demo::drain")
	body, _ := p.Body(id)
	loop := body.Value.Stmts[0]
	require.Equal(t, ir.ExprLoop, loop.Kind)
	bind := loop.X.Stmts[0]
	require.Equal(t, ir.ExprLet, bind.Kind)
	assert.Equal(t, "x", bind.Name)
	next := bind.X
	require.Equal(t, ir.ExprMethodCall, next.Kind)
	assert.Equal(t, "I", next.SelfTy.String())

	fn, ok := p.Fn(next.Callee)
	require.True(t, ok)
	iter, _ := p.Lookup("Iterator")
	assert.Equal(t, iter, fn.Parent)
}

func TestLinkErrors(t *testing.T) {
	tests := []struct {
		name string
		dump string
		want string
	}{
		{
			name: "unknown key",
			dump: "crate: demo\nmodules: []\n",
			want: "decoding program dump",
		},
		{
			name: "adt kind",
			dump: "adts: [{path: A, kind: record}]\n",
			want: `unknown adt kind "record"`,
		},
		{
			name: "enum fields",
			dump: "adts: [{path: E, kind: enum, fields: [{name: a, ty: u8}]}]\n",
			want: "enum fields belong to variants",
		},
		{
			name: "bad type",
			dump: "adts: [{path: A, fields: [{name: a, ty: \"*T\"}]}]\n",
			want: "raw pointer needs const or mut",
		},
		{
			name: "bad location",
			dump: "adts: [{path: A, at: \"x:y:z:w\"}]\n",
			want: "invalid location",
		},
		{
			name: "empty node",
			dump: "fns: [{path: f, body: [{at: \"1:1\"}]}]\n",
			want: "expression has no kind",
		},
		{
			name: "call to a type",
			dump: "adts: [{path: A}]\nfns: [{path: f, body: [{call: A}]}]\n",
			want: "not a function",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := irload.Load(strings.NewReader(tt.dump))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
