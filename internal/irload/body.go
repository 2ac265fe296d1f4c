package irload

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mpyw/soundcheck/internal/ir"
)

// ExprDump is one expression node of a body. Exactly one of the kind
// keys (let, assign, path, item, lit, call, fun, method, unsafe, block,
// deref, ref, ref_mut, field, index, binary, unary, cast, if, loop,
// while, for, match, return, closure) is set; the other keys are its
// operands.
type ExprDump struct {
	At string `yaml:"at"`
	Ty string `yaml:"ty"`

	Let  string    `yaml:"let"`
	Mut  bool      `yaml:"mut"`
	Init *ExprDump `yaml:"init"`

	Assign *ExprDump `yaml:"assign"`
	Op     string    `yaml:"op"`
	Value  *ExprDump `yaml:"value"`

	Path string `yaml:"path"`
	Item string `yaml:"item"`
	Lit  string `yaml:"lit"`

	Call   string      `yaml:"call"`
	Fun    *ExprDump   `yaml:"fun"`
	Method string      `yaml:"method"`
	Recv   *ExprDump   `yaml:"recv"`
	Callee string      `yaml:"callee"`
	Trait  string      `yaml:"trait"`
	Self   string      `yaml:"self"`
	Targs  []string    `yaml:"targs"`
	Args   []*ExprDump `yaml:"args"`

	Unsafe []*ExprDump `yaml:"unsafe"`
	Block  []*ExprDump `yaml:"block"`

	Deref  *ExprDump `yaml:"deref"`
	Ref    *ExprDump `yaml:"ref"`
	RefMut *ExprDump `yaml:"ref_mut"`
	Field  string    `yaml:"field"`
	Of     *ExprDump `yaml:"of"`
	Index  *ExprDump `yaml:"index"`
	Idx    *ExprDump `yaml:"idx"`
	Binary string    `yaml:"binary"`
	Unary  string    `yaml:"unary"`
	X      *ExprDump `yaml:"x"`
	Y      *ExprDump `yaml:"y"`
	Cast   string    `yaml:"cast"`

	If    *ExprDump     `yaml:"if"`
	Then  []*ExprDump   `yaml:"then"`
	Else  []*ExprDump   `yaml:"else"`
	Loop  []*ExprDump   `yaml:"loop"`
	While *ExprDump     `yaml:"while"`
	For   string        `yaml:"for"`
	In    *ExprDump     `yaml:"in"`
	Do    []*ExprDump   `yaml:"do"`
	Match *ExprDump     `yaml:"match"`
	Arms  [][]*ExprDump `yaml:"arms"`

	Return  *ExprDump `yaml:"return"`
	Closure string    `yaml:"closure"`
}

type bodyBuilder struct {
	l      *linker
	scope  *typeScope
	locals map[string]*ir.Ty
}

func (l *linker) body(pb pendingBody) (*ir.Body, error) {
	b := &bodyBuilder{l: l, scope: pb.scope, locals: make(map[string]*ir.Ty)}
	body := &ir.Body{Owner: pb.fn.ID}
	for i, param := range pb.dump.Params {
		ty := pb.fn.Inputs[i]
		body.Params = append(body.Params, ir.BodyParam{Name: param.Name, Ty: ty})
		b.locals[param.Name] = ty
	}
	value, err := b.block(pb.dump.Body, pb.fn.Unsafe)
	if err != nil {
		return nil, err
	}
	value.Span = l.p.spans[pb.fn.ID]
	body.Value = value
	return body, nil
}

func (b *bodyBuilder) block(stmts []*ExprDump, unsafe bool) (*ir.Expr, error) {
	e := &ir.Expr{Kind: ir.ExprBlock, Unsafe: unsafe}
	for _, s := range stmts {
		x, err := b.expr(s)
		if err != nil {
			return nil, err
		}
		e.Stmts = append(e.Stmts, x)
	}
	if n := len(e.Stmts); n > 0 {
		e.Span = e.Stmts[0].Span
		e.Ty = e.Stmts[n-1].Ty
	}
	return e, nil
}

func (b *bodyBuilder) exprs(ds []*ExprDump) ([]*ir.Expr, error) {
	out := make([]*ir.Expr, 0, len(ds))
	for _, d := range ds {
		e, err := b.expr(d)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (b *bodyBuilder) ty(s string) (*ir.Ty, error) {
	if s == "" {
		return nil, nil
	}
	return b.l.p.parseType(s, b.scope)
}

func (b *bodyBuilder) expr(d *ExprDump) (*ir.Expr, error) {
	if d == nil {
		return nil, fmt.Errorf("empty expression")
	}
	span, err := b.l.span(d.At)
	if err != nil {
		return nil, err
	}
	declared, err := b.ty(d.Ty)
	if err != nil {
		return nil, err
	}
	e, err := b.node(d, declared)
	if err != nil {
		if span.IsValid() {
			return nil, fmt.Errorf("%s: %w", span, err)
		}
		return nil, err
	}
	if span.IsValid() || !e.Span.IsValid() {
		e.Span = span
	}
	if declared != nil && e.Kind != ir.ExprLet {
		e.Ty = declared
	}
	return e, nil
}

func (b *bodyBuilder) node(d *ExprDump, declared *ir.Ty) (*ir.Expr, error) {
	switch {
	case d.Let != "":
		e := &ir.Expr{Kind: ir.ExprLet, Name: d.Let, Mut: d.Mut, Ty: ir.Prim("()")}
		ty := declared
		if d.Init != nil {
			init, err := b.expr(d.Init)
			if err != nil {
				return nil, err
			}
			e.X = init
			if ty == nil {
				ty = init.Ty
			}
		}
		b.locals[d.Let] = ty
		return e, nil

	case d.Assign != nil:
		x, err := b.expr(d.Assign)
		if err != nil {
			return nil, err
		}
		y, err := b.expr(d.Value)
		if err != nil {
			return nil, err
		}
		return &ir.Expr{Kind: ir.ExprAssign, Op: d.Op, X: x, Y: y, Ty: ir.Prim("()")}, nil

	case d.Path != "":
		return &ir.Expr{Kind: ir.ExprPath, Name: d.Path, Ty: b.locals[d.Path]}, nil

	case d.Item != "":
		id := b.l.p.resolve(d.Item, ir.KindFn)
		return &ir.Expr{
			Kind:   ir.ExprPath,
			Name:   lastComponent(d.Item),
			Callee: id,
			Ty:     &ir.Ty{Kind: ir.TyFnDef, Def: id, Name: lastComponent(d.Item)},
		}, nil

	case d.Lit != "":
		return &ir.Expr{Kind: ir.ExprLit, Value: d.Lit}, nil

	case d.Call != "" || d.Fun != nil:
		return b.call(d)

	case d.Method != "":
		return b.methodCall(d)

	case d.Unsafe != nil:
		return b.block(d.Unsafe, true)

	case d.Block != nil:
		return b.block(d.Block, false)

	case d.Deref != nil:
		x, err := b.expr(d.Deref)
		if err != nil {
			return nil, err
		}
		return &ir.Expr{Kind: ir.ExprUnary, Op: "*", X: x, Ty: derefTy(x.Ty)}, nil

	case d.Ref != nil || d.RefMut != nil:
		mut := d.RefMut != nil
		operand := d.Ref
		if mut {
			operand = d.RefMut
		}
		x, err := b.expr(operand)
		if err != nil {
			return nil, err
		}
		e := &ir.Expr{Kind: ir.ExprAddrOf, Mut: mut, X: x}
		if x.Ty != nil {
			e.Ty = ir.Ref(x.Ty, mut)
		}
		return e, nil

	case d.Field != "":
		x, err := b.expr(d.Of)
		if err != nil {
			return nil, err
		}
		return &ir.Expr{Kind: ir.ExprField, Name: d.Field, X: x, Ty: b.fieldTy(x.Ty, d.Field)}, nil

	case d.Index != nil:
		x, err := b.expr(d.Index)
		if err != nil {
			return nil, err
		}
		y, err := b.expr(d.Idx)
		if err != nil {
			return nil, err
		}
		return &ir.Expr{Kind: ir.ExprIndex, X: x, Y: y, Ty: elemTy(x.Ty)}, nil

	case d.Binary != "":
		x, err := b.expr(d.X)
		if err != nil {
			return nil, err
		}
		y, err := b.expr(d.Y)
		if err != nil {
			return nil, err
		}
		e := &ir.Expr{Kind: ir.ExprBinary, Op: d.Binary, X: x, Y: y, Ty: x.Ty}
		switch d.Binary {
		case "==", "!=", "<", "<=", ">", ">=", "&&", "||":
			e.Ty = ir.Prim("bool")
		}
		return e, nil

	case d.Unary != "":
		x, err := b.expr(d.X)
		if err != nil {
			return nil, err
		}
		return &ir.Expr{Kind: ir.ExprUnary, Op: d.Unary, X: x, Ty: x.Ty}, nil

	case d.Cast != "":
		x, err := b.expr(d.X)
		if err != nil {
			return nil, err
		}
		to, err := b.ty(d.Cast)
		if err != nil {
			return nil, err
		}
		return &ir.Expr{Kind: ir.ExprCast, X: x, Ty: to}, nil

	case d.If != nil:
		cond, err := b.expr(d.If)
		if err != nil {
			return nil, err
		}
		then, err := b.block(d.Then, false)
		if err != nil {
			return nil, err
		}
		e := &ir.Expr{Kind: ir.ExprIf, Cond: cond, Then: then, Ty: then.Ty}
		if d.Else != nil {
			if e.Else, err = b.block(d.Else, false); err != nil {
				return nil, err
			}
		}
		return e, nil

	case d.Loop != nil:
		body, err := b.block(d.Loop, false)
		if err != nil {
			return nil, err
		}
		return &ir.Expr{Kind: ir.ExprLoop, X: body, Ty: ir.Prim("()")}, nil

	case d.While != nil:
		cond, err := b.expr(d.While)
		if err != nil {
			return nil, err
		}
		body, err := b.block(d.Do, false)
		if err != nil {
			return nil, err
		}
		return &ir.Expr{Kind: ir.ExprLoop, Cond: cond, X: body, Ty: ir.Prim("()")}, nil

	case d.For != "":
		return b.forLoop(d)

	case d.Match != nil:
		x, err := b.expr(d.Match)
		if err != nil {
			return nil, err
		}
		e := &ir.Expr{Kind: ir.ExprMatch, X: x}
		for _, arm := range d.Arms {
			a, err := b.block(arm, false)
			if err != nil {
				return nil, err
			}
			e.Arms = append(e.Arms, a)
		}
		return e, nil

	case d.Return != nil:
		x, err := b.expr(d.Return)
		if err != nil {
			return nil, err
		}
		return &ir.Expr{Kind: ir.ExprReturn, X: x, Ty: &ir.Ty{Kind: ir.TyNever, Name: "!"}}, nil

	case d.Closure != "":
		id := b.l.p.resolve(b.l.local(d.Closure), ir.KindFn)
		return &ir.Expr{
			Kind:    ir.ExprClosure,
			Closure: id,
			Ty:      &ir.Ty{Kind: ir.TyClosure, Def: id, Name: "closure"},
		}, nil
	}
	return nil, fmt.Errorf("expression has no kind")
}

// callee resolves the callee of a call node. A trait on the node makes
// the callee a method of that trait.
func (b *bodyBuilder) callee(path, trait, method string) (*ir.FnDef, error) {
	p := b.l.p
	var traitID ir.DefID
	if trait != "" {
		traitID = p.resolve(strings.TrimSpace(trait), ir.KindTrait)
		if path == "" {
			path = p.paths[traitID].String() + "::" + method
		}
	}
	if path == "" {
		return nil, nil
	}
	id, ok := p.Lookup(path)
	if !ok {
		if local, found := p.byPath[p.crate+"::"+path]; found && !strings.Contains(path, "::") {
			id, ok = local, true
		}
	}
	if !ok {
		id = p.Declare(path, ir.KindFn, false, ir.Span{})
	}
	if k := p.kinds[id]; k != ir.KindFn && k != ir.KindUnknown {
		return nil, fmt.Errorf("%s is a %s, not a function", path, k)
	}
	def, ok := p.fns[id]
	if !ok {
		def = &ir.FnDef{ID: id, Name: lastComponent(path), Parent: traitID}
		p.AddFn(def)
	} else if traitID.Valid() && !def.Parent.Valid() {
		def.Parent = traitID
	}
	return def, nil
}

func (b *bodyBuilder) instantiate(e *ir.Expr, d *ExprDump) error {
	for _, s := range d.Targs {
		ty, err := b.ty(s)
		if err != nil {
			return err
		}
		e.CalleeArgs = append(e.CalleeArgs, ty)
	}
	self, err := b.ty(d.Self)
	if err != nil {
		return err
	}
	e.SelfTy = self
	return nil
}

func (b *bodyBuilder) call(d *ExprDump) (*ir.Expr, error) {
	e := &ir.Expr{Kind: ir.ExprCall}
	if d.Fun != nil {
		fun, err := b.expr(d.Fun)
		if err != nil {
			return nil, err
		}
		e.Fun = fun
		if fun.Ty != nil && fun.Ty.Kind == ir.TyFnPtr && len(fun.Ty.Args) > 0 {
			e.Ty = fun.Ty.Args[len(fun.Ty.Args)-1]
		}
	}
	def, err := b.callee(d.Call, d.Trait, "call")
	if err != nil {
		return nil, err
	}
	if def != nil {
		e.Callee = def.ID
		e.Ty = def.Output
		if e.Fun == nil {
			e.Fun = &ir.Expr{
				Kind:   ir.ExprPath,
				Name:   def.Name,
				Callee: def.ID,
				Ty:     &ir.Ty{Kind: ir.TyFnDef, Def: def.ID, Name: def.Name},
			}
		}
	}
	if err := b.instantiate(e, d); err != nil {
		return nil, err
	}
	if e.Args, err = b.exprs(d.Args); err != nil {
		return nil, err
	}
	if def != nil && e.Ty != nil {
		e.Ty = b.substCall(def, e)
	}
	return e, nil
}

func (b *bodyBuilder) methodCall(d *ExprDump) (*ir.Expr, error) {
	recv, err := b.expr(d.Recv)
	if err != nil {
		return nil, err
	}
	e := &ir.Expr{Kind: ir.ExprMethodCall, Name: d.Method, X: recv}
	def, err := b.callee(d.Callee, d.Trait, d.Method)
	if err != nil {
		return nil, err
	}
	if err := b.instantiate(e, d); err != nil {
		return nil, err
	}
	if e.Args, err = b.exprs(d.Args); err != nil {
		return nil, err
	}
	if def != nil {
		e.Callee = def.ID
		if e.SelfTy == nil && d.Trait != "" {
			e.SelfTy = stripRefs(recv.Ty)
		}
		if def.Output != nil {
			e.Ty = b.substCall(def, e)
		}
	}
	return e, nil
}

// forLoop lowers "for x in it { ... }" into a loop whose first statement
// binds x from Iterator::next.
func (b *bodyBuilder) forLoop(d *ExprDump) (*ir.Expr, error) {
	in, err := b.expr(d.In)
	if err != nil {
		return nil, err
	}
	next, err := b.callee("", "Iterator", "next")
	if err != nil {
		return nil, err
	}
	call := &ir.Expr{
		Kind:   ir.ExprMethodCall,
		Span:   in.Span,
		Name:   "next",
		X:      in,
		Callee: next.ID,
		SelfTy: stripRefs(in.Ty),
	}
	bind := &ir.Expr{Kind: ir.ExprLet, Span: in.Span, Name: d.For, X: call, Ty: ir.Prim("()")}
	b.locals[d.For] = nil
	body, err := b.block(d.Do, false)
	if err != nil {
		return nil, err
	}
	body.Stmts = append([]*ir.Expr{bind}, body.Stmts...)
	return &ir.Expr{Kind: ir.ExprLoop, X: body, Ty: ir.Prim("()")}, nil
}

// substCall instantiates the callee's return type with the generic
// arguments of the call.
func (b *bodyBuilder) substCall(def *ir.FnDef, e *ir.Expr) *ir.Ty {
	m := make(map[string]*ir.Ty)
	for i, arg := range e.CalleeArgs {
		if i < len(def.Generics.Params) {
			m[def.Generics.Params[i].Name] = arg
		}
	}
	if e.SelfTy != nil {
		m["Self"] = e.SelfTy
	}
	// impl parameters are instantiated from the receiver
	if impl, ok := b.l.p.impls[def.Parent]; ok && e.X != nil {
		recv := stripRefs(e.X.Ty)
		if self := impl.SelfTy; recv != nil && self != nil && recv.Kind == ir.TyAdt && recv.Def == self.Def {
			for i, arg := range self.Args {
				if arg.IsParam() && i < len(recv.Args) {
					m[arg.Name] = recv.Args[i]
				}
			}
		}
	}
	if len(m) == 0 {
		return def.Output
	}
	return def.Output.Subst(m)
}

func (b *bodyBuilder) fieldTy(base *ir.Ty, name string) *ir.Ty {
	base = stripRefs(base)
	if base == nil || base.Kind != ir.TyAdt {
		if base != nil && base.Kind == ir.TyTuple {
			for i, elem := range base.Args {
				if strconv.Itoa(i) == name {
					return elem
				}
			}
		}
		return nil
	}
	def, ok := b.l.p.adts[base.Def]
	if !ok {
		return nil
	}
	for _, f := range def.AllFields() {
		if f.Name != name {
			continue
		}
		m := make(map[string]*ir.Ty)
		for i, arg := range base.Args {
			if i < len(def.Generics.Params) {
				m[def.Generics.Params[i].Name] = arg
			}
		}
		return f.Ty.Subst(m)
	}
	return nil
}

func stripRefs(t *ir.Ty) *ir.Ty {
	for t != nil && t.Kind == ir.TyRef {
		t = t.Elem()
	}
	return t
}

func derefTy(t *ir.Ty) *ir.Ty {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case ir.TyRef, ir.TyRawPtr:
		return t.Elem()
	case ir.TyAdt:
		if t.Name == "Box" && len(t.Args) > 0 {
			return t.Args[0]
		}
	}
	return nil
}

func elemTy(t *ir.Ty) *ir.Ty {
	t = stripRefs(t)
	if t == nil {
		return nil
	}
	switch t.Kind {
	case ir.TySlice, ir.TyArray:
		return t.Elem()
	case ir.TyAdt:
		if t.Name == "Vec" && len(t.Args) > 0 {
			return t.Args[0]
		}
	}
	return nil
}
