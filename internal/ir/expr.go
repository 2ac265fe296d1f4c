package ir

// ExprKind classifies an expression node.
type ExprKind int

const (
	ExprOther ExprKind = iota
	ExprLit
	ExprPath
	ExprLet
	ExprAssign
	ExprBlock
	ExprCall
	ExprMethodCall
	ExprField
	ExprIndex
	ExprUnary
	ExprBinary
	ExprAddrOf
	ExprCast
	ExprIf
	ExprLoop
	ExprMatch
	ExprReturn
	ExprClosure
)

var exprKindNames = [...]string{
	ExprOther:      "other",
	ExprLit:        "lit",
	ExprPath:       "path",
	ExprLet:        "let",
	ExprAssign:     "assign",
	ExprBlock:      "block",
	ExprCall:       "call",
	ExprMethodCall: "method_call",
	ExprField:      "field",
	ExprIndex:      "index",
	ExprUnary:      "unary",
	ExprBinary:     "binary",
	ExprAddrOf:     "addr_of",
	ExprCast:       "cast",
	ExprIf:         "if",
	ExprLoop:       "loop",
	ExprMatch:      "match",
	ExprReturn:     "return",
	ExprClosure:    "closure",
}

func (k ExprKind) String() string {
	if int(k) < len(exprKindNames) {
		return exprKindNames[k]
	}
	return "other"
}

// Expr is one node of a typed body.
//
// Operands by kind:
//
//	ExprLet         Name = X
//	ExprAssign      X = Y (Op holds the compound operator, if any)
//	ExprBlock       Stmts, Unsafe
//	ExprCall        Fun(Args...)
//	ExprMethodCall  X.Name(Args...)
//	ExprField       X.Name
//	ExprIndex       X[Y]
//	ExprUnary       Op X
//	ExprBinary      X Op Y
//	ExprAddrOf      &X or &mut X
//	ExprCast        X as Ty
//	ExprIf          if Cond { Then } else { Else }
//	ExprLoop        loop X, or while Cond { X }
//	ExprMatch       match X { Arms... }
//	ExprReturn      return X
//	ExprClosure     Closure names the closure body
type Expr struct {
	Kind ExprKind
	Span Span
	// Ty is the resolved type of the expression.
	Ty *Ty

	// Name is the local for ExprPath and ExprLet, the field for
	// ExprField, and the method for ExprMethodCall.
	Name   string
	Op     string
	Value  string
	Unsafe bool
	Mut    bool

	// Callee is the resolved callee of a call, or the item an ExprPath
	// refers to. NoDef when resolution failed or is dynamic.
	Callee DefID
	// CalleeArgs are the generic arguments the callee was instantiated
	// with.
	CalleeArgs []*Ty
	// SelfTy is the Self type when Callee is a trait method.
	SelfTy *Ty

	Closure DefID

	X, Y  *Expr
	Fun   *Expr
	Args  []*Expr
	Cond  *Expr
	Then  *Expr
	Else  *Expr
	Stmts []*Expr
	Arms  []*Expr
}

// IsCall reports whether e is a function or method call.
func (e *Expr) IsCall() bool {
	return e != nil && (e.Kind == ExprCall || e.Kind == ExprMethodCall)
}

// Children returns the direct subexpressions of e in evaluation order.
func (e *Expr) Children() []*Expr {
	if e == nil {
		return nil
	}
	var out []*Expr
	add := func(c *Expr) {
		if c != nil {
			out = append(out, c)
		}
	}
	add(e.Fun)
	add(e.X)
	add(e.Y)
	for _, a := range e.Args {
		add(a)
	}
	add(e.Cond)
	add(e.Then)
	add(e.Else)
	for _, s := range e.Stmts {
		add(s)
	}
	for _, a := range e.Arms {
		add(a)
	}
	return out
}

// BodyParam is a function parameter binding.
type BodyParam struct {
	Name string
	Ty   *Ty
}

// Body is the typed body of a function or closure.
type Body struct {
	Owner  DefID
	Params []BodyParam
	Value  *Expr
}

// Inspect traverses e in depth-first order like go/ast.Inspect: f is
// called for each node and its children are visited only if f returns
// true. Closure bodies are not entered.
func Inspect(e *Expr, f func(*Expr) bool) {
	if e == nil || !f(e) {
		return
	}
	for _, c := range e.Children() {
		Inspect(c, f)
	}
}

// WithStack traverses e like inspector.WithStack: f is called on push with
// push=true and, if it returned true, again on pop with push=false. The
// stack holds the ancestors of the node, the node itself last.
func WithStack(e *Expr, f func(n *Expr, push bool, stack []*Expr) bool) {
	var stack []*Expr
	var visit func(*Expr)
	visit = func(n *Expr) {
		stack = append(stack, n)
		if f(n, true, stack) {
			for _, c := range n.Children() {
				visit(c)
			}
			f(n, false, stack)
		}
		stack = stack[:len(stack)-1]
	}
	if e != nil {
		visit(e)
	}
}

// Locals returns the names of the locals e reads, in order of first use.
func Locals(e *Expr) []string {
	var names []string
	seen := make(map[string]bool)
	Inspect(e, func(n *Expr) bool {
		if n.Kind == ExprPath && n.Name != "" && !n.Callee.Valid() && !seen[n.Name] {
			seen[n.Name] = true
			names = append(names, n.Name)
		}
		return true
	})
	return names
}
