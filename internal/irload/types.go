package irload

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/mpyw/soundcheck/internal/ir"
)

var prims = map[string]bool{
	"bool": true, "char": true, "str": true,
	"u8": true, "u16": true, "u32": true, "u64": true, "u128": true, "usize": true,
	"i8": true, "i16": true, "i32": true, "i64": true, "i128": true, "isize": true,
	"f32": true, "f64": true,
}

// typeScope is what a type expression can refer to besides items.
type typeScope struct {
	params map[string]bool
	self   *ir.Ty
}

func newTypeScope(self *ir.Ty, generics ...*ir.Generics) *typeScope {
	s := &typeScope{params: make(map[string]bool), self: self}
	for _, g := range generics {
		if g == nil {
			continue
		}
		for _, param := range g.Params {
			s.params[param.Name] = true
		}
	}
	return s
}

// ParseType parses a type expression such as "*mut T", "&[u8]" or
// "Wrapper<T, PhantomData<U>>". Names in params become type parameters,
// "Self" becomes self, and every other path resolves to an item,
// declaring an external one when unknown.
func (p *Program) ParseType(s string, params []string, self *ir.Ty) (*ir.Ty, error) {
	scope := &typeScope{params: make(map[string]bool), self: self}
	for _, name := range params {
		scope.params[name] = true
	}
	return p.parseType(s, scope)
}

func (p *Program) parseType(s string, scope *typeScope) (*ir.Ty, error) {
	toks, err := tokenizeType(s)
	if err != nil {
		return nil, err
	}
	tp := &typeParser{prog: p, toks: toks, scope: scope}
	ty, err := tp.ty()
	if err != nil {
		return nil, fmt.Errorf("type %q: %w", s, err)
	}
	if tp.pos != len(tp.toks) {
		return nil, fmt.Errorf("type %q: unexpected %q", s, tp.toks[tp.pos])
	}
	return ty, nil
}

func tokenizeType(s string) ([]string, error) {
	var toks []string
	for i := 0; i < len(s); {
		c := rune(s[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '\'':
			// lifetimes carry no information for the checkers
			j := i + 1
			for j < len(s) && isIdent(rune(s[j])) {
				j++
			}
			for j < len(s) && s[j] == ' ' {
				j++
			}
			if j < len(s) && s[j] == ',' {
				j++
			}
			i = j
		case isIdent(c):
			j := i
			for j < len(s) && isIdent(rune(s[j])) {
				j++
			}
			toks = append(toks, s[i:j])
			i = j
		case strings.HasPrefix(s[i:], "::"), strings.HasPrefix(s[i:], "->"):
			toks = append(toks, s[i:i+2])
			i += 2
		case strings.ContainsRune("&*[]();<>,!+", c):
			toks = append(toks, string(c))
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q in type %q", c, s)
		}
	}
	return toks, nil
}

func isIdent(c rune) bool {
	return c == '_' || unicode.IsLetter(c) || unicode.IsDigit(c)
}

type typeParser struct {
	prog  *Program
	toks  []string
	pos   int
	scope *typeScope
}

func (tp *typeParser) peek() string {
	if tp.pos < len(tp.toks) {
		return tp.toks[tp.pos]
	}
	return ""
}

func (tp *typeParser) next() string {
	tok := tp.peek()
	if tok != "" {
		tp.pos++
	}
	return tok
}

func (tp *typeParser) accept(tok string) bool {
	if tp.peek() == tok {
		tp.pos++
		return true
	}
	return false
}

func (tp *typeParser) expect(tok string) error {
	if got := tp.next(); got != tok {
		if got == "" {
			got = "end of input"
		}
		return fmt.Errorf("expected %q, got %q", tok, got)
	}
	return nil
}

func (tp *typeParser) ty() (*ir.Ty, error) {
	tok := tp.next()
	switch tok {
	case "":
		return nil, fmt.Errorf("unexpected end of input")
	case "&":
		mut := tp.accept("mut")
		elem, err := tp.ty()
		if err != nil {
			return nil, err
		}
		return ir.Ref(elem, mut), nil
	case "*":
		var mut bool
		switch {
		case tp.accept("mut"):
			mut = true
		case tp.accept("const"):
		default:
			return nil, fmt.Errorf("raw pointer needs const or mut")
		}
		elem, err := tp.ty()
		if err != nil {
			return nil, err
		}
		return ir.RawPtr(elem, mut), nil
	case "[":
		elem, err := tp.ty()
		if err != nil {
			return nil, err
		}
		if tp.accept(";") {
			for tp.peek() != "]" && tp.peek() != "" {
				tp.next()
			}
			if err := tp.expect("]"); err != nil {
				return nil, err
			}
			return &ir.Ty{Kind: ir.TyArray, Args: []*ir.Ty{elem}}, nil
		}
		if err := tp.expect("]"); err != nil {
			return nil, err
		}
		return ir.Slice(elem), nil
	case "(":
		if tp.accept(")") {
			return ir.Prim("()"), nil
		}
		var elems []*ir.Ty
		trailing := false
		for {
			elem, err := tp.ty()
			if err != nil {
				return nil, err
			}
			elems = append(elems, elem)
			trailing = tp.accept(",")
			if !trailing || tp.peek() == ")" {
				break
			}
		}
		if err := tp.expect(")"); err != nil {
			return nil, err
		}
		if len(elems) == 1 && !trailing {
			return elems[0], nil
		}
		return ir.Tuple(elems...), nil
	case "!":
		return &ir.Ty{Kind: ir.TyNever, Name: "!"}, nil
	case "dyn", "impl":
		kind := ir.TyDyn
		if tok == "impl" {
			kind = ir.TyOpaque
		}
		path, err := tp.path()
		if err != nil {
			return nil, err
		}
		def := tp.prog.resolve(path, ir.KindTrait)
		if _, err := tp.genericArgs(); err != nil {
			return nil, err
		}
		if tp.peek() == "(" {
			// Fn(A) -> B sugar
			if _, err := tp.fnPtr(false); err != nil {
				return nil, err
			}
		}
		for tp.accept("+") {
			if _, err := tp.path(); err != nil {
				return nil, err
			}
		}
		return &ir.Ty{Kind: kind, Def: def, Name: lastComponent(path)}, nil
	case "unsafe":
		if err := tp.expect("fn"); err != nil {
			return nil, err
		}
		return tp.fnPtr(true)
	case "fn":
		return tp.fnPtr(false)
	}

	if !isIdent(rune(tok[0])) {
		return nil, fmt.Errorf("unexpected %q", tok)
	}
	tp.pos--
	path, err := tp.path()
	if err != nil {
		return nil, err
	}

	if !strings.Contains(path, "::") {
		switch {
		case path == "Self":
			if tp.scope.self == nil {
				return nil, fmt.Errorf("Self outside of an impl")
			}
			return tp.scope.self, nil
		case tp.scope.params[path]:
			return ir.Param(path), nil
		case prims[path]:
			return ir.Prim(path), nil
		}
	}

	args, err := tp.genericArgs()
	if err != nil {
		return nil, err
	}
	def := tp.prog.resolve(path, ir.KindStruct)
	return ir.Adt(def, lastComponent(path), args...), nil
}

func (tp *typeParser) fnPtr(unsafe bool) (*ir.Ty, error) {
	if err := tp.expect("("); err != nil {
		return nil, err
	}
	var args []*ir.Ty
	for !tp.accept(")") {
		arg, err := tp.ty()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !tp.accept(",") {
			if err := tp.expect(")"); err != nil {
				return nil, err
			}
			break
		}
	}
	out := ir.Prim("()")
	if tp.accept("->") {
		var err error
		if out, err = tp.ty(); err != nil {
			return nil, err
		}
	}
	return &ir.Ty{Kind: ir.TyFnPtr, Args: append(args, out), Unsafe: unsafe}, nil
}

func (tp *typeParser) path() (string, error) {
	tok := tp.next()
	if tok == "" || !isIdent(rune(tok[0])) {
		return "", fmt.Errorf("expected a path, got %q", tok)
	}
	parts := []string{tok}
	for tp.peek() == "::" {
		tp.next()
		tok := tp.next()
		if tok == "" || !isIdent(rune(tok[0])) {
			return "", fmt.Errorf("expected a path component, got %q", tok)
		}
		parts = append(parts, tok)
	}
	return strings.Join(parts, "::"), nil
}

func (tp *typeParser) genericArgs() ([]*ir.Ty, error) {
	if !tp.accept("<") {
		return nil, nil
	}
	var args []*ir.Ty
	for !tp.accept(">") {
		arg, err := tp.ty()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !tp.accept(",") {
			if err := tp.expect(">"); err != nil {
				return nil, err
			}
			break
		}
	}
	return args, nil
}

// resolve finds the item named by path, trying the local crate for bare
// names, and declares an external item of kind when nothing matches.
func (p *Program) resolve(path string, kind ir.ItemKind) ir.DefID {
	if id, ok := p.Lookup(path); ok {
		return id
	}
	if !strings.Contains(path, "::") {
		if id, ok := p.byPath[p.crate+"::"+path]; ok {
			return id
		}
	}
	return p.Declare(path, kind, false, ir.Span{})
}

func lastComponent(path string) string {
	if i := strings.LastIndex(path, "::"); i >= 0 {
		return path[i+2:]
	}
	return path
}
