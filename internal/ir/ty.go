package ir

import "strings"

// TyKind classifies a resolved type.
type TyKind int

const (
	TyPrim TyKind = iota
	TyParam
	TyAdt
	TyRef
	TyRawPtr
	TySlice
	TyArray
	TyTuple
	TyFnPtr
	TyFnDef
	TyClosure
	TyDyn
	TyOpaque
	TyNever
)

// Ty is a resolved type.
type Ty struct {
	Kind TyKind
	// Name is the primitive name, the parameter name, or the display name
	// of the definition behind Def.
	Name string
	// Def is the ADT, function, closure, principal trait or opaque
	// definition.
	Def DefID
	// Args holds generic arguments for TyAdt and TyFnDef, the element
	// for TyRef, TyRawPtr, TySlice and TyArray, the elements of a tuple,
	// and the inputs followed by the output for TyFnPtr.
	Args []*Ty
	Mut  bool
	// Unsafe marks `unsafe fn` pointer types.
	Unsafe bool
}

// Prim returns a primitive type.
func Prim(name string) *Ty {
	return &Ty{Kind: TyPrim, Name: name}
}

// Param returns a reference to the generic parameter name.
func Param(name string) *Ty {
	return &Ty{Kind: TyParam, Name: name}
}

// Adt returns an instantiated ADT type.
func Adt(def DefID, name string, args ...*Ty) *Ty {
	return &Ty{Kind: TyAdt, Def: def, Name: name, Args: args}
}

// Ref returns &elem or &mut elem.
func Ref(elem *Ty, mut bool) *Ty {
	return &Ty{Kind: TyRef, Args: []*Ty{elem}, Mut: mut}
}

// RawPtr returns *const elem or *mut elem.
func RawPtr(elem *Ty, mut bool) *Ty {
	return &Ty{Kind: TyRawPtr, Args: []*Ty{elem}, Mut: mut}
}

// Slice returns [elem].
func Slice(elem *Ty) *Ty {
	return &Ty{Kind: TySlice, Args: []*Ty{elem}}
}

// Tuple returns (elems...).
func Tuple(elems ...*Ty) *Ty {
	return &Ty{Kind: TyTuple, Args: elems}
}

// Elem returns the pointee or element type, or nil.
func (t *Ty) Elem() *Ty {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case TyRef, TyRawPtr, TySlice, TyArray:
		if len(t.Args) > 0 {
			return t.Args[0]
		}
	}
	return nil
}

// IsParam reports whether t is a bare generic parameter.
func (t *Ty) IsParam() bool {
	return t != nil && t.Kind == TyParam
}

// IsRawPtr reports whether t is a raw pointer.
func (t *Ty) IsRawPtr() bool {
	return t != nil && t.Kind == TyRawPtr
}

// Walk calls f for t and every type nested in it, depth first. If f
// returns false the children of that type are skipped.
func (t *Ty) Walk(f func(*Ty) bool) {
	if t == nil || !f(t) {
		return
	}
	for _, arg := range t.Args {
		arg.Walk(f)
	}
}

// Mentions reports whether the parameter name occurs anywhere in t.
func (t *Ty) Mentions(name string) bool {
	found := false
	t.Walk(func(ty *Ty) bool {
		if found {
			return false
		}
		if ty.Kind == TyParam && ty.Name == name {
			found = true
		}
		return !found
	})
	return found
}

// Params returns the distinct parameter names in t, in order of first
// occurrence.
func (t *Ty) Params() []string {
	var names []string
	seen := make(map[string]bool)
	t.Walk(func(ty *Ty) bool {
		if ty.Kind == TyParam && !seen[ty.Name] {
			seen[ty.Name] = true
			names = append(names, ty.Name)
		}
		return true
	})
	return names
}

// Subst returns t with every parameter found in m replaced. Types without
// replaced parameters are shared, not copied.
func (t *Ty) Subst(m map[string]*Ty) *Ty {
	if t == nil || len(m) == 0 {
		return t
	}
	if t.Kind == TyParam {
		if r, ok := m[t.Name]; ok {
			return r
		}
		return t
	}
	var args []*Ty
	for i, arg := range t.Args {
		s := arg.Subst(m)
		if s != arg && args == nil {
			args = make([]*Ty, len(t.Args))
			copy(args, t.Args[:i])
		}
		if args != nil {
			args[i] = s
		}
	}
	if args == nil {
		return t
	}
	c := *t
	c.Args = args
	return &c
}

func (t *Ty) String() string {
	if t == nil {
		return "_"
	}
	var sb strings.Builder
	t.write(&sb)
	return sb.String()
}

func (t *Ty) write(sb *strings.Builder) {
	switch t.Kind {
	case TyRef:
		sb.WriteString("&")
		if t.Mut {
			sb.WriteString("mut ")
		}
		t.Elem().write(sb)
	case TyRawPtr:
		if t.Mut {
			sb.WriteString("*mut ")
		} else {
			sb.WriteString("*const ")
		}
		t.Elem().write(sb)
	case TySlice:
		sb.WriteString("[")
		t.Elem().write(sb)
		sb.WriteString("]")
	case TyArray:
		sb.WriteString("[")
		t.Elem().write(sb)
		sb.WriteString("; _]")
	case TyTuple:
		sb.WriteString("(")
		writeList(sb, t.Args)
		sb.WriteString(")")
	case TyFnPtr:
		if t.Unsafe {
			sb.WriteString("unsafe ")
		}
		sb.WriteString("fn(")
		if n := len(t.Args); n > 0 {
			writeList(sb, t.Args[:n-1])
			sb.WriteString(") -> ")
			t.Args[n-1].write(sb)
		} else {
			sb.WriteString(")")
		}
	case TyDyn:
		sb.WriteString("dyn ")
		sb.WriteString(t.Name)
	case TyOpaque:
		sb.WriteString("impl ")
		sb.WriteString(t.Name)
	case TyNever:
		sb.WriteString("!")
	default:
		sb.WriteString(t.Name)
		if len(t.Args) > 0 && (t.Kind == TyAdt || t.Kind == TyFnDef) {
			sb.WriteString("<")
			writeList(sb, t.Args)
			sb.WriteString(">")
		}
	}
}

func writeList(sb *strings.Builder, tys []*Ty) {
	for i, ty := range tys {
		if i > 0 {
			sb.WriteString(", ")
		}
		ty.write(sb)
	}
}
