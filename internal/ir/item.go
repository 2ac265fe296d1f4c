package ir

// GenericParam is a type parameter with its inline trait bounds.
type GenericParam struct {
	Name   string
	Bounds []DefID
	// MayDangle is set on destructor impl parameters that opt out of the
	// drop check.
	MayDangle bool
}

// Predicate is one where-clause entry: Ty must implement every bound.
type Predicate struct {
	Ty     *Ty
	Bounds []DefID
}

// Generics holds the type parameters declared by one item.
type Generics struct {
	Params     []GenericParam
	Predicates []Predicate
}

// Len returns the number of declared type parameters.
func (g *Generics) Len() int {
	return len(g.Params)
}

// Param returns the parameter declared under name.
func (g *Generics) Param(name string) (*GenericParam, bool) {
	for i := range g.Params {
		if g.Params[i].Name == name {
			return &g.Params[i], true
		}
	}
	return nil, false
}

// Index returns the position of the parameter declared under name, or -1.
func (g *Generics) Index(name string) int {
	for i := range g.Params {
		if g.Params[i].Name == name {
			return i
		}
	}
	return -1
}

// BoundsOf collects the traits written for the parameter name, both inline
// and in where-clauses whose subject is the bare parameter.
func (g *Generics) BoundsOf(name string) []DefID {
	var bounds []DefID
	if p, ok := g.Param(name); ok {
		bounds = append(bounds, p.Bounds...)
	}
	for _, pred := range g.Predicates {
		if pred.Ty != nil && pred.Ty.Kind == TyParam && pred.Ty.Name == name {
			bounds = append(bounds, pred.Bounds...)
		}
	}
	return bounds
}

// AdtKind distinguishes the three algebraic data type forms.
type AdtKind int

const (
	AdtStruct AdtKind = iota
	AdtEnum
	AdtUnion
)

// Field is a named or positional field of a variant.
type Field struct {
	Name string
	Ty   *Ty
	Span Span
}

// Variant is an enum variant. Structs and unions have exactly one.
type Variant struct {
	Name   string
	Fields []Field
}

// AdtDef is a struct, enum or union definition.
type AdtDef struct {
	ID       DefID
	Kind     AdtKind
	Generics Generics
	Variants []Variant
}

// AllFields returns the fields of every variant in declaration order.
func (a *AdtDef) AllFields() []Field {
	var fields []Field
	for _, v := range a.Variants {
		fields = append(fields, v.Fields...)
	}
	return fields
}

// ImplDef is an inherent or trait implementation.
type ImplDef struct {
	ID       DefID
	Generics Generics
	// Trait is NoDef for inherent impls.
	Trait  DefID
	SelfTy *Ty
	Unsafe bool
	// Negative marks `impl !Trait for T`.
	Negative bool
	// Synthetic marks impls the compiler derived on its own.
	Synthetic bool
	Items     []DefID
}

// IsTraitImpl reports whether the impl implements a trait.
func (i *ImplDef) IsTraitImpl() bool {
	return i.Trait.Valid()
}

// TraitDef is a trait definition.
type TraitDef struct {
	ID          DefID
	Generics    Generics
	Supertraits []DefID
	Auto        bool
	Unsafe      bool
	Items       []DefID
}

// FnDef is a free function, an associated function, or a trait method
// declaration.
type FnDef struct {
	ID       DefID
	Name     string
	Generics Generics
	// Parent is the enclosing impl or trait, NoDef for free functions.
	Parent DefID
	Inputs []*Ty
	Output *Ty
	Unsafe bool
	// Reachable marks functions callable from outside the compilation
	// unit.
	Reachable bool
}
