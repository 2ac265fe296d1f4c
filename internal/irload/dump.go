package irload

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mpyw/soundcheck/internal/ir"
)

// Dump is the YAML program dump a front-end writes.
type Dump struct {
	Crate   string      `yaml:"crate"`
	File    string      `yaml:"file"`
	Traits  []TraitDump `yaml:"traits"`
	Adts    []AdtDump   `yaml:"adts"`
	Impls   []ImplDump  `yaml:"impls"`
	Fns     []FnDump    `yaml:"fns"`
	Externs []FnDump    `yaml:"externs"`
}

// TraitDump describes a trait. Generics use the "T: Bound + Bound" form.
type TraitDump struct {
	Path        string   `yaml:"path"`
	At          string   `yaml:"at"`
	Generics    []string `yaml:"generics"`
	Supertraits []string `yaml:"supertraits"`
	Auto        bool     `yaml:"auto"`
	Unsafe      bool     `yaml:"unsafe"`
	Fns         []FnDump `yaml:"fns"`
}

// AdtDump describes a struct, enum or union. Structs and unions list
// Fields; enums list Variants.
type AdtDump struct {
	Path     string        `yaml:"path"`
	At       string        `yaml:"at"`
	Kind     string        `yaml:"kind"`
	Generics []string      `yaml:"generics"`
	Where    []string      `yaml:"where"`
	Fields   []FieldDump   `yaml:"fields"`
	Variants []VariantDump `yaml:"variants"`
}

type FieldDump struct {
	Name string `yaml:"name"`
	Ty   string `yaml:"ty"`
	At   string `yaml:"at"`
}

type VariantDump struct {
	Name   string      `yaml:"name"`
	Fields []FieldDump `yaml:"fields"`
}

// ImplDump describes an impl block. Trait is empty for inherent impls.
type ImplDump struct {
	Path      string   `yaml:"path"`
	At        string   `yaml:"at"`
	Trait     string   `yaml:"trait"`
	Self      string   `yaml:"self"`
	Generics  []string `yaml:"generics"`
	Where     []string `yaml:"where"`
	Unsafe    bool     `yaml:"unsafe"`
	Negative  bool     `yaml:"negative"`
	Synthetic bool     `yaml:"synthetic"`
	Fns       []FnDump `yaml:"fns"`
}

// FnDump describes a function. Inside impls and traits Path is the bare
// method name. Externs may set Trait to make the function a trait method.
type FnDump struct {
	Path     string      `yaml:"path"`
	At       string      `yaml:"at"`
	Pub      bool        `yaml:"pub"`
	Unsafe   bool        `yaml:"unsafe"`
	Trait    string      `yaml:"trait"`
	Generics []string    `yaml:"generics"`
	Where    []string    `yaml:"where"`
	Params   []ParamDump `yaml:"params"`
	Ret      string      `yaml:"ret"`
	Body     []*ExprDump `yaml:"body"`
}

type ParamDump struct {
	Name string `yaml:"name"`
	Ty   string `yaml:"ty"`
}

// Load decodes a YAML dump from r.
func Load(r io.Reader) (*Program, error) {
	var d Dump
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decoding program dump: %w", err)
	}
	return Link(&d)
}

// LoadBytes decodes a YAML dump held in memory.
func LoadBytes(data []byte) (*Program, error) {
	return Load(strings.NewReader(string(data)))
}

// LoadFile decodes the YAML dump stored at name.
func LoadFile(name string) (*Program, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Link resolves every name in d and builds the program.
func Link(d *Dump) (*Program, error) {
	crate := d.Crate
	if crate == "" {
		crate = "krate"
	}
	l := &linker{p: NewProgram(crate), file: d.File}
	if err := l.link(d); err != nil {
		return nil, err
	}
	return l.p, nil
}

type pendingBody struct {
	fn    *ir.FnDef
	dump  *FnDump
	scope *typeScope
}

type linker struct {
	p       *Program
	file    string
	bodies  []pendingBody
	implSeq int
}

func (l *linker) local(path string) string {
	if strings.Contains(path, "::") {
		return path
	}
	return l.p.crate + "::" + path
}

func (l *linker) span(at string) (ir.Span, error) {
	if at == "" {
		return ir.Span{}, nil
	}
	parts := strings.Split(at, ":")
	file := l.file
	if _, err := strconv.Atoi(parts[0]); err != nil {
		file = parts[0]
		parts = parts[1:]
	}
	s := ir.Span{File: file}
	if len(parts) > 2 {
		return ir.Span{}, fmt.Errorf("invalid location %q", at)
	}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return ir.Span{}, fmt.Errorf("invalid location %q: %w", at, err)
		}
		if i == 0 {
			s.Line = n
		} else {
			s.Col = n
		}
	}
	return s, nil
}

func (l *linker) link(d *Dump) error {
	// Declare first so that types can refer to items defined later.
	traitIDs := make([]ir.DefID, len(d.Traits))
	for i, t := range d.Traits {
		span, err := l.span(t.At)
		if err != nil {
			return err
		}
		path := l.local(t.Path)
		traitIDs[i] = l.p.Declare(path, ir.KindTrait, true, span)
		l.p.Alias(lastComponent(path), traitIDs[i])
	}
	adtIDs := make([]ir.DefID, len(d.Adts))
	for i, a := range d.Adts {
		span, err := l.span(a.At)
		if err != nil {
			return err
		}
		kind, err := adtKind(a.Kind)
		if err != nil {
			return fmt.Errorf("%s: %w", a.Path, err)
		}
		path := l.local(a.Path)
		adtIDs[i] = l.p.Declare(path, itemKindOf(kind), true, span)
		l.p.Alias(lastComponent(path), adtIDs[i])
	}

	for i := range d.Traits {
		if err := l.trait(traitIDs[i], &d.Traits[i]); err != nil {
			return err
		}
	}
	for i := range d.Adts {
		if err := l.adt(adtIDs[i], &d.Adts[i]); err != nil {
			return err
		}
	}
	for i := range d.Impls {
		if err := l.impl(&d.Impls[i]); err != nil {
			return err
		}
	}
	for i := range d.Fns {
		f := &d.Fns[i]
		if _, err := l.fn(f, l.local(f.Path), ir.NoDef, nil, true); err != nil {
			return err
		}
	}
	for i := range d.Externs {
		f := &d.Externs[i]
		if _, err := l.fn(f, f.Path, ir.NoDef, nil, false); err != nil {
			return err
		}
	}

	for _, pb := range l.bodies {
		body, err := l.body(pb)
		if err != nil {
			return fmt.Errorf("%s: %w", l.p.paths[pb.fn.ID], err)
		}
		l.p.SetBody(body)
	}
	return nil
}

func adtKind(s string) (ir.AdtKind, error) {
	switch s {
	case "", "struct":
		return ir.AdtStruct, nil
	case "enum":
		return ir.AdtEnum, nil
	case "union":
		return ir.AdtUnion, nil
	default:
		return ir.AdtStruct, fmt.Errorf("unknown adt kind %q", s)
	}
}

func itemKindOf(k ir.AdtKind) ir.ItemKind {
	switch k {
	case ir.AdtEnum:
		return ir.KindEnum
	case ir.AdtUnion:
		return ir.KindUnion
	default:
		return ir.KindStruct
	}
}

func (l *linker) trait(id ir.DefID, t *TraitDump) error {
	td := &ir.TraitDef{ID: id, Auto: t.Auto, Unsafe: t.Unsafe}
	if err := l.generics(&td.Generics, t.Generics, nil, nil); err != nil {
		return fmt.Errorf("%s: %w", t.Path, err)
	}
	for _, s := range t.Supertraits {
		td.Supertraits = append(td.Supertraits, l.p.resolve(strings.TrimSpace(s), ir.KindTrait))
	}
	l.p.AddTrait(td)

	for i := range t.Fns {
		f := &t.Fns[i]
		fid, err := l.fn(f, l.p.paths[id].String()+"::"+f.Path, id, &td.Generics, true)
		if err != nil {
			return err
		}
		td.Items = append(td.Items, fid.ID)
	}
	return nil
}

func (l *linker) adt(id ir.DefID, a *AdtDump) error {
	kind, _ := adtKind(a.Kind)
	def := &ir.AdtDef{ID: id, Kind: kind}
	if err := l.generics(&def.Generics, a.Generics, a.Where, nil); err != nil {
		return fmt.Errorf("%s: %w", a.Path, err)
	}
	scope := newTypeScope(nil, &def.Generics)

	variants := a.Variants
	if kind != ir.AdtEnum {
		if len(variants) > 0 {
			return fmt.Errorf("%s: only enums have variants", a.Path)
		}
		variants = []VariantDump{{Name: lastComponent(a.Path), Fields: a.Fields}}
	} else if len(a.Fields) > 0 {
		return fmt.Errorf("%s: enum fields belong to variants", a.Path)
	}

	for _, v := range variants {
		variant := ir.Variant{Name: v.Name}
		for i, f := range v.Fields {
			ty, err := l.p.parseType(f.Ty, scope)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", a.Path, f.Name, err)
			}
			span, err := l.span(f.At)
			if err != nil {
				return err
			}
			name := f.Name
			if name == "" {
				name = strconv.Itoa(i)
			}
			variant.Fields = append(variant.Fields, ir.Field{Name: name, Ty: ty, Span: span})
		}
		def.Variants = append(def.Variants, variant)
	}
	l.p.AddAdt(def)
	return nil
}

func (l *linker) impl(d *ImplDump) error {
	span, err := l.span(d.At)
	if err != nil {
		return err
	}
	path := d.Path
	if path == "" {
		l.implSeq++
		if d.Trait != "" {
			path = fmt.Sprintf("<impl %s for %s>", d.Trait, d.Self)
		} else {
			path = fmt.Sprintf("<impl %s>", d.Self)
		}
		path = l.p.crate + "::" + path
		if _, taken := l.p.byPath[path]; taken {
			path = fmt.Sprintf("%s#%d", path, l.implSeq)
		}
	} else {
		path = l.local(path)
	}
	id := l.p.Declare(path, ir.KindImpl, true, span)

	def := &ir.ImplDef{ID: id, Unsafe: d.Unsafe, Negative: d.Negative, Synthetic: d.Synthetic}
	if err := l.generics(&def.Generics, d.Generics, nil, nil); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	scope := newTypeScope(nil, &def.Generics)
	if def.SelfTy, err = l.p.parseType(d.Self, scope); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	// where-clauses may mention Self
	if err := l.generics(&def.Generics, nil, d.Where, def.SelfTy); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if d.Trait != "" {
		def.Trait = l.p.resolve(strings.TrimSpace(d.Trait), ir.KindTrait)
	}
	l.p.AddImpl(def)

	for i := range d.Fns {
		f := &d.Fns[i]
		fid, err := l.fn(f, path+"::"+f.Path, id, &def.Generics, true)
		if err != nil {
			return err
		}
		def.Items = append(def.Items, fid.ID)
	}
	return nil
}

// fn declares and records a function. parentGenerics are the generics
// of the enclosing impl or trait.
func (l *linker) fn(d *FnDump, path string, parent ir.DefID, parentGenerics *ir.Generics, local bool) (*ir.FnDef, error) {
	span, err := l.span(d.At)
	if err != nil {
		return nil, err
	}
	id := l.p.Declare(path, ir.KindFn, local, span)
	def := &ir.FnDef{
		ID:        id,
		Name:      lastComponent(path),
		Parent:    parent,
		Unsafe:    d.Unsafe,
		Reachable: d.Pub,
	}
	if d.Trait != "" && !parent.Valid() {
		def.Parent = l.p.resolve(strings.TrimSpace(d.Trait), ir.KindTrait)
	}

	var self *ir.Ty
	if impl, ok := l.p.impls[parent]; ok {
		self = impl.SelfTy
	} else if _, ok := l.p.traits[def.Parent]; ok {
		self = ir.Param("Self")
	}

	if err := l.generics(&def.Generics, d.Generics, nil, nil); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	scope := newTypeScope(self, parentGenerics, &def.Generics)
	if err := l.generics(&def.Generics, nil, d.Where, self); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	for _, param := range d.Params {
		ty, err := l.p.parseType(param.Ty, scope)
		if err != nil {
			return nil, fmt.Errorf("%s(%s): %w", path, param.Name, err)
		}
		def.Inputs = append(def.Inputs, ty)
	}
	if d.Ret != "" {
		if def.Output, err = l.p.parseType(d.Ret, scope); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	l.p.AddFn(def)

	if len(d.Body) > 0 {
		l.bodies = append(l.bodies, pendingBody{fn: def, dump: d, scope: scope})
	}
	return def, nil
}

// generics fills g from "T: A + B" parameter and where-clause strings.
func (l *linker) generics(g *ir.Generics, params, where []string, self *ir.Ty) error {
	for _, s := range params {
		s = strings.TrimSpace(s)
		mayDangle := false
		if rest, ok := strings.CutPrefix(s, "#[may_dangle]"); ok {
			mayDangle = true
			s = strings.TrimSpace(rest)
		}
		name, bounds := splitBound(s)
		if strings.HasPrefix(name, "'") {
			continue
		}
		g.Params = append(g.Params, ir.GenericParam{
			Name:      name,
			Bounds:    l.bounds(bounds),
			MayDangle: mayDangle,
		})
	}
	if len(where) == 0 {
		return nil
	}
	scope := newTypeScope(self, g)
	for _, s := range where {
		lhs, bounds := splitBound(strings.TrimSpace(s))
		if strings.HasPrefix(lhs, "'") {
			continue
		}
		ty, err := l.p.parseType(lhs, scope)
		if err != nil {
			return err
		}
		g.Predicates = append(g.Predicates, ir.Predicate{Ty: ty, Bounds: l.bounds(bounds)})
	}
	return nil
}

func (l *linker) bounds(s string) []ir.DefID {
	var ids []ir.DefID
	for _, b := range strings.Split(s, "+") {
		b = strings.TrimSpace(b)
		if b == "" || strings.HasPrefix(b, "?") || strings.HasPrefix(b, "'") {
			continue
		}
		// generic arguments of the bound do not matter to the checkers
		if i := strings.IndexAny(b, "<("); i >= 0 {
			b = strings.TrimSpace(b[:i])
		}
		ids = append(ids, l.p.resolve(b, ir.KindTrait))
	}
	return ids
}

// splitBound splits "T: A + B" at the first single colon.
func splitBound(s string) (string, string) {
	for i := 0; i < len(s); i++ {
		if s[i] != ':' {
			continue
		}
		if i+1 < len(s) && s[i+1] == ':' {
			i++
			continue
		}
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	}
	return s, ""
}
