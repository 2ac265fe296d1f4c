package irload

import (
	"github.com/mpyw/soundcheck/internal/ir"
	"github.com/mpyw/soundcheck/internal/paths"
)

// Program is an in-memory ir.Program. Build one with the Add methods or
// decode a dump with Load.
type Program struct {
	crate  string
	next   ir.DefID
	items  []ir.DefID
	kinds  map[ir.DefID]ir.ItemKind
	spans  map[ir.DefID]ir.Span
	paths  map[ir.DefID]ir.Path
	byPath map[string]ir.DefID
	short  map[string]ir.DefID

	adts   map[ir.DefID]*ir.AdtDef
	impls  map[ir.DefID]*ir.ImplDef
	traits map[ir.DefID]*ir.TraitDef
	fns    map[ir.DefID]*ir.FnDef
	bodies map[ir.DefID]*ir.Body
	lang   map[ir.LangItem]ir.DefID
}

var _ ir.Program = (*Program)(nil)

type builtin struct {
	short string
	path  string
	kind  ir.ItemKind
	supe  []string
	auto  bool
	lang  ir.LangItem
}

// builtins are the external items every program can refer to by their
// short name.
var builtins = []builtin{
	{short: "Send", path: "core::marker::Send", kind: ir.KindTrait, auto: true, lang: ir.LangSend},
	{short: "Sync", path: "core::marker::Sync", kind: ir.KindTrait, auto: true, lang: ir.LangSync},
	{short: "Sized", path: "core::marker::Sized", kind: ir.KindTrait, lang: ir.LangSized},
	{short: "Clone", path: "core::clone::Clone", kind: ir.KindTrait},
	{short: "Copy", path: "core::marker::Copy", kind: ir.KindTrait, supe: []string{"core::clone::Clone"}, lang: ir.LangCopy},
	{short: "Drop", path: "core::ops::drop::Drop", kind: ir.KindTrait, lang: ir.LangDrop},
	{short: "Default", path: "core::default::Default", kind: ir.KindTrait},
	{short: "Debug", path: "core::fmt::Debug", kind: ir.KindTrait},
	{short: "Display", path: "core::fmt::Display", kind: ir.KindTrait},
	{short: "PartialEq", path: "core::cmp::PartialEq", kind: ir.KindTrait},
	{short: "Eq", path: "core::cmp::Eq", kind: ir.KindTrait, supe: []string{"core::cmp::PartialEq"}},
	{short: "PartialOrd", path: "core::cmp::PartialOrd", kind: ir.KindTrait, supe: []string{"core::cmp::PartialEq"}},
	{short: "Ord", path: "core::cmp::Ord", kind: ir.KindTrait, supe: []string{"core::cmp::Eq", "core::cmp::PartialOrd"}},
	{short: "Hash", path: "core::hash::Hash", kind: ir.KindTrait},
	{short: "Iterator", path: "core::iter::traits::iterator::Iterator", kind: ir.KindTrait},
	{short: "IntoIterator", path: "core::iter::traits::collect::IntoIterator", kind: ir.KindTrait},
	{short: "FnOnce", path: "core::ops::function::FnOnce", kind: ir.KindTrait},
	{short: "FnMut", path: "core::ops::function::FnMut", kind: ir.KindTrait, supe: []string{"core::ops::function::FnOnce"}},
	{short: "Fn", path: "core::ops::function::Fn", kind: ir.KindTrait, supe: []string{"core::ops::function::FnMut"}},
	{short: "Deref", path: "core::ops::deref::Deref", kind: ir.KindTrait},
	{short: "DerefMut", path: "core::ops::deref::DerefMut", kind: ir.KindTrait, supe: []string{"core::ops::deref::Deref"}},
	{short: "Index", path: "core::ops::index::Index", kind: ir.KindTrait},
	{short: "IndexMut", path: "core::ops::index::IndexMut", kind: ir.KindTrait, supe: []string{"core::ops::index::Index"}},
	{short: "Read", path: "std::io::Read", kind: ir.KindTrait},
	{short: "Write", path: "std::io::Write", kind: ir.KindTrait},

	{short: "PhantomData", path: "core::marker::PhantomData", kind: ir.KindStruct, lang: ir.LangPhantomData},
	{short: "UnsafeCell", path: "core::cell::UnsafeCell", kind: ir.KindStruct, lang: ir.LangUnsafeCell},
	{short: "Cell", path: "core::cell::Cell", kind: ir.KindStruct},
	{short: "RefCell", path: "core::cell::RefCell", kind: ir.KindStruct},
	{short: "OnceCell", path: "core::cell::OnceCell", kind: ir.KindStruct},
	{short: "Mutex", path: "std::sync::Mutex", kind: ir.KindStruct},
	{short: "RwLock", path: "std::sync::RwLock", kind: ir.KindStruct},
	{short: "Vec", path: "alloc::vec::Vec", kind: ir.KindStruct},
	{short: "String", path: "alloc::string::String", kind: ir.KindStruct},
	{short: "Box", path: "alloc::boxed::Box", kind: ir.KindStruct},
	{short: "Rc", path: "alloc::rc::Rc", kind: ir.KindStruct},
	{short: "Arc", path: "alloc::sync::Arc", kind: ir.KindStruct},
	{short: "Option", path: "core::option::Option", kind: ir.KindEnum},
	{short: "Result", path: "core::result::Result", kind: ir.KindEnum},
	{short: "MaybeUninit", path: "core::mem::MaybeUninit", kind: ir.KindUnion},
	{short: "ManuallyDrop", path: "core::mem::ManuallyDrop", kind: ir.KindStruct},
	{short: "NonNull", path: "core::ptr::NonNull", kind: ir.KindStruct},
	{short: "Layout", path: "core::alloc::layout::Layout", kind: ir.KindStruct},
}

// NewProgram returns an empty program for crate with the builtin external
// items predeclared.
func NewProgram(crate string) *Program {
	p := &Program{
		crate:  crate,
		kinds:  make(map[ir.DefID]ir.ItemKind),
		spans:  make(map[ir.DefID]ir.Span),
		paths:  make(map[ir.DefID]ir.Path),
		byPath: make(map[string]ir.DefID),
		short:  make(map[string]ir.DefID),
		adts:   make(map[ir.DefID]*ir.AdtDef),
		impls:  make(map[ir.DefID]*ir.ImplDef),
		traits: make(map[ir.DefID]*ir.TraitDef),
		fns:    make(map[ir.DefID]*ir.FnDef),
		bodies: make(map[ir.DefID]*ir.Body),
		lang:   make(map[ir.LangItem]ir.DefID),
	}
	for _, b := range builtins {
		id := p.Declare(b.path, b.kind, false, ir.Span{})
		p.short[b.short] = id
		if b.lang != "" {
			p.lang[b.lang] = id
		}
	}
	for _, b := range builtins {
		if b.kind != ir.KindTrait {
			continue
		}
		td := &ir.TraitDef{ID: p.byPath[b.path], Auto: b.auto}
		for _, s := range b.supe {
			td.Supertraits = append(td.Supertraits, p.byPath[s])
		}
		p.traits[td.ID] = td
	}
	return p
}

// Crate returns the name of the local crate.
func (p *Program) Crate() string {
	return p.crate
}

// Declare registers path and returns its id. Declaring a known path
// returns the existing id. Local items are listed by Items in
// declaration order.
func (p *Program) Declare(path string, kind ir.ItemKind, local bool, span ir.Span) ir.DefID {
	if id, ok := p.byPath[path]; ok {
		if span.IsValid() {
			p.spans[id] = span
		}
		if kind != ir.KindUnknown {
			p.kinds[id] = kind
		}
		return id
	}
	p.next++
	id := p.next
	components, err := paths.Parse(path)
	if err != nil {
		components = []string{path}
	}
	p.paths[id] = components
	p.byPath[path] = id
	p.kinds[id] = kind
	p.spans[id] = span
	if local {
		p.items = append(p.items, id)
	}
	return id
}

// Lookup finds an item by absolute path, or by the short name of a
// builtin.
func (p *Program) Lookup(path string) (ir.DefID, bool) {
	if id, ok := p.byPath[path]; ok {
		return id, true
	}
	if id, ok := p.short[path]; ok {
		return id, true
	}
	return ir.NoDef, false
}

// Alias makes name resolve to id in Lookup.
func (p *Program) Alias(name string, id ir.DefID) {
	p.short[name] = id
}

// AddAdt records the definition of an already declared ADT.
func (p *Program) AddAdt(a *ir.AdtDef) { p.adts[a.ID] = a }

// AddImpl records the definition of an already declared impl.
func (p *Program) AddImpl(i *ir.ImplDef) { p.impls[i.ID] = i }

// AddTrait records the definition of an already declared trait.
func (p *Program) AddTrait(t *ir.TraitDef) { p.traits[t.ID] = t }

// AddFn records the signature of an already declared function.
func (p *Program) AddFn(f *ir.FnDef) { p.fns[f.ID] = f }

// SetBody records the typed body of b.Owner.
func (p *Program) SetBody(b *ir.Body) { p.bodies[b.Owner] = b }

// SetLangItem binds a language item.
func (p *Program) SetLangItem(item ir.LangItem, id ir.DefID) { p.lang[item] = id }

func (p *Program) Items() []ir.DefID {
	return append([]ir.DefID(nil), p.items...)
}

func (p *Program) Kind(id ir.DefID) ir.ItemKind {
	return p.kinds[id]
}

func (p *Program) Span(id ir.DefID) ir.Span {
	return p.spans[id]
}

func (p *Program) DefPath(id ir.DefID) ir.Path {
	return append(ir.Path(nil), p.paths[id]...)
}

func (p *Program) Adt(id ir.DefID) (*ir.AdtDef, bool) {
	a, ok := p.adts[id]
	return a, ok
}

func (p *Program) Impl(id ir.DefID) (*ir.ImplDef, bool) {
	i, ok := p.impls[id]
	return i, ok
}

func (p *Program) Trait(id ir.DefID) (*ir.TraitDef, bool) {
	t, ok := p.traits[id]
	return t, ok
}

func (p *Program) Fn(id ir.DefID) (*ir.FnDef, bool) {
	f, ok := p.fns[id]
	return f, ok
}

func (p *Program) Body(id ir.DefID) (*ir.Body, bool) {
	b, ok := p.bodies[id]
	return b, ok
}

func (p *Program) LangItem(item ir.LangItem) (ir.DefID, bool) {
	id, ok := p.lang[item]
	return id, ok
}
