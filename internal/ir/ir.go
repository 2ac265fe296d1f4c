package ir

import (
	"fmt"
	"strings"
)

// DefID identifies a definition for the lifetime of one analysis run.
type DefID uint32

// NoDef is the zero DefID. No definition is ever assigned it.
const NoDef DefID = 0

// Valid reports whether id names a definition.
func (id DefID) Valid() bool {
	return id != NoDef
}

func (id DefID) String() string {
	return fmt.Sprintf("DefId(%d)", uint32(id))
}

// Path is the absolute path of a definition, one symbol per component.
type Path []string

// String joins the components with "::".
func (p Path) String() string {
	return strings.Join(p, "::")
}

// Last returns the final component, or "" for an empty path.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Equal reports whether both paths have the same components.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Span is a source location. Line and Col are 1-based; zero means unknown.
type Span struct {
	File string
	Line int
	Col  int
}

// IsValid reports whether the span points anywhere.
func (s Span) IsValid() bool {
	return s.File != "" || s.Line > 0
}

func (s Span) String() string {
	if !s.IsValid() {
		return "<unknown>"
	}
	if s.Col > 0 {
		return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
	}
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}

// Less orders spans by file, then line, then column.
func (s Span) Less(other Span) bool {
	if s.File != other.File {
		return s.File < other.File
	}
	if s.Line != other.Line {
		return s.Line < other.Line
	}
	return s.Col < other.Col
}

// ItemKind classifies a definition.
type ItemKind int

const (
	KindUnknown ItemKind = iota
	KindFn
	KindStruct
	KindEnum
	KindUnion
	KindTrait
	KindImpl
)

func (k ItemKind) String() string {
	switch k {
	case KindFn:
		return "fn"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindUnion:
		return "union"
	case KindTrait:
		return "trait"
	case KindImpl:
		return "impl"
	default:
		return "unknown"
	}
}

// LangItem names a definition the language itself depends on.
type LangItem string

const (
	LangSend        LangItem = "send"
	LangSync        LangItem = "sync"
	LangCopy        LangItem = "copy"
	LangDrop        LangItem = "drop"
	LangSized       LangItem = "sized"
	LangPhantomData LangItem = "phantom_data"
	LangUnsafeCell  LangItem = "unsafe_cell"
)

// Program is the query interface of the front-end compiler.
//
// Implementations must be deterministic: asking the same question twice
// yields the same answer for the duration of a run.
type Program interface {
	// Items returns the local items in definition order, associated
	// functions included.
	Items() []DefID

	// Kind returns the kind of id, or KindUnknown.
	Kind(id DefID) ItemKind

	// Span returns the definition site of id.
	Span(id DefID) Span

	// DefPath computes the absolute path of id. It may be expensive;
	// callers are expected to memoize.
	DefPath(id DefID) Path

	Adt(id DefID) (*AdtDef, bool)
	Impl(id DefID) (*ImplDef, bool)
	Trait(id DefID) (*TraitDef, bool)
	Fn(id DefID) (*FnDef, bool)

	// Body returns the typed body of a function or closure. It reports
	// false for items without an executable body.
	Body(id DefID) (*Body, bool)

	// LangItem resolves a language item, if the program links one.
	LangItem(item LangItem) (DefID, bool)
}
