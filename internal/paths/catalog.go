package paths

import (
	"github.com/mpyw/soundcheck/internal/ir"
)

// Catalog is the immutable set of sensitive API paths.
type Catalog struct {
	matcher *Matcher
	entries []Entry
}

// NewCatalog builds a catalog over entries.
func NewCatalog(entries ...Entry) (*Catalog, error) {
	m, err := NewMatcher(entries...)
	if err != nil {
		return nil, err
	}
	return &Catalog{matcher: m, entries: append([]Entry(nil), entries...)}, nil
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultEntries()...)
	if err != nil {
		panic(err)
	}
	return c
}

// WithEntries returns a new catalog holding the receiver's entries plus
// extra. The receiver is left untouched.
func (c *Catalog) WithEntries(extra ...Entry) (*Catalog, error) {
	all := make([]Entry, 0, len(c.entries)+len(extra))
	all = append(all, c.entries...)
	all = append(all, extra...)
	return NewCatalog(all...)
}

// Group returns the group path is registered under.
func (c *Catalog) Group(path ir.Path) (Group, bool) {
	return c.matcher.MatchGroup(path)
}

// InGroup reports whether path is registered under one of groups.
func (c *Catalog) InGroup(path ir.Path, groups ...Group) bool {
	g, ok := c.Group(path)
	if !ok {
		return false
	}
	for _, want := range groups {
		if g == want {
			return true
		}
	}
	return false
}

// Len returns the number of distinct paths in the catalog.
func (c *Catalog) Len() int {
	return c.matcher.Len()
}

// Entries returns a copy of the registered entries.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// register expands every name under each crate prefix.
func register(entries []Entry, group Group, prefixes []string, names ...string) []Entry {
	for _, prefix := range prefixes {
		for _, name := range names {
			entries = append(entries, Entry{Path: prefix + "::" + name, Group: group})
		}
	}
	return entries
}

var (
	coreStd  = []string{"core", "std"}
	allocStd = []string{"alloc", "std"}
)

// DefaultEntries returns the built-in sensitive APIs. Items defined in
// core or alloc are also listed under their std re-export.
func DefaultEntries() []Entry {
	var e []Entry

	e = register(e, Dealloc, allocStd,
		"alloc::dealloc",
		"boxed::Box::from_raw",
		"boxed::Box::from_raw_in",
	)
	e = register(e, Dealloc, coreStd,
		"alloc::GlobalAlloc::dealloc",
		"alloc::Allocator::deallocate",
	)

	e = register(e, DropInPlace, coreStd,
		"ptr::drop_in_place",
		"mem::ManuallyDrop::drop",
		"mem::ManuallyDrop::take",
		"ptr::mut_ptr::<impl *mut T>::drop_in_place",
	)

	e = register(e, InitState, coreStd,
		"mem::MaybeUninit::assume_init",
		"mem::MaybeUninit::assume_init_read",
		"mem::MaybeUninit::assume_init_drop",
		"mem::MaybeUninit::assume_init_ref",
		"mem::MaybeUninit::assume_init_mut",
		"mem::uninitialized",
		"mem::zeroed",
	)

	e = register(e, RawRead, coreStd,
		"ptr::read",
		"ptr::read_unaligned",
		"ptr::read_volatile",
		"ptr::const_ptr::<impl *const T>::read",
		"ptr::mut_ptr::<impl *mut T>::read",
		"ptr::const_ptr::<impl *const T>::read_unaligned",
		"ptr::mut_ptr::<impl *mut T>::read_unaligned",
	)

	e = register(e, RawWrite, coreStd,
		"ptr::write",
		"ptr::write_unaligned",
		"ptr::write_volatile",
		"ptr::write_bytes",
		"ptr::mut_ptr::<impl *mut T>::write",
		"ptr::mut_ptr::<impl *mut T>::write_unaligned",
		"ptr::mut_ptr::<impl *mut T>::write_bytes",
	)

	e = register(e, RawCopy, coreStd,
		"ptr::copy",
		"ptr::copy_nonoverlapping",
		"intrinsics::copy",
		"intrinsics::copy_nonoverlapping",
		"ptr::swap_nonoverlapping",
		"ptr::const_ptr::<impl *const T>::copy_to",
		"ptr::const_ptr::<impl *const T>::copy_to_nonoverlapping",
		"ptr::mut_ptr::<impl *mut T>::copy_from",
		"ptr::mut_ptr::<impl *mut T>::copy_from_nonoverlapping",
	)

	e = register(e, SetLen, allocStd,
		"vec::Vec::set_len",
		"string::String::as_mut_vec",
	)

	e = register(e, UncheckedIndex, coreStd,
		"slice::<impl [T]>::get_unchecked",
		"slice::<impl [T]>::get_unchecked_mut",
		"str::<impl str>::get_unchecked",
		"str::<impl str>::get_unchecked_mut",
		"slice::index::SliceIndex::get_unchecked",
		"slice::index::SliceIndex::get_unchecked_mut",
		"hint::unreachable_unchecked",
	)

	e = register(e, FromRawParts, coreStd,
		"slice::from_raw_parts",
		"slice::from_raw_parts_mut",
		"slice::raw::from_raw_parts",
		"slice::raw::from_raw_parts_mut",
	)
	e = register(e, FromRawParts, allocStd,
		"vec::Vec::from_raw_parts",
		"string::String::from_raw_parts",
	)

	e = register(e, Transmute, coreStd,
		"intrinsics::transmute",
		"mem::transmute",
		"mem::transmute_copy",
	)

	e = register(e, PtrAsRef, coreStd,
		"ptr::const_ptr::<impl *const T>::as_ref",
		"ptr::mut_ptr::<impl *mut T>::as_ref",
		"ptr::mut_ptr::<impl *mut T>::as_mut",
		"ptr::non_null::NonNull::as_ref",
		"ptr::non_null::NonNull::as_mut",
		"ptr::NonNull::as_ref",
		"ptr::NonNull::as_mut",
	)

	e = register(e, SharedMutability, coreStd,
		"cell::UnsafeCell",
		"cell::Cell",
		"cell::RefCell",
		"cell::OnceCell",
		"cell::SyncUnsafeCell",
	)
	e = register(e, ExclusiveLock, []string{"std"},
		"sync::Mutex",
		"sync::mutex::Mutex",
	)
	e = register(e, SharedLock, []string{"std"},
		"sync::RwLock",
		"sync::OnceLock",
		"sync::rwlock::RwLock",
		"sync::once_lock::OnceLock",
	)

	return e
}
