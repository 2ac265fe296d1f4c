// Package paths provides absolute path parsing, the prefix-tree path
// matcher, and the catalog of sensitive library APIs.
//
// # Path Format
//
// A path is a sequence of components separated by "::" (or "."):
//
//	core::ptr::read
//	alloc::vec::Vec::set_len
//	core::slice::<impl [T]>::get_unchecked
//
// Separators nested inside angle or square brackets belong to the
// component, so impl components survive parsing intact.
//
// # Matching
//
// [Matcher] stores every registered path in a trie keyed by component.
// A lookup walks one node per component and succeeds only on a terminal
// node, so the cost is proportional to the length of the candidate path
// and independent of the number of registered paths:
//
//	m, err := paths.NewMatcher(
//	    paths.Entry{Path: "a::b::c"},
//	    paths.Entry{Path: "a::b::d"},
//	)
//	m.Matches([]string{"a", "b", "c"}) // true
//	m.Matches([]string{"a", "b"})      // false: not terminal
//
// # Catalog
//
// [Catalog] is a matcher whose entries are tagged with a [Group] telling
// the checkers which kind of sensitive API matched:
//
//	cat := paths.DefaultCatalog()
//	group, ok := cat.Group(path)  // e.g. SetLen for alloc::vec::Vec::set_len
//
// Additional entries are registered from the -sensitive-api flag using
// the "group=path" format parsed by [ParseEntry].
package paths
