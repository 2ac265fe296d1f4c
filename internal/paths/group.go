package paths

import (
	"fmt"
	"strings"
)

// Group tags a sensitive API with the kind of hazard it carries.
type Group int

const (
	NoGroup Group = iota
	// Dealloc frees memory by hand.
	Dealloc
	// DropInPlace runs a destructor through a pointer.
	DropInPlace
	// InitState depends on the initialization state of memory.
	InitState
	// RawRead duplicates a value out of a raw pointer.
	RawRead
	// RawWrite overwrites memory without dropping the old value.
	RawWrite
	// RawCopy copies memory between raw pointers.
	RawCopy
	// SetLen adjusts a length without checks.
	SetLen
	// UncheckedIndex indexes without a bounds check.
	UncheckedIndex
	// FromRawParts rebuilds an owning or borrowing value from raw parts.
	FromRawParts
	// Transmute reinterprets bits as another type.
	Transmute
	// PtrAsRef turns a raw pointer into a reference.
	PtrAsRef
	// SharedMutability marks wrapper types that grant mutation through a
	// shared reference without synchronization.
	SharedMutability
	// ExclusiveLock marks locks that hand out one reference at a time.
	// Sharing one needs only the guarded value to be Send.
	ExclusiveLock
	// SharedLock marks synchronized wrappers that can hand out shared
	// references to several threads at once.
	SharedLock
)

var groupNames = map[Group]string{
	NoGroup:          "none",
	Dealloc:          "dealloc",
	DropInPlace:      "drop_in_place",
	InitState:        "init_state",
	RawRead:          "raw_read",
	RawWrite:         "raw_write",
	RawCopy:          "raw_copy",
	SetLen:           "set_len",
	UncheckedIndex:   "unchecked_index",
	FromRawParts:     "from_raw_parts",
	Transmute:        "transmute",
	PtrAsRef:         "ptr_as_ref",
	SharedMutability: "shared_mutability",
	ExclusiveLock:    "exclusive_lock",
	SharedLock:       "shared_lock",
}

func (g Group) String() string {
	if name, ok := groupNames[g]; ok {
		return name
	}
	return fmt.Sprintf("group(%d)", int(g))
}

// ParseGroup parses a group name as printed by Group.String.
func ParseGroup(s string) (Group, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for g, name := range groupNames {
		if name == s && g != NoGroup {
			return g, nil
		}
	}
	return NoGroup, fmt.Errorf("unknown API group %q", s)
}

// ParseEntry parses "group=path".
func ParseEntry(s string) (Entry, error) {
	name, path, ok := strings.Cut(s, "=")
	if !ok {
		return Entry{}, fmt.Errorf("invalid sensitive API %q: want group=path", s)
	}
	g, err := ParseGroup(name)
	if err != nil {
		return Entry{}, err
	}
	if _, err := Parse(path); err != nil {
		return Entry{}, err
	}
	return Entry{Path: strings.TrimSpace(path), Group: g}, nil
}

// ParseEntries parses a comma-separated list of "group=path" entries.
func ParseEntries(s string) ([]Entry, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var entries []Entry
	for _, part := range splitTopLevel(s) {
		e, err := ParseEntry(part)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// splitTopLevel splits on commas outside brackets, so that impl
// components such as "<impl Index<usize> for Vec<T, A>>" stay whole.
func splitTopLevel(s string) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '[':
			depth++
		case '>', ']':
			if s[i] == '>' && i > 0 && s[i-1] == '-' {
				continue
			}
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
