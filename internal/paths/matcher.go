package paths

import (
	"errors"
	"fmt"
	"strings"
)

// ErrGroupConflict is returned when one path is registered under two
// different groups.
var ErrGroupConflict = errors.New("path registered under conflicting groups")

// Entry is one path to register, optionally tagged with a group.
type Entry struct {
	Path  string
	Group Group
}

func (e Entry) String() string {
	if e.Group == NoGroup {
		return e.Path
	}
	return e.Group.String() + "=" + e.Path
}

type node struct {
	children map[string]*node
	terminal bool
	group    Group
}

// Matcher tests candidate paths against a fixed set of paths.
type Matcher struct {
	root node
	n    int
}

// NewMatcher builds a matcher over entries. It fails if any path is empty.
func NewMatcher(entries ...Entry) (*Matcher, error) {
	m := &Matcher{}
	for _, e := range entries {
		if err := m.add(e); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Matcher) add(e Entry) error {
	components, err := Parse(e.Path)
	if err != nil {
		return err
	}

	n := &m.root
	for _, c := range components {
		child, ok := n.children[c]
		if !ok {
			if n.children == nil {
				n.children = make(map[string]*node)
			}
			child = &node{}
			n.children[c] = child
		}
		n = child
	}

	if n.terminal {
		if n.group != e.Group {
			return fmt.Errorf("%w: %s (%s, %s)", ErrGroupConflict, strings.Join(components, "::"), n.group, e.Group)
		}
		return nil
	}
	n.terminal = true
	n.group = e.Group
	m.n++
	return nil
}

func (m *Matcher) lookup(path []string) *node {
	n := &m.root
	for _, c := range path {
		n = n.children[c]
		if n == nil {
			return nil
		}
	}
	if !n.terminal {
		return nil
	}
	return n
}

// Matches reports whether path equals one of the registered paths.
func (m *Matcher) Matches(path []string) bool {
	return m.lookup(path) != nil
}

// MatchString parses s and reports whether it matches. Unparseable input
// never matches.
func (m *Matcher) MatchString(s string) bool {
	components, err := Parse(s)
	if err != nil {
		return false
	}
	return m.Matches(components)
}

// MatchGroup returns the group path was registered under.
func (m *Matcher) MatchGroup(path []string) (Group, bool) {
	n := m.lookup(path)
	if n == nil {
		return NoGroup, false
	}
	return n.group, true
}

// Len returns the number of distinct registered paths.
func (m *Matcher) Len() int {
	return m.n
}
