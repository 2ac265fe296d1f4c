// Package ignore suppresses findings on selected items.
//
// An entry names an item by absolute path and, optionally, the checkers
// it silences:
//
//	demo::fill                                   -> every checker
//	demo::fill  unsafe_dataflow                  -> one checker
//	demo::fill  unsafe_dataflow,send_sync_variance
//	demo::fill  unsafe_dataflow - length re-checked by caller
//
// An entry covers the item and everything nested in it, so naming an impl
// also silences findings on its methods.
package ignore

import (
	"fmt"
	"strings"

	"github.com/mpyw/soundcheck/internal/ir"
	"github.com/mpyw/soundcheck/internal/paths"
	"github.com/mpyw/soundcheck/internal/report"
)

var checkerNames = map[string]report.Checker{
	"send_sync_variance": report.SendSyncVariance,
	"unsafe_destructor":  report.UnsafeDestructor,
	"unsafe_dataflow":    report.UnsafeDataflow,
}

// ParseChecker accepts a checker either as printed in findings
// ("UnsafeDataflow") or in snake case ("unsafe_dataflow").
func ParseChecker(s string) (report.Checker, error) {
	s = strings.TrimSpace(s)
	if c, ok := checkerNames[strings.ToLower(s)]; ok {
		return c, nil
	}
	for _, c := range checkerNames {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown checker %q", s)
}

// Entry silences Checkers on Item. No checkers means all of them.
type Entry struct {
	Item     string
	Checkers []report.Checker
	Reason   string
}

// ParseEntry builds an entry for item from a checker list such as
// "unsafe_dataflow,send_sync_variance - reason". The list may be empty.
func ParseEntry(item, checkers string) (Entry, error) {
	if _, err := paths.Parse(item); err != nil {
		return Entry{}, err
	}
	e := Entry{Item: strings.TrimSpace(item)}

	rest := strings.TrimSpace(checkers)
	// " - " starts a human-readable reason
	switch {
	case rest == "-":
		rest = ""
	case strings.HasPrefix(rest, "- "):
		e.Reason = strings.TrimSpace(rest[2:])
		rest = ""
	default:
		if idx := strings.Index(rest, " - "); idx >= 0 {
			e.Reason = strings.TrimSpace(rest[idx+3:])
			rest = rest[:idx]
		}
	}

	for _, part := range strings.Split(rest, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := ParseChecker(part)
		if err != nil {
			return Entry{}, fmt.Errorf("ignore %s: %w", e.Item, err)
		}
		e.Checkers = append(e.Checkers, c)
	}
	return e, nil
}

type entry struct {
	Entry
	path ir.Path
	used map[report.Checker]bool
}

// Map matches findings against a set of entries and tracks which entries
// were used.
type Map struct {
	entries []*entry
}

// Build returns a map over entries.
func Build(entries []Entry) (*Map, error) {
	m := &Map{}
	for _, e := range entries {
		p, err := paths.Parse(e.Item)
		if err != nil {
			return nil, fmt.Errorf("ignore %q: %w", e.Item, err)
		}
		m.entries = append(m.entries, &entry{Entry: e, path: p, used: make(map[report.Checker]bool)})
	}
	return m, nil
}

// ShouldIgnore reports whether f is silenced and marks the matching entry
// as used.
func (m *Map) ShouldIgnore(f report.Finding) bool {
	if m == nil || f.Item == "" {
		return false
	}
	item, err := paths.Parse(f.Item)
	if err != nil {
		return false
	}
	ignored := false
	for _, e := range m.entries {
		if !hasPrefix(item, e.path) || !e.covers(f.Checker) {
			continue
		}
		e.used[f.Checker] = true
		ignored = true
	}
	return ignored
}

// Filter returns the findings no entry silences.
func (m *Map) Filter(findings []report.Finding) []report.Finding {
	if m == nil || len(m.entries) == 0 {
		return findings
	}
	kept := findings[:0:0]
	for _, f := range findings {
		if !m.ShouldIgnore(f) {
			kept = append(kept, f)
		}
	}
	return kept
}

func (e *entry) covers(c report.Checker) bool {
	if len(e.Checkers) == 0 {
		return true
	}
	for _, want := range e.Checkers {
		if want == c {
			return true
		}
	}
	return false
}

func hasPrefix(p, prefix ir.Path) bool {
	return len(p) >= len(prefix) && p[:len(prefix)].Equal(prefix)
}

// Unused is an entry, or the part of one, that silenced nothing.
type Unused struct {
	Item string
	// Checkers lists the unused checkers; empty when the whole entry was
	// unused.
	Checkers []report.Checker
}

// Unused returns the entries that silenced nothing among the enabled
// checkers. Naming a checker that is not enabled counts as unused.
func (m *Map) Unused(enabled map[report.Checker]bool) []Unused {
	if m == nil {
		return nil
	}
	var unused []Unused
	for _, e := range m.entries {
		if len(e.Checkers) == 0 {
			anyUsed := false
			for c := range enabled {
				if e.used[c] {
					anyUsed = true
					break
				}
			}
			if !anyUsed {
				unused = append(unused, Unused{Item: e.Item})
			}
			continue
		}
		var checkers []report.Checker
		for _, c := range e.Checkers {
			if !enabled[c] || !e.used[c] {
				checkers = append(checkers, c)
			}
		}
		if len(checkers) > 0 {
			unused = append(unused, Unused{Item: e.Item, Checkers: checkers})
		}
	}
	return unused
}
