package paths

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyPath is returned for an empty path or an empty component.
var ErrEmptyPath = errors.New("empty path")

// Parse splits s into components. "::" and "." both separate components;
// separators inside <...> or [...] do not.
func Parse(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyPath
	}

	var (
		components []string
		depth      int
		start      int
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '<' || c == '[':
			depth++
		case c == '>' && i > 0 && s[i-1] == '-':
			// "->" in a fn pointer type
		case c == '>' || c == ']':
			depth--
		case depth == 0 && c == ':' && i+1 < len(s) && s[i+1] == ':':
			components = append(components, s[start:i])
			i++
			start = i + 1
		case depth == 0 && c == '.':
			components = append(components, s[start:i])
			start = i + 1
		}
	}
	components = append(components, s[start:])

	for _, c := range components {
		if c == "" {
			return nil, fmt.Errorf("%w: %q has an empty component", ErrEmptyPath, s)
		}
	}
	return components, nil
}

// MustParse is like Parse but panics on error. For static tables only.
func MustParse(s string) []string {
	components, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return components
}
