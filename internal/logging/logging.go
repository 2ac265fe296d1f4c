// Package logging builds the hclog logger used for internal diagnostics.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Verbosity selects how much of the analyzer's own progress is printed.
type Verbosity int

const (
	Normal Verbosity = iota
	Verbose
	Trace
)

func (v Verbosity) String() string {
	switch v {
	case Normal:
		return "normal"
	case Verbose:
		return "verbose"
	case Trace:
		return "trace"
	default:
		return fmt.Sprintf("verbosity(%d)", int(v))
	}
}

// ParseVerbosity parses "normal", "verbose" or "trace".
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal", "":
		return Normal, nil
	case "verbose":
		return Verbose, nil
	case "trace":
		return Trace, nil
	default:
		return Normal, fmt.Errorf("unknown verbosity %q", s)
	}
}

// Set implements flag.Value.
func (v *Verbosity) Set(s string) error {
	parsed, err := ParseVerbosity(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Verbosity) UnmarshalText(text []byte) error {
	return v.Set(string(text))
}

// Level maps v to the lowest hclog level that gets printed.
func (v Verbosity) Level() hclog.Level {
	switch v {
	case Verbose:
		return hclog.Debug
	case Trace:
		return hclog.Trace
	default:
		return hclog.Info
	}
}

// New returns a logger named "soundcheck" writing to w.
func New(v Verbosity, w io.Writer) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "soundcheck",
		Output: w,
		Level:  v.Level(),
	})
}
