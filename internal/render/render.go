// Package render writes findings as text, JSON or SARIF.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mpyw/soundcheck/internal/report"
)

// Format selects an output encoding. It implements pflag.Value.
type Format string

const (
	Text  Format = "text"
	JSON  Format = "json"
	SARIF Format = "sarif"
)

// ParseFormat parses "text", "json" or "sarif".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Text, JSON, SARIF:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or sarif)", s)
	}
}

func (f Format) String() string { return string(f) }

func (f *Format) Set(s string) error {
	parsed, err := ParseFormat(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func (f Format) Type() string { return "format" }

// Write encodes findings to w.
func Write(w io.Writer, format Format, findings []report.Finding) error {
	switch format {
	case Text, "":
		return WriteText(w, findings)
	case JSON:
		return WriteJSON(w, findings)
	case SARIF:
		return WriteSARIF(w, findings)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteText writes one line per finding followed by its related
// locations, indented.
func WriteText(w io.Writer, findings []report.Finding) error {
	for _, f := range findings {
		if _, err := fmt.Fprintf(w, "%s: %s[%s]: %s\n", f.Span, f.Severity, f.Checker, f.Message); err != nil {
			return err
		}
		for _, r := range f.Related {
			if _, err := fmt.Fprintf(w, "    %s: note: %s\n", r.Span, r.Label); err != nil {
				return err
			}
		}
	}
	return nil
}

type jsonLocation struct {
	File  string `json:"file"`
	Line  int    `json:"line"`
	Col   int    `json:"column,omitempty"`
	Label string `json:"label,omitempty"`
}

type jsonFinding struct {
	Checker  report.Checker  `json:"checker"`
	Severity report.Severity `json:"severity"`
	Message  string          `json:"message"`
	Item     string          `json:"item,omitempty"`
	Location jsonLocation    `json:"location"`
	Related  []jsonLocation  `json:"related,omitempty"`
}

// WriteJSON writes findings as an indented JSON array.
func WriteJSON(w io.Writer, findings []report.Finding) error {
	out := make([]jsonFinding, 0, len(findings))
	for _, f := range findings {
		jf := jsonFinding{
			Checker:  f.Checker,
			Severity: f.Severity,
			Message:  f.Message,
			Item:     f.Item,
			Location: jsonLocation{File: f.Span.File, Line: f.Span.Line, Col: f.Span.Col},
		}
		for _, r := range f.Related {
			jf.Related = append(jf.Related, jsonLocation{File: r.Span.File, Line: r.Span.Line, Col: r.Span.Col, Label: r.Label})
		}
		out = append(out, jf)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
