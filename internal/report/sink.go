package report

import "sort"

// Sink accumulates findings in discovery order.
type Sink struct {
	findings []Finding
}

// Collect appends f.
func (s *Sink) Collect(f Finding) {
	s.findings = append(s.findings, f)
}

// Len returns the number of collected findings.
func (s *Sink) Len() int {
	return len(s.findings)
}

// Drain hands over every finding at or above min, most severe first and
// then by location. Ties keep discovery order. The sink is empty
// afterwards.
func (s *Sink) Drain(min Severity) []Finding {
	out := make([]Finding, 0, len(s.findings))
	for _, f := range s.findings {
		if f.Severity >= min {
			out = append(out, f)
		}
	}
	s.findings = nil

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity > out[j].Severity
		}
		return out[i].Span.Less(out[j].Span)
	})
	return out
}
