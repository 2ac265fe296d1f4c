package render

import (
	"fmt"
	"io"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/mpyw/soundcheck/internal/ir"
	"github.com/mpyw/soundcheck/internal/report"
)

const informationURI = "https://github.com/mpyw/soundcheck"

var ruleDescriptions = map[report.Checker]string{
	report.SendSyncVariance: "Send/Sync impl does not constrain its generic parameters enough",
	report.UnsafeDestructor: "destructor performs unsafe operations on non-Copy generic data",
	report.UnsafeDataflow:   "unsafe operation relies on a precondition a caller-supplied function may break",
}

// rules lists the checkers in a fixed order so rule indices are stable.
var rules = []report.Checker{
	report.SendSyncVariance,
	report.UnsafeDestructor,
	report.UnsafeDataflow,
}

// WriteSARIF writes findings as a SARIF 2.1.0 log with one rule per
// checker.
func WriteSARIF(w io.Writer, findings []report.Finding) error {
	log, err := sarif.New(sarif.Version210)
	if err != nil {
		return fmt.Errorf("creating SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI("soundcheck", informationURI)
	for _, c := range rules {
		run.AddRule(string(c)).
			WithDescription(ruleDescriptions[c]).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: "warning"})
	}

	for _, f := range findings {
		result := sarif.NewRuleResult(string(f.Checker)).
			WithMessage(sarif.NewTextMessage(f.Message)).
			WithLevel(sarifLevel(f.Severity)).
			WithLocations([]*sarif.Location{location(f.Span)})
		for i, r := range f.Related {
			loc := location(r.Span)
			id := uint(i + 1)
			loc.Id = &id
			loc.Message = sarif.NewTextMessage(r.Label)
			result.RelatedLocations = append(result.RelatedLocations, loc)
		}
		run.AddResult(result)
	}
	log.AddRun(run)

	return log.PrettyWrite(w)
}

func location(span ir.Span) *sarif.Location {
	region := sarif.NewRegion().WithStartLine(span.Line)
	if span.Col > 0 {
		region = region.WithStartColumn(span.Col)
	}
	return sarif.NewLocation().WithPhysicalLocation(
		sarif.NewPhysicalLocation().
			WithArtifactLocation(sarif.NewArtifactLocation().WithUri(span.File)).
			WithRegion(region),
	)
}

func sarifLevel(s report.Severity) string {
	switch s {
	case report.Error:
		return "error"
	case report.Warning:
		return "warning"
	default:
		return "note"
	}
}
