// Package report holds the findings emitted by the checkers.
package report

import (
	"fmt"

	"github.com/mpyw/soundcheck/internal/ir"
)

// Checker names the detector that produced a finding.
type Checker string

const (
	SendSyncVariance Checker = "SendSyncVariance"
	UnsafeDestructor Checker = "UnsafeDestructor"
	UnsafeDataflow   Checker = "UnsafeDataflow"
)

// Related is a secondary location with a short label.
type Related struct {
	Span  ir.Span
	Label string
}

// Finding is one suspected soundness bug.
type Finding struct {
	Checker  Checker
	Severity Severity
	Message  string
	Span     ir.Span
	// Item is the absolute path of the item the finding is about.
	Item    string
	Related []Related
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s [%s] %s", f.Span, f.Severity, f.Checker, f.Message)
}
