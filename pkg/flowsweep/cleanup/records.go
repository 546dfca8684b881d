package cleanup

import (
	"github.com/flowsweep/flowsweep/pkg/flowsweep/salesforce"
)

// Outcome is the final disposition of one deletion candidate.
type Outcome string

const (
	OutcomeDeleted Outcome = "deleted"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// DeletionRecord is the audit-trail entry for exactly one candidate.
type DeletionRecord struct {
	Flow       salesforce.FlowVersion `json:"flow" yaml:"flow"`
	Outcome    Outcome                `json:"outcome" yaml:"outcome"`
	Reason     string                 `json:"reason,omitempty" yaml:"reason,omitempty"`
	HTTPStatus int                    `json:"httpStatus,omitempty" yaml:"httpStatus,omitempty"`
}

// RunResult is one org's reconciled summary. The orchestrator produces one
// per org regardless of outcome, so the batch summary stays truthful even
// when every org fails for a different reason.
type RunResult struct {
	Instance      string           `json:"instance" yaml:"instance"`
	Authenticated bool             `json:"authenticated" yaml:"authenticated"`
	Skipped       bool             `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	SkipReason    string           `json:"skipReason,omitempty" yaml:"skipReason,omitempty"`
	Records       []DeletionRecord `json:"records" yaml:"records"`
	Error         string           `json:"error,omitempty" yaml:"error,omitempty"`

	// Err carries the fatal error for programmatic inspection; Error mirrors
	// it for rendering.
	Err error `json:"-" yaml:"-"`
}

func (r *RunResult) fail(err error) {
	r.Err = err
	r.Error = err.Error()
}

// Failed reports whether the run ended with a fatal error.
func (r *RunResult) Failed() bool { return r.Err != nil }

// Summary aggregates the per-record outcomes.
type Summary struct {
	Deleted int `json:"deleted" yaml:"deleted"`
	Failed  int `json:"failed" yaml:"failed"`
	Skipped int `json:"skipped" yaml:"skipped"`
}

func (r *RunResult) Summary() Summary {
	var s Summary
	for _, record := range r.Records {
		switch record.Outcome {
		case OutcomeDeleted:
			s.Deleted++
		case OutcomeFailed:
			s.Failed++
		case OutcomeSkipped:
			s.Skipped++
		}
	}
	return s
}
