package types

// OutcomeStatus classifies how a run ended.
//
// The fatal/non-fatal split is the only thing that decides whether a run
// keeps going: item-level failures degrade the outcome to partial but the
// run always attempts to finish the full offset window.
type OutcomeStatus string

const (
	// OutcomeSuccess: the window completed with zero item failures.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomePartial: the window completed but one or more items failed.
	OutcomePartial OutcomeStatus = "partial"
	// OutcomeDeclined: the operator declined the delete confirmation.
	// Nothing was attempted; no session was opened.
	OutcomeDeclined OutcomeStatus = "declined"
	// OutcomeFatal: the run aborted before finishing the window
	// (authentication rejected, destination clear failed, session unusable,
	// or metadata retries exhausted).
	OutcomeFatal OutcomeStatus = "fatal"
)

// RunOutcome is the terminal outcome of a run.
type RunOutcome struct {
	Status  OutcomeStatus `json:"status"`
	Message string        `json:"message"`
}
