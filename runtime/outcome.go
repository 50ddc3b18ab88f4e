package runtime

import "github.com/minecart-io/minecart/types"

// Process exit codes.
const (
	ExitCodeSuccess      = 0 // window completed, no item failures
	ExitCodePartial      = 1 // window completed with item failures
	ExitCodeFatal        = 2 // run aborted before finishing the window
	ExitCodeInvalidInput = 3 // configuration rejected before the run started
)

// ExitCodeFor maps a run outcome onto the process exit code.
// A declined delete run exits 0: nothing was attempted and nothing failed.
func ExitCodeFor(status types.OutcomeStatus) int {
	switch status {
	case types.OutcomeSuccess, types.OutcomeDeclined:
		return ExitCodeSuccess
	case types.OutcomePartial:
		return ExitCodePartial
	default:
		return ExitCodeFatal
	}
}
