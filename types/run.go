package types

import "fmt"

// Mode selects what a run does with each attachment.
type Mode string

const (
	// ModeDownload transfers attachment bytes to the local download tree.
	ModeDownload Mode = "download"
	// ModeDelete removes attachments through the browser automation session.
	ModeDelete Mode = "delete"
)

// RunMeta is the identity of one run. Attached to every log entry.
type RunMeta struct {
	// RunID uniquely identifies this run.
	RunID string
	// Mode is the run mode.
	Mode Mode
}

// Validate checks run metadata invariants.
func (m *RunMeta) Validate() error {
	if m == nil {
		return fmt.Errorf("run metadata is required")
	}
	if m.RunID == "" {
		return fmt.Errorf("run_id must not be empty")
	}
	switch m.Mode {
	case ModeDownload, ModeDelete:
		return nil
	default:
		return fmt.Errorf("invalid mode %q", m.Mode)
	}
}
