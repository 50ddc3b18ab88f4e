package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/minecart-io/minecart/metrics"
	"github.com/minecart-io/minecart/types"
)

// RunReport is the structured JSON report written by --report.
type RunReport struct {
	RunID      string              `json:"run_id"`
	Mode       string              `json:"mode"`
	Outcome    types.OutcomeStatus `json:"outcome"`
	Message    string              `json:"message"`
	ExitCode   int                 `json:"exit_code"`
	DurationMs int64               `json:"duration_ms"`

	Metrics *metrics.Snapshot `json:"metrics"`

	FailedItems   []ItemFailure `json:"failed_items,omitempty"`
	ManualRecords []int         `json:"manual_delete_required,omitempty"`
}

// BuildRunReport composes a RunReport from a RunResult.
// The exitCode is the process exit code that will be returned to the caller.
func BuildRunReport(result *RunResult, exitCode int) *RunReport {
	snap := result.Stats
	return &RunReport{
		RunID:         result.RunMeta.RunID,
		Mode:          string(result.RunMeta.Mode),
		Outcome:       result.Outcome.Status,
		Message:       result.Outcome.Message,
		ExitCode:      exitCode,
		DurationMs:    result.Duration.Milliseconds(),
		Metrics:       &snap,
		FailedItems:   result.FailedItems,
		ManualRecords: result.ManualRecords,
	}
}

// WriteRunReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteRunReport(report *RunReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}

	if path == "-" {
		if err := writeRunReportTo(report, os.Stderr); err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// writeRunReportTo writes report JSON to any writer (for testing).
func writeRunReportTo(report *RunReport, w io.Writer) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
