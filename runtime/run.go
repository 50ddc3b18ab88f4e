// Package runtime orchestrates a single run: paging through the remote
// collection and applying the mode's item operation to every attachment in
// the offset window.
package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"

	"github.com/minecart-io/minecart/automation"
	"github.com/minecart-io/minecart/log"
	"github.com/minecart-io/minecart/metrics"
	"github.com/minecart-io/minecart/pace"
	"github.com/minecart-io/minecart/transfer"
	"github.com/minecart-io/minecart/types"
)

// PageSource yields successive pages of records within the offset window.
type PageSource interface {
	NextPage(ctx context.Context) (records []types.Record, exhausted bool, err error)
}

// TransferExecutor downloads attachments into the local download tree.
type TransferExecutor interface {
	ResetRecordDir(recordID int) error
	Transfer(ctx context.Context, rec types.Record, att types.Attachment) (transfer.Result, error)
}

// AttachmentDeleter deletes attachments through the browser session.
type AttachmentDeleter interface {
	Start(ctx context.Context, username, password string) error
	DeleteRecordAttachments(ctx context.Context, rec types.Record) (automation.RecordResult, error)
	Close() error
}

// Confirmer asks the operator whether the run may proceed.
// Called exactly once, before anything is fetched or opened.
type Confirmer func() (bool, error)

// RunConfig configures a single run.
type RunConfig struct {
	// RunMeta is the run identity.
	RunMeta *types.RunMeta
	// Source pages through the remote collection.
	Source PageSource
	// Governor paces all outbound operations.
	Governor *pace.Governor
	// Collector accumulates run counters. Nil disables metrics.
	Collector *metrics.Collector
	// Logger overrides the run logger (for testing). If nil, one is built
	// from RunMeta.
	Logger *log.Logger

	// Transfers performs downloads. Required in download mode.
	Transfers TransferExecutor
	// Fs is the filesystem holding the download tree. Required in download
	// mode when ClearDownloads is set.
	Fs afero.Fs
	// DownloadRoot is the root of the download tree.
	DownloadRoot string
	// ClearDownloads wipes the download tree before the first fetch.
	ClearDownloads bool

	// Deleter performs browser deletions. Required in delete mode.
	Deleter AttachmentDeleter
	// Confirm gates the delete run. Required in delete mode.
	Confirm Confirmer
	// Username and Password authenticate the browser session.
	Username string
	Password string
}

// ItemFailure identifies one attachment the run could not process.
type ItemFailure struct {
	RecordID     int    `json:"record_id"`
	AttachmentID int    `json:"attachment_id,omitempty"`
	Name         string `json:"name,omitempty"`
	Reason       string `json:"reason"`
}

// RunResult is the terminal result of a run.
type RunResult struct {
	// RunMeta is the run identity.
	RunMeta *types.RunMeta
	// Outcome is the run outcome.
	Outcome *types.RunOutcome
	// Duration is the total run duration.
	Duration time.Duration
	// Stats is the final counter snapshot.
	Stats metrics.Snapshot
	// FailedItems lists every attachment that failed.
	FailedItems []ItemFailure
	// ManualRecords lists record IDs whose attachments need manual deletion.
	ManualRecords []int
}

// Orchestrator drives a single run end-to-end.
type Orchestrator struct {
	config    *RunConfig
	logger    *log.Logger
	startTime time.Time
}

// NewOrchestrator creates an orchestrator for config.
// Returns an error if run metadata is invalid.
func NewOrchestrator(config *RunConfig) (*Orchestrator, error) {
	if err := config.RunMeta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run metadata: %w", err)
	}

	logger := config.Logger
	if logger == nil {
		logger = log.NewLogger(config.RunMeta, nil)
	}

	return &Orchestrator{
		config: config,
		logger: logger,
	}, nil
}

// Execute executes the run end-to-end.
//
// Execution flow (download):
//  1. Clear the download tree if configured
//  2. Page through the window, downloading every attachment
//  3. Determine outcome
//
// Execution flow (delete):
//  1. Ask the operator to confirm; declined means nothing is fetched
//  2. Pre-scan the window for records that carry attachments
//  3. Open and authenticate the browser session
//  4. Delete each record's attachments
//  5. Determine outcome
//
// Fatal conditions are encoded in the outcome; the error return is
// reserved for misconfiguration.
func (o *Orchestrator) Execute(ctx context.Context) (*RunResult, error) {
	o.startTime = time.Now()

	o.logger.Info("starting run", map[string]any{"mode": string(o.config.RunMeta.Mode)})

	switch o.config.RunMeta.Mode {
	case types.ModeDownload:
		return o.executeDownload(ctx)
	case types.ModeDelete:
		return o.executeDelete(ctx)
	default:
		return nil, fmt.Errorf("unsupported mode %q", o.config.RunMeta.Mode)
	}
}

func (o *Orchestrator) executeDownload(ctx context.Context) (*RunResult, error) {
	if o.config.Transfers == nil {
		return nil, fmt.Errorf("download mode requires a transfer executor")
	}

	if o.config.ClearDownloads {
		if err := o.clearDownloadTree(); err != nil {
			return o.buildResult(&types.RunOutcome{
				Status:  types.OutcomeFatal,
				Message: fmt.Sprintf("clearing download tree: %v", err),
			}, nil, nil), nil
		}
	}

	var failures []ItemFailure

	for {
		if err := o.config.Governor.Wait(ctx, pace.KindRequest); err != nil {
			return o.fatalResult("run canceled while pacing", err, failures, nil), nil
		}

		records, exhausted, err := o.config.Source.NextPage(ctx)
		if err != nil {
			return o.fatalResult("fetching collection page", err, failures, nil), nil
		}
		if len(records) > 0 {
			o.config.Collector.IncPageFetched()
			o.config.Collector.AddRecordsSeen(len(records))
		}

		for _, rec := range records {
			if !rec.HasAttachments() {
				continue
			}
			o.config.Collector.IncRecordWithItems()

			if err := o.config.Transfers.ResetRecordDir(rec.ID); err != nil {
				o.logger.Error("record dir reset failed", map[string]any{"record_id": rec.ID, "error": err.Error()})
				for _, att := range rec.Attachments {
					o.config.Collector.IncDownloadFailed()
					failures = append(failures, ItemFailure{
						RecordID:     rec.ID,
						AttachmentID: att.ID,
						Name:         att.Filename,
						Reason:       fmt.Sprintf("record dir reset failed: %v", err),
					})
				}
				continue
			}

			for _, att := range rec.Attachments {
				if err := o.config.Governor.Wait(ctx, pace.KindDownload); err != nil {
					return o.fatalResult("run canceled while pacing", err, failures, nil), nil
				}

				res, err := o.config.Transfers.Transfer(ctx, rec, att)
				if res.DecodeFallback {
					o.config.Collector.IncDecodeFallback()
				}
				if err != nil {
					o.config.Collector.IncDownloadFailed()
					failures = append(failures, itemFailure(rec, att, err))
					return o.fatalResult("attachment transfer", err, failures, nil), nil
				}
				if res.Status == transfer.StatusOK {
					o.config.Collector.IncDownloadSucceeded()
				} else {
					o.config.Collector.IncDownloadFailed()
					failures = append(failures, itemFailure(rec, att, res.Err))
				}
			}
		}

		if exhausted {
			break
		}
	}

	return o.buildResult(windowOutcome(len(failures)), failures, nil), nil
}

func (o *Orchestrator) executeDelete(ctx context.Context) (*RunResult, error) {
	if o.config.Deleter == nil {
		return nil, fmt.Errorf("delete mode requires a deleter")
	}
	if o.config.Confirm == nil {
		return nil, fmt.Errorf("delete mode requires a confirmer")
	}

	proceed, err := o.config.Confirm()
	if err != nil {
		return o.fatalResult("reading confirmation", err, nil, nil), nil
	}
	if !proceed {
		o.logger.Info("delete run declined by operator", nil)
		return o.buildResult(&types.RunOutcome{
			Status:  types.OutcomeDeclined,
			Message: "delete run declined; nothing was attempted",
		}, nil, nil), nil
	}

	targets, err := o.prescan(ctx)
	if err != nil {
		return o.fatalResult("scanning collection", err, nil, nil), nil
	}
	if len(targets) == 0 {
		return o.buildResult(&types.RunOutcome{
			Status:  types.OutcomeSuccess,
			Message: "no records with attachments in the window",
		}, nil, nil), nil
	}

	o.logger.Info("delete targets collected", map[string]any{"records": len(targets)})

	if err := o.config.Deleter.Start(ctx, o.config.Username, o.config.Password); err != nil {
		return o.fatalResult("starting browser session", err, nil, nil), nil
	}
	defer func() {
		if err := o.config.Deleter.Close(); err != nil {
			o.logger.Warn("closing browser session", map[string]any{"error": err.Error()})
		}
	}()

	var failures []ItemFailure
	var manual []int

	for _, rec := range targets {
		res, err := o.config.Deleter.DeleteRecordAttachments(ctx, rec)
		o.config.Collector.AddDeletesSucceeded(res.Deleted)
		o.config.Collector.AddDeletesFailed(res.Failed)
		if res.Skipped {
			o.config.Collector.IncRecordSkipped()
		}
		if res.Failed > 0 {
			manual = append(manual, rec.ID)
			failures = append(failures, ItemFailure{
				RecordID: rec.ID,
				Reason:   fmt.Sprintf("%d attachment(s) not deleted", res.Failed),
			})
		}
		if err != nil {
			return o.fatalResult("deleting record attachments", err, failures, manual), nil
		}
	}

	return o.buildResult(windowOutcome(len(failures)), failures, manual), nil
}

// prescan pages through the window and returns the records that carry
// attachments, in collection order.
func (o *Orchestrator) prescan(ctx context.Context) ([]types.Record, error) {
	var targets []types.Record

	for {
		if err := o.config.Governor.Wait(ctx, pace.KindRequest); err != nil {
			return nil, err
		}

		records, exhausted, err := o.config.Source.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) > 0 {
			o.config.Collector.IncPageFetched()
			o.config.Collector.AddRecordsSeen(len(records))
		}

		for _, rec := range records {
			if rec.HasAttachments() {
				o.config.Collector.IncRecordWithItems()
				targets = append(targets, rec)
			}
		}

		if exhausted {
			return targets, nil
		}
	}
}

func (o *Orchestrator) clearDownloadTree() error {
	if o.config.Fs == nil {
		return fmt.Errorf("no filesystem configured")
	}
	o.logger.Info("clearing download tree", map[string]any{"root": o.config.DownloadRoot})
	if err := o.config.Fs.RemoveAll(o.config.DownloadRoot); err != nil {
		return err
	}
	return o.config.Fs.MkdirAll(o.config.DownloadRoot, 0o755)
}

func (o *Orchestrator) fatalResult(context string, err error, failures []ItemFailure, manual []int) *RunResult {
	o.logger.Error("run aborted", map[string]any{"context": context, "error": err.Error()})
	return o.buildResult(&types.RunOutcome{
		Status:  types.OutcomeFatal,
		Message: fmt.Sprintf("%s: %v", context, err),
	}, failures, manual)
}

func (o *Orchestrator) buildResult(outcome *types.RunOutcome, failures []ItemFailure, manual []int) *RunResult {
	result := &RunResult{
		RunMeta:       o.config.RunMeta,
		Outcome:       outcome,
		Duration:      time.Since(o.startTime),
		Stats:         o.config.Collector.Snapshot(),
		FailedItems:   failures,
		ManualRecords: manual,
	}

	o.logger.Info("run finished", map[string]any{
		"outcome":  string(outcome.Status),
		"message":  outcome.Message,
		"duration": result.Duration.String(),
	})

	return result
}

func windowOutcome(failures int) *types.RunOutcome {
	if failures > 0 {
		return &types.RunOutcome{
			Status:  types.OutcomePartial,
			Message: fmt.Sprintf("window completed with %d failed item(s)", failures),
		}
	}
	return &types.RunOutcome{
		Status:  types.OutcomeSuccess,
		Message: "window completed",
	}
}

func itemFailure(rec types.Record, att types.Attachment, err error) ItemFailure {
	f := ItemFailure{RecordID: rec.ID, AttachmentID: att.ID, Name: att.Filename}
	if err != nil {
		f.Reason = err.Error()
	}
	return f
}
