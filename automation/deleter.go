package automation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/minecart-io/minecart/log"
	"github.com/minecart-io/minecart/pace"
	"github.com/minecart-io/minecart/policy"
	"github.com/minecart-io/minecart/types"
)

// State is the deleter's position in the session lifecycle.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
	StateOnRecordPage    State = "on_record_page"
	StateConfirming      State = "confirming"
	StateFatal           State = "fatal"
)

// deleteSelector matches the per-attachment delete controls on a record page.
const deleteSelector = ".attachments .delete"

// RecordResult summarizes deletions for one record.
type RecordResult struct {
	RecordID int
	Deleted  int
	Failed   int
	// Skipped is set when the record page exposed no delete controls.
	Skipped bool
}

// Deleter walks record pages in an authenticated browser session and
// deletes their attachments one by one. Item failures are contained per
// record; only login failures and a dead session end the run.
//
// The page re-renders after every deletion, so the deleter always clicks
// the first matching delete control rather than addressing items by index.
type Deleter struct {
	driver   Driver
	baseURL  string
	governor *pace.Governor
	pol      policy.Policy
	logger   *log.Logger

	state State
}

// NewDeleter creates a deleter over driver for the web UI at baseURL.
func NewDeleter(driver Driver, baseURL string, governor *pace.Governor, pol policy.Policy, logger *log.Logger) *Deleter {
	return &Deleter{
		driver:   driver,
		baseURL:  strings.TrimRight(baseURL, "/"),
		governor: governor,
		pol:      pol,
		logger:   logger,
		state:    StateUnauthenticated,
	}
}

// State returns the current session state.
func (d *Deleter) State() State { return d.state }

// Start opens the browser session and authenticates. A login failure is
// fatal and is never retried.
func (d *Deleter) Start(ctx context.Context, username, password string) error {
	if err := d.driver.Open(ctx); err != nil {
		d.state = StateFatal
		return fmt.Errorf("opening browser session: %w", err)
	}
	if err := d.driver.Login(ctx, username, password, d.pol.TimeoutFor(0)); err != nil {
		d.state = StateFatal
		return err
	}
	d.transition(StateAuthenticated)
	return nil
}

// Close tears down the browser session.
func (d *Deleter) Close() error {
	err := d.driver.Close()
	if d.state != StateFatal {
		d.state = StateUnauthenticated
	}
	return err
}

// DeleteRecordAttachments deletes every attachment on the record's page.
// A non-nil error is fatal for the run; per-item failures are counted in
// the result and leave the session ready for the next record.
func (d *Deleter) DeleteRecordAttachments(ctx context.Context, rec types.Record) (RecordResult, error) {
	res := RecordResult{RecordID: rec.ID}

	if d.state == StateFatal {
		return res, ErrSessionUnusable
	}
	if d.state == StateUnauthenticated {
		return res, fmt.Errorf("%w: session not started", ErrSessionUnusable)
	}

	url := d.recordURL(rec.ID)
	if err := d.navigate(ctx, url); err != nil {
		if Classify(err) == policy.Fatal {
			d.state = StateFatal
			return res, err
		}
		d.logger.Error("record page unreachable", map[string]any{"record_id": rec.ID, "error": err.Error()})
		res.Failed = len(rec.Attachments)
		d.transition(StateAuthenticated)
		return res, nil
	}
	d.transition(StateOnRecordPage)

	total, err := d.driver.Count(ctx, deleteSelector, d.pol.TimeoutFor(0))
	if err != nil {
		if Classify(err) == policy.Fatal {
			d.state = StateFatal
			return res, err
		}
		d.logger.Error("scanning record page failed", map[string]any{"record_id": rec.ID, "error": err.Error()})
		res.Failed = len(rec.Attachments)
		d.transition(StateAuthenticated)
		return res, nil
	}
	if total == 0 {
		res.Skipped = true
		d.logger.Info("no delete controls on record page", map[string]any{"record_id": rec.ID})
		d.transition(StateAuthenticated)
		return res, nil
	}

	d.logger.Info("deleting record attachments", map[string]any{"record_id": rec.ID, "count": total})

items:
	for i := 0; i < total; i++ {
		if remaining, cerr := d.driver.Count(ctx, deleteSelector, d.pol.TimeoutFor(0)); cerr == nil && remaining == 0 {
			break
		}

		err := d.deleteNext(ctx, rec.ID)
		switch {
		case err == nil:
			res.Deleted++
		case errors.Is(err, ErrElementMissing):
			// The page dropped the remaining controls; nothing left to do.
			break items
		case Classify(err) == policy.Fatal:
			d.state = StateFatal
			return res, err
		default:
			res.Failed++
			d.logger.Error("attachment deletion failed", map[string]any{"record_id": rec.ID, "error": err.Error()})
			// Re-load the page so the next item starts from a known state.
			if nerr := d.navigate(ctx, url); nerr != nil {
				if Classify(nerr) == policy.Fatal {
					d.state = StateFatal
					return res, nerr
				}
				// Remaining items cannot be reached anymore.
				res.Failed = total - res.Deleted
				break items
			}
		}

		if werr := d.governor.Wait(ctx, pace.KindDelete); werr != nil {
			d.state = StateFatal
			return res, werr
		}
	}

	d.transition(StateAuthenticated)
	return res, nil
}

// deleteNext clicks the first delete control and accepts the confirmation
// dialog, retrying transient failures with escalating timeouts. The dialog
// accept is a mechanical step of every deletion, independent of the
// run-level confirmation gate.
func (d *Deleter) deleteNext(ctx context.Context, recordID int) error {
	_, err := d.pol.Do(ctx, Classify, func(ctx context.Context, attempt int, timeout time.Duration) error {
		if attempt > 0 {
			d.logger.Warn("retrying attachment deletion", map[string]any{
				"record_id": recordID,
				"attempt":   attempt + 1,
				"timeout":   timeout.String(),
			})
		}
		d.transition(StateConfirming)
		defer d.transition(StateOnRecordPage)

		if err := d.driver.Click(ctx, deleteSelector, timeout); err != nil {
			return err
		}
		if err := d.driver.AcceptDialog(ctx, timeout); err != nil {
			if errors.Is(err, ErrNoDialog) {
				d.logger.Warn("no confirmation dialog appeared", map[string]any{"record_id": recordID})
				return nil
			}
			return err
		}
		return nil
	})
	return err
}

func (d *Deleter) navigate(ctx context.Context, url string) error {
	_, err := d.pol.Do(ctx, Classify, func(ctx context.Context, attempt int, timeout time.Duration) error {
		if attempt > 0 {
			d.logger.Warn("retrying navigation", map[string]any{"url": url, "attempt": attempt + 1})
		}
		return d.driver.Goto(ctx, url, timeout)
	})
	return err
}

func (d *Deleter) recordURL(id int) string {
	return d.baseURL + "/issues/" + strconv.Itoa(id)
}

func (d *Deleter) transition(next State) {
	if d.state == next {
		return
	}
	d.logger.Debug("session state change", map[string]any{"from": string(d.state), "to": string(next)})
	d.state = next
}
