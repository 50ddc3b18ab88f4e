package transfer

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/afero"

	"github.com/minecart-io/minecart/iox"
	"github.com/minecart-io/minecart/log"
	"github.com/minecart-io/minecart/policy"
	"github.com/minecart-io/minecart/types"
)

// Downloader opens the byte stream for an attachment locator.
type Downloader interface {
	Download(ctx context.Context, url string, timeout time.Duration) (io.ReadCloser, error)
}

// Status is the terminal state of one item transfer.
type Status string

const (
	// StatusOK: bytes landed on disk.
	StatusOK Status = "ok"
	// StatusFailed: the item failed after classification or retry
	// exhaustion. Never aborts siblings.
	StatusFailed Status = "failed"
)

// Result describes one attachment transfer.
type Result struct {
	Status   Status
	Path     string
	Attempts int
	// DecodeFallback is set when the display name's percent decoding failed
	// and the raw name was used instead.
	DecodeFallback bool
	Err            error
}

// Executor performs per-attachment downloads with retry, escalating
// timeouts, and sanitized destination paths. It exclusively owns the
// download tree below root.
type Executor struct {
	fs         afero.Fs
	downloader Downloader
	classify   policy.Classifier
	pol        policy.Policy
	root       string
	logger     *log.Logger
}

// NewExecutor creates a transfer executor rooted at root.
func NewExecutor(fs afero.Fs, downloader Downloader, root string, pol policy.Policy, classify policy.Classifier, logger *log.Logger) *Executor {
	return &Executor{
		fs:         fs,
		downloader: downloader,
		classify:   classify,
		pol:        pol,
		root:       root,
		logger:     logger,
	}
}

// RecordDir returns the per-record destination directory.
func (e *Executor) RecordDir(recordID int) string {
	return filepath.Join(e.root, strconv.Itoa(recordID))
}

// ResetRecordDir removes any previous contents of the record's directory
// and recreates it. Called once per record, only for records that actually
// carry attachments.
func (e *Executor) ResetRecordDir(recordID int) error {
	dir := e.RecordDir(recordID)
	if err := e.fs.RemoveAll(dir); err != nil {
		return fmt.Errorf("clearing record dir %s: %w", dir, err)
	}
	if err := e.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating record dir %s: %w", dir, err)
	}
	return nil
}

// Transfer downloads one attachment into the record's directory.
// A non-nil error is fatal for the whole run (authentication rejection);
// every other failure is contained in the Result and must not abort
// sibling attachments or subsequent records.
func (e *Executor) Transfer(ctx context.Context, rec types.Record, att types.Attachment) (Result, error) {
	dir := e.RecordDir(rec.ID)

	name, decodeFailed := SanitizeFilename(att.Filename)
	if decodeFailed {
		e.logger.Warn("filename decode failed, using raw name", map[string]any{
			"record_id":     rec.ID,
			"attachment_id": att.ID,
			"raw":           att.Filename,
		})
	}

	if err := e.fs.MkdirAll(dir, 0o755); err != nil {
		return Result{Status: StatusFailed, DecodeFallback: decodeFailed, Err: err}, nil
	}

	path := filepath.Join(dir, UniqueName(e.fs, dir, name))

	attempts, err := e.pol.Do(ctx, e.classify, func(ctx context.Context, attempt int, timeout time.Duration) error {
		if attempt > 0 {
			e.logger.Warn("retrying attachment transfer", map[string]any{
				"record_id":     rec.ID,
				"attachment_id": att.ID,
				"attempt":       attempt + 1,
				"timeout":       timeout.String(),
			})
		}
		return e.attempt(ctx, att, path, timeout)
	})
	if err != nil {
		if e.classify(err) == policy.Fatal {
			return Result{Status: StatusFailed, Attempts: attempts, DecodeFallback: decodeFailed, Err: err}, err
		}
		e.logger.Error("attachment transfer failed", map[string]any{
			"record_id":     rec.ID,
			"attachment_id": att.ID,
			"attempts":      attempts,
			"error":         err.Error(),
		})
		return Result{Status: StatusFailed, Attempts: attempts, DecodeFallback: decodeFailed, Err: err}, nil
	}

	e.logger.Info("attachment downloaded", map[string]any{
		"record_id":     rec.ID,
		"attachment_id": att.ID,
		"path":          path,
		"attempts":      attempts,
	})
	return Result{Status: StatusOK, Path: path, Attempts: attempts, DecodeFallback: decodeFailed}, nil
}

// attempt performs a single byte-for-byte transfer to path.
// Partial files from failed attempts are removed so a retry starts clean.
func (e *Executor) attempt(ctx context.Context, att types.Attachment, path string, timeout time.Duration) error {
	body, err := e.downloader.Download(ctx, att.ContentURL, timeout)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(body)

	f, err := e.fs.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	written, copyErr := io.Copy(f, body)
	closeErr := f.Close()

	if copyErr != nil {
		_ = e.fs.Remove(path)
		return fmt.Errorf("writing %s after %d bytes: %w", path, written, copyErr)
	}
	if closeErr != nil {
		_ = e.fs.Remove(path)
		return fmt.Errorf("closing %s: %w", path, closeErr)
	}

	e.logger.Debug("attachment bytes written", map[string]any{"path": path, "bytes": written})
	return nil
}
