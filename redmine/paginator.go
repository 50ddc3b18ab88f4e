package redmine

import (
	"context"
	"fmt"
	"time"

	"github.com/minecart-io/minecart/log"
	"github.com/minecart-io/minecart/policy"
	"github.com/minecart-io/minecart/types"
)

// Lister abstracts the collection fetch for testing.
type Lister interface {
	ListIssues(ctx context.Context, offset, limit int, sort string, timeout time.Duration) ([]types.Record, error)
}

// Paginator drives sequential paged fetches of records within an offset
// window. The cursor starts at the window's Start and advances by the
// number of records each page actually returned.
//
// Transient fetch failures are retried per the fetch policy with escalating
// timeouts; exhaustion is fatal, since the run cannot continue without
// knowing what records exist. Authentication failures surface immediately.
type Paginator struct {
	lister Lister
	window types.Window
	fetch  policy.Policy
	logger *log.Logger

	cursor    int
	pages     int
	exhausted bool
}

// NewPaginator creates a paginator over window using lister.
func NewPaginator(lister Lister, window types.Window, fetch policy.Policy, logger *log.Logger) *Paginator {
	return &Paginator{
		lister: lister,
		window: window,
		fetch:  fetch,
		logger: logger,
		cursor: window.Start,
	}
}

// NextPage fetches the next page of records. exhausted flips to true once a
// page returns fewer records than requested, a page returns zero records, or
// the cursor reaches the window's end; the caller must stop requesting pages
// after that. A non-nil error is fatal for the run.
func (p *Paginator) NextPage(ctx context.Context) (records []types.Record, exhausted bool, err error) {
	if p.exhausted {
		return nil, true, nil
	}

	limit := p.window.PageLimit(p.cursor)
	if limit == 0 {
		p.exhausted = true
		p.logger.Info("offset window end reached", map[string]any{"cursor": p.cursor, "offset_end": p.window.End})
		return nil, true, nil
	}

	p.logger.Info("fetching collection page", map[string]any{"offset": p.cursor, "limit": limit})

	attempts, err := p.fetch.Do(ctx, Classify, func(ctx context.Context, attempt int, timeout time.Duration) error {
		if attempt > 0 {
			p.logger.Warn("retrying collection fetch", map[string]any{
				"offset":  p.cursor,
				"attempt": attempt + 1,
				"timeout": timeout.String(),
			})
		}
		var listErr error
		records, listErr = p.lister.ListIssues(ctx, p.cursor, limit, p.window.Sort, timeout)
		return listErr
	})
	if err != nil {
		p.exhausted = true
		return nil, true, fmt.Errorf("collection fetch at offset %d failed after %d attempts: %w", p.cursor, attempts, err)
	}

	p.pages++
	p.cursor += len(records)

	if len(records) < limit {
		p.exhausted = true
	}
	if p.window.End > 0 && p.cursor >= p.window.End {
		p.exhausted = true
	}

	p.logger.Info("collection page received", map[string]any{
		"page":      p.pages,
		"returned":  len(records),
		"cursor":    p.cursor,
		"exhausted": p.exhausted,
	})

	return records, p.exhausted, nil
}

// Pages returns the number of pages fetched so far.
func (p *Paginator) Pages() int { return p.pages }

// Cursor returns the current cursor position.
func (p *Paginator) Cursor() int { return p.cursor }
