package types

import "fmt"

// Window is the [Start, End) range of record indices a run is scoped to,
// together with the page size and sort order used to walk it.
// End == 0 means unbounded.
type Window struct {
	// Start is the first record index to process. Must be >= 0.
	Start int
	// End is the exclusive upper index bound; 0 disables the bound.
	End int
	// Limit is the page size for each collection fetch. Must be > 0.
	Limit int
	// Sort is the remote sort expression (e.g. "created_on:asc").
	Sort string
}

// Validate checks window invariants.
func (w Window) Validate() error {
	if w.Start < 0 {
		return fmt.Errorf("offset_start must be >= 0, got %d", w.Start)
	}
	if w.Limit <= 0 {
		return fmt.Errorf("limit must be > 0, got %d", w.Limit)
	}
	if w.End != 0 && w.End <= w.Start {
		return fmt.Errorf("offset_end (%d) must be 0 or greater than offset_start (%d)", w.End, w.Start)
	}
	return nil
}

// PageLimit returns the number of records to request for a page beginning at
// cursor, clamped so no record at or beyond End is ever requested.
// Returns 0 when the cursor has reached the end of the window.
func (w Window) PageLimit(cursor int) int {
	if w.End == 0 {
		return w.Limit
	}
	if cursor >= w.End {
		return 0
	}
	remaining := w.End - cursor
	if remaining < w.Limit {
		return remaining
	}
	return w.Limit
}
