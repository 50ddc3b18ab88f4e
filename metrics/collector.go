// Package metrics provides per-run counter collection.
//
// The Collector accumulates counters during a single run. It is a leaf
// package with no internal dependencies.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of the run counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Collection
	PagesFetched     int64 `json:"pages_fetched"`
	RecordsSeen      int64 `json:"records_seen"`
	RecordsWithItems int64 `json:"records_with_items"`
	DecodeFallbacks  int64 `json:"decode_fallbacks"`

	// Download mode
	DownloadsSucceeded int64 `json:"downloads_succeeded"`
	DownloadsFailed    int64 `json:"downloads_failed"`

	// Delete mode
	DeletesSucceeded int64 `json:"deletes_succeeded"`
	DeletesFailed    int64 `json:"deletes_failed"`
	RecordsSkipped   int64 `json:"records_skipped"`

	// Dimensions (informational, set at construction)
	RunID string `json:"run_id"`
	Mode  string `json:"mode"`
}

// Collector accumulates counters during a single run.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	pagesFetched     int64
	recordsSeen      int64
	recordsWithItems int64
	decodeFallbacks  int64

	downloadsSucceeded int64
	downloadsFailed    int64

	deletesSucceeded int64
	deletesFailed    int64
	recordsSkipped   int64

	runID string
	mode  string
}

// NewCollector creates a Collector with run dimensions.
func NewCollector(runID, mode string) *Collector {
	return &Collector{runID: runID, mode: mode}
}

// IncPageFetched records a fetched collection page.
func (c *Collector) IncPageFetched() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.pagesFetched++
	c.mu.Unlock()
}

// AddRecordsSeen records records returned by a page.
func (c *Collector) AddRecordsSeen(n int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.recordsSeen += int64(n)
	c.mu.Unlock()
}

// IncRecordWithItems records a record that carries attachments.
func (c *Collector) IncRecordWithItems() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.recordsWithItems++
	c.mu.Unlock()
}

// IncDecodeFallback records a filename whose percent decoding failed.
func (c *Collector) IncDecodeFallback() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.decodeFallbacks++
	c.mu.Unlock()
}

// IncDownloadSucceeded records a completed attachment download.
func (c *Collector) IncDownloadSucceeded() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.downloadsSucceeded++
	c.mu.Unlock()
}

// IncDownloadFailed records an attachment download that exhausted retries.
func (c *Collector) IncDownloadFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.downloadsFailed++
	c.mu.Unlock()
}

// AddDeletesSucceeded records completed attachment deletions.
func (c *Collector) AddDeletesSucceeded(n int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.deletesSucceeded += int64(n)
	c.mu.Unlock()
}

// AddDeletesFailed records attachment deletions that exhausted retries.
func (c *Collector) AddDeletesFailed(n int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.deletesFailed += int64(n)
	c.mu.Unlock()
}

// IncRecordSkipped records a record whose page exposed nothing to delete.
func (c *Collector) IncRecordSkipped() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.recordsSkipped++
	c.mu.Unlock()
}

// Snapshot returns an immutable point-in-time view of all counters.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		PagesFetched:     c.pagesFetched,
		RecordsSeen:      c.recordsSeen,
		RecordsWithItems: c.recordsWithItems,
		DecodeFallbacks:  c.decodeFallbacks,

		DownloadsSucceeded: c.downloadsSucceeded,
		DownloadsFailed:    c.downloadsFailed,

		DeletesSucceeded: c.deletesSucceeded,
		DeletesFailed:    c.deletesFailed,
		RecordsSkipped:   c.recordsSkipped,

		RunID: c.runID,
		Mode:  c.mode,
	}
}
