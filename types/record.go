// Package types defines core domain types for the minecart run engine.
//
//nolint:revive // types is a common Go package naming convention
package types

// Record identifies one remote ticket together with its attachment
// descriptors. A Record is sourced verbatim from a single API page, never
// mutated locally, and discarded once its attachments are processed.
type Record struct {
	// ID is the immutable remote ticket identifier.
	ID int
	// Subject is the ticket subject line (informational, used in logs).
	Subject string
	// Attachments is the ordered attachment list as returned by the API.
	Attachments []Attachment
}

// HasAttachments reports whether the record carries at least one attachment.
func (r Record) HasAttachments() bool {
	return len(r.Attachments) > 0
}

// Attachment describes one binary file attached to a Record.
// Consumed exactly once per run mode (downloaded or deleted).
type Attachment struct {
	// ID is the remote attachment identifier.
	ID int
	// Filename is the raw display name as returned by the API, possibly
	// percent-encoded. Sanitized only at write time.
	Filename string
	// ContentURL is the download locator.
	ContentURL string
	// Filesize is informational only; zero when the API omits it.
	Filesize int64
}
