// Package transfer writes attachment bytes into the local download tree:
// one lazily created subdirectory per record, one sanitized, de-duplicated
// filename per attachment.
package transfer

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// fallbackName substitutes for names that sanitize down to nothing.
const fallbackName = "unnamed_file"

// illegalChars are rejected by POSIX or Windows filesystems.
const illegalChars = `<>:"/\|?*`

// SanitizeFilename converts a raw, possibly percent-encoded display name
// into a filesystem-safe, non-empty name. Returns the safe name and whether
// percent decoding failed (degraded to the raw name, never fatal).
//
// Deterministic for a given raw name; never fails.
func SanitizeFilename(raw string) (name string, decodeFailed bool) {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
		decodeFailed = true
	}

	var b strings.Builder
	b.Grow(len(decoded))
	for _, r := range decoded {
		if r < 0x20 || strings.ContainsRune(illegalChars, r) {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}

	safe := strings.Trim(b.String(), " .")
	if safe == "" {
		safe = fallbackName
	}
	return safe, decodeFailed
}

// UniqueName de-duplicates name against dir's existing entries by appending
// _N before the extension: "document.pdf", "document_1.pdf", "document_2.pdf".
// Deterministic given the same name and existing-entry set.
func UniqueName(fs afero.Fs, dir, name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := name
	for n := 1; ; n++ {
		exists, err := afero.Exists(fs, filepath.Join(dir, candidate))
		if err != nil || !exists {
			// Stat errors degrade to "name free"; the write itself will surface
			// any real filesystem problem.
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d%s", stem, n, ext)
	}
}
