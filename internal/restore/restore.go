// Package restore reverses placeholder compression and checks that every
// placeholder came back intact.
package restore

import (
	"fmt"
	"strings"

	"github.com/hpungsan/pith/internal/compress"
)

// IntegrityErrorKind classifies a restoration problem.
type IntegrityErrorKind string

const (
	KindChecksumMismatch IntegrityErrorKind = "checksum_mismatch"
	KindMissing          IntegrityErrorKind = "missing"
)

// IntegrityError describes one placeholder that did not restore cleanly.
// It is collected, never returned as a failure of the whole operation.
type IntegrityError struct {
	Kind     IntegrityErrorKind `json:"kind"`
	ID       string             `json:"id"`
	Expected string             `json:"expected,omitempty"`
	Actual   string             `json:"actual,omitempty"`
}

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	if e.Kind == KindMissing {
		return fmt.Sprintf("Placeholder %s not found in text", e.ID)
	}
	return fmt.Sprintf("Checksum mismatch for %s: expected %s, got %s", e.ID, e.Expected, e.Actual)
}

// Result is the outcome of Restore.
type Result struct {
	Text            string            `json:"restored_text"`
	IntegrityPassed bool              `json:"integrity_passed"`
	Errors          []*IntegrityError `json:"-"`
}

// Messages returns the error strings in the order they were found.
func (r *Result) Messages() []string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return msgs
}

// Restore replaces every placeholder id in compressedText with its
// original content, visiting placeholders in map order. Each occurrence
// of an id is replaced. A placeholder whose id is absent, or whose
// original no longer matches its checksum, is recorded and processing
// continues with the next one.
func Restore(compressedText string, placeholders *compress.PlaceholderMap) *Result {
	result := &Result{Text: compressedText, IntegrityPassed: true}

	for _, p := range placeholders.All() {
		if !strings.Contains(result.Text, p.ID) {
			result.IntegrityPassed = false
			result.Errors = append(result.Errors, &IntegrityError{Kind: KindMissing, ID: p.ID})
			continue
		}

		result.Text = strings.ReplaceAll(result.Text, p.ID, p.Original)

		if actual := compress.Checksum(p.Original); actual != p.Checksum {
			result.IntegrityPassed = false
			result.Errors = append(result.Errors, &IntegrityError{
				Kind:     KindChecksumMismatch,
				ID:       p.ID,
				Expected: p.Checksum,
				Actual:   actual,
			})
		}
	}

	return result
}

// VerifyIntegrity restores a compression result against itself and
// reports only whether the round trip is sound.
func VerifyIntegrity(result *compress.Result) (bool, []*IntegrityError) {
	r := Restore(result.CompressedText, result.Placeholders)
	return r.IntegrityPassed, r.Errors
}
