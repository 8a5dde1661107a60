// Package record holds the stored form of a compression result.
package record

import (
	"github.com/hpungsan/pith/internal/compress"
	"github.com/hpungsan/pith/internal/pattern"
)

// Record is a compression result persisted so it can be restored later.
type Record struct {
	// ID is a ULID that uniquely identifies this record
	ID string

	// WorkspaceRaw is the workspace string as provided by the caller
	WorkspaceRaw string

	// WorkspaceNorm is the normalized workspace
	WorkspaceNorm string

	// NameRaw is the name as provided by the caller (nullable)
	NameRaw *string

	// NameNorm is the normalized name (nullable)
	NameNorm *string

	OriginalText     string
	CompressedText   string
	OriginalTokens   int
	CompressedTokens int
	SavingsRatio     float64

	// Estimator names the token estimator that produced the counts
	Estimator string

	// TypeCounts is the number of placeholders per content type name
	TypeCounts map[string]int

	// Placeholders is the ordered placeholder map (stored in its own table)
	Placeholders *compress.PlaceholderMap

	// CreatedAt is the Unix timestamp when the record was stored
	CreatedAt int64

	// DeletedAt is the Unix timestamp for soft delete (nullable)
	DeletedAt *int64
}

// FromResult builds an unsaved Record from a compression result.
func FromResult(r *compress.Result) *Record {
	return &Record{
		OriginalText:     r.OriginalText,
		CompressedText:   r.CompressedText,
		OriginalTokens:   r.OriginalTokens,
		CompressedTokens: r.CompressedTokens,
		SavingsRatio:     r.SavingsRatio,
		Estimator:        r.Estimator,
		TypeCounts:       TypeCountNames(r.ContentTypeCounts),
		Placeholders:     r.Placeholders,
	}
}

// Result converts the record back into a compression result.
func (r *Record) Result() *compress.Result {
	counts := make(map[pattern.ContentType]int, len(r.TypeCounts))
	for name, n := range r.TypeCounts {
		if t, err := pattern.ParseContentType(name); err == nil {
			counts[t] = n
		}
	}
	placeholders := r.Placeholders
	if placeholders == nil {
		placeholders = compress.NewPlaceholderMap()
	}
	return &compress.Result{
		OriginalText:      r.OriginalText,
		CompressedText:    r.CompressedText,
		Placeholders:      placeholders,
		OriginalTokens:    r.OriginalTokens,
		CompressedTokens:  r.CompressedTokens,
		SavingsRatio:      r.SavingsRatio,
		ContentTypeCounts: counts,
		Estimator:         r.Estimator,
	}
}

// TypeCountNames re-keys content type counts by wire name.
func TypeCountNames(counts map[pattern.ContentType]int) map[string]int {
	named := make(map[string]int, len(counts))
	for t, n := range counts {
		named[t.String()] = n
	}
	return named
}
