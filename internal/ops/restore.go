package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/pith/internal/compress"
	"github.com/hpungsan/pith/internal/config"
	"github.com/hpungsan/pith/internal/errors"
	"github.com/hpungsan/pith/internal/metrics"
	"github.com/hpungsan/pith/internal/restore"
)

// RestoreInput contains parameters for the Restore operation.
// Either address a stored record (ID, or Workspace + Name) or pass an
// explicit Placeholders map together with Text.
type RestoreInput struct {
	ID           string
	Workspace    string
	Name         string
	Placeholders *compress.PlaceholderMap
	Text         *string // overrides the stored compressed text
}

// RestoreOutput contains the result of the Restore operation.
type RestoreOutput struct {
	ID              string   `json:"id,omitempty"`
	RestoredText    string   `json:"restored_text"`
	IntegrityPassed bool     `json:"integrity_passed"`
	Errors          []string `json:"errors"`
}

// Restore replaces placeholders with their originals. Integrity problems
// are reported in the output, not returned as errors.
func Restore(ctx context.Context, database *sql.DB, cfg *config.Config, input RestoreInput) (*RestoreOutput, error) {
	if input.Text != nil {
		if err := checkTextSize(*input.Text, cfg.MaxTextChars); err != nil {
			return nil, err
		}
	}

	var (
		id           string
		text         string
		placeholders *compress.PlaceholderMap
	)

	if input.Placeholders != nil {
		if strings.TrimSpace(input.ID) != "" || strings.TrimSpace(input.Name) != "" {
			return nil, errors.NewAmbiguousAddressing()
		}
		if input.Text == nil {
			return nil, errors.NewInvalidRequest("text is required when placeholders are given")
		}
		text = *input.Text
		placeholders = input.Placeholders
	} else {
		addr, err := ValidateAddress(input.ID, input.Workspace, input.Name)
		if err != nil {
			return nil, err
		}
		r, err := getRecord(ctx, database, addr, false)
		if err != nil {
			return nil, err
		}
		id = r.ID
		text = r.CompressedText
		if input.Text != nil {
			text = *input.Text
		}
		placeholders = r.Placeholders
	}

	result := restore.Restore(text, placeholders)
	metrics.Get().ObserveRestoration(result.IntegrityPassed)

	return &RestoreOutput{
		ID:              id,
		RestoredText:    result.Text,
		IntegrityPassed: result.IntegrityPassed,
		Errors:          result.Messages(),
	}, nil
}

// VerifyInput addresses the stored record to check.
type VerifyInput struct {
	ID        string
	Workspace string
	Name      string
}

// VerifyOutput reports whether a stored record restores cleanly.
type VerifyOutput struct {
	ID              string   `json:"id"`
	IntegrityPassed bool     `json:"integrity_passed"`
	Placeholders    int      `json:"placeholders"`
	Errors          []string `json:"errors"`
	// RoundTrip is true when restoring reproduces the stored original exactly
	RoundTrip bool `json:"round_trip"`
}

// Verify restores a stored record against its own placeholder map.
func Verify(ctx context.Context, database *sql.DB, input VerifyInput) (*VerifyOutput, error) {
	addr, err := ValidateAddress(input.ID, input.Workspace, input.Name)
	if err != nil {
		return nil, err
	}
	r, err := getRecord(ctx, database, addr, false)
	if err != nil {
		return nil, err
	}

	result := restore.Restore(r.CompressedText, r.Placeholders)
	metrics.Get().ObserveRestoration(result.IntegrityPassed)

	return &VerifyOutput{
		ID:              r.ID,
		IntegrityPassed: result.IntegrityPassed,
		Placeholders:    r.Placeholders.Len(),
		Errors:          result.Messages(),
		RoundTrip:       result.Text == r.OriginalText,
	}, nil
}
