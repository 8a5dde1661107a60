package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/pith/internal/analytics"
	"github.com/hpungsan/pith/internal/compress"
	"github.com/hpungsan/pith/internal/config"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID             string
	Workspace      string
	Name           string
	IncludeDeleted bool
	IncludeText    *bool // default: true (nil means default)
}

// FetchOutput is a stored record as returned to callers.
type FetchOutput struct {
	ID                string                   `json:"id"`
	Workspace         string                   `json:"workspace"`
	Name              *string                  `json:"name,omitempty"`
	OriginalText      string                   `json:"original_text,omitempty"`
	CompressedText    string                   `json:"compressed_text,omitempty"`
	Placeholders      *compress.PlaceholderMap `json:"placeholders"`
	OriginalTokens    int                      `json:"original_tokens"`
	CompressedTokens  int                      `json:"compressed_tokens"`
	SavingsRatio      float64                  `json:"savings_ratio"`
	ContentTypeCounts map[string]int           `json:"content_type_counts"`
	Estimator         string                   `json:"estimator"`
	CostSavings       analytics.CostSavings    `json:"cost_savings"`
	CreatedAt         int64                    `json:"created_at"`
	DeletedAt         *int64                   `json:"deleted_at,omitempty"`
	FetchKey          FetchKey                 `json:"fetch_key"`
}

// Fetch retrieves a stored record by ID or name.
func Fetch(ctx context.Context, database *sql.DB, cfg *config.Config, input FetchInput) (*FetchOutput, error) {
	addr, err := ValidateAddress(input.ID, input.Workspace, input.Name)
	if err != nil {
		return nil, err
	}

	r, err := getRecord(ctx, database, addr, input.IncludeDeleted)
	if err != nil {
		return nil, err
	}

	output := &FetchOutput{
		ID:                r.ID,
		Workspace:         r.WorkspaceRaw,
		Name:              r.NameRaw,
		OriginalText:      r.OriginalText,
		CompressedText:    r.CompressedText,
		Placeholders:      r.Placeholders,
		OriginalTokens:    r.OriginalTokens,
		CompressedTokens:  r.CompressedTokens,
		SavingsRatio:      r.SavingsRatio,
		ContentTypeCounts: r.TypeCounts,
		Estimator:         r.Estimator,
		CostSavings:       analytics.Costs(r.OriginalTokens, r.CompressedTokens, cfg.CostPer1K),
		CreatedAt:         r.CreatedAt,
		DeletedAt:         r.DeletedAt,
	}

	includeText := true
	if input.IncludeText != nil {
		includeText = *input.IncludeText
	}
	if !includeText {
		output.OriginalText = ""
		output.CompressedText = ""
	}

	name := ""
	if r.NameRaw != nil {
		name = *r.NameRaw
	}
	output.FetchKey = BuildFetchKey(r.WorkspaceRaw, name, r.ID)

	return output, nil
}
