package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/pith/internal/analytics"
	"github.com/hpungsan/pith/internal/compress"
	"github.com/hpungsan/pith/internal/config"
	"github.com/hpungsan/pith/internal/db"
	"github.com/hpungsan/pith/internal/errors"
	"github.com/hpungsan/pith/internal/metrics"
	"github.com/hpungsan/pith/internal/record"
)

// CompressInput contains parameters for the Compress operation.
type CompressInput struct {
	Text      string  // required
	Workspace string  // default: "default"
	Name      *string // optional; implies Store
	Store     bool    // persist the result so it can be restored later
}

// CompressOutput contains the result of the Compress operation.
type CompressOutput struct {
	ID                string                   `json:"id,omitempty"`
	FetchKey          *FetchKey                `json:"fetch_key,omitempty"`
	CompressedText    string                   `json:"compressed_text"`
	Placeholders      *compress.PlaceholderMap `json:"placeholders"`
	OriginalTokens    int                      `json:"original_tokens"`
	CompressedTokens  int                      `json:"compressed_tokens"`
	SavingsRatio      float64                  `json:"savings_ratio"`
	ContentTypeCounts map[string]int           `json:"content_type_counts"`
	Estimator         string                   `json:"estimator"`
	CostSavings       analytics.CostSavings    `json:"cost_savings"`
}

// Sample returns the counters analytics aggregates over.
func (o *CompressOutput) Sample() analytics.Sample {
	return analytics.Sample{
		OriginalTokens:   o.OriginalTokens,
		CompressedTokens: o.CompressedTokens,
		SavingsRatio:     o.SavingsRatio,
		TypeCounts:       o.ContentTypeCounts,
	}
}

// Compress replaces detected spans with placeholders and optionally stores
// the result. Without Store (or Name) the database is not touched and may be nil.
func Compress(ctx context.Context, database *sql.DB, engine *compress.Engine, cfg *config.Config, input CompressInput) (*CompressOutput, error) {
	if input.Text == "" {
		return nil, errors.NewInvalidRequest("text is required")
	}
	if err := checkTextSize(input.Text, cfg.MaxTextChars); err != nil {
		return nil, err
	}

	store := input.Store || input.Name != nil

	// Validate addressing before spending placeholder ids
	var workspaceRaw, workspaceNorm string
	var nameRaw, nameNorm *string
	if store {
		if database == nil {
			return nil, errors.NewInternal(fmt.Errorf("no database configured for storing results"))
		}
		workspaceRaw = input.Workspace
		if strings.TrimSpace(workspaceRaw) == "" {
			workspaceRaw = DefaultWorkspace
		}
		workspaceNorm = record.Normalize(workspaceRaw)

		if input.Name != nil {
			normalized := record.Normalize(*input.Name)
			if normalized == "" {
				return nil, errors.NewInvalidRequest("name must not be empty (omit it for unnamed results)")
			}
			nameRaw = input.Name
			nameNorm = &normalized

			exists, err := db.CheckNameExists(ctx, database, workspaceNorm, normalized)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, errors.NewNameAlreadyExists(workspaceRaw, *input.Name)
			}
		}
	}

	start := time.Now()
	result := engine.Compress(input.Text)
	typeCounts := record.TypeCountNames(result.ContentTypeCounts)
	metrics.Get().ObserveCompression(typeCounts, result.OriginalTokens, result.CompressedTokens, time.Since(start))

	output := &CompressOutput{
		CompressedText:    result.CompressedText,
		Placeholders:      result.Placeholders,
		OriginalTokens:    result.OriginalTokens,
		CompressedTokens:  result.CompressedTokens,
		SavingsRatio:      result.SavingsRatio,
		ContentTypeCounts: typeCounts,
		Estimator:         result.Estimator,
		CostSavings:       analytics.Costs(result.OriginalTokens, result.CompressedTokens, cfg.CostPer1K),
	}

	if !store {
		return output, nil
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	r := record.FromResult(result)
	r.ID = id
	r.WorkspaceRaw = workspaceRaw
	r.WorkspaceNorm = workspaceNorm
	r.NameRaw = nameRaw
	r.NameNorm = nameNorm
	r.CreatedAt = time.Now().Unix()

	if err := db.Insert(ctx, database, r); err != nil {
		if err == db.ErrUniqueConstraint && nameRaw != nil {
			// Lost a race with a concurrent insert of the same name
			return nil, errors.NewNameAlreadyExists(workspaceRaw, *nameRaw)
		}
		return nil, err
	}

	name := ""
	if nameRaw != nil {
		name = *nameRaw
	}
	key := BuildFetchKey(workspaceRaw, name, id)
	output.ID = id
	output.FetchKey = &key

	return output, nil
}

// ulidEntropy is shared so ids generated in the same millisecond still sort.
var ulidEntropy = &ulid.LockedMonotonicReader{MonotonicReader: ulid.Monotonic(rand.Reader, 0)}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), ulidEntropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
