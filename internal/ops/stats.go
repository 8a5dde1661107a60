package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/pith/internal/analytics"
	"github.com/hpungsan/pith/internal/config"
	"github.com/hpungsan/pith/internal/db"
)

// StatsInput contains parameters for the Stats operation.
type StatsInput struct {
	Workspace *string // nil or blank aggregates every workspace
}

// StatsOutput aggregates the stored, live records.
type StatsOutput struct {
	analytics.Stats
	Workspace string  `json:"workspace,omitempty"`
	CostPer1K float64 `json:"cost_per_1k"`
}

// Stats summarizes token and cost savings over stored records.
func Stats(ctx context.Context, database *sql.DB, cfg *config.Config, input StatsInput) (*StatsOutput, error) {
	workspace := workspaceFilter(input.Workspace)

	samples, err := db.Samples(ctx, database, workspace)
	if err != nil {
		return nil, err
	}

	output := &StatsOutput{
		Stats:     analytics.Aggregate(samples, cfg.CostPer1K),
		CostPer1K: cfg.CostPer1K,
	}
	if workspace != nil {
		output.Workspace = *workspace
	}
	return output, nil
}
