package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/pith/internal/db"
	"github.com/hpungsan/pith/internal/record"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Workspace      *string // nil or blank lists every workspace
	Limit          int     // default: 20, max: 100
	Offset         int     // default: 0
	IncludeDeleted bool
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []record.Summary `json:"items"`
	Pagination Pagination       `json:"pagination"`
	Sort       string           `json:"sort"`
}

// List retrieves record summaries with pagination, newest first.
func List(ctx context.Context, database *sql.DB, input ListInput) (*ListOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	offset := max(input.Offset, 0)

	summaries, total, err := db.ListByWorkspace(ctx, database, db.ListFilters{
		WorkspaceNorm:  workspaceFilter(input.Workspace),
		IncludeDeleted: input.IncludeDeleted,
	}, limit, offset)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if summaries == nil {
		summaries = []record.Summary{}
	}

	return &ListOutput{
		Items: summaries,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(summaries) < total,
			Total:   total,
		},
		Sort: "created_at_desc",
	}, nil
}
