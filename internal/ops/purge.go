package ops

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpungsan/pith/internal/db"
)

// PurgeInput contains parameters for the Purge operation.
type PurgeInput struct {
	Workspace *string // optional filter by workspace
}

// PurgeOutput contains the result of the Purge operation.
type PurgeOutput struct {
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// Purge permanently deletes soft-deleted records and their placeholders.
func Purge(ctx context.Context, database *sql.DB, input PurgeInput) (*PurgeOutput, error) {
	workspace := workspaceFilter(input.Workspace)

	count, err := db.PurgeDeleted(ctx, database, workspace)
	if err != nil {
		return nil, err
	}

	return &PurgeOutput{
		Purged:  count,
		Message: formatPurgeMessage(count, workspace),
	}, nil
}

// formatPurgeMessage creates a human-readable message for the purge result.
func formatPurgeMessage(count int, workspace *string) string {
	if count == 0 {
		return "No deleted results to purge"
	}

	word := "result"
	if count > 1 {
		word = "results"
	}

	msg := fmt.Sprintf("Permanently deleted %d %s", count, word)
	if workspace != nil {
		msg += fmt.Sprintf(" from workspace %q", *workspace)
	}
	return msg
}
