package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/pith/internal/db"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	ID        string
	Workspace string
	Name      string
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// Delete soft-deletes a stored record.
func Delete(ctx context.Context, database *sql.DB, input DeleteInput) (*DeleteOutput, error) {
	addr, err := ValidateAddress(input.ID, input.Workspace, input.Name)
	if err != nil {
		return nil, err
	}

	// Resolve the ID (and confirm the record is live)
	r, err := getRecord(ctx, database, addr, false)
	if err != nil {
		return nil, err
	}

	if err := db.SoftDelete(ctx, database, r.ID); err != nil {
		return nil, err
	}

	return &DeleteOutput{
		Deleted: true,
		ID:      r.ID,
	}, nil
}
