package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/pith/internal/db"
	"github.com/hpungsan/pith/internal/errors"
	"github.com/hpungsan/pith/internal/record"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// DefaultWorkspace is used when a caller names a record without a workspace.
const DefaultWorkspace = "default"

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Address represents a validated record address.
type Address struct {
	ByID      bool
	ID        string
	Workspace string // normalized, defaulted to "default" for name-mode
	Name      string // normalized
}

// ValidateAddress validates addressing parameters and returns a normalized Address.
// Rules:
// - Must specify exactly one addressing mode: id OR (workspace + name)
// - If id provided with name → ErrAmbiguousAddressing
// - If id provided with workspace only, the workspace is ignored
// - If neither id nor name provided → ErrInvalidRequest
func ValidateAddress(id, workspace, name string) (*Address, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)

	hasID := id != ""
	hasName := name != ""

	if hasID && hasName {
		return nil, errors.NewAmbiguousAddressing()
	}

	if !hasID && !hasName {
		return nil, errors.NewInvalidRequest("must specify either id or name")
	}

	if hasID {
		return &Address{
			ByID: true,
			ID:   id,
		}, nil
	}

	workspaceNorm := record.Normalize(workspace)
	if workspaceNorm == "" {
		workspaceNorm = DefaultWorkspace
	}
	nameNorm := record.Normalize(name)
	if nameNorm == "" {
		return nil, errors.NewInvalidRequest("name must not be empty")
	}

	return &Address{
		ByID:      false,
		Workspace: workspaceNorm,
		Name:      nameNorm,
	}, nil
}

// FetchKey tells a caller how to address a stored record later.
// Either (Workspace + Name) or ID is populated.
type FetchKey struct {
	Workspace string `json:"workspace,omitempty"`
	Name      string `json:"name,omitempty"`
	ID        string `json:"id,omitempty"`
}

// BuildFetchKey prefers the name when the record has one.
func BuildFetchKey(workspace, name, id string) FetchKey {
	if name != "" {
		return FetchKey{Workspace: workspace, Name: name}
	}
	return FetchKey{ID: id}
}

// checkTextSize rejects text longer than maxChars characters. A
// non-positive maxChars disables the check.
func checkTextSize(text string, maxChars int) error {
	if maxChars <= 0 {
		return nil
	}
	if n := record.CountChars(text); n > maxChars {
		return errors.NewTextTooLarge(maxChars, n)
	}
	return nil
}

// getRecord resolves an address to a stored record.
func getRecord(ctx context.Context, database *sql.DB, addr *Address, includeDeleted bool) (*record.Record, error) {
	if addr.ByID {
		return db.GetByID(ctx, database, addr.ID, includeDeleted)
	}
	return db.GetByName(ctx, database, addr.Workspace, addr.Name, includeDeleted)
}

// workspaceFilter normalizes an optional workspace. Nil or blank means all.
func workspaceFilter(workspace *string) *string {
	if workspace == nil {
		return nil
	}
	norm := record.Normalize(*workspace)
	if norm == "" {
		return nil
	}
	return &norm
}
