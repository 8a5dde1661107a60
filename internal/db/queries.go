package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/pith/internal/analytics"
	"github.com/hpungsan/pith/internal/compress"
	"github.com/hpungsan/pith/internal/errors"
	"github.com/hpungsan/pith/internal/pattern"
	"github.com/hpungsan/pith/internal/record"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.PithError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

const resultColumns = `
	id, workspace_raw, workspace_norm, name_raw, name_norm,
	original_text, compressed_text, original_tokens, compressed_tokens,
	savings_ratio, estimator, type_counts_json, created_at, deleted_at`

// Insert stores a record and its placeholders in one transaction.
func Insert(ctx context.Context, db *sql.DB, r *record.Record) error {
	return InsertAll(ctx, db, []*record.Record{r})
}

// InsertAll stores every record in one transaction. Either all records
// are stored or none are.
func InsertAll(ctx context.Context, db *sql.DB, records []*record.Record) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	for _, r := range records {
		if err := insertTx(ctx, tx, r); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func insertTx(ctx context.Context, tx *sql.Tx, r *record.Record) error {
	typeCounts, err := json.Marshal(r.TypeCounts)
	if err != nil {
		return errors.NewInternal(err)
	}

	var deletedAt sql.NullInt64
	if r.DeletedAt != nil {
		deletedAt = sql.NullInt64{Int64: *r.DeletedAt, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO results (
			id, workspace_raw, workspace_norm, name_raw, name_norm,
			original_text, compressed_text, original_chars, original_tokens,
			compressed_tokens, savings_ratio, estimator, type_counts_json,
			created_at, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.WorkspaceRaw, r.WorkspaceNorm, toNullString(r.NameRaw), toNullString(r.NameNorm),
		r.OriginalText, r.CompressedText, record.CountChars(r.OriginalText), r.OriginalTokens,
		r.CompressedTokens, r.SavingsRatio, r.Estimator, string(typeCounts),
		r.CreatedAt, deletedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO placeholders (
			result_id, seq, placeholder_id, original, content_type,
			start_pos, end_pos, checksum
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	for seq, p := range r.Placeholders.All() {
		if _, err := stmt.ExecContext(ctx,
			r.ID, seq, p.ID, p.Original, p.ContentType.String(),
			p.StartPos, p.EndPos, p.Checksum,
		); err != nil {
			return errors.NewInternal(err)
		}
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetByID retrieves a record and its placeholders by ULID.
// If includeDeleted is false, soft-deleted records are excluded.
func GetByID(ctx context.Context, db *sql.DB, id string, includeDeleted bool) (*record.Record, error) {
	query := `SELECT ` + resultColumns + ` FROM results WHERE id = ?`
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}

	r, err := scanRecord(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := loadPlaceholders(ctx, db, r); err != nil {
		return nil, err
	}
	return r, nil
}

// GetByName retrieves a record by normalized workspace and name.
// If includeDeleted is false, soft-deleted records are excluded.
func GetByName(ctx context.Context, db *sql.DB, workspaceNorm, nameNorm string, includeDeleted bool) (*record.Record, error) {
	query := `SELECT ` + resultColumns + ` FROM results WHERE workspace_norm = ? AND name_norm = ?`
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	} else {
		// Prefer the live record; otherwise the most recently created deleted one.
		query += " ORDER BY (deleted_at IS NULL) DESC, created_at DESC LIMIT 1"
	}

	r, err := scanRecord(db.QueryRowContext(ctx, query, workspaceNorm, nameNorm))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(nameNorm)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := loadPlaceholders(ctx, db, r); err != nil {
		return nil, err
	}
	return r, nil
}

// CheckNameExists checks if a live record with the given name exists.
func CheckNameExists(ctx context.Context, db *sql.DB, workspaceNorm, nameNorm string) (bool, error) {
	query := `
		SELECT 1 FROM results
		WHERE workspace_norm = ? AND name_norm = ? AND deleted_at IS NULL
		LIMIT 1
	`

	var exists int
	err := db.QueryRowContext(ctx, query, workspaceNorm, nameNorm).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// ListFilters narrows ListByWorkspace and Samples.
type ListFilters struct {
	WorkspaceNorm  *string // nil means every workspace
	IncludeDeleted bool
}

func (f ListFilters) where() (string, []any) {
	var clauses []string
	var args []any
	if f.WorkspaceNorm != nil {
		clauses = append(clauses, "workspace_norm = ?")
		args = append(args, *f.WorkspaceNorm)
	}
	if !f.IncludeDeleted {
		clauses = append(clauses, "deleted_at IS NULL")
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListByWorkspace returns record summaries, newest first, and the total
// number of records matching the filters.
func ListByWorkspace(ctx context.Context, db *sql.DB, filters ListFilters, limit, offset int) ([]record.Summary, int, error) {
	where, args := filters.where()

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM results`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `
		SELECT r.id, r.workspace_raw, r.workspace_norm, r.name_raw, r.name_norm,
			r.original_chars, r.original_tokens, r.compressed_tokens, r.savings_ratio,
			r.estimator, r.type_counts_json, r.created_at, r.deleted_at,
			(SELECT COUNT(*) FROM placeholders p WHERE p.result_id = r.id)
		FROM results r` + where + `
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	summaries := []record.Summary{}
	for rows.Next() {
		var (
			s          record.Summary
			nameRaw    sql.NullString
			nameNorm   sql.NullString
			typeCounts sql.NullString
			deletedAt  sql.NullInt64
		)
		if err := rows.Scan(
			&s.ID, &s.Workspace, &s.WorkspaceNorm, &nameRaw, &nameNorm,
			&s.OriginalChars, &s.OriginalTokens, &s.CompressedTokens, &s.SavingsRatio,
			&s.Estimator, &typeCounts, &s.CreatedAt, &deletedAt,
			&s.Placeholders,
		); err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		s.Name = fromNullString(nameRaw)
		s.NameNorm = fromNullString(nameNorm)
		if deletedAt.Valid {
			s.DeletedAt = &deletedAt.Int64
		}
		if s.TypeCounts, err = parseTypeCounts(typeCounts); err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	return summaries, total, nil
}

// SoftDelete marks a record as deleted by setting deleted_at.
func SoftDelete(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx, `
		UPDATE results
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, time.Now().Unix(), id)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// PurgeDeleted permanently removes soft-deleted records and their
// placeholders. A nil workspaceNorm purges every workspace.
func PurgeDeleted(ctx context.Context, db *sql.DB, workspaceNorm *string) (int, error) {
	where := "deleted_at IS NOT NULL"
	var args []any
	if workspaceNorm != nil {
		where += " AND workspace_norm = ?"
		args = append(args, *workspaceNorm)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM placeholders WHERE result_id IN (SELECT id FROM results WHERE `+where+`)`, args...); err != nil {
		return 0, errors.NewInternal(err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM results WHERE `+where, args...)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(count), nil
}

// Samples returns the token counts of live records for analytics.
func Samples(ctx context.Context, db *sql.DB, workspaceNorm *string) ([]analytics.Sample, error) {
	where, args := ListFilters{WorkspaceNorm: workspaceNorm}.where()

	rows, err := db.QueryContext(ctx, `
		SELECT original_tokens, compressed_tokens, savings_ratio, type_counts_json
		FROM results`+where+`
		ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var samples []analytics.Sample
	for rows.Next() {
		var (
			s          analytics.Sample
			typeCounts sql.NullString
		)
		if err := rows.Scan(&s.OriginalTokens, &s.CompressedTokens, &s.SavingsRatio, &typeCounts); err != nil {
			return nil, errors.NewInternal(err)
		}
		if s.TypeCounts, err = parseTypeCounts(typeCounts); err != nil {
			return nil, errors.NewInternal(err)
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return samples, nil
}

// ExportRecords calls fn for every matching record, oldest first, with
// placeholders loaded. Iteration stops at the first error fn returns.
func ExportRecords(ctx context.Context, db *sql.DB, filters ListFilters, fn func(*record.Record) error) error {
	where, args := filters.where()

	// Collect ids first so placeholder queries never overlap an open cursor.
	rows, err := db.QueryContext(ctx, `SELECT id FROM results`+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return errors.NewInternal(err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return errors.NewInternal(err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return errors.NewInternal(err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return errors.NewCancelled("export")
		}
		r, err := GetByID(ctx, db, id, true)
		if err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// maxRenameAttempts bounds FindUniqueName.
const maxRenameAttempts = 1000

// FindUniqueName returns the first of base-2, base-3, ... that no live
// record in the workspace uses.
func FindUniqueName(ctx context.Context, db *sql.DB, workspaceNorm, base string) (string, error) {
	for i := 2; i <= maxRenameAttempts; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		exists, err := CheckNameExists(ctx, db, workspaceNorm, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free name for %q after %d attempts", base, maxRenameAttempts)
}

// loadPlaceholders fills r.Placeholders in stored order.
func loadPlaceholders(ctx context.Context, db *sql.DB, r *record.Record) error {
	rows, err := db.QueryContext(ctx, `
		SELECT placeholder_id, original, content_type, start_pos, end_pos, checksum
		FROM placeholders
		WHERE result_id = ?
		ORDER BY seq
	`, r.ID)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer rows.Close()

	r.Placeholders = compress.NewPlaceholderMap()
	for rows.Next() {
		var (
			p        compress.Placeholder
			typeName string
		)
		if err := rows.Scan(&p.ID, &p.Original, &typeName, &p.StartPos, &p.EndPos, &p.Checksum); err != nil {
			return errors.NewInternal(err)
		}
		if p.ContentType, err = pattern.ParseContentType(typeName); err != nil {
			return errors.NewInternal(err)
		}
		r.Placeholders.Put(p)
	}
	if err := rows.Err(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// scanRecord scans a single results row into a Record without placeholders.
func scanRecord(row *sql.Row) (*record.Record, error) {
	var (
		r          record.Record
		nameRaw    sql.NullString
		nameNorm   sql.NullString
		typeCounts sql.NullString
		deletedAt  sql.NullInt64
	)

	err := row.Scan(
		&r.ID, &r.WorkspaceRaw, &r.WorkspaceNorm, &nameRaw, &nameNorm,
		&r.OriginalText, &r.CompressedText, &r.OriginalTokens, &r.CompressedTokens,
		&r.SavingsRatio, &r.Estimator, &typeCounts, &r.CreatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	r.NameRaw = fromNullString(nameRaw)
	r.NameNorm = fromNullString(nameNorm)
	if deletedAt.Valid {
		r.DeletedAt = &deletedAt.Int64
	}
	if r.TypeCounts, err = parseTypeCounts(typeCounts); err != nil {
		return nil, err
	}
	return &r, nil
}

func parseTypeCounts(ns sql.NullString) (map[string]int, error) {
	counts := map[string]int{}
	if !ns.Valid || ns.String == "" || ns.String == "null" {
		return counts, nil
	}
	if err := json.Unmarshal([]byte(ns.String), &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
