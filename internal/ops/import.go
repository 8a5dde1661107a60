package ops

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hpungsan/pith/internal/config"
	"github.com/hpungsan/pith/internal/db"
	"github.com/hpungsan/pith/internal/errors"
	"github.com/hpungsan/pith/internal/record"
	"github.com/hpungsan/pith/internal/restore"
)

// ImportMode controls what happens when an imported record collides with
// a stored one.
type ImportMode string

const (
	ImportModeError  ImportMode = "error"  // import nothing if anything collides or fails to parse
	ImportModeSkip   ImportMode = "skip"   // leave colliding records out
	ImportModeRename ImportMode = "rename" // new ID on ID collision, suffixed name on name collision
)

// Import error codes reported per line.
const (
	ImportParseError      = "PARSE_ERROR"
	ImportInvalidRecord   = "INVALID_RECORD"
	ImportIntegrityFailed = "INTEGRITY_FAILED"
	ImportIDCollision     = "ID_COLLISION"
	ImportNameCollision   = "NAME_COLLISION"
	ImportRenameFailed    = "RENAME_FAILED"
	ImportInsertFailed    = "INSERT_FAILED"
	ImportReadError       = "READ_ERROR"
)

// maxImportLineBytes bounds a single JSONL line.
const maxImportLineBytes = 64 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes one line that was not imported.
type ImportError struct {
	Line    int    `json:"line,omitempty"`
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// importLine is a parsed record with its line number.
type importLine struct {
	line   int
	record *record.Record
}

// Import loads records from a JSONL export file. Every record's
// placeholder map must restore its compressed text to its original text
// with all checksums intact; records that do not are refused.
func Import(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	switch input.Mode {
	case "":
		input.Mode = ImportModeError
	case ImportModeError, ImportModeSkip, ImportModeRename:
	default:
		return nil, errors.NewInvalidRequest("mode must be one of: error, skip, rename")
	}
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openNoFollow(input.Path, 0, 0)
	if err != nil {
		if _, ok := err.(*errors.PithError); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	lines, lineErrors := parseImportFile(bufio.NewScanner(file))

	if input.Mode == ImportModeError {
		if len(lineErrors) > 0 {
			return &ImportOutput{Errors: lineErrors}, nil
		}
		return importAll(ctx, database, lines)
	}

	out := &ImportOutput{Errors: lineErrors, Skipped: len(lineErrors)}
	for _, l := range lines {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCancelled("import")
		}
		ierr, err := importOne(ctx, database, l, input.Mode)
		if err != nil {
			return nil, err
		}
		if ierr != nil {
			out.Errors = append(out.Errors, *ierr)
			out.Skipped++
			continue
		}
		out.Imported++
	}
	if out.Errors == nil {
		out.Errors = []ImportError{}
	}
	return out, nil
}

// parseImportFile decodes every line, skipping the header, and checks each
// record's integrity.
func parseImportFile(scanner *bufio.Scanner) ([]importLine, []ImportError) {
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLineBytes)

	var lines []importLine
	var errs []ImportError
	n := 0
	for scanner.Scan() {
		n++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var e record.ExportRecord
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			errs = append(errs, ImportError{Line: n, Code: ImportParseError, Message: fmt.Sprintf("invalid JSON: %v", err)})
			continue
		}
		if e.PithExport {
			continue
		}
		if e.ID == "" {
			errs = append(errs, ImportError{Line: n, Code: ImportInvalidRecord, Message: "missing id field"})
			continue
		}
		if strings.TrimSpace(e.WorkspaceRaw) == "" {
			e.WorkspaceRaw = DefaultWorkspace
		}

		r := e.ToRecord()
		if msg := integrityProblem(r); msg != "" {
			errs = append(errs, ImportError{Line: n, ID: r.ID, Name: nameOf(r), Code: ImportIntegrityFailed, Message: msg})
			continue
		}
		lines = append(lines, importLine{line: n, record: r})
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, ImportError{Line: n, Code: ImportReadError, Message: fmt.Sprintf("failed to read file: %v", err)})
	}
	return lines, errs
}

// integrityProblem returns "" when the record restores to its original text.
func integrityProblem(r *record.Record) string {
	result := restore.Restore(r.CompressedText, r.Placeholders)
	if !result.IntegrityPassed {
		return strings.Join(result.Messages(), "; ")
	}
	if result.Text != r.OriginalText {
		return "restored text does not match original text"
	}
	return ""
}

// importAll inserts every line in one transaction, or nothing when any
// line collides with a stored record or with another line.
func importAll(ctx context.Context, database *sql.DB, lines []importLine) (*ImportOutput, error) {
	seenIDs := make(map[string]bool, len(lines))
	seenNames := make(map[string]bool)
	records := make([]*record.Record, 0, len(lines))

	for _, l := range lines {
		r := l.record
		ierr, err := collision(ctx, database, l)
		if err != nil {
			return nil, err
		}
		if ierr == nil && seenIDs[r.ID] {
			ierr = &ImportError{Line: l.line, ID: r.ID, Code: ImportIDCollision, Message: fmt.Sprintf("id %q appears more than once", r.ID)}
		}
		if ierr == nil && r.NameNorm != nil && r.DeletedAt == nil {
			key := r.WorkspaceNorm + "\x00" + *r.NameNorm
			if seenNames[key] {
				ierr = &ImportError{Line: l.line, ID: r.ID, Name: nameOf(r), Code: ImportNameCollision, Message: fmt.Sprintf("name %q appears more than once in workspace %q", nameOf(r), r.WorkspaceRaw)}
			}
			seenNames[key] = true
		}
		if ierr != nil {
			return &ImportOutput{Errors: []ImportError{*ierr}}, nil
		}
		seenIDs[r.ID] = true
		records = append(records, r)
	}

	if err := db.InsertAll(ctx, database, records); err != nil {
		return nil, err
	}
	return &ImportOutput{Imported: len(records), Errors: []ImportError{}}, nil
}

// importOne inserts a single line under skip or rename mode. A non-nil
// ImportError means the line was left out.
func importOne(ctx context.Context, database *sql.DB, l importLine, mode ImportMode) (*ImportError, error) {
	r := l.record

	if mode == ImportModeSkip {
		ierr, err := collision(ctx, database, l)
		if err != nil || ierr != nil {
			return ierr, err
		}
	} else {
		if _, err := db.GetByID(ctx, database, r.ID, true); err == nil {
			id, err := generateULID()
			if err != nil {
				return nil, errors.NewInternal(err)
			}
			r.ID = id
		} else if !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}

		if r.NameNorm != nil && r.DeletedAt == nil {
			exists, err := db.CheckNameExists(ctx, database, r.WorkspaceNorm, *r.NameNorm)
			if err != nil {
				return nil, err
			}
			if exists {
				name, err := db.FindUniqueName(ctx, database, r.WorkspaceNorm, *r.NameNorm)
				if err != nil {
					return &ImportError{Line: l.line, ID: r.ID, Name: nameOf(r), Code: ImportRenameFailed, Message: err.Error()}, nil
				}
				r.NameRaw = &name
				r.NameNorm = &name
			}
		}
	}

	if err := db.Insert(ctx, database, r); err != nil {
		return &ImportError{Line: l.line, ID: r.ID, Name: nameOf(r), Code: ImportInsertFailed, Message: fmt.Sprintf("failed to insert: %v", err)}, nil
	}
	return nil, nil
}

// collision reports whether a line's ID, or its name among live records,
// is already taken.
func collision(ctx context.Context, database *sql.DB, l importLine) (*ImportError, error) {
	r := l.record
	if _, err := db.GetByID(ctx, database, r.ID, true); err == nil {
		return &ImportError{Line: l.line, ID: r.ID, Code: ImportIDCollision, Message: fmt.Sprintf("result with id %q already exists", r.ID)}, nil
	} else if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	if r.NameNorm != nil && r.DeletedAt == nil {
		exists, err := db.CheckNameExists(ctx, database, r.WorkspaceNorm, *r.NameNorm)
		if err != nil {
			return nil, err
		}
		if exists {
			return &ImportError{
				Line:    l.line,
				ID:      r.ID,
				Name:    nameOf(r),
				Code:    ImportNameCollision,
				Message: fmt.Sprintf("result with name %q already exists in workspace %q", nameOf(r), r.WorkspaceRaw),
			}, nil
		}
	}
	return nil, nil
}

func nameOf(r *record.Record) string {
	if r.NameRaw == nil {
		return ""
	}
	return *r.NameRaw
}
