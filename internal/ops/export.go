package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hpungsan/pith/internal/config"
	"github.com/hpungsan/pith/internal/db"
	"github.com/hpungsan/pith/internal/errors"
	"github.com/hpungsan/pith/internal/record"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path           string  // optional, default: ~/.pith/exports/<workspace>-<timestamp>.jsonl
	Workspace      *string // optional filter by workspace
	IncludeDeleted bool
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes stored records, with their placeholder maps, to a JSONL
// file. The first line is a header. The file is written to a temporary
// name and renamed into place, so a failed export leaves any existing
// file untouched.
func Export(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	now := time.Now()
	workspace := workspaceFilter(input.Workspace)

	path := input.Path
	if path == "" {
		var err error
		if path, err = defaultExportPath(workspace, now); err != nil {
			return nil, err
		}
	}
	// Default paths are checked too; they embed the workspace name.
	if err := ValidatePath(path, PathCheckWrite, cfg); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(suffix) + ".tmp"
	file, err := openNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	committed := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !committed {
			os.Remove(tempPath)
		}
	}()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(record.ExportHeader{
		PithExport:    true,
		SchemaVersion: record.ExportSchemaVersion,
		ExportedAt:    now.Unix(),
	}); err != nil {
		return nil, errors.NewInternal(err)
	}

	count := 0
	err = db.ExportRecords(ctx, database, db.ListFilters{
		WorkspaceNorm:  workspace,
		IncludeDeleted: input.IncludeDeleted,
	}, func(r *record.Record) error {
		if err := enc.Encode(record.ToExportRecord(r)); err != nil {
			return errors.NewInternal(err)
		}
		count++
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := w.Flush(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink at the destination.
	if isSymlink(path) {
		return nil, errors.NewInvalidRequest("path must not be a symlink")
	}
	if err := os.Rename(tempPath, path); err != nil {
		// Windows refuses to rename over an existing file; keep the old one.
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	committed = true
	return &ExportOutput{
		Path:       path,
		Count:      count,
		ExportedAt: now.Unix(),
	}, nil
}

// defaultExportPath returns ~/.pith/exports/<workspace>-<timestamp>.jsonl,
// or all-<timestamp>.jsonl when no workspace is given.
func defaultExportPath(workspace *string, now time.Time) (string, error) {
	dir, err := ExportsDir()
	if err != nil {
		return "", err
	}
	name := "all"
	if workspace != nil {
		name = SanitizeForFilename(*workspace)
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s.jsonl", name, now.Format("2006-01-02T150405"))), nil
}
