package ops

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/hpungsan/pith/internal/config"
	"github.com/hpungsan/pith/internal/errors"
	"github.com/hpungsan/pith/internal/record"
)

// readExportLines returns the non-empty lines of an export file.
func readExportLines(t *testing.T, path string) []string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan export: %v", err)
	}
	return lines
}

func TestExport_HappyPath(t *testing.T) {
	database := openTestDB(t)
	engine := newTestEngine(t)
	first := storeText(t, database, engine, "docs", stringPtr("notes"), twoSpanText)
	second := storeText(t, database, engine, "docs", nil, emailSentence)

	path := filepath.Join(t.TempDir(), "backup.jsonl")
	out, err := Export(t.Context(), database, unsafeConfig(), ExportInput{Path: path})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if out.Path != path || out.Count != 2 || out.ExportedAt == 0 {
		t.Errorf("Export = %+v", out)
	}

	lines := readExportLines(t, path)
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header + 2", len(lines))
	}

	var header record.ExportHeader
	if err := json.Unmarshal([]byte(lines[0]), &header); err != nil {
		t.Fatalf("header: %v", err)
	}
	if !header.PithExport || header.SchemaVersion != record.ExportSchemaVersion || header.ExportedAt != out.ExportedAt {
		t.Errorf("header = %+v", header)
	}

	var rec record.ExportRecord
	if err := json.Unmarshal([]byte(lines[1]), &rec); err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.ID != first.ID || rec.OriginalText != twoSpanText || rec.Placeholders.Len() != 2 {
		t.Errorf("first record = %+v", rec)
	}
	if !strings.Contains(lines[2], second.ID) {
		t.Errorf("second line should hold %s: %s", second.ID, lines[2])
	}

	// No temp files left behind
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("export dir has %d entries, want 1", len(entries))
	}
}

func TestExport_FiltersAndDeleted(t *testing.T) {
	database := openTestDB(t)
	engine := newTestEngine(t)
	storeText(t, database, engine, "a", nil, emailSentence)
	gone := storeText(t, database, engine, "a", nil, twoSpanText)
	storeText(t, database, engine, "b", nil, emailSentence)
	if _, err := Delete(t.Context(), database, DeleteInput{ID: gone.ID}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	dir := t.TempDir()

	out, err := Export(t.Context(), database, unsafeConfig(), ExportInput{Path: filepath.Join(dir, "a.jsonl"), Workspace: stringPtr("A")})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if out.Count != 1 {
		t.Errorf("live records in a = %d, want 1", out.Count)
	}

	out, err = Export(t.Context(), database, unsafeConfig(), ExportInput{Path: filepath.Join(dir, "all.jsonl"), IncludeDeleted: true})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if out.Count != 3 {
		t.Errorf("all records = %d, want 3", out.Count)
	}
}

func TestExport_DefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	database := openTestDB(t)
	storeText(t, database, newTestEngine(t), "My Docs", nil, emailSentence)

	out, err := Export(t.Context(), database, config.DefaultConfig(), ExportInput{Workspace: stringPtr("My Docs")})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	wantDir := filepath.Join(home, ".pith", "exports")
	if filepath.Dir(out.Path) != wantDir {
		t.Errorf("dir = %q, want %q", filepath.Dir(out.Path), wantDir)
	}
	if !strings.HasPrefix(filepath.Base(out.Path), "my docs-") || filepath.Ext(out.Path) != ".jsonl" {
		t.Errorf("file name = %q", filepath.Base(out.Path))
	}
	if out.Count != 1 {
		t.Errorf("Count = %d, want 1", out.Count)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(out.Path)
		if err != nil {
			t.Fatalf("Stat failed: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("permissions = %o, want 600", info.Mode().Perm())
		}
	}
}

func TestDefaultExportPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	all, err := defaultExportPath(nil, now)
	if err != nil {
		t.Fatalf("defaultExportPath failed: %v", err)
	}
	if filepath.Base(all) != "all-2026-03-04T050607.jsonl" {
		t.Errorf("all path = %q", all)
	}

	ws := "../evil"
	scoped, err := defaultExportPath(&ws, now)
	if err != nil {
		t.Fatalf("defaultExportPath failed: %v", err)
	}
	if filepath.Base(scoped) != "evil-2026-03-04T050607.jsonl" {
		t.Errorf("scoped path = %q", scoped)
	}
}

func TestExport_RejectsBadPaths(t *testing.T) {
	database := openTestDB(t)

	for _, path := range []string{"../escape.jsonl", filepath.Join(t.TempDir(), "backup.json")} {
		if _, err := Export(t.Context(), database, unsafeConfig(), ExportInput{Path: path}); !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("Export(%q) = %v, want ErrInvalidRequest", path, err)
		}
	}
}
