package ops

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/hpungsan/pith/internal/config"
	"github.com/hpungsan/pith/internal/errors"
)

// unsafeConfig allows any directory so tests can use t.TempDir().
func unsafeConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true
	return cfg
}

func TestValidatePath_TraversalRejected(t *testing.T) {
	for _, path := range []string{
		"../backup.jsonl",
		"../../etc/backup.jsonl",
		"/tmp/../etc/backup.jsonl",
		"/tmp/safe/../../../etc/shadow.jsonl",
	} {
		if err := ValidatePath(path, PathCheckWrite, unsafeConfig()); !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("ValidatePath(%q) = %v, want ErrInvalidRequest", path, err)
		}
	}
}

func TestValidatePath_ExtensionRequired(t *testing.T) {
	for _, path := range []string{"/tmp/backup", "/tmp/backup.json", "/tmp/backup.txt", ""} {
		if err := ValidatePath(path, PathCheckWrite, unsafeConfig()); !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("ValidatePath(%q) = %v, want ErrInvalidRequest", path, err)
		}
	}
}

func TestValidatePath_DirectoryRestriction(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := config.DefaultConfig()

	outside := filepath.Join(t.TempDir(), "backup.jsonl")
	if err := ValidatePath(outside, PathCheckWrite, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("path outside allowed dirs = %v, want ErrInvalidRequest", err)
	}

	exports, err := ExportsDir()
	if err != nil {
		t.Fatalf("ExportsDir failed: %v", err)
	}
	if err := ValidatePath(filepath.Join(exports, "backup.jsonl"), PathCheckWrite, cfg); err != nil {
		t.Errorf("path in exports dir = %v, want nil", err)
	}
	if err := ValidatePath(filepath.Join(exports, "nested", "backup.jsonl"), PathCheckWrite, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("nested path = %v, want ErrInvalidRequest", err)
	}
}

func TestValidatePath_AllowedPaths(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	allowed := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{allowed, "relative/ignored"}

	if err := ValidatePath(filepath.Join(allowed, "backup.jsonl"), PathCheckWrite, cfg); err != nil {
		t.Errorf("path in allowed_paths = %v, want nil", err)
	}
	if err := ValidatePath(filepath.Join("relative", "ignored", "backup.jsonl"), PathCheckWrite, cfg); err == nil {
		t.Error("relative allowed_paths entries should be ignored")
	}
}

func TestValidatePath_FileNotFound_ReadMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.jsonl")

	if err := ValidatePath(path, PathCheckRead, unsafeConfig()); !errors.Is(err, errors.ErrFileNotFound) {
		t.Errorf("ValidatePath read missing = %v, want ErrFileNotFound", err)
	}
	if err := ValidatePath(path, PathCheckWrite, unsafeConfig()); err != nil {
		t.Errorf("ValidatePath write missing = %v, want nil", err)
	}
}

func TestValidatePath_SymlinkRejected_EvenWithUnsafePaths(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	dir := t.TempDir()
	target := filepath.Join(dir, "target.jsonl")
	if err := os.WriteFile(target, []byte("{}\n"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	link := filepath.Join(dir, "link.jsonl")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("Symlink failed: %v", err)
	}

	for _, mode := range []PathCheckMode{PathCheckRead, PathCheckWrite} {
		if err := ValidatePath(link, mode, unsafeConfig()); !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("ValidatePath(symlink, %d) = %v, want ErrInvalidRequest", mode, err)
		}
	}
}

func TestHasTraversal(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"../x.jsonl", true},
		{"a/../b.jsonl", true},
		{"a/b/..", true},
		{"a/..b/c.jsonl", false},
		{"a/b..c.jsonl", false},
		{"/tmp/x.jsonl", false},
	}
	for _, tc := range tests {
		if got := hasTraversal(tc.path); got != tc.want {
			t.Errorf("hasTraversal(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestSanitizeForFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"docs", "docs"},
		{"../../etc/passwd", "etc-passwd"},
		{`a\b/c`, "a-b-c"},
		{"tab\there", "tabhere"},
		{"--", "unnamed"},
		{"", "unnamed"},
		{"café notes", "café notes"},
	}
	for _, tc := range tests {
		if got := SanitizeForFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeForFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
