package ops

import (
	"strings"
	"testing"

	"github.com/hpungsan/pith/internal/compress"
	"github.com/hpungsan/pith/internal/config"
	"github.com/hpungsan/pith/internal/errors"
)

func TestRestore_StoredByID(t *testing.T) {
	database := openTestDB(t)
	stored := storeText(t, database, newTestEngine(t), "default", nil, twoSpanText)

	out, err := Restore(t.Context(), database, config.DefaultConfig(), RestoreInput{ID: stored.ID})
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if out.RestoredText != twoSpanText || !out.IntegrityPassed {
		t.Errorf("Restore = %+v", out)
	}
	if out.Errors == nil || len(out.Errors) != 0 {
		t.Errorf("Errors = %v, want empty non-nil", out.Errors)
	}
	if out.ID != stored.ID {
		t.Errorf("ID = %q, want %q", out.ID, stored.ID)
	}
}

func TestRestore_StoredByNameWithEditedText(t *testing.T) {
	database := openTestDB(t)
	stored := storeText(t, database, newTestEngine(t), "chat", stringPtr("greeting"), emailSentence)

	// An LLM answered using the placeholder.
	reply := "I forwarded it to " + stored.Placeholders.IDs()[0] + " already."
	out, err := Restore(t.Context(), database, config.DefaultConfig(), RestoreInput{
		Workspace: "chat",
		Name:      "greeting",
		Text:      &reply,
	})
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if out.RestoredText != "I forwarded it to support@example-very-long-domain.com already." {
		t.Errorf("RestoredText = %q", out.RestoredText)
	}
	if !out.IntegrityPassed {
		t.Errorf("IntegrityPassed = false: %v", out.Errors)
	}
}

func TestRestore_ExplicitMap(t *testing.T) {
	engine := newTestEngine(t)
	compressed, err := Compress(t.Context(), nil, engine, config.DefaultConfig(), CompressInput{Text: emailSentence})
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	out, err := Restore(t.Context(), nil, config.DefaultConfig(), RestoreInput{
		Placeholders: compressed.Placeholders,
		Text:         &compressed.CompressedText,
	})
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if out.RestoredText != emailSentence || !out.IntegrityPassed || out.ID != "" {
		t.Errorf("Restore = %+v", out)
	}
}

func TestRestore_ReportsIntegrityWithoutFailing(t *testing.T) {
	m := compress.NewPlaceholderMap(compress.Placeholder{
		ID:       "@@P0@@",
		Original: "tampered-value@example.com",
		Checksum: "494cd9b5",
	})
	text := "Contact @@P0@@ for details"

	out, err := Restore(t.Context(), nil, config.DefaultConfig(), RestoreInput{Placeholders: m, Text: &text})
	if err != nil {
		t.Fatalf("Restore should not fail on integrity problems: %v", err)
	}
	if out.IntegrityPassed || len(out.Errors) != 1 || !strings.HasPrefix(out.Errors[0], "Checksum mismatch for @@P0@@") {
		t.Errorf("Restore = %+v", out)
	}
}

func TestRestore_Validation(t *testing.T) {
	database := openTestDB(t)
	cfg := config.DefaultConfig()
	m := compress.NewPlaceholderMap()
	text := "anything"

	tests := []struct {
		name  string
		input RestoreInput
		code  errors.ErrorCode
	}{
		{"no address", RestoreInput{}, errors.ErrInvalidRequest},
		{"map without text", RestoreInput{Placeholders: m}, errors.ErrInvalidRequest},
		{"map with id", RestoreInput{Placeholders: m, ID: "01X", Text: &text}, errors.ErrAmbiguousAddressing},
		{"id and name", RestoreInput{ID: "01X", Name: "n"}, errors.ErrAmbiguousAddressing},
		{"unknown id", RestoreInput{ID: "01MISSING"}, errors.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Restore(t.Context(), database, cfg, tc.input)
			if !errors.Is(err, tc.code) {
				t.Errorf("Restore = %v, want %s", err, tc.code)
			}
		})
	}
}

func TestVerify(t *testing.T) {
	database := openTestDB(t)
	stored := storeText(t, database, newTestEngine(t), "docs", stringPtr("notes"), twoSpanText)

	out, err := Verify(t.Context(), database, VerifyInput{Workspace: "docs", Name: "notes"})
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if out.ID != stored.ID || !out.IntegrityPassed || !out.RoundTrip || out.Placeholders != 2 {
		t.Errorf("Verify = %+v", out)
	}

	if _, err := Verify(t.Context(), database, VerifyInput{ID: "01MISSING"}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Verify(missing) = %v, want ErrNotFound", err)
	}
}
