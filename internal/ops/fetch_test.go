package ops

import (
	"testing"

	"github.com/hpungsan/pith/internal/config"
	"github.com/hpungsan/pith/internal/errors"
)

func TestFetch_ByNameAndID(t *testing.T) {
	database := openTestDB(t)
	stored := storeText(t, database, newTestEngine(t), "Docs", stringPtr("Notes"), twoSpanText)
	cfg := config.DefaultConfig()

	byName, err := Fetch(t.Context(), database, cfg, FetchInput{Workspace: "docs", Name: "NOTES"})
	if err != nil {
		t.Fatalf("Fetch by name failed: %v", err)
	}
	byID, err := Fetch(t.Context(), database, cfg, FetchInput{ID: stored.ID})
	if err != nil {
		t.Fatalf("Fetch by id failed: %v", err)
	}

	for _, out := range []*FetchOutput{byName, byID} {
		if out.ID != stored.ID || out.Workspace != "Docs" || out.Name == nil || *out.Name != "Notes" {
			t.Errorf("identity = %q %q %v", out.ID, out.Workspace, out.Name)
		}
		if out.OriginalText != twoSpanText || out.CompressedText != stored.CompressedText {
			t.Errorf("texts not returned: %+v", out)
		}
		if out.Placeholders.Len() != 2 || out.ContentTypeCounts["url"] != 1 {
			t.Errorf("placeholders/type counts = %v/%v", out.Placeholders.IDs(), out.ContentTypeCounts)
		}
		if out.FetchKey.Name != "Notes" || out.FetchKey.Workspace != "Docs" {
			t.Errorf("FetchKey = %+v", out.FetchKey)
		}
		if out.CostSavings.OriginalCost <= out.CostSavings.CompressedCost {
			t.Errorf("CostSavings = %+v, want savings", out.CostSavings)
		}
	}
}

func TestFetch_ExcludeText(t *testing.T) {
	database := openTestDB(t)
	stored := storeText(t, database, newTestEngine(t), "default", nil, emailSentence)

	out, err := Fetch(t.Context(), database, config.DefaultConfig(), FetchInput{ID: stored.ID, IncludeText: boolPtr(false)})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if out.OriginalText != "" || out.CompressedText != "" {
		t.Errorf("texts should be omitted: %q %q", out.OriginalText, out.CompressedText)
	}
	if out.Placeholders.Len() != 1 {
		t.Errorf("placeholders should still be returned")
	}
	if out.FetchKey.ID != stored.ID {
		t.Errorf("FetchKey = %+v, want id key", out.FetchKey)
	}
}

func TestFetch_Deleted(t *testing.T) {
	database := openTestDB(t)
	stored := storeText(t, database, newTestEngine(t), "default", nil, emailSentence)
	if _, err := Delete(t.Context(), database, DeleteInput{ID: stored.ID}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := Fetch(t.Context(), database, config.DefaultConfig(), FetchInput{ID: stored.ID}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Fetch deleted = %v, want ErrNotFound", err)
	}
	out, err := Fetch(t.Context(), database, config.DefaultConfig(), FetchInput{ID: stored.ID, IncludeDeleted: true})
	if err != nil {
		t.Fatalf("Fetch with IncludeDeleted failed: %v", err)
	}
	if out.DeletedAt == nil {
		t.Error("DeletedAt should be set")
	}
}
