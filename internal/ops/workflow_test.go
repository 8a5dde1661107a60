package ops

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/pith/internal/config"
	"github.com/hpungsan/pith/internal/db"
	"github.com/hpungsan/pith/internal/errors"
)

// TestFullWorkflow exercises the stored-result lifecycle:
// compress → fetch → restore → verify → list → stats → export → delete → purge → fetch (not found) → import
func TestFullWorkflow(t *testing.T) {
	ctx := t.Context()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()

	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true
	engine, err := NewEngine(cfg, nil)
	require.NoError(t, err)

	ws := "workflow-test"
	name := "lifecycle"

	// 1. Compress and store
	compressOut, err := Compress(ctx, database, engine, cfg, CompressInput{
		Text:      twoSpanText,
		Workspace: ws,
		Name:      stringPtr(name),
	})
	require.NoError(t, err)
	require.NotEmpty(t, compressOut.ID)
	require.Equal(t, "See @@P0@@ and mail @@P1@@ today.", compressOut.CompressedText)
	id := compressOut.ID

	// 2. Fetch by name
	fetchOut, err := Fetch(ctx, database, cfg, FetchInput{Workspace: ws, Name: name})
	require.NoError(t, err)
	require.Equal(t, id, fetchOut.ID)
	require.Equal(t, twoSpanText, fetchOut.OriginalText)

	// 3. Restore a model reply that reuses one placeholder
	reply := "Opened @@P0@@ as asked."
	restoreOut, err := Restore(ctx, database, cfg, RestoreInput{ID: id, Text: &reply})
	require.NoError(t, err)
	require.Equal(t, "Opened https://example.com/docs/getting-started?tab=install as asked.", restoreOut.RestoredText)
	// @@P1@@ is absent from the reply
	require.False(t, restoreOut.IntegrityPassed)
	require.Equal(t, []string{"Placeholder @@P1@@ not found in text"}, restoreOut.Errors)

	// 4. Verify the stored record itself
	verifyOut, err := Verify(ctx, database, VerifyInput{ID: id})
	require.NoError(t, err)
	require.True(t, verifyOut.IntegrityPassed)
	require.True(t, verifyOut.RoundTrip)

	// 5. List - record appears
	listOut, err := List(ctx, database, ListInput{Workspace: &ws})
	require.NoError(t, err)
	require.Len(t, listOut.Items, 1)
	require.Equal(t, id, listOut.Items[0].ID)

	// 6. Stats
	statsOut, err := Stats(ctx, database, cfg, StatsInput{Workspace: &ws})
	require.NoError(t, err)
	require.Equal(t, 1, statsOut.NumCompressions)
	require.Equal(t, 20, statsOut.TotalOriginalTokens)
	require.Equal(t, 15, statsOut.TotalCompressedTokens)

	// 7. Export
	exportPath := filepath.Join(t.TempDir(), "workflow.jsonl")
	exportOut, err := Export(ctx, database, cfg, ExportInput{Path: exportPath, Workspace: &ws})
	require.NoError(t, err)
	require.Equal(t, 1, exportOut.Count)

	// 8. Delete (soft)
	deleteOut, err := Delete(ctx, database, DeleteInput{ID: id})
	require.NoError(t, err)
	require.True(t, deleteOut.Deleted)

	// 9. Purge
	purgeOut, err := Purge(ctx, database, PurgeInput{Workspace: &ws})
	require.NoError(t, err)
	require.Equal(t, 1, purgeOut.Purged)

	// 10. Fetch - gone for good
	_, err = Fetch(ctx, database, cfg, FetchInput{ID: id, IncludeDeleted: true})
	require.True(t, errors.Is(err, errors.ErrNotFound))

	// 11. Import brings it back, placeholders intact
	importOut, err := Import(ctx, database, cfg, ImportInput{Path: exportPath})
	require.NoError(t, err)
	require.Equal(t, 1, importOut.Imported)

	restoreOut, err = Restore(ctx, database, cfg, RestoreInput{Workspace: ws, Name: name})
	require.NoError(t, err)
	require.True(t, restoreOut.IntegrityPassed)
	require.Equal(t, twoSpanText, restoreOut.RestoredText)
}

// TestWorkflow_ResetCounter checks that resetting ids does not disturb stored records.
func TestWorkflow_ResetCounter(t *testing.T) {
	ctx := t.Context()
	database := openTestDB(t)
	engine := newTestEngine(t)
	cfg := config.DefaultConfig()

	first := storeText(t, database, engine, "default", nil, emailSentence)
	engine.ResetCounter()
	second := storeText(t, database, engine, "default", nil, emailSentence)

	// Both records use @@P0@@, each against its own map.
	require.Equal(t, first.CompressedText, second.CompressedText)

	for _, id := range []string{first.ID, second.ID} {
		out, err := Restore(ctx, database, cfg, RestoreInput{ID: id})
		require.NoError(t, err)
		require.True(t, out.IntegrityPassed)
		require.Equal(t, emailSentence, out.RestoredText)
	}
}
